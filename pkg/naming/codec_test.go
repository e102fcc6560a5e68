package naming

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinylib/msgp/msgp"

	"github.com/chazu/toponame/pkg/kernel"
)

func lineage() Reference {
	v1 := BuildNew(ShapeVertex, OpBox, WithOperationID(opA), WithCount(3))
	v2 := BuildNew(ShapeVertex, OpBox, WithOperationID(opA), WithCount(4))
	e := BuildMerged(ShapeEdge, OpCompound, []Reference{v1, v2}, WithOperationID(opB), WithName(NameStart))
	return BuildModified(ShapeEdge, OpTranslate, e, WithOperationID(opB))
}

func TestReferenceRoundTrip(t *testing.T) {
	refs := []Reference{
		BuildNew(ShapeFace, OpBox),
		BuildNew(ShapeGeometry, OpSphere, WithName(NameTop), WithCount(7)),
		lineage(),
	}
	for _, ref := range refs {
		b, err := ref.MarshalMsg(nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(b), ref.Msgsize())

		var got Reference
		rest, err := got.UnmarshalMsg(b)
		require.NoError(t, err)
		assert.Empty(t, rest)
		assert.Equal(t, ref.Hash(), got.Hash())
		assert.Equal(t, ref.String(), got.String())
	}
}

func TestReferenceUnmarshalLeavesRest(t *testing.T) {
	b, err := lineage().MarshalMsg(nil)
	require.NoError(t, err)
	b = append(b, 0xc0)

	var got Reference
	rest, err := got.UnmarshalMsg(b)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xc0}, rest)
}

func TestReferenceUnmarshalRegistersOperation(t *testing.T) {
	op, err := RegisterOperation("Chamfer")
	require.NoError(t, err)
	b, err := BuildNew(ShapeEdge, op).MarshalMsg(nil)
	require.NoError(t, err)

	var got Reference
	_, err = got.UnmarshalMsg(b)
	require.NoError(t, err)
	assert.Equal(t, "Chamfer", got.Operation().String())

	// A name this process never registered is added on decode.
	raw := msgp.AppendArrayHeader(nil, referenceArity)
	raw = msgp.AppendUint8(raw, codecVersion)
	raw = msgp.AppendUint8(raw, uint8(ShapeFace))
	raw = msgp.AppendString(raw, "Loft")
	raw = msgp.AppendUint8(raw, uint8(TypeNew))
	raw = msgp.AppendUint8(raw, uint8(NameNone))
	raw = msgp.AppendUint32(raw, 1)
	raw = msgp.AppendBytes(raw, uuid.Nil[:])
	raw = msgp.AppendArrayHeader(raw, 0)
	_, err = got.UnmarshalMsg(raw)
	require.NoError(t, err)
	loft, err := ParseOperation("Loft")
	require.NoError(t, err)
	assert.Equal(t, loft, got.Operation())
}

func encode(version, shape uint8, op string, typ, name uint8, id []byte) []byte {
	b := msgp.AppendArrayHeader(nil, referenceArity)
	b = msgp.AppendUint8(b, version)
	b = msgp.AppendUint8(b, shape)
	b = msgp.AppendString(b, op)
	b = msgp.AppendUint8(b, typ)
	b = msgp.AppendUint8(b, name)
	b = msgp.AppendUint32(b, 1)
	b = msgp.AppendBytes(b, id)
	return msgp.AppendArrayHeader(b, 0)
}

func TestReferenceUnmarshalErrors(t *testing.T) {
	good, err := lineage().MarshalMsg(nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		data   []byte
		target error
	}{
		{"empty", nil, nil},
		{"truncated", good[:len(good)/2], nil},
		{"not an array", msgp.AppendString(nil, "Box"), nil},
		{"wrong arity", msgp.AppendArrayHeader(nil, 3), nil},
		{"version", encode(9, 4, "Box", 1, 0, uuid.Nil[:]), ErrCodecVersion},
		{"shape out of range", encode(1, 40, "Box", 1, 0, uuid.Nil[:]), ErrUnknownName},
		{"type out of range", encode(1, 4, "Box", 40, 0, uuid.Nil[:]), ErrUnknownName},
		{"name out of range", encode(1, 4, "Box", 1, 40, uuid.Nil[:]), ErrUnknownName},
		{"short uuid", encode(1, 4, "Box", 1, 0, []byte{1, 2, 3}), nil},
		{"empty operation", encode(1, 4, "", 1, 0, uuid.Nil[:]), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Reference
			_, err := got.UnmarshalMsg(tt.data)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			assert.False(t, got.IsValid(), "failed decode leaves the target untouched")
		})
	}
}

func TestTableRoundTrip(t *testing.T) {
	b := quietBuilder()
	base := namedBox(t, b, 1, 2, 3)
	moved, h := translated(base, 1, 1, 1)
	_, err := b.PopulateOperation(h, []*TopoShape{base}, moved, OpTranslate, uuid.New())
	require.NoError(t, err)

	data, err := MarshalTable(moved)
	require.NoError(t, err)

	got, err := UnmarshalTable(data, moved.Shape())
	require.NoError(t, err)
	assert.Equal(t, moved.Len(), got.Len())
	for _, e := range moved.References() {
		assert.Equal(t, e.Ref.Hash(), got.SubshapeReference(e.Sub).Hash(), "%v", e.Sub)
		assert.True(t, got.SubshapeReference(e.Sub).IsModificationOf(base.SubshapeReference(e.Sub).Hash()))
	}
}

func TestTableUnmarshalErrors(t *testing.T) {
	b := quietBuilder()
	box := namedBox(t, b, 1, 1, 1)
	data, err := MarshalTable(box)
	require.NoError(t, err)

	t.Run("trailing bytes", func(t *testing.T) {
		_, err := UnmarshalTable(append(append([]byte{}, data...), 0xc0), box.Shape())
		assert.ErrorContains(t, err, "trailing bytes")
	})
	t.Run("truncated", func(t *testing.T) {
		_, err := UnmarshalTable(data[:len(data)-5], box.Shape())
		assert.Error(t, err)
	})
	t.Run("foreign shape", func(t *testing.T) {
		small, err := kernel.NewSphere(1)
		require.NoError(t, err)
		_, err = UnmarshalTable(data, small)
		assert.ErrorIs(t, err, ErrNoSubshape)
	})
	t.Run("empty table", func(t *testing.T) {
		got, err := UnmarshalTable(msgp.AppendArrayHeader(nil, 0), box.Shape())
		require.NoError(t, err)
		assert.Zero(t, got.Len())
	})
}
