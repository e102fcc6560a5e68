package naming

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tinylib/msgp/msgp"

	"github.com/chazu/toponame/pkg/kernel"
)

// Wire format. A Reference is a MessagePack array
//
//	[version, shape, operation, type, name, counter, uuid, bases]
//
// where operation is the operation's name (the table is open, so values
// are not stable across processes), uuid is 16 raw bytes and bases is an
// array of References in the same layout. A reference table is an array of
// [kind, index, Reference] triples.

const (
	codecVersion   uint8 = 1
	referenceArity       = 8
	entryArity           = 3
	maxDepth             = 512
)

var (
	// ErrCodecVersion is returned when decoding data written by an unknown
	// codec version.
	ErrCodecVersion = errors.New("unsupported reference encoding version")
	errTooDeep      = errors.New("reference lineage nested too deeply")
)

var (
	_ msgp.Marshaler   = Reference{}
	_ msgp.Unmarshaler = (*Reference)(nil)
	_ msgp.Sizer       = Reference{}
)

// MarshalMsg appends the encoding of r to b.
func (r Reference) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, referenceArity)
	b = msgp.AppendUint8(b, codecVersion)
	b = msgp.AppendUint8(b, uint8(r.shape))
	b = msgp.AppendString(b, r.operation.String())
	b = msgp.AppendUint8(b, uint8(r.typ))
	b = msgp.AppendUint8(b, uint8(r.name))
	b = msgp.AppendUint32(b, r.counter)
	b = msgp.AppendBytes(b, r.opID[:])
	b = msgp.AppendArrayHeader(b, uint32(len(r.bases)))
	var err error
	for i := range r.bases {
		b, err = r.bases[i].MarshalMsg(b)
		if err != nil {
			return b, msgp.WrapError(err, "bases", i)
		}
	}
	return b, nil
}

// UnmarshalMsg decodes a Reference from the front of b and returns the
// remaining bytes.
func (r *Reference) UnmarshalMsg(b []byte) ([]byte, error) {
	return r.unmarshal(b, 0)
}

func (r *Reference) unmarshal(b []byte, depth int) ([]byte, error) {
	if depth > maxDepth {
		return b, errTooDeep
	}
	sz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return b, err
	}
	if sz != referenceArity {
		return b, msgp.ArrayError{Wanted: referenceArity, Got: sz}
	}

	version, b, err := msgp.ReadUint8Bytes(b)
	if err != nil {
		return b, msgp.WrapError(err, "version")
	}
	if version != codecVersion {
		return b, fmt.Errorf("%w: %d", ErrCodecVersion, version)
	}

	var out Reference
	var u8 uint8
	if u8, b, err = msgp.ReadUint8Bytes(b); err != nil {
		return b, msgp.WrapError(err, "shape")
	}
	out.shape = ShapeType(u8)
	if int(out.shape) >= len(shapeTypes.names) {
		return b, fmt.Errorf("%w: shape %d", ErrUnknownName, u8)
	}

	var opName string
	if opName, b, err = msgp.ReadStringBytes(b); err != nil {
		return b, msgp.WrapError(err, "operation")
	}
	if out.operation, err = RegisterOperation(opName); err != nil {
		return b, msgp.WrapError(err, "operation")
	}

	if u8, b, err = msgp.ReadUint8Bytes(b); err != nil {
		return b, msgp.WrapError(err, "type")
	}
	out.typ = Type(u8)
	if int(out.typ) >= len(types.names) {
		return b, fmt.Errorf("%w: type %d", ErrUnknownName, u8)
	}

	if u8, b, err = msgp.ReadUint8Bytes(b); err != nil {
		return b, msgp.WrapError(err, "name")
	}
	out.name = Name(u8)
	if int(out.name) >= len(names.names) {
		return b, fmt.Errorf("%w: name %d", ErrUnknownName, u8)
	}

	if out.counter, b, err = msgp.ReadUint32Bytes(b); err != nil {
		return b, msgp.WrapError(err, "counter")
	}
	out.counter = max(out.counter, 1)

	var raw []byte
	if raw, b, err = msgp.ReadBytesBytes(b, nil); err != nil {
		return b, msgp.WrapError(err, "uuid")
	}
	if out.opID, err = uuid.FromBytes(raw); err != nil {
		return b, msgp.WrapError(err, "uuid")
	}

	var nb uint32
	if nb, b, err = msgp.ReadArrayHeaderBytes(b); err != nil {
		return b, msgp.WrapError(err, "bases")
	}
	if nb > 0 {
		out.bases = make([]Reference, nb)
		for i := range out.bases {
			if b, err = out.bases[i].unmarshal(b, depth+1); err != nil {
				return b, msgp.WrapError(err, "bases", i)
			}
		}
	}

	*r = out.seal()
	return b, nil
}

// Msgsize returns an upper bound on the encoded size of r.
func (r Reference) Msgsize() int {
	n := msgp.ArrayHeaderSize +
		4*msgp.Uint8Size +
		msgp.StringPrefixSize + len(r.operation.String()) +
		msgp.Uint32Size +
		msgp.BytesPrefixSize + len(r.opID) +
		msgp.ArrayHeaderSize
	for i := range r.bases {
		n += r.bases[i].Msgsize()
	}
	return n
}

// MarshalTable encodes the reference table of t.
func MarshalTable(t *TopoShape) ([]byte, error) {
	entries := t.References()
	size := msgp.ArrayHeaderSize
	for _, e := range entries {
		size += msgp.ArrayHeaderSize + msgp.Uint8Size + msgp.Uint32Size + e.Ref.Msgsize()
	}

	b := make([]byte, 0, size)
	b = msgp.AppendArrayHeader(b, uint32(len(entries)))
	var err error
	for _, e := range entries {
		b = msgp.AppendArrayHeader(b, entryArity)
		b = msgp.AppendUint8(b, uint8(e.Sub.Kind))
		b = msgp.AppendUint32(b, uint32(e.Sub.Index))
		if b, err = e.Ref.MarshalMsg(b); err != nil {
			return nil, fmt.Errorf("marshal %s %d: %w", e.Sub.Kind, e.Sub.Index, err)
		}
	}
	return b, nil
}

// UnmarshalTable decodes a reference table onto shape. Every entry must
// address a sub-shape of shape.
func UnmarshalTable(b []byte, shape *kernel.Shape) (*TopoShape, error) {
	t := NewTopoShape(shape)
	n, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, fmt.Errorf("unmarshal table: %w", err)
	}
	for i := uint32(0); i < n; i++ {
		var sz uint32
		if sz, b, err = msgp.ReadArrayHeaderBytes(b); err != nil {
			return nil, fmt.Errorf("unmarshal entry %d: %w", i, err)
		}
		if sz != entryArity {
			return nil, fmt.Errorf("unmarshal entry %d: %w", i, msgp.ArrayError{Wanted: entryArity, Got: sz})
		}
		var kind uint8
		var index uint32
		if kind, b, err = msgp.ReadUint8Bytes(b); err != nil {
			return nil, fmt.Errorf("unmarshal entry %d kind: %w", i, err)
		}
		if index, b, err = msgp.ReadUint32Bytes(b); err != nil {
			return nil, fmt.Errorf("unmarshal entry %d index: %w", i, err)
		}
		var ref Reference
		if b, err = ref.UnmarshalMsg(b); err != nil {
			return nil, fmt.Errorf("unmarshal entry %d reference: %w", i, err)
		}
		sub := kernel.Subshape{Kind: kernel.Kind(kind), Index: int(index)}
		if err := t.SetSubshapeReference(sub, ref); err != nil {
			return nil, fmt.Errorf("unmarshal entry %d: %w", i, err)
		}
	}
	if len(b) != 0 {
		return nil, fmt.Errorf("unmarshal table: %d trailing bytes", len(b))
	}
	return t, nil
}
