package naming

import (
	"fmt"

	"github.com/chazu/toponame/pkg/kernel"
)

// TopoShape is a kernel shape together with the References of its
// sub-shapes, keyed by arena index.
type TopoShape struct {
	shape *kernel.Shape
	refs  map[kernel.Subshape]Reference
}

// Entry pairs a sub-shape with its Reference.
type Entry struct {
	Sub kernel.Subshape
	Ref Reference
}

// NewTopoShape wraps s with an empty reference table.
func NewTopoShape(s *kernel.Shape) *TopoShape {
	return &TopoShape{shape: s, refs: make(map[kernel.Subshape]Reference)}
}

// Shape returns the underlying kernel shape.
func (t *TopoShape) Shape() *kernel.Shape {
	if t == nil {
		return nil
	}
	return t.shape
}

// IsNull reports whether there is no shape or the shape has no entities.
func (t *TopoShape) IsNull() bool {
	return t == nil || t.shape.IsNull()
}

// HasSubshapeReference reports whether sub has a Reference attached.
func (t *TopoShape) HasSubshapeReference(sub kernel.Subshape) bool {
	_, ok := t.refs[sub]
	return ok
}

// SubshapeReference returns the Reference of sub, or the invalid zero
// Reference when none is attached.
func (t *TopoShape) SubshapeReference(sub kernel.Subshape) Reference {
	return t.refs[sub]
}

// SetSubshapeReference attaches ref to sub, replacing any previous one.
func (t *TopoShape) SetSubshapeReference(sub kernel.Subshape, ref Reference) error {
	if !t.shape.Contains(sub) {
		return fmt.Errorf("%w: %s %d", ErrNoSubshape, sub.Kind, sub.Index)
	}
	t.refs[sub] = ref
	return nil
}

// ReferenceByID returns the Reference of the sub-shape carrying the kernel
// identity id.
func (t *TopoShape) ReferenceByID(id kernel.TShapeID) (Reference, bool) {
	sub, ok := t.shape.Lookup(id)
	if !ok {
		return Reference{}, false
	}
	ref, ok := t.refs[sub]
	return ref, ok
}

// Find returns the first sub-shape, in exploration order, whose Reference
// hashes to h.
func (t *TopoShape) Find(h uint64) (kernel.Subshape, bool) {
	if h == 0 {
		return kernel.Subshape{}, false
	}
	for _, sub := range t.shape.Subshapes() {
		if ref, ok := t.refs[sub]; ok && ref.Hash() == h {
			return sub, true
		}
	}
	return kernel.Subshape{}, false
}

// References lists the attached References in exploration order: vertices,
// then edges, then faces.
func (t *TopoShape) References() []Entry {
	out := make([]Entry, 0, len(t.refs))
	for _, sub := range t.shape.Subshapes() {
		if ref, ok := t.refs[sub]; ok {
			out = append(out, Entry{Sub: sub, Ref: ref})
		}
	}
	return out
}

// Len returns the number of attached References.
func (t *TopoShape) Len() int {
	return len(t.refs)
}

// IsFullyNamed reports whether every sub-shape carries a valid Reference.
func (t *TopoShape) IsFullyNamed() bool {
	for _, sub := range t.shape.Subshapes() {
		if !t.refs[sub].IsValid() {
			return false
		}
	}
	return true
}
