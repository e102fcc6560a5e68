// Package naming assigns stable, content-derived identities to the vertices,
// edges and faces of kernel shapes and keeps them alive across modeling
// operations.
//
// A Reference records how one sub-shape came to exist: its kind, the
// operation and operation invocation that produced it, how it relates to
// its parents, and the parents themselves. Its hash is the identity token
// handed to dependents. A TopoShape pairs a kernel shape with the
// References of its sub-shapes, and a Builder fills that table after every
// operation from the kernel's history and, where the kernel is silent, from
// geometric matching.
package naming

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Reference is an immutable lineage record for one sub-shape. The zero
// value is invalid.
type Reference struct {
	shape     ShapeType
	operation Operation
	typ       Type
	name      Name
	opID      uuid.UUID
	counter   uint32
	bases     []Reference
	hash      uint64 // set by seal
}

// Option configures a Reference being built.
type Option func(*Reference)

// WithName sets the semantic role of the built Reference.
func WithName(n Name) Option {
	return func(r *Reference) { r.name = n }
}

// WithOperationID stamps the built Reference with an operation invocation.
func WithOperationID(id uuid.UUID) Option {
	return func(r *Reference) { r.opID = id }
}

// WithCount sets the disambiguation counter of the built Reference.
// Counters start at 1; 0 is treated as 1.
func WithCount(n uint32) Option {
	return func(r *Reference) { r.counter = max(n, 1) }
}

func build(shape ShapeType, op Operation, typ Type, bases []Reference, opts []Option) Reference {
	r := Reference{
		shape:     shape,
		operation: op,
		typ:       typ,
		counter:   1,
		bases:     slices.Clone(bases),
	}
	for _, o := range opts {
		o(&r)
	}
	return r.seal()
}

// seal computes the hash of r. Every constructor and copy-modifier ends
// with it, so Hash never walks the lineage.
func (r Reference) seal() Reference {
	r.hash = 0
	if r.IsValid() {
		var sb strings.Builder
		r.render(&sb, 0, false)
		r.hash = xxhash.Sum64String(sb.String())
	}
	return r
}

// BuildNew returns a Reference for a sub-shape without parents.
func BuildNew(shape ShapeType, op Operation, opts ...Option) Reference {
	return build(shape, op, TypeNew, nil, opts)
}

// BuildGenerated returns a Reference for a sub-shape produced as a side
// effect of op acting on base.
func BuildGenerated(shape ShapeType, op Operation, base Reference, opts ...Option) Reference {
	return build(shape, op, TypeGenerated, []Reference{base}, opts)
}

// BuildGeneratedFrom is BuildGenerated with several parents.
func BuildGeneratedFrom(shape ShapeType, op Operation, bases []Reference, opts ...Option) Reference {
	return build(shape, op, TypeGenerated, bases, opts)
}

// BuildModified returns a Reference for base after op changed its geometry.
func BuildModified(shape ShapeType, op Operation, base Reference, opts ...Option) Reference {
	return build(shape, op, TypeModified, []Reference{base}, opts)
}

// BuildMerged returns a Reference for a sub-shape that coalesces bases.
func BuildMerged(shape ShapeType, op Operation, bases []Reference, opts ...Option) Reference {
	return build(shape, op, TypeMerged, bases, opts)
}

// BuildConstructed returns a Reference for a sub-shape synthesized by op from
// base without geometric carry-over.
func BuildConstructed(shape ShapeType, op Operation, base Reference, opts ...Option) Reference {
	return build(shape, op, TypeConstructed, []Reference{base}, opts)
}

// BuildConstructedFrom is BuildConstructed with several parents.
func BuildConstructedFrom(shape ShapeType, op Operation, bases []Reference, opts ...Option) Reference {
	return build(shape, op, TypeConstructed, bases, opts)
}

// ---------------------------------------------------------------------------
// Accessors and copy-modifiers
// ---------------------------------------------------------------------------

func (r Reference) Shape() ShapeType       { return r.shape }
func (r Reference) Operation() Operation   { return r.operation }
func (r Reference) Type() Type             { return r.typ }
func (r Reference) Name() Name             { return r.name }
func (r Reference) OperationID() uuid.UUID { return r.opID }
func (r Reference) Count() uint32          { return r.counter }
func (r Reference) Bases() []Reference     { return slices.Clone(r.bases) }
func (r Reference) NumBases() int          { return len(r.bases) }
func (r Reference) Base(i int) Reference   { return r.bases[i] }

func (r Reference) HasType(t Type) bool {
	return r.typ == t
}

func (r Reference) HasShape(s ShapeType) bool {
	return r.shape == s
}

func (r Reference) HasName(n Name) bool {
	return r.name == n
}

func (r Reference) HasOperation(op Operation) bool {
	return r.operation == op
}

func (r Reference) HasOperationID(id uuid.UUID) bool {
	return r.opID == id
}

// WithOperationID returns a copy of r stamped with id.
func (r Reference) WithOperationID(id uuid.UUID) Reference {
	r.opID = id
	return r.seal()
}

// WithCount returns a copy of r with counter n. 0 is treated as 1.
func (r Reference) WithCount(n uint32) Reference {
	r.counter = max(n, 1)
	return r.seal()
}

// Next returns a copy of r with the counter incremented.
func (r Reference) Next() Reference {
	r.counter++
	return r.seal()
}

// IsValid reports whether shape, operation and type are all set.
func (r Reference) IsValid() bool {
	return r.shape != ShapeNone && r.operation != OpNone && r.typ != TypeNone
}

// ---------------------------------------------------------------------------
// Identity
// ---------------------------------------------------------------------------

// String renders r and its whole lineage for display. An invalid Reference
// renders as "None".
func (r Reference) String() string {
	var sb strings.Builder
	r.render(&sb, 0, true)
	return sb.String()
}

// render writes the canonical text of r. Bases are written as their hashes;
// recursive rendering additionally nests their own text in braces.
func (r Reference) render(sb *strings.Builder, level int, recursive bool) {
	level++
	if !r.IsValid() {
		sb.WriteString("None")
		return
	}
	sb.WriteString(r.typ.String())
	sb.WriteByte(' ')
	sb.WriteString(r.shape.String())
	sb.WriteString(" build from operation ")
	sb.WriteString(r.operation.String())
	sb.WriteString(" (")
	sb.WriteString(r.opID.String())
	sb.WriteByte(')')
	if r.name != NameNone {
		sb.WriteString(" named as ")
		sb.WriteString(r.name.String())
	}
	if r.counter > 1 {
		sb.WriteString(" with ")
		sb.WriteString(strconv.FormatUint(uint64(r.counter), 10))
		sb.WriteString(" occurances")
	}
	if len(r.bases) == 0 {
		return
	}
	sb.WriteString(" based on\n")
	for _, b := range r.bases {
		sb.WriteString(strings.Repeat(" ", level*3))
		sb.WriteString(b.HashString())
		if recursive {
			sb.WriteString("{ ")
			b.render(sb, level, true)
			sb.WriteString("}")
		}
		sb.WriteByte('\n')
	}
}

// Hash returns the identity token of r: the xxhash of its non-recursive
// rendering. An invalid Reference hashes to 0.
func (r Reference) Hash() uint64 { return r.hash }

// HashString returns Hash in decimal.
func (r Reference) HashString() string {
	return strconv.FormatUint(r.Hash(), 10)
}

// Matches reports whether r hashes to h.
func (r Reference) Matches(h uint64) bool { return r.Hash() == h }

// Equal reports whether r and o hash identically.
func (r Reference) Equal(o Reference) bool { return r.Hash() == o.Hash() }

// Compare orders References by hash.
func (r Reference) Compare(o Reference) int { return cmp.Compare(r.Hash(), o.Hash()) }

// Less reports whether r hashes lower than o.
func (r Reference) Less(o Reference) bool { return r.Hash() < o.Hash() }

// ---------------------------------------------------------------------------
// Lineage queries
// ---------------------------------------------------------------------------

// IsBasedOn reports whether any ancestor of r hashes to h.
// Shared ancestors are visited once.
func (r Reference) IsBasedOn(h uint64) bool {
	seen := make(map[uint64]bool)
	stack := slices.Clone(r.bases)
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if b.hash == h {
			return true
		}
		if seen[b.hash] {
			continue
		}
		seen[b.hash] = true
		stack = append(stack, b.bases...)
	}
	return false
}

// IsGeneratedFrom reports whether r is Generated with an immediate parent
// hashing to h.
func (r Reference) IsGeneratedFrom(h uint64) bool { return r.derivedFrom(TypeGenerated, h) }

// IsModificationOf reports whether r is Modified with an immediate parent
// hashing to h.
func (r Reference) IsModificationOf(h uint64) bool { return r.derivedFrom(TypeModified, h) }

// IsMergedFrom reports whether r is Merged with an immediate parent hashing
// to h.
func (r Reference) IsMergedFrom(h uint64) bool { return r.derivedFrom(TypeMerged, h) }

// IsConstructedFrom reports whether r is Constructed with an immediate
// parent hashing to h.
func (r Reference) IsConstructedFrom(h uint64) bool { return r.derivedFrom(TypeConstructed, h) }

func (r Reference) derivedFrom(t Type, h uint64) bool {
	if r.typ != t || !r.IsValid() {
		return false
	}
	for _, b := range r.bases {
		if b.Hash() == h {
			return true
		}
	}
	return false
}

// uniqueByHash sorts refs by hash and drops entries hashing like their
// predecessor.
func uniqueByHash(refs []Reference) []Reference {
	out := slices.Clone(refs)
	slices.SortStableFunc(out, Reference.Compare)
	return slices.CompactFunc(out, Reference.Equal)
}
