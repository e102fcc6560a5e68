package naming

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/chazu/toponame/pkg/compare"
	"github.com/chazu/toponame/pkg/kernel"
)

// WarningKind classifies a recoverable lineage anomaly.
type WarningKind int

const (
	// WarnRepaired: a base sub-shape had no valid Reference and was given a
	// Repair-tagged New one.
	WarnRepaired WarningKind = iota
	// WarnDefaultedNew: a result sub-shape had no lineage and defaulted to New.
	WarnDefaultedNew
	// WarnAmbiguousNew: more than one result sub-shape defaulted to New in a
	// single pass.
	WarnAmbiguousNew
	// WarnUnknownResult: the kernel history named an entity that is not part
	// of the result.
	WarnUnknownResult
)

func (k WarningKind) String() string {
	switch k {
	case WarnRepaired:
		return "repaired"
	case WarnDefaultedNew:
		return "defaulted-new"
	case WarnAmbiguousNew:
		return "ambiguous-new"
	case WarnUnknownResult:
		return "unknown-result"
	default:
		return fmt.Sprintf("WarningKind(%d)", int(k))
	}
}

// Warning is a recoverable anomaly met while building references.
type Warning struct {
	Kind    WarningKind
	Sub     kernel.Subshape
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
}

// Report summarizes one lineage pass.
type Report struct {
	Repaired  int
	Generated int
	Modified  int
	Copied    int
	Merged    int
	New       int
	Warnings  []Warning
}

// Count returns the number of warnings of kind k.
func (r *Report) Count(k WarningKind) int {
	n := 0
	for _, w := range r.Warnings {
		if w.Kind == k {
			n++
		}
	}
	return n
}

// Builder assigns References to the sub-shapes of operation results.
type Builder struct {
	cmp    compare.Comparator
	logger *slog.Logger
}

// NewBuilder returns a Builder matching geometry with c. A nil logger uses
// slog.Default.
func NewBuilder(c compare.Comparator, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{cmp: c, logger: logger}
}

func (b *Builder) warn(r *Report, kind WarningKind, sub kernel.Subshape, format string, args ...any) {
	w := Warning{Kind: kind, Sub: sub, Message: fmt.Sprintf(format, args...)}
	r.Warnings = append(r.Warnings, w)
	b.logger.Warn(w.Message, "kind", kind.String(), "subshape", sub.Kind.String(), "index", sub.Index)
}

// claim is one kernel history record naming a result sub-shape.
type claim struct {
	typ  Type
	base Reference
}

// PopulateOperation names every sub-shape of created after op turned bases
// into it. Sub-shapes the kernel history reports as generated from or
// modified from a base sub-shape get Generated or Modified References.
// The rest are matched geometrically against the bases: one match copies
// the parent's Reference, several produce a Merged one and none a New one.
//
// Missing inputs fail with a *ReferenceError before anything is attached.
// Base shapes lacking References are repaired in place.
func (b *Builder) PopulateOperation(op kernel.Operation, bases []*TopoShape, created *TopoShape, operation Operation, opID uuid.UUID) (*Report, error) {
	if op == nil {
		return nil, faultyData("no operation")
	}
	if err := checkInputs(bases, created); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, base := range bases {
		b.ensureFullyNamed(base, report)
	}

	result := created.Shape()
	remaining := make(map[kernel.Subshape]bool)
	for _, sub := range result.Subshapes() {
		remaining[sub] = true
	}

	claims := make(map[kernel.Subshape][]claim)
	for _, base := range bases {
		for _, sub := range base.Shape().Subshapes() {
			baseRef := base.SubshapeReference(sub)
			id := base.Shape().ID(sub)
			for _, gen := range op.Generated(id) {
				b.addClaim(claims, result, gen, claim{TypeGenerated, baseRef}, report)
			}
			for _, mod := range op.Modified(id) {
				b.addClaim(claims, result, mod, claim{TypeModified, baseRef}, report)
			}
		}
	}

	for _, sub := range result.Subshapes() {
		cs, ok := claims[sub]
		if !ok {
			continue
		}
		ref := claimedReference(ShapeTypeOf(sub.Kind), operation, opID, cs)
		switch ref.Type() {
		case TypeModified:
			report.Modified++
		case TypeMerged:
			report.Merged++
		default:
			report.Generated++
		}
		_ = created.SetSubshapeReference(sub, ref)
		delete(remaining, sub)
		b.logger.Debug("named from history", "type", ref.Type().String(), "subshape", sub.Kind.String(), "index", sub.Index)
	}

	var worklist []kernel.Subshape
	for _, sub := range result.Subshapes() {
		if remaining[sub] {
			worklist = append(worklist, sub)
		}
	}
	b.buildCopiedAndNew(bases, created, worklist, operation, opID, report)
	return report, nil
}

// PopulateMatched names every sub-shape of created from geometric matches
// against bases only. It is used for operations without history.
func (b *Builder) PopulateMatched(bases []*TopoShape, created *TopoShape, operation Operation, opID uuid.UUID) (*Report, error) {
	if err := checkInputs(bases, created); err != nil {
		return nil, err
	}
	report := &Report{}
	for _, base := range bases {
		b.ensureFullyNamed(base, report)
	}
	b.buildCopiedAndNew(bases, created, created.Shape().Subshapes(), operation, opID, report)
	return report, nil
}

// PopulateNew names every sub-shape of a shape built from nothing. Each
// kind gets its own counter sequence so the References stay distinct.
// Counters restart at 1 on every call, so naming the same shape again under
// the same opID reproduces the same References.
func (b *Builder) PopulateNew(shape *TopoShape, operation Operation, opID uuid.UUID) (*Report, error) {
	if shape.IsNull() {
		return nil, faultyData("null shape")
	}
	report := &Report{}
	counter := NewCounter()
	for _, sub := range shape.Shape().Subshapes() {
		st := ShapeTypeOf(sub.Kind)
		ref := BuildNew(st, operation, WithOperationID(opID), WithCount(counter.Next(st, opID)))
		_ = shape.SetSubshapeReference(sub, ref)
		report.New++
	}
	return report, nil
}

// PopulateSubshape names the pieces of sub, a shape extracted from base.
// Pieces sharing a kernel identity with a named base sub-shape inherit its
// Reference; the others are matched geometrically. Pieces matching nothing
// get a Topology-tagged New Reference and a warning.
func (b *Builder) PopulateSubshape(base, sub *TopoShape) (*Report, error) {
	if base.IsNull() {
		return nil, faultyData("null base shape")
	}
	if sub.IsNull() {
		return nil, faultyData("null sub-shape")
	}
	report := &Report{}
	b.ensureFullyNamed(base, report)

	bs, ss := base.Shape(), sub.Shape()
	counter := NewCounter()
	for _, piece := range ss.Subshapes() {
		if bsub, ok := bs.Index(piece.Kind, ss.ID(piece)); ok && base.HasSubshapeReference(bsub) {
			_ = sub.SetSubshapeReference(piece, base.SubshapeReference(bsub))
			report.Copied++
			continue
		}
		matched := false
		for _, bsub := range bs.OfKind(piece.Kind) {
			if b.cmp.Equal(ss, piece, bs, bsub) {
				_ = sub.SetSubshapeReference(piece, base.SubshapeReference(bsub))
				report.Copied++
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		st := ShapeTypeOf(piece.Kind)
		ref := BuildNew(st, OpTopology, WithOperationID(uuid.Nil), WithCount(counter.Next(st, uuid.Nil)))
		_ = sub.SetSubshapeReference(piece, ref)
		report.New++
		b.warn(report, WarnDefaultedNew, piece, "extracted %s %d has no counterpart in its base", piece.Kind, piece.Index)
	}
	return report, nil
}

func checkInputs(bases []*TopoShape, created *TopoShape) error {
	if len(bases) == 0 {
		return faultyData("no base shapes")
	}
	for i, base := range bases {
		if base.IsNull() {
			return faultyData("base shape %d is null", i)
		}
	}
	if created.IsNull() {
		return faultyData("null result shape")
	}
	return nil
}

// ensureFullyNamed gives every sub-shape of t lacking a valid Reference a
// Repair-tagged New one.
func (b *Builder) ensureFullyNamed(t *TopoShape, report *Report) {
	for _, sub := range t.Shape().Subshapes() {
		if t.SubshapeReference(sub).IsValid() {
			continue
		}
		_ = t.SetSubshapeReference(sub, BuildNew(ShapeTypeOf(sub.Kind), OpRepair))
		report.Repaired++
		b.warn(report, WarnRepaired, sub, "repaired missing reference of base %s %d", sub.Kind, sub.Index)
	}
}

func (b *Builder) addClaim(claims map[kernel.Subshape][]claim, result *kernel.Shape, id kernel.TShapeID, c claim, report *Report) {
	sub, ok := result.Lookup(id)
	if !ok {
		b.warn(report, WarnUnknownResult, kernel.Subshape{}, "history names entity %d which is not in the result", id)
		return
	}
	claims[sub] = append(claims[sub], c)
}

// claimedReference builds the Reference of a sub-shape named by one or more
// history records. Parents accumulate: several Generated records give a
// multi-parent Generated Reference, Modified records from distinct parents
// a Merged one, and mixed records a Generated one.
func claimedReference(st ShapeType, operation Operation, opID uuid.UUID, cs []claim) Reference {
	parents := make([]Reference, len(cs))
	typ := cs[0].typ
	for i, c := range cs {
		parents[i] = c.base
		if c.typ != typ {
			typ = TypeGenerated
		}
	}
	if len(cs) > 1 {
		parents = uniqueByHash(parents)
	}

	switch {
	case len(parents) == 1 && typ == TypeModified:
		return BuildModified(st, operation, parents[0], WithOperationID(opID))
	case len(parents) == 1:
		return BuildGenerated(st, operation, parents[0], WithOperationID(opID))
	case typ == TypeModified:
		return BuildMerged(st, operation, parents, WithOperationID(opID))
	default:
		return BuildGeneratedFrom(st, operation, parents, WithOperationID(opID))
	}
}

// buildCopiedAndNew classifies sub-shapes of created the history did not
// name. New sub-shapes are ordered by their geometry before counters are
// handed out, so the assignment does not depend on arena order.
func (b *Builder) buildCopiedAndNew(bases []*TopoShape, created *TopoShape, worklist []kernel.Subshape, operation Operation, opID uuid.UUID, report *Report) {
	result := created.Shape()
	b.logger.Debug("matching unclassified sub-shapes", "count", len(worklist))

	var remains []kernel.Subshape
	for _, sub := range worklist {
		var matches []Reference
		for _, base := range bases {
			for _, bsub := range base.Shape().OfKind(sub.Kind) {
				if b.cmp.Equal(result, sub, base.Shape(), bsub) {
					matches = append(matches, base.SubshapeReference(bsub))
				}
			}
		}
		matches = uniqueByHash(matches)

		switch len(matches) {
		case 0:
			remains = append(remains, sub)
		case 1:
			_ = created.SetSubshapeReference(sub, matches[0])
			report.Copied++
		default:
			ref := BuildMerged(ShapeTypeOf(sub.Kind), operation, matches, WithOperationID(opID))
			_ = created.SetSubshapeReference(sub, ref)
			report.Merged++
		}
	}

	slices.SortStableFunc(remains, func(x, y kernel.Subshape) int {
		return compareKeys(sortKeyOf(result, x), sortKeyOf(result, y))
	})
	counter := NewCounter()
	for _, sub := range remains {
		st := ShapeTypeOf(sub.Kind)
		ref := BuildNew(st, operation, WithOperationID(opID), WithCount(counter.Next(st, opID)))
		_ = created.SetSubshapeReference(sub, ref)
		report.New++
		b.warn(report, WarnDefaultedNew, sub, "%s %d has no lineage, named as new", sub.Kind, sub.Index)
	}
	if len(remains) > 1 {
		b.warn(report, WarnAmbiguousNew, kernel.Subshape{}, "%d sub-shapes are referenced as new, more than one can be problematic", len(remains))
	}
}

// sortKey is the canonical geometric key of a sub-shape: its kind, the
// family of its geometry and a representative point.
type sortKey struct {
	kind   kernel.Kind
	family int
	point  kernel.Vec
}

func sortKeyOf(s *kernel.Shape, sub kernel.Subshape) sortKey {
	k := sortKey{kind: sub.Kind}
	switch sub.Kind {
	case kernel.KindVertex:
		k.point = s.Vertices[sub.Index].Point
	case kernel.KindEdge:
		e := s.Edges[sub.Index]
		k.family = int(e.Curve.Kind())
		k.point = e.PointAt(0.5)
	case kernel.KindFace:
		f := s.Faces[sub.Index]
		k.family = int(f.Surface.Kind())
		k.point = f.PointAt(0.5, 0.5)
	}
	return k
}

func compareKeys(a, b sortKey) int {
	return cmp.Or(
		cmp.Compare(a.kind, b.kind),
		cmp.Compare(a.family, b.family),
		cmp.Compare(a.point.X, b.point.X),
		cmp.Compare(a.point.Y, b.point.Y),
		cmp.Compare(a.point.Z, b.point.Z),
	)
}
