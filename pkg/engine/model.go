package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/chazu/toponame/pkg/kernel"
	"github.com/chazu/toponame/pkg/naming"
)

// opNamespace roots the operation invocation ids of a script. Ids derive
// from the step index and operation name only, so re-evaluating the same
// script reproduces every hash.
var opNamespace = uuid.MustParse("5c1f7a52-3b7e-4d8e-9a61-0f3c2d4b8e17")

// Step records one modeling operation of an evaluation.
type Step struct {
	Index     int
	Operation naming.Operation
	OpID      uuid.UUID
	Report    *naming.Report
}

// Model is the output of an evaluation: the shapes bound with defshape,
// in definition order, and the steps that built them.
type Model struct {
	Names    []string
	Shapes   map[string]*naming.TopoShape
	Steps    []Step
	Warnings []EvalWarning
	Result   string // printed value of the last expression
}

func newModel() *Model {
	return &Model{Shapes: make(map[string]*naming.TopoShape)}
}

// Shape returns the shape bound to name, or nil.
func (m *Model) Shape(name string) *naming.TopoShape {
	return m.Shapes[name]
}

// define binds ts to name. Redefinition replaces the shape but keeps the
// original position.
func (m *Model) define(name string, ts *naming.TopoShape) {
	if _, ok := m.Shapes[name]; !ok {
		m.Names = append(m.Names, name)
	}
	m.Shapes[name] = ts
}

// nextOpID returns the invocation id of the next step.
func (m *Model) nextOpID(op naming.Operation) uuid.UUID {
	return uuid.NewSHA1(opNamespace, fmt.Appendf(nil, "%d/%s", len(m.Steps), op))
}

func (m *Model) record(op naming.Operation, opID uuid.UUID, report *naming.Report) {
	idx := len(m.Steps)
	m.Steps = append(m.Steps, Step{Index: idx, Operation: op, OpID: opID, Report: report})
	for _, w := range report.Warnings {
		m.Warnings = append(m.Warnings, EvalWarning{Step: idx, Kind: w.Kind, Message: w.Message})
	}
}

// session is the per-evaluation state shared by the builtins.
type session struct {
	kernel  kernel.Kernel
	builder *naming.Builder
	model   *Model
}

func (s *session) primitive(op naming.Operation, shape *kernel.Shape, err error) (*naming.TopoShape, error) {
	if err != nil {
		return nil, err
	}
	ts := naming.NewTopoShape(shape)
	opID := s.model.nextOpID(op)
	report, err := s.builder.PopulateNew(ts, op, opID)
	if err != nil {
		return nil, err
	}
	s.model.record(op, opID, report)
	return ts, nil
}

func (s *session) modified(op naming.Operation, base *naming.TopoShape, shape *kernel.Shape, h *kernel.History) (*naming.TopoShape, error) {
	ts := naming.NewTopoShape(shape)
	opID := s.model.nextOpID(op)
	report, err := s.builder.PopulateOperation(h, []*naming.TopoShape{base}, ts, op, opID)
	if err != nil {
		return nil, err
	}
	s.model.record(op, opID, report)
	return ts, nil
}

func (s *session) compound(parts []*naming.TopoShape) (*naming.TopoShape, error) {
	shapes := make([]*kernel.Shape, len(parts))
	for i, p := range parts {
		shapes[i] = p.Shape()
	}
	ts := naming.NewTopoShape(s.kernel.Compound(shapes...))
	opID := s.model.nextOpID(naming.OpCompound)
	report, err := s.builder.PopulateMatched(parts, ts, naming.OpCompound, opID)
	if err != nil {
		return nil, err
	}
	s.model.record(naming.OpCompound, opID, report)
	return ts, nil
}

func (s *session) extract(base *naming.TopoShape, sub kernel.Subshape) (*naming.TopoShape, error) {
	ts := naming.NewTopoShape(base.Shape().Extract(sub))
	report, err := s.builder.PopulateSubshape(base, ts)
	if err != nil {
		return nil, err
	}
	s.model.record(naming.OpTopology, uuid.Nil, report)
	return ts, nil
}
