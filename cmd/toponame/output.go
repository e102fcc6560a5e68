package main

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chazu/toponame/pkg/engine"
	"github.com/chazu/toponame/pkg/kernel"
	"github.com/chazu/toponame/pkg/naming"
)

type refView struct {
	Kind      string `yaml:"kind"`
	Index     int    `yaml:"index"`
	Hash      string `yaml:"hash"`
	Type      string `yaml:"type"`
	Operation string `yaml:"operation"`
	Name      string `yaml:"name,omitempty"`
	Count     uint32 `yaml:"count"`
	Bases     int    `yaml:"bases"`
}

type shapeView struct {
	Name       string    `yaml:"name"`
	Vertices   int       `yaml:"vertices"`
	Edges      int       `yaml:"edges"`
	Faces      int       `yaml:"faces"`
	References []refView `yaml:"references,omitempty"`
}

type stepView struct {
	Index     int    `yaml:"index"`
	Operation string `yaml:"operation"`
	OpID      string `yaml:"op_id"`
	Generated int    `yaml:"generated"`
	Modified  int    `yaml:"modified"`
	Copied    int    `yaml:"copied"`
	Merged    int    `yaml:"merged"`
	New       int    `yaml:"new"`
	Repaired  int    `yaml:"repaired"`
}

type modelView struct {
	Shapes   []shapeView `yaml:"shapes"`
	Steps    []stepView  `yaml:"steps"`
	Warnings []string    `yaml:"warnings,omitempty"`
	Result   string      `yaml:"result,omitempty"`
}

func viewReference(sub kernel.Subshape, ref naming.Reference) refView {
	v := refView{
		Kind:      sub.Kind.String(),
		Index:     sub.Index,
		Hash:      ref.HashString(),
		Type:      ref.Type().String(),
		Operation: ref.Operation().String(),
		Count:     ref.Count(),
		Bases:     ref.NumBases(),
	}
	if ref.Name() != naming.NameNone {
		v.Name = ref.Name().String()
	}
	return v
}

func viewShape(name string, ts *naming.TopoShape, withRefs bool) shapeView {
	s := ts.Shape()
	v := shapeView{
		Name:     name,
		Vertices: s.Count(kernel.KindVertex),
		Edges:    s.Count(kernel.KindEdge),
		Faces:    s.Count(kernel.KindFace),
	}
	if withRefs {
		for _, e := range ts.References() {
			v.References = append(v.References, viewReference(e.Sub, e.Ref))
		}
	}
	return v
}

func viewModel(m *engine.Model, withRefs bool) modelView {
	var v modelView
	for _, name := range m.Names {
		v.Shapes = append(v.Shapes, viewShape(name, m.Shape(name), withRefs))
	}
	for _, st := range m.Steps {
		r := st.Report
		v.Steps = append(v.Steps, stepView{
			Index:     st.Index,
			Operation: st.Operation.String(),
			OpID:      st.OpID.String(),
			Generated: r.Generated,
			Modified:  r.Modified,
			Copied:    r.Copied,
			Merged:    r.Merged,
			New:       r.New,
			Repaired:  r.Repaired,
		})
	}
	for _, w := range m.Warnings {
		v.Warnings = append(v.Warnings, w.String())
	}
	v.Result = m.Result
	return v
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func writeShapeText(w io.Writer, v shapeView) {
	fmt.Fprintf(w, "%s: %d vertices, %d edges, %d faces\n", v.Name, v.Vertices, v.Edges, v.Faces)
	for _, r := range v.References {
		fmt.Fprintf(w, "  %-6s %3d  %20s  %s %s", r.Kind, r.Index, r.Hash, r.Type, r.Operation)
		if r.Name != "" {
			fmt.Fprintf(w, " named %s", r.Name)
		}
		if r.Count > 1 {
			fmt.Fprintf(w, " #%d", r.Count)
		}
		if r.Bases > 0 {
			fmt.Fprintf(w, " (%d bases)", r.Bases)
		}
		fmt.Fprintln(w)
	}
}

func writeModelText(w io.Writer, v modelView) {
	for _, s := range v.Shapes {
		writeShapeText(w, s)
	}
	if len(v.Steps) > 0 {
		fmt.Fprintf(w, "%d steps\n", len(v.Steps))
		for _, st := range v.Steps {
			fmt.Fprintf(w, "  %2d %-10s generated=%d modified=%d copied=%d merged=%d new=%d repaired=%d\n",
				st.Index, st.Operation, st.Generated, st.Modified, st.Copied, st.Merged, st.New, st.Repaired)
		}
	}
	for _, msg := range v.Warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
	if v.Result != "" {
		fmt.Fprintf(w, "=> %s\n", v.Result)
	}
}

// writeLineage prints a reference chain, one reference per block.
func writeLineage(w io.Writer, chain []naming.Reference) {
	for i, ref := range chain {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s\n", ref.HashString())
		for _, line := range strings.Split(strings.TrimRight(ref.String(), "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}
