// Package tessellate produces triangle meshes for the shapes of an
// evaluated model using a geometry kernel. One mesh is produced per named
// shape.
package tessellate

import (
	"fmt"

	"github.com/chazu/toponame/pkg/engine"
	"github.com/chazu/toponame/pkg/kernel"
)

// Tessellate meshes every named shape of m in definition order. Shapes
// without a volumetric solid, such as extracted faces, are skipped. The
// tessellator is read-only and never mutates the model.
func Tessellate(m *engine.Model, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if m == nil {
		return nil, nil
	}

	var meshes []*kernel.Mesh
	for _, name := range m.Names {
		ts := m.Shape(name)
		if ts.IsNull() || ts.Shape().Solid == nil {
			continue
		}
		mesh, err := k.ToMesh(ts.Shape())
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for shape %q: %w", name, err)
		}
		mesh.Name = name
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// Shape meshes a single named shape of m.
func Shape(m *engine.Model, name string, k kernel.Kernel) (*kernel.Mesh, error) {
	ts := m.Shape(name)
	if ts == nil {
		return nil, fmt.Errorf("tessellate: no shape named %q", name)
	}
	mesh, err := k.ToMesh(ts.Shape())
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for shape %q: %w", name, err)
	}
	mesh.Name = name
	return mesh, nil
}
