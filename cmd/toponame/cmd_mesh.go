package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/toponame/pkg/kernel"
	"github.com/chazu/toponame/pkg/kernel/sdfx"
	"github.com/chazu/toponame/pkg/tessellate"
)

type meshView struct {
	Name      string `yaml:"name"`
	Triangles int    `yaml:"triangles"`
	Vertices  int    `yaml:"vertices"`
}

func newMeshCmd(a *app) *cobra.Command {
	var (
		stl   string
		cells int
	)
	cmd := &cobra.Command{
		Use:   "mesh <script> [shape]",
		Short: "Tessellate the solids of a script",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k := a.kernel()
			if cells > 0 {
				k.MeshCells = cells
			}
			m, err := a.evalWith(k, args[0])
			if err != nil {
				return err
			}

			var meshes []*kernel.Mesh
			if len(args) == 2 {
				mesh, err := tessellate.Shape(m, args[1], k)
				if err != nil {
					return err
				}
				meshes = append(meshes, mesh)
			} else if meshes, err = tessellate.Tessellate(m, k); err != nil {
				return err
			}

			views := make([]meshView, 0, len(meshes))
			for _, mesh := range meshes {
				views = append(views, meshView{Name: mesh.Name, Triangles: mesh.TriangleCount(), Vertices: mesh.VertexCount()})
			}
			if a.format == "yaml" {
				if err := writeYAML(cmd.OutOrStdout(), views); err != nil {
					return err
				}
			} else {
				for _, v := range views {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d triangles, %d vertices\n", v.Name, v.Triangles, v.Vertices)
				}
			}

			if stl == "" {
				return nil
			}
			if err := sdfx.SaveSTL(stl, meshes...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", stl)
			return nil
		},
	}
	cmd.Flags().StringVar(&stl, "stl", "", "write the meshes to this STL file")
	cmd.Flags().IntVar(&cells, "cells", 0, "marching cubes resolution along the longest axis")
	return cmd
}
