package main

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chazu/toponame/pkg/kernel"
	"github.com/chazu/toponame/pkg/naming"
)

func newBoxCmd(a *app) *cobra.Command {
	var save string
	cmd := &cobra.Command{
		Use:   "box <x> <y> <z>",
		Short: "Build a box and print the names of its sub-shapes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dims [3]float64
			for i, arg := range args {
				f, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("box: invalid dimension %q", arg)
				}
				dims[i] = f
			}
			shape, err := kernel.NewBox(dims[0], dims[1], dims[2])
			if err != nil {
				return err
			}

			ts := naming.NewTopoShape(shape)
			b := naming.NewBuilder(a.cfg.Comparator(), a.logger)
			if _, err := b.PopulateNew(ts, naming.OpBox, uuid.New()); err != nil {
				return err
			}

			name := "box"
			if save != "" {
				name = save
			}
			v := viewShape(name, ts, true)
			if a.format == "yaml" {
				if err := writeYAML(cmd.OutOrStdout(), v); err != nil {
					return err
				}
			} else {
				writeShapeText(cmd.OutOrStdout(), v)
			}

			if save == "" {
				return nil
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return st.SaveTable(save, ts)
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "store the reference table under this name")
	return cmd
}
