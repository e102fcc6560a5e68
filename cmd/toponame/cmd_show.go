package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/toponame/pkg/naming"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <script> <shape>",
		Short: "Print the reference table of one shape of a script",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.evalFile(args[0])
			if err != nil {
				return err
			}
			ts := m.Shape(args[1])
			if ts == nil {
				return fmt.Errorf("%s: no shape named %q", args[0], args[1])
			}

			v := viewShape(args[1], ts, true)
			if a.format == "yaml" {
				return writeYAML(cmd.OutOrStdout(), v)
			}
			out := cmd.OutOrStdout()
			writeShapeText(out, v)
			res := naming.Validate(ts)
			for _, e := range res.Errors {
				fmt.Fprintln(out, e.Error())
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "[warning] %s %d: %s\n", w.Sub.Kind, w.Sub.Index, w.Message)
			}
			return nil
		},
	}
}
