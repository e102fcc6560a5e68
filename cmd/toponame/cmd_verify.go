package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <script> <shape>",
		Short: "Check that a script still names a shape the way its stored table does",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, name := args[0], args[1]
			m, err := a.evalFile(script)
			if err != nil {
				return err
			}
			fresh := m.Shape(name)
			if fresh == nil {
				return fmt.Errorf("%s: no shape named %q", script, name)
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			stored, err := st.LoadTable(name, fresh.Shape())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			mismatches := 0
			for _, e := range fresh.References() {
				want := stored.SubshapeReference(e.Sub)
				if want.Hash() == e.Ref.Hash() {
					continue
				}
				mismatches++
				fmt.Fprintf(out, "changed: %s %d: stored %s, now %s\n",
					e.Sub.Kind, e.Sub.Index, want.HashString(), e.Ref.HashString())
			}
			if mismatches > 0 {
				return fmt.Errorf("verify %s: %d of %d reference(s) changed", name, mismatches, fresh.Len())
			}
			fmt.Fprintf(out, "ok: %d reference(s) of %s unchanged\n", fresh.Len(), name)
			return nil
		},
	}
}
