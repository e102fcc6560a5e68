package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEvalCmd(a *app) *cobra.Command {
	var refs, save bool
	cmd := &cobra.Command{
		Use:   "eval <script>",
		Short: "Evaluate a modeling script and summarize its shapes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.evalFile(args[0])
			if err != nil {
				return err
			}

			v := viewModel(m, refs)
			if a.format == "yaml" {
				if err := writeYAML(cmd.OutOrStdout(), v); err != nil {
					return err
				}
			} else {
				writeModelText(cmd.OutOrStdout(), v)
			}
			if !save {
				return nil
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			for _, name := range m.Names {
				if err := st.SaveTable(name, m.Shape(name)); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "saved %d table(s)\n", len(m.Names))
			return nil
		},
	}
	cmd.Flags().BoolVar(&refs, "refs", false, "list the reference of every sub-shape")
	cmd.Flags().BoolVar(&save, "save", false, "store the reference table of every named shape")
	return cmd
}
