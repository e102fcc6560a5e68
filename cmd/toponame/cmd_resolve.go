package main

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type lineageView struct {
	Hash      string   `yaml:"hash"`
	Shape     string   `yaml:"shape"`
	Type      string   `yaml:"type"`
	Operation string   `yaml:"operation"`
	OpID      string   `yaml:"op_id,omitempty"`
	Bases     []string `yaml:"bases,omitempty"`
}

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <hash>",
		Short: "Print a stored reference and its ancestry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("resolve: invalid hash %q", args[0])
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			chain, err := st.Lineage(h)
			if err != nil {
				return err
			}
			if a.format != "yaml" {
				writeLineage(cmd.OutOrStdout(), chain)
				return nil
			}

			views := make([]lineageView, 0, len(chain))
			for _, ref := range chain {
				v := lineageView{
					Hash:      ref.HashString(),
					Shape:     ref.Shape().String(),
					Type:      ref.Type().String(),
					Operation: ref.Operation().String(),
				}
				if id := ref.OperationID(); id != uuid.Nil {
					v.OpID = id.String()
				}
				for _, b := range ref.Bases() {
					v.Bases = append(v.Bases, b.HashString())
				}
				views = append(views, v)
			}
			return writeYAML(cmd.OutOrStdout(), views)
		},
	}
}
