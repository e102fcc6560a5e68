package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "toponame",
		Short:         "Stable names for the vertices, edges and faces of modeled shapes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	a.bindFlags(root)

	root.AddCommand(newVersionCmd())
	root.AddCommand(newEvalCmd(a))
	root.AddCommand(newBoxCmd(a))
	root.AddCommand(newShowCmd(a))
	root.AddCommand(newResolveCmd(a))
	root.AddCommand(newTablesCmd(a))
	root.AddCommand(newVerifyCmd(a))
	root.AddCommand(newMeshCmd(a))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "toponame 0.1.0-dev")
		},
	}
}
