package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lingen1218/cfac/internal/engine"
	"github.com/Lingen1218/cfac/internal/export"
)

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the view dependency graph as a Mermaid diagram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(cmd.OutOrStdout(), export.GenerateMermaid(engine.MustStandardGraph()))
			return nil
		},
	}
}
