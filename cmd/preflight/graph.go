package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"preflight/internal/di"
)

func newGraphCmd() *cobra.Command {
	var dot bool

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the resource dependency graph and initialization order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			c, err := di.InitializeContainer(cfg)
			if err != nil {
				return err
			}
			defer c.Logger.Sync()

			graph, err := c.Manager.Graph()
			if err != nil {
				return err
			}

			if dot {
				fmt.Fprint(cmd.OutOrStdout(), graph.DOT())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "initialization order:")
			for i, id := range graph.Order {
				fmt.Fprintf(cmd.OutOrStdout(), "  %d. %s\n", i+1, id)
			}
			if len(graph.Edges) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "dependencies:")
				for _, e := range graph.Edges {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s -> %s\n", e.From, e.To)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dot, "dot", false, "emit Graphviz DOT instead of plain text")
	return cmd
}
