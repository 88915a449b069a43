package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"preflight/internal/di"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration of every resource without connecting",
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

			failed := false
			for _, id := range graph.Order {
				status, err := c.Manager.StatusOf(id)
				if err != nil {
					return err
				}
				init, err := c.Manager.InitializerOf(id)
				if err != nil {
					return err
				}
				if err := init.ValidateConfiguration(); err != nil {
					failed = true
					fmt.Fprintf(cmd.OutOrStdout(), "%s: invalid\n", id)
					for _, msg := range status.Errors() {
						fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", msg)
					}
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", id)
			}
			if failed {
				return fmt.Errorf("configuration validation failed")
			}
			return nil
		},
	}
}
