package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"preflight/internal/bootstrap"
	"preflight/internal/config"
	"preflight/internal/di"
)

func newRunCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Initialize all configured resources",
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
			return run(cmd.Context(), c, timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute,
		"overall deadline for the initialization run")
	return cmd
}

func run(parent context.Context, c *di.Container, timeout time.Duration) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if c.Config.Environment == config.Development {
		watcher, err := config.NewWatcher(c.Config, configPath, c.Logger)
		if err != nil {
			c.Logger.Warn("config watcher unavailable", zap.Error(err))
		} else {
			defer watcher.Stop()
			// A running initialization keeps its snapshot; edits are
			// validated so problems surface before the next run.
			watcher.OnChange(func(next *config.Config) {
				if err := revalidate(c, next); err != nil {
					c.Logger.Warn("reloaded configuration is invalid", zap.Error(err))
					return
				}
				c.Logger.Info("reloaded configuration is valid, applies on next run")
			})
		}
	}

	runErr := c.Manager.Run(ctx)

	printSummary(os.Stdout, c.Manager)
	c.Logger.Info("initialization finished",
		zap.Bool("all_complete", c.Manager.IsAllComplete()),
	)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := c.Manager.Shutdown(shutdownCtx); err != nil {
		c.Logger.Warn("shutdown reported errors", zap.Error(err))
	}
	if c.Tracer != nil {
		if err := c.Tracer.Shutdown(shutdownCtx); err != nil {
			c.Logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	return runErr
}

// revalidate runs the configuration phase of every resource declared by
// next, reusing the container's observability components. It reports all
// invalid resources, not just the first.
func revalidate(c *di.Container, next *config.Config) error {
	mgr, err := di.ProvideManager(next, c.Logger, c.Monitor, c.Detector, c.Collector, nil, nil)
	if err != nil {
		return err
	}
	graph, err := mgr.Graph()
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range graph.Order {
		init, err := mgr.InitializerOf(id)
		if err != nil {
			return err
		}
		if err := init.ValidateConfiguration(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return stderrors.Join(errs...)
}

// printSummary writes a per-resource table of final states, durations, and
// recorded problems.
func printSummary(out *os.File, mgr *bootstrap.Manager) {
	graph, err := mgr.Graph()
	if err != nil {
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RESOURCE\tSTATE\tDURATION\tWARNINGS\tERRORS")
	for _, id := range graph.Order {
		status, err := mgr.StatusOf(id)
		if err != nil {
			continue
		}
		snap := status.Snapshot()
		duration := "-"
		if snap.Duration > 0 {
			duration = snap.Duration.Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
			id, snap.State, duration, len(snap.Warnings), len(snap.Errors))
	}
	w.Flush()
}
