// Package cli builds the etl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vcabral19/json-placeholder-elt/internal/logger"
	"github.com/vcabral19/json-placeholder-elt/internal/tracker"
	"golang.org/x/sync/errgroup"
)

const (
	modeIngestor    = "ingestor"
	modeTransformer = "transformer"
)

var configFile string

// BuildCLI returns the root command. Without a subcommand it runs the mode
// named by --mode, as the earlier single-entrypoint deployments did.
func BuildCLI() *cobra.Command {
	var mode string

	rootCmd := &cobra.Command{
		Use:   "etl",
		Short: "Incremental ETL for the JSONPlaceholder users collection",
		Long: `etl fetches the users collection on a fixed interval, archives every
payload as a raw batch, stores validated users in the database and
materializes each raw batch into partitioned company and user CSV files.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch mode {
			case modeIngestor:
				return runLoops(cmd.Context(), true, false)
			case modeTransformer:
				return runLoops(cmd.Context(), false, true)
			default:
				return fmt.Errorf("unknown mode %q (want %s or %s)", mode, modeIngestor, modeTransformer)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default ./configs/config.yaml)")
	rootCmd.Flags().StringVar(&mode, "mode", modeIngestor, "mode to run without a subcommand: ingestor or transformer")

	rootCmd.AddCommand(buildIngestCommand())
	rootCmd.AddCommand(buildTransformCommand())
	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildOutstandingCommand())

	return rootCmd
}

// Execute runs the CLI until it finishes or SIGINT/SIGTERM arrives.
func Execute() int {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := BuildCLI().ExecuteContext(ctx); err != nil {
		appLogger.WithError(err).Error("Service ended execution due to an error")
		return 1
	}
	return 0
}

func buildIngestCommand() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch, archive and store the collection on every interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			if once {
				return runOnce(cmd.Context(), true)
			}
			return runLoops(cmd.Context(), true, false)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")
	return cmd
}

func buildTransformCommand() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Materialize outstanding raw batches into processed CSV files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if once {
				return runOnce(cmd.Context(), false)
			}
			return runLoops(cmd.Context(), false, true)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "process the current outstanding batches and exit")
	return cmd
}

func buildRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the ingestor and the transformer side by side",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoops(cmd.Context(), true, true)
		},
	}
}

func buildOutstandingCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "outstanding",
		Short: "List raw batches that still lack a processed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configFile)
			if err != nil {
				return err
			}
			batches, err := tracker.ListOutstanding(a.cfg.Paths.RawDir, a.cfg.Paths.ProcessedDir, a.registry)
			if err != nil {
				return err
			}
			return printOutstanding(cmd, batches, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func printOutstanding(cmd *cobra.Command, batches []tracker.Outstanding, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		if batches == nil {
			batches = []tracker.Outstanding{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(batches)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tPARTITION\tMISSING\tRAW FILE")
	for _, b := range batches {
		fmt.Fprintf(w, "%d\t%s\t%v\t%s\n", b.Timestamp, b.Partition, b.Missing, b.RawPath)
	}
	return w.Flush()
}

// runLoops starts the requested loops and the ops server, and returns once
// ctx is cancelled and all of them have stopped.
func runLoops(ctx context.Context, ingest, transform bool) (err error) {
	a, err := newApp(configFile)
	if err != nil {
		return err
	}
	defer a.close()

	a.metrics.RecordAppStart()
	defer func() {
		if err != nil {
			a.metrics.RecordServiceError()
		}
	}()
	logger.GetDefault().WithFields(logger.Fields{
		"ingest":    ingest,
		"transform": transform,
	}).Info("ETL application started")

	g, ctx := errgroup.WithContext(ctx)

	if ingest {
		svc, err := a.newIngestService(ctx)
		if err != nil {
			return err
		}
		g.Go(func() error { return svc.Run(ctx) })
	}
	if transform {
		if err := os.MkdirAll(a.cfg.Paths.ProcessedDir, 0o755); err != nil {
			return fmt.Errorf("failed to create processed directory: %w", err)
		}
		sched, err := a.newScheduler()
		if err != nil {
			return err
		}
		g.Go(func() error { return sched.Run(ctx) })
	}
	g.Go(func() error { return a.serve(ctx) })

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Service ended execution normally")
	return nil
}

// runOnce performs a single ingest cycle or transformation pass.
func runOnce(ctx context.Context, ingest bool) (err error) {
	a, err := newApp(configFile)
	if err != nil {
		return err
	}
	defer a.close()

	a.metrics.RecordAppStart()
	defer func() {
		if err != nil {
			a.metrics.RecordServiceError()
		}
	}()

	if ingest {
		svc, err := a.newIngestService(ctx)
		if err != nil {
			return err
		}
		_, err = svc.RunOnce(ctx)
		return err
	}

	if err := os.MkdirAll(a.cfg.Paths.ProcessedDir, 0o755); err != nil {
		return fmt.Errorf("failed to create processed directory: %w", err)
	}
	sched, err := a.newScheduler()
	if err != nil {
		return err
	}
	stats := sched.RunOnce(ctx)
	if stats.Failed > 0 {
		return fmt.Errorf("%d batch(es) could not be read", stats.Failed)
	}
	return nil
}
