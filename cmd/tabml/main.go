// Command tabml runs the tabular analysis walkthroughs from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/tabml/internal/config"
	"github.com/YuminosukeSato/tabml/internal/workflow"
	"github.com/YuminosukeSato/tabml/pkg/log"
)

var version = "0.1.0"

type options struct {
	configFile string
	dataDir    string
	outDir     string
	logLevel   string
	noPlots    bool
}

// walkthrough runs one analysis and returns its printable summary.
type walkthrough func(ctx context.Context, cfg *config.Config, logger log.Logger) (fmt.Stringer, error)

var walkthroughs = []struct {
	name, short string
	run         walkthrough
}{
	{"taxi", "Explore the yellow taxi trip sample", func(ctx context.Context, cfg *config.Config, l log.Logger) (fmt.Stringer, error) {
		return workflow.Taxi(ctx, cfg, l)
	}},
	{"unicorns", "Explore the unicorn companies dataset", func(ctx context.Context, cfg *config.Config, l log.Logger) (fmt.Stringer, error) {
		return workflow.Unicorns(ctx, cfg, l)
	}},
	{"churn", "Train and tune churn decision trees", func(ctx context.Context, cfg *config.Config, l log.Logger) (fmt.Stringer, error) {
		return workflow.Churn(ctx, cfg, l)
	}},
	{"claims", "Classify video claims with tree ensembles", func(ctx context.Context, cfg *config.Config, l log.Logger) (fmt.Stringer, error) {
		return workflow.Claims(ctx, cfg, l)
	}},
}

// shutdownSignals cancel the walkthrough context.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals...)
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signalContext(context.Background())
	defer stop()
	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "tabml",
		Short:         "Tabular data exploration and classification walkthroughs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Path to a YAML configuration file")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Directory holding the input CSV files")
	root.PersistentFlags().StringVar(&opts.outDir, "out-dir", "", "Directory for results and charts")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.noPlots, "no-plots", false, "Skip chart rendering")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tabml v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
		},
	})

	for _, w := range walkthroughs {
		root.AddCommand(&cobra.Command{
			Use:   w.name,
			Short: w.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return execute(cmd, opts, w.run)
			},
		})
	}
	root.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "Run every walkthrough in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs := make([]walkthrough, len(walkthroughs))
			for i, w := range walkthroughs {
				runs[i] = w.run
			}
			return execute(cmd, opts, runs...)
		},
	})
	return root
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configFile != "" {
		var err error
		if cfg, err = config.Load(opts.configFile); err != nil {
			return nil, err
		}
	}
	if opts.dataDir != "" {
		cfg.Data.Dir = opts.dataDir
	}
	if opts.outDir != "" {
		cfg.Output.Dir = opts.outDir
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.noPlots {
		cfg.Output.Plots = false
	}
	return cfg, cfg.Validate()
}

func execute(cmd *cobra.Command, opts *options, runs ...walkthrough) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := log.SetupLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	for _, run := range runs {
		summary, err := run(cmd.Context(), cfg, logger)
		if err != nil {
			logger.Error("walkthrough failed", "error", err)
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), summary)
	}
	return nil
}
