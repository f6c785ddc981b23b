// Package cli implements the salesml command line: search, train and
// history subcommands over a CSV file.
package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mirzakinn/sales-prediction/internal/config"
	"github.com/mirzakinn/sales-prediction/pkg/log"
)

// app carries the global flags and the configuration they resolve to.
type app struct {
	cfgFile     string
	historyPath string
	logLevel    string
	console     bool
	noColor     bool

	cfg *config.Config
}

// NewRootCmd builds the salesml command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "salesml",
		Short: "Find the best regression model for a sales dataset",
		Long: `salesml trains the regression algorithms of its catalogue on a CSV file,
compares them on a held-out test set and reports the best one.

Search effort scales with the dataset: large inputs are sampled, searched
with smaller grids and fewer folds, and each algorithm may be time-boxed.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./salesml.yaml)")
	flags.StringVar(&a.historyPath, "history", "", "run history database (overrides history.path)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides logging.level)")
	flags.BoolVar(&a.console, "log-console", false, "human-readable logs instead of JSON")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(a.newSearchCmd(), a.newTrainCmd(), a.newHistoryCmd())
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.historyPath != "" {
		cfg.History.Path = a.historyPath
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.console {
		cfg.Logging.Console = true
	}
	a.cfg = cfg

	if a.noColor {
		color.NoColor = true
	}
	if cfg.Logging.Console {
		return log.SetupLogger(cfg.Logging.Level, true)
	}
	return log.SetupLoggerWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level)
}
