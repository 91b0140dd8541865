// Package cli wires the bookc commands.
package cli

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/freeeve/openbook/internal/config"
	"github.com/freeeve/openbook/internal/logx"
)

// app carries what every subcommand needs after the root pre-run.
type app struct {
	configPath string
	logLevel   string
	logJSON    bool

	cfg   config.Config
	log   zerolog.Logger
	runID string
}

// NewRootCmd builds the bookc command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "bookc",
		Short: "Compile PGN games into polyglot opening books",
		Long: `bookc aggregates game collections into weighted opening books in the
16-byte polyglot record format, merges partial books, and inspects them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "TOML config file (missing file means defaults)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.logJSON, "log-json", false, "Always log JSON lines")

	root.AddCommand(
		newBuildCmd(a),
		newMergeCmd(a),
		newDumpCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logJSON {
		cfg.Log.JSON = true
	}

	log, err := logx.New(logx.Options{
		Level: cfg.Log.Level,
		JSON:  cfg.Log.JSON,
		Out:   cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.log, a.runID = logx.WithRunID(log)
	a.log = a.log.With().Str("cmd", cmd.Name()).Logger()
	a.cfg = cfg
	return nil
}

// Execute runs the command tree with ctx and the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
