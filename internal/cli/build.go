package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freeeve/openbook/internal/compile"
	"github.com/freeeve/openbook/internal/config"
)

// pipelineFlags are the config overrides shared by build, merge and watch.
type pipelineFlags struct {
	maxPlies  int
	target    int
	floor     string
	minElo    int
	chunkSize int
	workers   int
	summary   string
}

func (f *pipelineFlags) register(cmd *cobra.Command, withGames bool) {
	fl := cmd.Flags()
	fl.IntVar(&f.target, "target", 0, "Normalization target weight per position")
	fl.StringVar(&f.floor, "floor", "", "Floor policy for tiny weights: clamp or drop")
	fl.StringVar(&f.summary, "summary", "", "Write a JSON run summary to this path")
	if withGames {
		fl.IntVar(&f.maxPlies, "max-plies", 0, "Plies per game to include")
		fl.IntVar(&f.minElo, "min-elo", 0, "Minimum rating of both players (env "+config.EnvMinElo+")")
		fl.IntVar(&f.chunkSize, "chunk-size", 0, "Games per aggregation chunk")
		fl.IntVar(&f.workers, "workers", 0, "Parallel chunk workers (0 = GOMAXPROCS)")
	}
}

// apply copies explicitly set flags over cfg.
func (f *pipelineFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("max-plies") {
		cfg.MaxPlies = f.maxPlies
	}
	if fl.Changed("target") {
		cfg.Target = f.target
	}
	if fl.Changed("floor") {
		cfg.Floor = f.floor
	}
	if fl.Changed("min-elo") {
		cfg.MinElo = f.minElo
	}
	if fl.Changed("chunk-size") {
		cfg.ChunkSize = f.chunkSize
	}
	if fl.Changed("workers") {
		cfg.Workers = f.workers
	}
}

func newBuildCmd(a *app) *cobra.Command {
	var (
		flags       pipelineFlags
		output      string
		noNormalize bool
	)

	cmd := &cobra.Command{
		Use:   "build <games.pgn[.zst]>...",
		Short: "Compile PGN files into an opening book",
		Long: `Reads every game of the given PGN files, credits each move of the first
max-plies plies by the game result, normalizes each position's weights to the
target and writes a sorted polyglot book. Paths ending in .zst are
compressed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return errors.New("--output is required")
			}
			cfg := a.cfg
			flags.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			opts, err := compile.OptionsFromConfig(cfg, a.log)
			if err != nil {
				return err
			}
			opts.Normalize = !noNormalize

			a.log.Info().
				Strs("inputs", args).
				Str("output", output).
				Int("max_plies", cfg.MaxPlies).
				Int("min_elo", cfg.MinElo).
				Int("chunk_size", cfg.ChunkSize).
				Int("workers", opts.Workers).
				Msg("starting build")

			stats := compile.NewStats("build", a.runID, args)
			b, err := compile.Build(cmd.Context(), args, opts, stats)
			if err != nil {
				return err
			}
			if err := compile.Emit(b, output, opts, stats); err != nil {
				return err
			}
			return writeSummary(cmd, flags.summary, stats)
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Book file to write (.bin or .bin.zst)")
	cmd.Flags().BoolVar(&noNormalize, "no-normalize", false, "Write raw weights, saturating at 65535")
	return cmd
}

func writeSummary(cmd *cobra.Command, path string, stats *compile.Stats) error {
	sum := stats.Summary()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records, %d positions in %s\n",
		sum.Output, sum.Records, sum.Positions, sum.Elapsed)
	if path == "" {
		return nil
	}
	if err := stats.SaveSummary(path); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
