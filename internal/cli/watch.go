package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/freeeve/openbook/internal/compile"
	"github.com/freeeve/openbook/internal/ingest"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		flags       pipelineFlags
		processed   string
		output      string
		poll        time.Duration
		fileWorkers int
		normalize   bool
	)

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Compile PGN files as they appear in a folder",
		Long: `Watches a folder and compiles every settled .pgn or .pgn.zst file into a
partial book in the output dir, then moves the PGN to the processed dir.
Partial books hold raw weights unless --normalize is set, so they can be
combined later with "bookc merge".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			flags.apply(cmd, &cfg)
			if len(args) == 1 {
				cfg.Watch.Dir = args[0]
			}
			if cmd.Flags().Changed("processed") {
				cfg.Watch.ProcessedDir = processed
			}
			if cmd.Flags().Changed("output") {
				cfg.Watch.OutputDir = output
			}
			if cmd.Flags().Changed("poll") {
				cfg.Watch.PollInterval = poll.String()
			}
			if cmd.Flags().Changed("normalize") {
				cfg.Watch.Normalize = normalize
			}
			if cfg.Watch.Dir == "" {
				return errors.New("no watch dir: pass one or set watch.dir in the config")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			interval, err := cfg.PollInterval()
			if err != nil {
				return err
			}

			opts, err := compile.OptionsFromConfig(cfg, a.log)
			if err != nil {
				return err
			}
			opts.Normalize = cfg.Watch.Normalize

			w, err := ingest.NewWorker(ingest.Config{
				WatchDir:     cfg.Watch.Dir,
				ProcessedDir: cfg.Watch.ProcessedDir,
				OutputDir:    cfg.Watch.OutputDir,
				FileWorkers:  fileWorkers,
				PollInterval: interval,
				Compile:      opts,
				Logger:       a.log,
			})
			if err != nil {
				return err
			}

			err = w.Run(cmd.Context())
			if errors.Is(err, cmd.Context().Err()) {
				a.log.Info().Msg("watch stopped")
				return nil
			}
			return err
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVar(&processed, "processed", "", "Where compiled PGN files are moved (default <dir>/processed)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Where partial books are written (default <dir>/books)")
	cmd.Flags().DurationVar(&poll, "poll", 10*time.Second, "Rescan interval")
	cmd.Flags().IntVar(&fileWorkers, "file-workers", 1, "PGN files compiled in parallel")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "Normalize each partial book")
	return cmd
}
