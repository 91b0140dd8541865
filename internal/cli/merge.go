package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/freeeve/openbook/internal/book"
	"github.com/freeeve/openbook/internal/compile"
)

func newMergeCmd(a *app) *cobra.Command {
	var (
		flags     pipelineFlags
		output    string
		normalize bool
	)

	cmd := &cobra.Command{
		Use:   "merge <book|dir>...",
		Short: "Sum book files into one book",
		Long: `Adds up the weights of identical (position, move) pairs across book files.
Directory arguments contribute their *.bin and *.bin.zst files. Unreadable or
corrupt sources are skipped with a warning. Without --normalize the summed
weights are written as they are, saturating at 65535.`,
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

			sources, err := book.ExpandSources(args)
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				return errors.New("no book files to merge")
			}

			opts, err := compile.OptionsFromConfig(cfg, a.log)
			if err != nil {
				return err
			}
			opts.Normalize = normalize

			stats := compile.NewStats("merge", a.runID, sources)
			merged, err := compile.Merge(cmd.Context(), sources, opts, stats)
			if err != nil {
				return err
			}
			if err := compile.Emit(merged, output, opts, stats); err != nil {
				return err
			}
			return writeSummary(cmd, flags.summary, stats)
		},
	}

	flags.register(cmd, false)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Book file to write (.bin or .bin.zst)")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "Normalize the merged weights to --target")
	return cmd
}
