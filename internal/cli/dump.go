package cli

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freeeve/openbook/internal/book"
	"github.com/freeeve/openbook/internal/eco"
)

func newDumpCmd(a *app) *cobra.Command {
	var (
		keyHex  string
		limit   int
		ecoPath string
	)

	cmd := &cobra.Command{
		Use:   "dump <book>",
		Short: "Print the records of a book",
		Long: `Prints one line per record: key (hex), move (UCI), weight and learn field.
With --key only the records of that position are printed. With --eco, records
whose position is a named opening get the ECO code and name appended.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := book.OpenFile(args[0])
			if err != nil {
				return err
			}

			var openings *eco.Database
			if ecoPath != "" {
				openings = eco.NewDatabase(a.cfg.Fingerprinter())
				if err := openings.Load(ecoPath); err != nil {
					return fmt.Errorf("load eco: %w", err)
				}
			}

			records := f.Records()
			if keyHex != "" {
				key, err := book.ParsePositionKey(keyHex)
				if err != nil {
					return err
				}
				records = f.Lookup(key)
			}
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}

			w := bufio.NewWriter(cmd.OutOrStdout())
			for _, r := range records {
				fmt.Fprintf(w, "%s %-5s %5d %d", r.Key, r.DecodedMove().UCI(), r.Weight, r.Learn)
				if openings != nil {
					if o := openings.Lookup(r.Key); o != nil {
						fmt.Fprintf(w, " %s %s", o.ECO, o.Name)
					}
				}
				fmt.Fprintln(w)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&keyHex, "key", "k", "", "Only print records for this position key (hex)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Print at most this many records")
	cmd.Flags().StringVar(&ecoPath, "eco", "", "ECO .tsv file or directory used to name positions")
	return cmd
}
