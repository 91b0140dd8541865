package book

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// SourceReport describes what happened to one merge input.
type SourceReport struct {
	Path    string
	Records int
	Err     error // non-nil if the source was skipped
}

// MergeReport summarizes a MergeSources run.
type MergeReport struct {
	Sources  []SourceReport
	Warnings error // *multierror.Error with one entry per skipped source, or nil
}

// Skipped returns the number of sources that could not be used.
func (r MergeReport) Skipped() int {
	n := 0
	for _, s := range r.Sources {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// MergeSources reads book files and sums them into one accumulating book.
// A source that cannot be opened or decoded is skipped with a warning and
// contributes nothing; the merge goes on with the rest. Each source is read
// and validated in full before any of it is used. The only error returned
// is ctx's.
func MergeSources(ctx context.Context, paths []string, log zerolog.Logger) (*Book, MergeReport, error) {
	var report MergeReport
	var warnings *multierror.Error
	var iters []RecordIterator

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		records, err := ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("source", path).Msg("skipping unreadable book")
			warnings = multierror.Append(warnings, fmt.Errorf("%s: %w", path, err))
			report.Sources = append(report.Sources, SourceReport{Path: path, Err: err})
			continue
		}

		log.Info().Str("source", path).Int("records", len(records)).Msg("merged book")
		report.Sources = append(report.Sources, SourceReport{Path: path, Records: len(records)})
		iters = append(iters, NewSliceIterator(records))
	}

	merged := New()
	it := NewKWayMergeIterator(iters)
	for {
		key, field, weight, ok := it.Next()
		if !ok {
			break
		}
		// The move field was validated by ReadFile.
		merged.Add(key, Record{Move: field}.DecodedMove(), weight)
	}

	report.Warnings = warnings.ErrorOrNil()
	return merged, report, nil
}

// ExpandSources turns the given arguments into a list of book files:
// directories contribute their *.bin and *.bin.zst files in name order,
// anything else is taken as a file path.
func ExpandSources(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil || !fi.IsDir() {
			// Missing files are reported by MergeSources as skipped sources.
			out = append(out, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read source dir %s: %w", arg, err)
		}
		var files []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if IsBookFile(e.Name()) {
				files = append(files, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(files)
		out = append(out, files...)
	}
	return out, nil
}

// IsBookFile reports whether name looks like a book file.
func IsBookFile(name string) bool {
	name = strings.ToLower(name)
	return strings.HasSuffix(name, ".bin") || strings.HasSuffix(name, ".bin.zst")
}
