// Package compile runs the book pipelines: PGN files to an aggregated book
// (map over chunks of games, reduce by merging), book files to a merged
// book, and the final normalize and write step.
package compile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/freeeve/pgn/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/openbook/internal/book"
	"github.com/freeeve/openbook/internal/config"
	"github.com/freeeve/openbook/internal/pgnsource"
)

// Options configures a pipeline run.
type Options struct {
	Source        pgnsource.Config
	Aggregate     book.AggregateConfig
	ChunkSize     int
	Workers       int
	Normalize     bool
	Target        uint64
	Floor         book.FloorPolicy
	ProgressEvery time.Duration // defaults to 10s
	Logger        zerolog.Logger

	// Convert turns a parsed game into plies; nil means Source.Convert.
	Convert func(*pgn.Game) (book.Game, bool, error)
}

// OptionsFromConfig builds pipeline options from a validated Config.
func OptionsFromConfig(cfg config.Config, log zerolog.Logger) (Options, error) {
	floor, err := cfg.FloorPolicy()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Source:    cfg.Source(),
		Aggregate: cfg.Aggregate(),
		ChunkSize: cfg.ChunkSize,
		Workers:   cfg.EffectiveWorkers(),
		Normalize: true,
		Target:    uint64(cfg.Target),
		Floor:     floor,
		Logger:    log,
	}, nil
}

type chunkResult struct {
	book *book.Book
}

// Build aggregates the games of the given PGN files into one book. Chunks of
// ChunkSize games are aggregated concurrently on up to Workers goroutines,
// then folded together in chunk order. The result is the same for any chunk
// size or worker count.
func Build(ctx context.Context, inputs []string, opts Options, stats *Stats) (*book.Book, error) {
	if opts.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", opts.ChunkSize)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	log := opts.Logger

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	stopProgress := startProgress(gctx, opts, stats)
	defer stopProgress()

	// Only this goroutine appends; each worker writes through its own pointer.
	var results []*chunkResult

	readErr := func() error {
		for _, path := range inputs {
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			start := time.Now()
			log.Info().Str("file", filepath.Base(path)).Msg("reading games")

			srcStats, err := pgnsource.ReadChunks(gctx, path, opts.Source, opts.ChunkSize, func(chunk []*pgn.Game) error {
				res := &chunkResult{}
				results = append(results, res)
				g.Go(func() error {
					return aggregateChunk(gctx, chunk, opts, res, stats)
				})
				return nil
			})
			stats.AddSource(srcStats)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			log.Info().
				Str("file", filepath.Base(path)).
				Int64("games", srcStats.Games).
				Int64("accepted", srcStats.Accepted).
				Int64("skipped_variant", srcStats.SkippedVariant).
				Int64("skipped_rating", srcStats.SkippedRating).
				Dur("elapsed", time.Since(start)).
				Msg("file read complete")
		}
		return nil
	}()

	waitErr := g.Wait()
	if readErr != nil {
		// A worker failure cancels gctx, which surfaces here as a read error.
		if waitErr != nil && errors.Is(readErr, context.Canceled) && ctx.Err() == nil {
			return nil, waitErr
		}
		return nil, readErr
	}
	if waitErr != nil {
		return nil, waitErr
	}

	merged := book.New()
	for _, res := range results {
		merged.MergeFrom(res.book)
	}

	log.Info().
		Int("chunks", len(results)).
		Int("positions", merged.Positions()).
		Int("moves", merged.MoveCount()).
		Msg("aggregation complete")
	return merged, nil
}

func aggregateChunk(ctx context.Context, chunk []*pgn.Game, opts Options, res *chunkResult, stats *Stats) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	convert := opts.Convert
	if convert == nil {
		convert = opts.Source.Convert
	}

	b := book.New()
	var tally book.Tally
	var truncated, unreplayable int64
	for _, pg := range chunk {
		game, cut, err := convert(pg)
		if err != nil {
			unreplayable++
			opts.Logger.Debug().Err(err).
				Str("event", pg.Tags["Event"]).
				Msg("skipping game that cannot be replayed")
			continue
		}
		if cut {
			truncated++
		}
		tally.Add(b.AddGame(game, opts.Aggregate))
	}

	res.book = b
	stats.AddChunk(tally, truncated, unreplayable)
	return nil
}

// startProgress logs throughput every ProgressEvery until the returned
// function is called.
func startProgress(ctx context.Context, opts Options, stats *Stats) func() {
	every := opts.ProgressEvery
	if every <= 0 {
		every = 10 * time.Second
	}
	start := time.Now()
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				games := stats.GamesUsed()
				opts.Logger.Info().
					Int64("games", games).
					Int64("plies", stats.Plies()).
					Float64("games_per_sec", float64(games)/time.Since(start).Seconds()).
					Msg("build progress")
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}

// Merge sums the given book files into one accumulating book. Unreadable
// sources are skipped and reported in stats.
func Merge(ctx context.Context, sources []string, opts Options, stats *Stats) (*book.Book, error) {
	merged, report, err := book.MergeSources(ctx, sources, opts.Logger)
	if err != nil {
		return nil, err
	}
	stats.SetMerge(report)
	if report.Warnings != nil {
		opts.Logger.Warn().
			Int("skipped", report.Skipped()).
			Int("sources", len(report.Sources)).
			Msg("some sources were skipped")
	}
	return merged, nil
}

// Emit optionally normalizes b and writes it to path.
func Emit(b *book.Book, path string, opts Options, stats *Stats) error {
	log := opts.Logger

	if opts.Normalize {
		ns, err := b.Normalize(opts.Target, opts.Floor)
		if err != nil {
			return fmt.Errorf("normalize: %w", err)
		}
		stats.SetNormalize(opts.Target, opts.Floor, ns)
		log.Info().
			Uint64("target", opts.Target).
			Str("floor", opts.Floor.String()).
			Int("dropped_positions", ns.DroppedPositions).
			Int("dropped_moves", ns.DroppedMoves).
			Int("clamped_moves", ns.ClampedMoves).
			Msg("normalized book")
	}
	stats.SetBook(b)

	ws, err := b.WriteFile(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	stats.SetWrite(path, ws)

	level := zerolog.InfoLevel
	if ws.Saturated > 0 || ws.Records == 0 {
		level = zerolog.WarnLevel
	}
	log.WithLevel(level).
		Str("path", path).
		Int("records", ws.Records).
		Int("positions", ws.Positions).
		Int("saturated", ws.Saturated).
		Int64("bytes", ws.StoredBytes).
		Msg("book written")
	return nil
}
