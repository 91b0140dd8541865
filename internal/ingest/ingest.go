package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/freeeve/openbook/internal/compile"
	"github.com/freeeve/openbook/internal/pgnsource"
)

// Config configures the ingest worker.
type Config struct {
	WatchDir     string          // Directory to watch for PGN files
	ProcessedDir string          // Directory to move compiled PGN files to
	FailedDir    string          // Directory to move PGN files that failed to compile
	OutputDir    string          // Directory partial books are written to
	FileWorkers  int             // Files compiled in parallel (default 1)
	PollInterval time.Duration   // How often to rescan when no events arrive
	SettleTime   time.Duration   // A file must be unmodified this long before it is read
	Compile      compile.Options // Pipeline settings for each file
	Logger       zerolog.Logger  // Logger
}

// Worker watches a folder and compiles each PGN file dropped into it into a
// partial book.
type Worker struct {
	cfg Config
	log zerolog.Logger
	now func() time.Time
}

// BatchResult counts the outcome of one scan.
type BatchResult struct {
	Processed int
	Failed    int
	Pending   int // files still being written
}

// NewWorker creates a new ingest worker.
func NewWorker(cfg Config) (*Worker, error) {
	if cfg.WatchDir == "" {
		return nil, errors.New("ingest: watch dir is required")
	}
	if cfg.ProcessedDir == "" {
		cfg.ProcessedDir = filepath.Join(cfg.WatchDir, "processed")
	}
	if cfg.FailedDir == "" {
		cfg.FailedDir = filepath.Join(cfg.WatchDir, "failed")
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(cfg.WatchDir, "books")
	}
	if cfg.FileWorkers <= 0 {
		cfg.FileWorkers = 1
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.SettleTime == 0 {
		cfg.SettleTime = 2 * time.Second
	}
	cfg.Compile.Logger = cfg.Logger

	// Ensure directories exist
	for _, dir := range []string{cfg.WatchDir, cfg.ProcessedDir, cfg.FailedDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	return &Worker{
		cfg: cfg,
		log: cfg.Logger,
		now: time.Now,
	}, nil
}

// Run watches the folder until ctx is done. Filesystem events trigger a scan
// once writes have settled; the poll ticker catches anything the watcher
// misses.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().
		Str("watch_dir", w.cfg.WatchDir).
		Str("processed_dir", w.cfg.ProcessedDir).
		Str("output_dir", w.cfg.OutputDir).
		Int("min_elo", w.cfg.Compile.Source.MinElo).
		Msg("ingest worker started")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.cfg.WatchDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.WatchDir, err)
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	settle := time.NewTimer(0)
	defer settle.Stop()

	scan := func() {
		res, err := w.ProcessNewFiles(ctx)
		if err != nil && ctx.Err() == nil {
			w.log.Warn().Err(err).Msg("process files failed")
		}
		if res.Pending > 0 {
			settle.Reset(w.cfg.SettleTime)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if ev.Has(fsnotify.Create|fsnotify.Write) && pgnsource.IsPGNFile(filepath.Base(ev.Name)) {
				settle.Reset(w.cfg.SettleTime)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			w.log.Warn().Err(err).Msg("watcher error")
		case <-settle.C:
			scan()
		case <-ticker.C:
			scan()
		}
	}
}

// ProcessNewFiles compiles the settled PGN files in the watch directory, up
// to FileWorkers at a time, and moves each to the processed or failed dir.
func (w *Worker) ProcessNewFiles(ctx context.Context) (BatchResult, error) {
	var res BatchResult

	// Early exit if context already cancelled
	if err := ctx.Err(); err != nil {
		return res, err
	}

	entries, err := os.ReadDir(w.cfg.WatchDir)
	if err != nil {
		return res, err
	}

	// Collect PGN files
	var files []string
	for _, e := range entries {
		if e.IsDir() || !pgnsource.IsPGNFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if w.now().Sub(info.ModTime()) < w.cfg.SettleTime {
			res.Pending++
			continue
		}
		files = append(files, e.Name())
	}

	if len(files) == 0 {
		return res, nil
	}

	// Sort by name to process in order
	sort.Strings(files)
	w.log.Info().Int("files", len(files)).Int("workers", w.cfg.FileWorkers).Msg("found PGN files to compile")

	type fileResult struct {
		name string
		err  error
	}

	fileChan := make(chan string, len(files))
	resultChan := make(chan fileResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.FileWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileChan {
				if err := ctx.Err(); err != nil {
					resultChan <- fileResult{name: name, err: err}
					continue
				}
				resultChan <- fileResult{name: name, err: w.compileFile(ctx, name)}
			}
		}()
	}

	for _, name := range files {
		fileChan <- name
	}
	close(fileChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for result := range resultChan {
		srcPath := filepath.Join(w.cfg.WatchDir, result.name)
		if result.err != nil {
			if ctx.Err() != nil {
				// Interrupted: leave the file for the next run.
				continue
			}
			w.log.Error().Err(result.err).Str("file", result.name).Msg("compile failed")
			res.Failed++
			if err := os.Rename(srcPath, filepath.Join(w.cfg.FailedDir, result.name)); err != nil {
				w.log.Warn().Err(err).Str("file", result.name).Msg("move to failed dir failed")
			}
			continue
		}

		if err := os.Rename(srcPath, filepath.Join(w.cfg.ProcessedDir, result.name)); err != nil {
			w.log.Warn().Err(err).Str("file", result.name).Msg("move to processed failed")
		} else {
			w.log.Info().Str("file", result.name).Msg("moved to processed")
		}
		res.Processed++
	}

	w.log.Info().Int("processed", res.Processed).Int("failed", res.Failed).Msg("batch complete")
	return res, ctx.Err()
}

// BookPath returns where the partial book for a PGN file is written.
func (w *Worker) BookPath(name string) string {
	base := strings.TrimSuffix(name, ".zst")
	base = strings.TrimSuffix(base, ".pgn")
	return filepath.Join(w.cfg.OutputDir, base+".bin")
}

// compileFile builds one PGN file into a partial book with its summary.
func (w *Worker) compileFile(ctx context.Context, name string) error {
	path := filepath.Join(w.cfg.WatchDir, name)
	out := w.BookPath(name)
	stats := compile.NewStats("watch", "", []string{path})

	b, err := compile.Build(ctx, []string{path}, w.cfg.Compile, stats)
	if err != nil {
		return err
	}

	if err := compile.Emit(b, out, w.cfg.Compile, stats); err != nil {
		return err
	}
	return stats.SaveSummary(strings.TrimSuffix(out, ".bin") + ".json")
}
