package compile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/freeeve/openbook/internal/book"
	"github.com/freeeve/openbook/internal/pgnsource"
)

// Summary is the JSON report written next to a compiled book.
type Summary struct {
	RunID     string    `json:"run_id,omitempty"`
	Command   string    `json:"command"`
	Inputs    []string  `json:"inputs"`
	Output    string    `json:"output,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Elapsed   string    `json:"elapsed"`

	GamesRead            int64 `json:"games_read"`
	GamesUsed            int64 `json:"games_used"`
	SkippedVariant       int64 `json:"skipped_variant"`
	SkippedRating        int64 `json:"skipped_rating"`
	SkippedUnknownResult int64 `json:"skipped_unknown_result"`
	SkippedEmpty         int64 `json:"skipped_empty"`
	SkippedUnreplayable  int64 `json:"skipped_unreplayable"`
	TruncatedGames       int64 `json:"truncated_games"`
	Plies                int64 `json:"plies"`
	Chunks               int64 `json:"chunks"`

	SourcesMerged  int      `json:"sources_merged,omitempty"`
	SourcesSkipped []string `json:"sources_skipped,omitempty"`

	Positions        int    `json:"positions"`
	Moves            int    `json:"moves"`
	Normalized       bool   `json:"normalized"`
	Target           uint64 `json:"target,omitempty"`
	Floor            string `json:"floor,omitempty"`
	DroppedPositions int    `json:"dropped_positions"`
	DroppedMoves     int    `json:"dropped_moves"`
	ClampedMoves     int    `json:"clamped_moves"`

	Records     int   `json:"records"`
	Saturated   int   `json:"saturated"`
	Bytes       int64 `json:"bytes"`
	StoredBytes int64 `json:"stored_bytes"`
}

// Stats collects counters from concurrent chunk workers.
type Stats struct {
	gamesRead      int64
	skippedVariant int64
	skippedRating  int64
	gamesUsed      int64
	skippedUnknown int64
	skippedEmpty   int64
	unreplayable   int64
	truncated      int64
	plies          int64
	chunks         int64

	summary Summary
}

// NewStats creates a collector for one command run.
func NewStats(command, runID string, inputs []string) *Stats {
	return &Stats{summary: Summary{
		RunID:     runID,
		Command:   command,
		Inputs:    inputs,
		StartedAt: time.Now().UTC(),
	}}
}

// AddSource records what a PGN reader saw.
func (s *Stats) AddSource(st pgnsource.Stats) {
	atomic.AddInt64(&s.gamesRead, st.Games)
	atomic.AddInt64(&s.skippedVariant, st.SkippedVariant)
	atomic.AddInt64(&s.skippedRating, st.SkippedRating)
}

// AddChunk records one aggregated chunk. unreplayable counts games dropped
// because they could not be converted at all.
func (s *Stats) AddChunk(t book.Tally, truncated, unreplayable int64) {
	atomic.AddInt64(&s.gamesUsed, t.Games)
	atomic.AddInt64(&s.skippedUnknown, t.SkippedUnknownResult)
	atomic.AddInt64(&s.skippedEmpty, t.SkippedEmpty)
	atomic.AddInt64(&s.plies, t.Plies)
	atomic.AddInt64(&s.truncated, truncated)
	atomic.AddInt64(&s.unreplayable, unreplayable)
	atomic.AddInt64(&s.chunks, 1)
}

// GamesUsed returns the number of games aggregated so far.
func (s *Stats) GamesUsed() int64 {
	return atomic.LoadInt64(&s.gamesUsed)
}

// Plies returns the number of plies aggregated so far.
func (s *Stats) Plies() int64 {
	return atomic.LoadInt64(&s.plies)
}

// SetMerge records the outcome of a book merge.
func (s *Stats) SetMerge(report book.MergeReport) {
	s.summary.SourcesSkipped = nil
	s.summary.SourcesMerged = 0
	for _, src := range report.Sources {
		if src.Err != nil {
			s.summary.SourcesSkipped = append(s.summary.SourcesSkipped, src.Path)
			continue
		}
		s.summary.SourcesMerged++
	}
}

// SetBook records the shape of the book before it is written.
func (s *Stats) SetBook(b *book.Book) {
	s.summary.Positions = b.Positions()
	s.summary.Moves = b.MoveCount()
}

// SetNormalize records a normalization pass.
func (s *Stats) SetNormalize(target uint64, floor book.FloorPolicy, ns book.NormalizeStats) {
	s.summary.Normalized = true
	s.summary.Target = target
	s.summary.Floor = floor.String()
	s.summary.DroppedPositions = ns.DroppedPositions
	s.summary.DroppedMoves = ns.DroppedMoves
	s.summary.ClampedMoves = ns.ClampedMoves
}

// SetWrite records the written file.
func (s *Stats) SetWrite(path string, ws book.WriteStats) {
	s.summary.Output = path
	s.summary.Records = ws.Records
	s.summary.Saturated = ws.Saturated
	s.summary.Bytes = ws.Bytes
	s.summary.StoredBytes = ws.StoredBytes
}

// Summary returns a snapshot of the collected statistics.
func (s *Stats) Summary() Summary {
	out := s.summary
	out.Elapsed = time.Since(s.summary.StartedAt).Round(time.Millisecond).String()
	out.GamesRead = atomic.LoadInt64(&s.gamesRead)
	out.GamesUsed = atomic.LoadInt64(&s.gamesUsed)
	out.SkippedVariant = atomic.LoadInt64(&s.skippedVariant)
	out.SkippedRating = atomic.LoadInt64(&s.skippedRating)
	out.SkippedUnknownResult = atomic.LoadInt64(&s.skippedUnknown)
	out.SkippedEmpty = atomic.LoadInt64(&s.skippedEmpty)
	out.SkippedUnreplayable = atomic.LoadInt64(&s.unreplayable)
	out.TruncatedGames = atomic.LoadInt64(&s.truncated)
	out.Plies = atomic.LoadInt64(&s.plies)
	out.Chunks = atomic.LoadInt64(&s.chunks)
	return out
}

// SaveSummary writes the summary as indented JSON, via a temp file and rename.
func (s *Stats) SaveSummary(path string) error {
	data, err := json.MarshalIndent(s.Summary(), "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create summary temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close summary: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename summary: %w", err)
	}
	return nil
}

// LoadSummary reads a summary written by SaveSummary.
func LoadSummary(path string) (Summary, error) {
	var sum Summary
	data, err := os.ReadFile(path)
	if err != nil {
		return sum, err
	}
	if err := json.Unmarshal(data, &sum); err != nil {
		return sum, fmt.Errorf("parse summary %s: %w", path, err)
	}
	return sum, nil
}
