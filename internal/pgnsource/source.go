// Package pgnsource turns PGN files into the per-game ply lists a book is
// aggregated from. Move legality and board updates come from
// github.com/freeeve/pgn/v3; this package only filters games, reads the
// board the library reports before each move, and fingerprints it.
package pgnsource

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/freeeve/pgn/v3"

	"github.com/freeeve/openbook/internal/book"
	"github.com/freeeve/openbook/internal/move"
	"github.com/freeeve/openbook/internal/score"
)

// StandardVariant is the only variant accepted when Config.Variants is empty.
const StandardVariant = "Standard"

// Config controls which games are used and how they are replayed.
type Config struct {
	MinElo        int           // both players must be rated at least this; 0 disables
	Variants      []string      // accepted Variant tags; a missing tag counts as Standard
	MaxPlies      int           // stop replaying after this many plies; 0 means the whole game
	Fingerprinter Fingerprinter // defaults to DefaultZobrist
}

func (c Config) fingerprinter() Fingerprinter {
	if c.Fingerprinter == nil {
		return DefaultZobrist
	}
	return c.Fingerprinter
}

// SkipReason says why a game was filtered out.
type SkipReason uint8

const (
	Keep SkipReason = iota
	SkipVariant
	SkipRating
)

func (r SkipReason) String() string {
	switch r {
	case SkipVariant:
		return "variant"
	case SkipRating:
		return "rating"
	default:
		return "keep"
	}
}

// Stats counts what the reader saw in a file.
type Stats struct {
	Games          int64 // games parsed
	Accepted       int64 // games handed to the chunk callback
	SkippedVariant int64
	SkippedRating  int64
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Games += o.Games
	s.Accepted += o.Accepted
	s.SkippedVariant += o.SkippedVariant
	s.SkippedRating += o.SkippedRating
}

// Filter decides whether a game with these tags is used.
func (c Config) Filter(tags map[string]string) SkipReason {
	variant := tags["Variant"]
	if variant == "" {
		variant = StandardVariant
	}
	variants := c.Variants
	if len(variants) == 0 {
		variants = []string{StandardVariant}
	}
	ok := false
	for _, v := range variants {
		if strings.EqualFold(v, variant) {
			ok = true
			break
		}
	}
	if !ok {
		return SkipVariant
	}

	if c.MinElo > 0 {
		if ParseRating(tags["WhiteElo"]) < c.MinElo || ParseRating(tags["BlackElo"]) < c.MinElo {
			return SkipRating
		}
	}
	return Keep
}

// ParseRating reads an Elo tag. Missing or unknown ratings are 0.
func ParseRating(s string) int {
	if s == "" || s == "?" || s == "-" {
		return 0
	}
	r, _ := strconv.Atoi(s)
	return r
}

// Convert replays a parsed game and returns its plies, each keyed by the
// position before the move. Replay stops at MaxPlies. If the library rejects
// a move, the plies before it are kept and truncated is true.
func (c Config) Convert(g *pgn.Game) (out book.Game, truncated bool, err error) {
	fp := c.fingerprinter()
	out.Result = score.ParseResult(g.Tags["Result"])

	n := len(g.Moves)
	if c.MaxPlies > 0 && n > c.MaxPlies {
		n = c.MaxPlies
	}
	out.Plies = make([]book.Ply, 0, n)

	pos := pgn.NewStartingPosition()
	for i := 0; i < n; i++ {
		mv := g.Moves[i]

		before, err := ParseFEN(pos.ToFEN())
		if err != nil {
			return out, false, fmt.Errorf("ply %d: %w", i, err)
		}
		from, to := int(mv.From), int(mv.To)
		if from < 0 || from > 63 || to < 0 || to > 63 {
			return out, true, nil
		}
		mover := before.PieceAt(from)
		if mover.Piece == move.NoPiece || mover.Color != before.SideToMove {
			return out, true, nil
		}

		if err := pgn.ApplyMove(pos, mv); err != nil {
			return out, true, nil
		}

		out.Plies = append(out.Plies, book.Ply{
			Key:   fp.Fingerprint(before),
			Move:  move.New(from, to, promotion(mv)),
			Piece: mover.Piece,
			Mover: before.SideToMove,
		})
	}
	return out, false, nil
}

func promotion(mv pgn.Mv) move.Promotion {
	switch mv.Promo {
	case pgn.PromoKnight:
		return move.PromoKnight
	case pgn.PromoBishop:
		return move.PromoBishop
	case pgn.PromoRook:
		return move.PromoRook
	case pgn.PromoQueen:
		return move.PromoQueen
	default:
		return move.PromoNone
	}
}

// ReadChunks streams the games of a .pgn or .pgn.zst file, drops the ones the
// filter rejects, and calls fn with batches of up to size accepted games. A
// batch is not reused after fn returns. Reading stops at the first error
// from fn or when ctx is done.
func ReadChunks(ctx context.Context, path string, cfg Config, size int, fn func(chunk []*pgn.Game) error) (Stats, error) {
	var stats Stats
	if size <= 0 {
		return stats, fmt.Errorf("chunk size must be positive, got %d", size)
	}

	parser := pgn.Games(path)
	stopped := false
	stop := func() {
		if !stopped {
			parser.Stop()
			stopped = true
		}
	}
	defer stop()

	chunk := make([]*pgn.Game, 0, size)
	for game := range parser.Games {
		select {
		case <-ctx.Done():
			stop()
			return stats, ctx.Err()
		default:
		}

		stats.Games++
		switch cfg.Filter(game.Tags) {
		case SkipVariant:
			stats.SkippedVariant++
			continue
		case SkipRating:
			stats.SkippedRating++
			continue
		}

		stats.Accepted++
		chunk = append(chunk, game)
		if len(chunk) == size {
			if err := fn(chunk); err != nil {
				stop()
				return stats, err
			}
			chunk = make([]*pgn.Game, 0, size)
		}
	}

	if err := parser.Err(); err != nil {
		return stats, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(chunk) > 0 {
		if err := fn(chunk); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// IsPGNFile reports whether name is a .pgn or .pgn.zst file.
func IsPGNFile(name string) bool {
	ext := filepath.Ext(name)
	if ext == ".pgn" {
		return true
	}
	if ext == ".zst" {
		return filepath.Ext(strings.TrimSuffix(name, ext)) == ".pgn"
	}
	return false
}
