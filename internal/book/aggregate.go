package book

import (
	"github.com/freeeve/openbook/internal/move"
	"github.com/freeeve/openbook/internal/score"
)

// Ply is one half-move as supplied by the rules collaborator: the key of
// the position before the move, the move as played, the type of the moving
// piece (needed for castling canonicalization) and the side that moved.
type Ply struct {
	Key   PositionKey
	Move  move.Move
	Piece move.Piece
	Mover move.Color
}

// Game is one already-validated game.
type Game struct {
	Plies  []Ply
	Result score.Result
}

// AggregateConfig controls how games are credited.
type AggregateConfig struct {
	MaxPlies int         // plies beyond this depth are ignored
	Scoring  score.Table // result -> credit
}

// Tally counts what happened to the games fed to a book.
type Tally struct {
	Games                int64 // games that contributed
	Plies                int64 // plies credited
	SkippedEmpty         int64 // games without moves
	SkippedUnknownResult int64 // games whose result could not be scored
}

// Skipped returns the total number of skipped games.
func (t Tally) Skipped() int64 {
	return t.SkippedEmpty + t.SkippedUnknownResult
}

// Add folds o into t.
func (t *Tally) Add(o Tally) {
	t.Games += o.Games
	t.Plies += o.Plies
	t.SkippedEmpty += o.SkippedEmpty
	t.SkippedUnknownResult += o.SkippedUnknownResult
}

// AddGame credits the first cfg.MaxPlies plies of g to the book.
// Games with an unclassifiable result or no plies are skipped entirely and
// reported through the returned Tally.
func (b *Book) AddGame(g Game, cfg AggregateConfig) Tally {
	var t Tally
	if len(g.Plies) == 0 {
		t.SkippedEmpty = 1
		return t
	}
	if _, ok := cfg.Scoring.White(g.Result); !ok {
		t.SkippedUnknownResult = 1
		return t
	}

	plies := g.Plies
	if cfg.MaxPlies > 0 && len(plies) > cfg.MaxPlies {
		plies = plies[:cfg.MaxPlies]
	}

	for _, p := range plies {
		credit, _ := cfg.Scoring.Credit(g.Result, p.Mover)
		m := move.Canonical(p.Move, p.Piece, p.Mover)
		b.Add(p.Key, m, uint64(credit))
	}

	t.Games = 1
	t.Plies = int64(len(plies))
	return t
}

// Aggregate compiles a chunk of games into a fresh partial book. It shares
// no state with other calls, so chunks can be aggregated concurrently.
func Aggregate(games []Game, cfg AggregateConfig) (*Book, Tally) {
	b := New()
	var t Tally
	for _, g := range games {
		t.Add(b.AddGame(g, cfg))
	}
	return b, t
}
