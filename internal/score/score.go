// Package score turns a game result into the per-ply credit added to a book.
package score

import (
	"fmt"

	"github.com/freeeve/openbook/internal/move"
)

// Result is the final outcome of a game.
type Result uint8

const (
	Unknown Result = iota
	WhiteWin
	BlackWin
	Draw
)

// ParseResult maps a PGN Result tag to a Result. Anything other than
// "1-0", "0-1" or "1/2-1/2" (including "*") is Unknown.
func ParseResult(tag string) Result {
	switch tag {
	case "1-0":
		return WhiteWin
	case "0-1":
		return BlackWin
	case "1/2-1/2":
		return Draw
	default:
		return Unknown
	}
}

func (r Result) String() string {
	switch r {
	case WhiteWin:
		return "1-0"
	case BlackWin:
		return "0-1"
	case Draw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

// Table scores results from White's point of view. Black's credit for a ply
// is Max minus White's score, so the loser of a decisive game gets zero,
// never a negative number.
type Table struct {
	WhiteWin uint32 `toml:"white_win"`
	Draw     uint32 `toml:"draw"`
	BlackWin uint32 `toml:"black_win"`
	Max      uint32 `toml:"max"`
}

// DefaultTable is win=2, draw=1, loss=0.
func DefaultTable() Table {
	return Table{WhiteWin: 2, Draw: 1, BlackWin: 0, Max: 2}
}

// Validate checks that every score lies within [0, Max].
func (t Table) Validate() error {
	if t.Max == 0 {
		return fmt.Errorf("scoring table: max must be positive")
	}
	fields := []struct {
		name string
		v    uint32
	}{
		{"white_win", t.WhiteWin},
		{"draw", t.Draw},
		{"black_win", t.BlackWin},
	}
	for _, f := range fields {
		if f.v > t.Max {
			return fmt.Errorf("scoring table: %s=%d exceeds max=%d", f.name, f.v, t.Max)
		}
	}
	return nil
}

// White returns White's score for r, and false if r cannot be classified.
func (t Table) White(r Result) (uint32, bool) {
	switch r {
	case WhiteWin:
		return t.WhiteWin, true
	case BlackWin:
		return t.BlackWin, true
	case Draw:
		return t.Draw, true
	default:
		return 0, false
	}
}

// Credit returns the weight credited to a ply played by mover in a game that
// ended with r. ok is false for unclassifiable results; such games
// contribute nothing.
func (t Table) Credit(r Result, mover move.Color) (credit uint32, ok bool) {
	s, ok := t.White(r)
	if !ok {
		return 0, false
	}
	if mover == move.White {
		return s, true
	}
	return t.Max - s, true
}
