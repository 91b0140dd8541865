package book

import (
	"math/bits"
	"sort"

	"github.com/freeeve/openbook/internal/move"
)

// State tracks where a Book is in its lifecycle.
type State uint8

const (
	StateEmpty State = iota
	StateAccumulating
	StateNormalized
	StateSerialized
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateNormalized:
		return "normalized"
	case StateSerialized:
		return "serialized"
	default:
		return "unknown"
	}
}

// WeightedMove is a candidate move and its accumulated weight.
type WeightedMove struct {
	Move   move.Move
	Weight uint64
}

// entry holds the candidate moves of one position. Positions rarely have
// more than a handful of moves, so a slice with linear lookup beats a map.
type entry struct {
	moves []WeightedMove
}

func (e *entry) add(m move.Move, w uint64) {
	for i := range e.moves {
		if e.moves[i].Move == m {
			e.moves[i].Weight = saturatingAdd64(e.moves[i].Weight, w)
			return
		}
	}
	e.moves = append(e.moves, WeightedMove{Move: m, Weight: w})
}

func (e *entry) total() uint64 {
	var t uint64
	for _, wm := range e.moves {
		t = saturatingAdd64(t, wm.Weight)
	}
	return t
}

// Book is the in-memory aggregate of position key -> weighted moves.
// A Book is not safe for concurrent mutation; parallel compilation gives
// each worker its own Book and merges afterwards.
type Book struct {
	positions map[PositionKey]*entry
	state     State
}

// New creates an empty book.
func New() *Book {
	return &Book{
		positions: make(map[PositionKey]*entry),
	}
}

// Add accumulates weight for move m at key. Moves must already be canonical.
// A zero weight still records the move.
func (b *Book) Add(key PositionKey, m move.Move, weight uint64) {
	e, ok := b.positions[key]
	if !ok {
		e = &entry{}
		b.positions[key] = e
	}
	e.add(m, weight)
	b.state = StateAccumulating
}

// Weight returns the accumulated weight for (key, m) and whether the pair exists.
func (b *Book) Weight(key PositionKey, m move.Move) (uint64, bool) {
	e, ok := b.positions[key]
	if !ok {
		return 0, false
	}
	for _, wm := range e.moves {
		if wm.Move == m {
			return wm.Weight, true
		}
	}
	return 0, false
}

// Moves returns a copy of the moves stored for key, sorted by encoded move.
func (b *Book) Moves(key PositionKey) []WeightedMove {
	e, ok := b.positions[key]
	if !ok {
		return nil
	}
	out := make([]WeightedMove, len(e.moves))
	copy(out, e.moves)
	sort.Slice(out, func(i, j int) bool {
		return move.Encode(out[i].Move) < move.Encode(out[j].Move)
	})
	return out
}

// Keys returns all position keys in ascending order.
func (b *Book) Keys() []PositionKey {
	keys := make([]PositionKey, 0, len(b.positions))
	for k := range b.positions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Positions returns the number of positions.
func (b *Book) Positions() int {
	return len(b.positions)
}

// MoveCount returns the number of (position, move) pairs.
func (b *Book) MoveCount() int {
	n := 0
	for _, e := range b.positions {
		n += len(e.moves)
	}
	return n
}

// State returns the lifecycle state.
func (b *Book) State() State {
	return b.state
}

// Records materializes every move with positive weight as a Record, clamped
// to MaxWeight and sorted by (key, move).
func (b *Book) Records() []Record {
	if len(b.positions) == 0 {
		return nil
	}

	result := make([]Record, 0, b.MoveCount())
	for key, e := range b.positions {
		for _, wm := range e.moves {
			if wm.Weight == 0 {
				continue
			}
			result = append(result, Record{
				Key:    key,
				Move:   move.Encode(wm.Move),
				Weight: ClampWeight(wm.Weight),
			})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return recordLess(result[i], result[j])
	})
	return result
}

// saturatingAdd64 adds two uint64 values, capping at the maximum.
func saturatingAdd64(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return ^uint64(0)
	}
	return sum
}
