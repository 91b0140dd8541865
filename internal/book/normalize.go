package book

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrAlreadyNormalized is returned when Normalize is called twice without an
// intervening Add or Merge.
var ErrAlreadyNormalized = errors.New("book already normalized")

// FloorPolicy decides what happens to a move whose positive raw weight
// scales down to zero.
type FloorPolicy uint8

const (
	// ClampToOne keeps such moves with weight 1, so no recorded move
	// silently disappears. This is the default.
	ClampToOne FloorPolicy = iota
	// DropBelowFloor removes such moves.
	DropBelowFloor
)

func (p FloorPolicy) String() string {
	switch p {
	case ClampToOne:
		return "clamp"
	case DropBelowFloor:
		return "drop"
	default:
		return fmt.Sprintf("FloorPolicy(%d)", uint8(p))
	}
}

// ParseFloorPolicy accepts "clamp" / "clampToOne" and "drop" / "dropBelowFloor".
func ParseFloorPolicy(s string) (FloorPolicy, error) {
	switch s {
	case "clamp", "clampToOne", "clamp_to_one", "":
		return ClampToOne, nil
	case "drop", "dropBelowFloor", "drop_below_floor":
		return DropBelowFloor, nil
	default:
		return 0, fmt.Errorf("unknown floor policy %q (want clamp or drop)", s)
	}
}

// NormalizeStats reports what normalization removed.
type NormalizeStats struct {
	DroppedPositions int // positions whose total weight was zero, or emptied by DropBelowFloor
	DroppedMoves     int // moves removed (zero weight, or below floor under DropBelowFloor)
	ClampedMoves     int // moves raised to 1 under ClampToOne
}

// Normalize rescales each position toward target: w' = floor(w * target /
// total). Positions with total weight zero are removed. Zero-weight moves in
// surviving positions are removed too, since they would never be written.
// Every move is scaled with the same formula, so two moves keep their ratio
// up to rounding. Under ClampToOne a position's sum can exceed target by at
// most the number of clamped moves.
func (b *Book) Normalize(target uint64, policy FloorPolicy) (NormalizeStats, error) {
	var st NormalizeStats
	if target == 0 {
		return st, errors.New("normalize: target weight must be positive")
	}
	if policy != ClampToOne && policy != DropBelowFloor {
		return st, fmt.Errorf("normalize: %v", policy)
	}
	if b.state == StateNormalized {
		return st, ErrAlreadyNormalized
	}

	for key, e := range b.positions {
		total := e.total()
		if total == 0 {
			st.DroppedPositions++
			st.DroppedMoves += len(e.moves)
			delete(b.positions, key)
			continue
		}

		kept := e.moves[:0]
		for _, wm := range e.moves {
			if wm.Weight == 0 {
				st.DroppedMoves++
				continue
			}
			scaled := scale(wm.Weight, target, total)
			if scaled == 0 {
				if policy == DropBelowFloor {
					st.DroppedMoves++
					continue
				}
				scaled = 1
				st.ClampedMoves++
			}
			kept = append(kept, WeightedMove{Move: wm.Move, Weight: scaled})
		}

		if len(kept) == 0 {
			st.DroppedPositions++
			delete(b.positions, key)
			continue
		}
		e.moves = kept
	}

	b.state = StateNormalized
	return st, nil
}

// scale computes floor(w * target / total) with a 128-bit intermediate.
// w <= total, so the quotient is at most target and never overflows.
func scale(w, target, total uint64) uint64 {
	hi, lo := bits.Mul64(w, target)
	q, _ := bits.Div64(hi, lo, total)
	return q
}
