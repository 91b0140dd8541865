package pgnsource

import (
	"fmt"
	"strings"

	"github.com/freeeve/openbook/internal/move"
)

// Castling right bits, in polyglot key order.
const (
	CastleWhiteKing uint8 = 1 << iota
	CastleWhiteQueen
	CastleBlackKing
	CastleBlackQueen
)

// Occupant is what stands on a square. Piece is NoPiece for an empty square.
type Occupant struct {
	Piece move.Piece
	Color move.Color
}

// Position is the part of a FEN needed to fingerprint a position and to
// classify the piece making a move.
type Position struct {
	Board      [64]Occupant
	SideToMove move.Color
	Castling   uint8
	EPFile     int // -1 when there is no en passant target
}

var fenPieces = map[byte]Occupant{
	'P': {move.Pawn, move.White}, 'N': {move.Knight, move.White}, 'B': {move.Bishop, move.White},
	'R': {move.Rook, move.White}, 'Q': {move.Queen, move.White}, 'K': {move.King, move.White},
	'p': {move.Pawn, move.Black}, 'n': {move.Knight, move.Black}, 'b': {move.Bishop, move.Black},
	'r': {move.Rook, move.Black}, 'q': {move.Queen, move.Black}, 'k': {move.King, move.Black},
}

// ParseFEN reads the board, side to move, castling and en passant fields of
// a FEN string. The move counters are optional and ignored.
func ParseFEN(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return nil, fmt.Errorf("fen %q: want at least 4 fields, got %d", fen, len(fields))
	}

	p := &Position{EPFile: -1}

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return nil, fmt.Errorf("fen %q: want 8 ranks, got %d", fen, len(ranks))
	}
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			occ, ok := fenPieces[c]
			if !ok {
				return nil, fmt.Errorf("fen %q: bad piece %q", fen, c)
			}
			if file > 7 {
				return nil, fmt.Errorf("fen %q: rank %d overflows", fen, rank+1)
			}
			p.Board[rank*8+file] = occ
			file++
		}
		if file != 8 {
			return nil, fmt.Errorf("fen %q: rank %d has %d files", fen, rank+1, file)
		}
	}

	switch fields[1] {
	case "w":
		p.SideToMove = move.White
	case "b":
		p.SideToMove = move.Black
	default:
		return nil, fmt.Errorf("fen %q: bad side to move %q", fen, fields[1])
	}

	if fields[2] != "-" {
		for i := 0; i < len(fields[2]); i++ {
			switch fields[2][i] {
			case 'K':
				p.Castling |= CastleWhiteKing
			case 'Q':
				p.Castling |= CastleWhiteQueen
			case 'k':
				p.Castling |= CastleBlackKing
			case 'q':
				p.Castling |= CastleBlackQueen
			default:
				return nil, fmt.Errorf("fen %q: bad castling field %q", fen, fields[2])
			}
		}
	}

	if ep := fields[3]; ep != "-" {
		if len(ep) != 2 || ep[0] < 'a' || ep[0] > 'h' || (ep[1] != '3' && ep[1] != '6') {
			return nil, fmt.Errorf("fen %q: bad en passant square %q", fen, ep)
		}
		p.EPFile = int(ep[0] - 'a')
	}

	return p, nil
}

// PieceAt returns the occupant of sq (0 = a1, 63 = h8).
func (p *Position) PieceAt(sq int) Occupant {
	return p.Board[sq]
}

// EPCapturable reports whether a pawn of the side to move stands next to the
// pawn that just made a double step, so an en passant capture is on the board.
func (p *Position) EPCapturable() bool {
	if p.EPFile < 0 {
		return false
	}
	// The double-stepped pawn sits on rank 5 for white to move, rank 4 for black.
	rank := 4
	if p.SideToMove == move.Black {
		rank = 3
	}
	for _, df := range [2]int{-1, 1} {
		f := p.EPFile + df
		if f < 0 || f > 7 {
			continue
		}
		occ := p.Board[rank*8+f]
		if occ.Piece == move.Pawn && occ.Color == p.SideToMove {
			return true
		}
	}
	return false
}
