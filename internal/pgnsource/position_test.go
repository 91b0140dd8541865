package pgnsource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/openbook/internal/move"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestParseFEN_Start(t *testing.T) {
	p, err := ParseFEN(startFEN)
	require.NoError(t, err)

	assert.Equal(t, move.White, p.SideToMove)
	assert.Equal(t, CastleWhiteKing|CastleWhiteQueen|CastleBlackKing|CastleBlackQueen, p.Castling)
	assert.Equal(t, -1, p.EPFile)

	assert.Equal(t, Occupant{move.King, move.White}, p.PieceAt(move.SqE1))
	assert.Equal(t, Occupant{move.Rook, move.White}, p.PieceAt(move.SqH1))
	assert.Equal(t, Occupant{move.King, move.Black}, p.PieceAt(move.SqE8))
	assert.Equal(t, Occupant{move.Pawn, move.White}, p.PieceAt(12))
	assert.Equal(t, Occupant{move.Pawn, move.Black}, p.PieceAt(52))
	assert.Equal(t, move.NoPiece, p.PieceAt(28).Piece)
}

func TestParseFEN_Fields(t *testing.T) {
	p, err := ParseFEN("rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w Kq e6")
	require.NoError(t, err)
	assert.Equal(t, CastleWhiteKing|CastleBlackQueen, p.Castling)
	assert.Equal(t, 4, p.EPFile)
	assert.False(t, p.EPCapturable())

	p, err = ParseFEN("8/8/8/8/8/8/8/4K2k b - - 10 80")
	require.NoError(t, err)
	assert.Equal(t, move.Black, p.SideToMove)
	assert.Zero(t, p.Castling)
}

func TestParseFEN_Errors(t *testing.T) {
	tests := []struct {
		name string
		fen  string
	}{
		{"too few fields", "8/8/8/8/8/8/8/8 w"},
		{"seven ranks", "8/8/8/8/8/8/8 w - -"},
		{"short rank", "7/8/8/8/8/8/8/8 w - -"},
		{"long rank", "8p/8/8/8/8/8/8/8 w - -"},
		{"bad piece", "8/8/8/8/8/8/8/7x w - -"},
		{"bad side", "8/8/8/8/8/8/8/8 x - -"},
		{"bad castling", "8/8/8/8/8/8/8/8 w KX -"},
		{"bad ep", "8/8/8/8/8/8/8/8 w - e4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFEN(tt.fen)
			assert.Error(t, err)
		})
	}
}

func TestPosition_EPCapturable(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		want bool
	}{
		{"white pawn beside", "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3", true},
		{"no pawn beside", "rnbqkbnr/pppp1ppp/8/4p3/8/8/PPPPPPPP/RNBQKBNR w KQkq e6 0 2", false},
		{"black pawn beside", "rnbqkbnr/ppp1pppp/8/8/2Pp4/8/PP1PPPPP/RNBQKBNR b KQkq c3 0 3", true},
		{"edge file", "rnbqkbnr/1ppppppp/8/8/pP6/8/P1PPPPPP/RNBQKBNR b KQkq b3 0 3", true},
		{"wrong color beside", "rnbqkbnr/pppp1ppp/8/3Pp3/8/8/PPP1PPPP/RNBQKBNR b KQkq e3 0 3", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseFEN(tt.fen)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.EPCapturable())
		})
	}
}
