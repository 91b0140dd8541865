package move

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMove(t *testing.T) {
	tests := []struct {
		name  string
		move  Move
		field uint16
	}{
		{"e2e4", New(12, 28, PromoNone), 28 | 12<<6},
		{"e7e8q", New(52, 60, PromoQueen), 60 | 52<<6 | 4<<12},
		{"a1h8", New(0, 63, PromoNone), 63},
		{"b7b8n", New(49, 57, PromoKnight), 57 | 49<<6 | 1<<12},
		{"e1h1", New(SqE1, SqH1, PromoNone), SqH1 | SqE1<<6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.move)
			assert.Equal(t, tt.field, got)
			assert.Zero(t, got&0x8000, "reserved bit must stay clear")
		})
	}
}

func TestMove_RoundTripAll(t *testing.T) {
	promos := []Promotion{PromoNone, PromoKnight, PromoBishop, PromoRook, PromoQueen}
	for from := 0; from < 64; from++ {
		for to := 0; to < 64; to++ {
			for _, p := range promos {
				m := New(from, to, p)
				if got := Decode(Encode(m)); got != m {
					t.Fatalf("round trip failed: %v -> %#04x -> %v", m, Encode(m), got)
				}
			}
		}
	}
}

func TestEncode_PanicsOnContractViolation(t *testing.T) {
	assert.Panics(t, func() { Encode(Move{From: 64, To: 0}) })
	assert.Panics(t, func() { Encode(Move{From: 0, To: 70}) })
	assert.Panics(t, func() { Encode(Move{From: 12, To: 28, Promo: 5}) })
	assert.Panics(t, func() { New(-1, 4, PromoNone) })
	assert.Panics(t, func() { New(1, 4, Promotion(7)) })
}

func TestDecodeChecked(t *testing.T) {
	tests := []struct {
		name    string
		field   uint16
		want    Move
		wantErr bool
	}{
		{"e2e4", 28 | 12<<6, New(12, 28, PromoNone), false},
		{"a7a8r", 56 | 48<<6 | 3<<12, New(48, 56, PromoRook), false},
		{"reserved bit", 0x8000 | 28, Move{}, true},
		{"promo 5", 5 << 12, Move{}, true},
		{"promo 7", 7 << 12, Move{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeChecked(tt.field)
			if tt.wantErr {
				require.Error(t, err)
				assert.Panics(t, func() { Decode(tt.field) })
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMove_UCI(t *testing.T) {
	tests := []struct {
		name string
		move Move
		want string
	}{
		{"e2e4", New(12, 28, PromoNone), "e2e4"},
		{"e7e8q", New(52, 60, PromoQueen), "e7e8q"},
		{"a7a8r", New(48, 56, PromoRook), "a7a8r"},
		{"b7b8n", New(49, 57, PromoKnight), "b7b8n"},
		{"c7c8b", New(50, 58, PromoBishop), "c7c8b"},
		{"e8a8", New(SqE8, SqA8, PromoNone), "e8a8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.move.UCI())
		})
	}
}

func TestParseUCI(t *testing.T) {
	tests := []struct {
		name    string
		uci     string
		want    Move
		wantErr bool
	}{
		{"e2e4", "e2e4", New(12, 28, PromoNone), false},
		{"e7e8q", "e7e8q", New(52, 60, PromoQueen), false},
		{"a7a8r", "a7a8r", New(48, 56, PromoRook), false},
		{"b7b8n", "b7b8n", New(49, 57, PromoKnight), false},
		{"c7c8b", "c7c8b", New(50, 58, PromoBishop), false},
		{"invalid", "xyz", Move{}, true},
		{"too short", "e2e", Move{}, true},
		{"bad promo", "e7e8k", Move{}, true},
		{"off board", "i2i4", Move{}, true},
		{"too long", "e7e8qq", Move{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUCI(tt.uci)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMove_UCI_RoundTrip(t *testing.T) {
	for _, uci := range []string{"e2e4", "e7e8q", "a1h8", "b7b8n", "c7c8b", "d7d8r", "e1h1"} {
		t.Run(uci, func(t *testing.T) {
			assert.Equal(t, uci, MustParseUCI(uci).UCI())
		})
	}
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		name  string
		uci   string
		piece Piece
		mover Color
		want  string
	}{
		{"white short", "e1g1", King, White, "e1h1"},
		{"white long", "e1c1", King, White, "e1a1"},
		{"black short", "e8g8", King, Black, "e8h8"},
		{"black long", "e8c8", King, Black, "e8a8"},
		{"already canonical", "e1h1", King, White, "e1h1"},
		{"rook on e1", "e1g1", Rook, White, "e1g1"},
		{"wrong color", "e8g8", King, White, "e8g8"},
		{"king step", "e1f1", King, White, "e1f1"},
		{"king off home", "f1g1", King, White, "f1g1"},
		{"pawn", "e2e4", Pawn, White, "e2e4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Canonical(MustParseUCI(tt.uci), tt.piece, tt.mover)
			assert.Equal(t, tt.want, got.UCI())
		})
	}
}

func TestCanonical_CollapsesNotations(t *testing.T) {
	a := Canonical(MustParseUCI("e1g1"), King, White)
	b := Canonical(MustParseUCI("e1h1"), King, White)
	assert.Equal(t, a, b)
	assert.Equal(t, Encode(a), Encode(b))
}
