package move

// Color is the side making a move.
type Color uint8

const (
	White Color = 0
	Black Color = 1
)

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// Piece is the type of the moving piece, as reported by the rules library.
type Piece uint8

const (
	NoPiece Piece = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// Square indices used by castling.
const (
	SqA1 = 0
	SqC1 = 2
	SqE1 = 4
	SqG1 = 6
	SqH1 = 7
	SqA8 = 56
	SqC8 = 58
	SqE8 = 60
	SqG8 = 62
	SqH8 = 63
)

type castleRoute struct {
	king, kingTo, rook uint8
}

var castleRoutes = [2][2]castleRoute{
	White: {{SqE1, SqG1, SqH1}, {SqE1, SqC1, SqA1}},
	Black: {{SqE8, SqG8, SqH8}, {SqE8, SqC8, SqA8}},
}

// Canonical rewrites a castling move given in king-destination form
// (e1g1, e1c1, e8g8, e8c8) to the king-takes-rook form (e1h1, e1a1, e8h8,
// e8a8). Any other move, including king moves that already use the rook
// square, is returned unchanged.
func Canonical(m Move, piece Piece, mover Color) Move {
	if piece != King || mover > Black || m.Promo != PromoNone {
		return m
	}
	for _, r := range castleRoutes[mover] {
		if m.From == r.king && m.To == r.kingTo {
			m.To = r.rook
			return m
		}
	}
	return m
}
