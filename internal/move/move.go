package move

import "fmt"

// Move field encoding (uint16), shared by the codec, the record sort and
// every book file:
//   bits 0-5:   to square (0-63)
//   bits 6-11:  from square (0-63)
//   bits 12-14: promotion piece (0=none, 1=N, 2=B, 3=R, 4=Q)
//   bit 15:     reserved, always 0
//
// Squares are numbered A1=0, B1=1, ..., H8=63.

const (
	moveToMask     = 0x003F // bits 0-5
	moveFromMask   = 0x0FC0 // bits 6-11
	movePromoMask  = 0x7000 // bits 12-14
	moveFromShift  = 6
	movePromoShift = 12
	moveReserved   = 0x8000
)

// Promotion is the piece a pawn promotes to.
type Promotion uint8

// Promotion piece codes as stored in bits 12-14.
const (
	PromoNone   Promotion = 0
	PromoKnight Promotion = 1
	PromoBishop Promotion = 2
	PromoRook   Promotion = 3
	PromoQueen  Promotion = 4
)

// Valid reports whether p is one of the five defined promotion codes.
func (p Promotion) Valid() bool {
	return p <= PromoQueen
}

// Move is a canonical (castling-normalized) move. It is comparable and is
// used directly as a map key.
type Move struct {
	From  uint8
	To    uint8
	Promo Promotion
}

// New builds a Move from square indices and a promotion code.
// It panics if a square is outside 0-63 or the promotion is undefined.
func New(from, to int, promo Promotion) Move {
	if from < 0 || from > 63 || to < 0 || to > 63 {
		panic(fmt.Sprintf("move: square out of range: from=%d to=%d", from, to))
	}
	if !promo.Valid() {
		panic(fmt.Sprintf("move: invalid promotion code %d", promo))
	}
	return Move{From: uint8(from), To: uint8(to), Promo: promo}
}

// Encode packs m into the 16-bit book field.
// An out-of-range square or promotion means the rules collaborator broke its
// contract; Encode panics rather than write a corrupt record.
func Encode(m Move) uint16 {
	if m.From > 63 || m.To > 63 {
		panic(fmt.Sprintf("move: square out of range: from=%d to=%d", m.From, m.To))
	}
	if !m.Promo.Valid() {
		panic(fmt.Sprintf("move: invalid promotion code %d", m.Promo))
	}
	return uint16(m.To) | uint16(m.From)<<moveFromShift | uint16(m.Promo)<<movePromoShift
}

// Decode unpacks a 16-bit book field. It panics on a field Encode could
// never have produced; use DecodeChecked for bytes read from disk.
func Decode(field uint16) Move {
	m, err := DecodeChecked(field)
	if err != nil {
		panic(err)
	}
	return m
}

// DecodeChecked unpacks a 16-bit book field, returning an error if the
// reserved bit is set or the promotion code is undefined.
func DecodeChecked(field uint16) (Move, error) {
	if field&moveReserved != 0 {
		return Move{}, fmt.Errorf("move field %#04x: reserved bit set", field)
	}
	promo := Promotion((field & movePromoMask) >> movePromoShift)
	if !promo.Valid() {
		return Move{}, fmt.Errorf("move field %#04x: invalid promotion code %d", field, promo)
	}
	return Move{
		From:  uint8((field & moveFromMask) >> moveFromShift),
		To:    uint8(field & moveToMask),
		Promo: promo,
	}, nil
}

// UCI converts m to UCI notation (e.g., "e2e4", "e7e8q").
// Castling is shown in the canonical king-takes-rook form ("e1h1").
func (m Move) UCI() string {
	uci := []byte{
		'a' + m.From%8, '1' + m.From/8,
		'a' + m.To%8, '1' + m.To/8,
	}
	if m.Promo != PromoNone && m.Promo.Valid() {
		uci = append(uci, "nbrq"[m.Promo-1])
	}
	return string(uci)
}

// String implements fmt.Stringer.
func (m Move) String() string {
	return m.UCI()
}

// ParseUCI parses a UCI move string into a Move.
// Examples: "e2e4", "e7e8q", "e1h1"
func ParseUCI(uci string) (Move, error) {
	if len(uci) < 4 || len(uci) > 5 {
		return Move{}, fmt.Errorf("UCI move has bad length: %q", uci)
	}

	fromFile := int(uci[0]) - 'a'
	fromRank := int(uci[1]) - '1'
	toFile := int(uci[2]) - 'a'
	toRank := int(uci[3]) - '1'

	if fromFile < 0 || fromFile > 7 || fromRank < 0 || fromRank > 7 {
		return Move{}, fmt.Errorf("invalid from square in UCI: %s", uci)
	}
	if toFile < 0 || toFile > 7 || toRank < 0 || toRank > 7 {
		return Move{}, fmt.Errorf("invalid to square in UCI: %s", uci)
	}

	promo := PromoNone
	if len(uci) == 5 {
		switch uci[4] {
		case 'q', 'Q':
			promo = PromoQueen
		case 'r', 'R':
			promo = PromoRook
		case 'b', 'B':
			promo = PromoBishop
		case 'n', 'N':
			promo = PromoKnight
		default:
			return Move{}, fmt.Errorf("invalid promotion piece: %c", uci[4])
		}
	}

	return New(fromRank*8+fromFile, toRank*8+toFile, promo), nil
}

// MustParseUCI is ParseUCI for literals; it panics on error.
func MustParseUCI(uci string) Move {
	m, err := ParseUCI(uci)
	if err != nil {
		panic(err)
	}
	return m
}
