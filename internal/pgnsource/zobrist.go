package pgnsource

import (
	"github.com/freeeve/openbook/internal/book"
	"github.com/freeeve/openbook/internal/move"
)

// Fingerprinter computes the book key of a position.
type Fingerprinter interface {
	Fingerprint(p *Position) book.PositionKey
}

// DefaultSeed is the seed NewZobrist uses when given zero.
const DefaultSeed uint64 = 0x37b4a4b3f0d1c0d0

// Zobrist hashes positions with the polyglot key layout: 768 piece-square
// keys indexed by 64*kind + square with kinds ordered bp, wp, bn, wn, ...,
// bk, wk; four castling keys (K, Q, k, q); eight en passant file keys, used
// only when the capture is on the board; one key for white to move.
//
// NewPolyglotZobrist fills the table with the published polyglot keys, so
// books match what polyglot readers look up. NewZobrist builds a private
// table instead; books keyed with it only work with readers using the same
// seed.
type Zobrist struct {
	pieces    [12][64]uint64
	castling  [4]uint64
	enPassant [8]uint64
	turn      uint64
}

// DefaultZobrist is the hasher used when none is configured.
var DefaultZobrist = NewPolyglotZobrist()

// NewPolyglotZobrist returns a hasher using the published polyglot table.
func NewPolyglotZobrist() *Zobrist {
	z := &Zobrist{}
	i := 0
	for kind := range z.pieces {
		for sq := range z.pieces[kind] {
			z.pieces[kind][sq] = random64[i]
			i++
		}
	}
	for c := range z.castling {
		z.castling[c] = random64[i]
		i++
	}
	for f := range z.enPassant {
		z.enPassant[f] = random64[i]
		i++
	}
	z.turn = random64[i]
	return z
}

// NewZobrist builds a private key table from a xorshift64* stream. A zero
// seed is replaced by DefaultSeed since xorshift never leaves zero.
func NewZobrist(seed uint64) *Zobrist {
	if seed == 0 {
		seed = DefaultSeed
	}
	s := seed
	next := func() uint64 {
		s ^= s >> 12
		s ^= s << 25
		s ^= s >> 27
		return s * 0x2545F4914F6CDD1D
	}

	z := &Zobrist{}
	for kind := range z.pieces {
		for sq := range z.pieces[kind] {
			z.pieces[kind][sq] = next()
		}
	}
	for i := range z.castling {
		z.castling[i] = next()
	}
	for i := range z.enPassant {
		z.enPassant[i] = next()
	}
	z.turn = next()
	return z
}

// pieceKind maps a colored piece to its polyglot kind index.
func pieceKind(o Occupant) int {
	kind := 2 * int(o.Piece-move.Pawn)
	if o.Color == move.White {
		kind++
	}
	return kind
}

// Fingerprint returns the position's key.
func (z *Zobrist) Fingerprint(p *Position) book.PositionKey {
	var h uint64
	for sq, occ := range p.Board {
		if occ.Piece == move.NoPiece {
			continue
		}
		h ^= z.pieces[pieceKind(occ)][sq]
	}
	for i := range z.castling {
		if p.Castling&(1<<i) != 0 {
			h ^= z.castling[i]
		}
	}
	if p.EPCapturable() {
		h ^= z.enPassant[p.EPFile]
	}
	if p.SideToMove == move.White {
		h ^= z.turn
	}
	return book.PositionKey(h)
}

// FingerprintFEN parses fen and returns its key.
func (z *Zobrist) FingerprintFEN(fen string) (book.PositionKey, error) {
	p, err := ParseFEN(fen)
	if err != nil {
		return 0, err
	}
	return z.Fingerprint(p), nil
}
