package book

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/freeeve/openbook/internal/move"
)

// Record layout constants
const (
	KeySize    = 8
	RecordSize = 16
)

// MaxWeight is the largest weight a record can hold. Larger accumulated
// weights saturate to it at write time.
const MaxWeight uint16 = 65535

// PositionKey is the 64-bit fingerprint of a board position.
type PositionKey uint64

// String formats the key as 16 lowercase hex digits.
func (k PositionKey) String() string {
	return fmt.Sprintf("%016x", uint64(k))
}

// ParsePositionKey parses a hex key, with or without a 0x prefix.
func ParsePositionKey(s string) (PositionKey, error) {
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	if len(s) == 0 || len(s) > 16 {
		return 0, fmt.Errorf("position key %q: want 1-16 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("position key %q: %w", s, err)
	}
	return PositionKey(v), nil
}

// Record is one serialized book row.
type Record struct {
	Key    PositionKey
	Move   uint16 // encoded with move.Encode
	Weight uint16
	Learn  uint32
}

// EncodeRecord encodes r into buf, which must hold at least RecordSize bytes.
func EncodeRecord(buf []byte, r Record) {
	binary.BigEndian.PutUint64(buf[0:8], uint64(r.Key))
	binary.BigEndian.PutUint16(buf[8:10], r.Move)
	binary.BigEndian.PutUint16(buf[10:12], r.Weight)
	binary.BigEndian.PutUint32(buf[12:16], r.Learn)
}

// DecodeRecord decodes RecordSize bytes into a Record and validates the move field.
func DecodeRecord(data []byte) (Record, error) {
	if len(data) < RecordSize {
		return Record{}, fmt.Errorf("record too short: got %d bytes, need %d", len(data), RecordSize)
	}
	r := Record{
		Key:    PositionKey(binary.BigEndian.Uint64(data[0:8])),
		Move:   binary.BigEndian.Uint16(data[8:10]),
		Weight: binary.BigEndian.Uint16(data[10:12]),
		Learn:  binary.BigEndian.Uint32(data[12:16]),
	}
	if _, err := move.DecodeChecked(r.Move); err != nil {
		return Record{}, err
	}
	return r, nil
}

// DecodedMove returns the record's move. The move field was validated when
// the record was decoded or built.
func (r Record) DecodedMove() move.Move {
	return move.Decode(r.Move)
}

// recordLess orders records by (key, move). Comparing the integers is the
// same as comparing their big-endian bytes.
func recordLess(a, b Record) bool {
	if a.Key != b.Key {
		return a.Key < b.Key
	}
	return a.Move < b.Move
}

// ClampWeight saturates w to the record weight range.
func ClampWeight(w uint64) uint16 {
	if w > uint64(MaxWeight) {
		return MaxWeight
	}
	return uint16(w)
}
