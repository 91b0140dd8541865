package book

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ErrCorrupt marks a book stream that is not a valid run of records.
var ErrCorrupt = errors.New("corrupt book")

// ReadRecords reads a whole record stream and returns its records sorted by
// (key, move). Books from other tools are accepted even when their rows are
// not in move order within a key; duplicate rows are kept as separate
// records and summed by whoever merges them.
func ReadRecords(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data)%RecordSize != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of %d", ErrCorrupt, len(data), RecordSize)
	}

	records := make([]Record, len(data)/RecordSize)
	sorted := true
	for i := range records {
		rec, err := DecodeRecord(data[i*RecordSize:])
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrCorrupt, i, err)
		}
		records[i] = rec
		if i > 0 && recordLess(rec, records[i-1]) {
			sorted = false
		}
	}

	if !sorted {
		sort.SliceStable(records, func(i, j int) bool {
			return recordLess(records[i], records[j])
		})
	}
	return records, nil
}

// ReadFile reads a book file. Paths ending in ".zst" are decompressed.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !isCompressed(path) {
		return ReadRecords(f)
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open zstd stream: %w", err)
	}
	defer dec.Close()

	records, err := ReadRecords(dec)
	if err != nil && !errors.Is(err, ErrCorrupt) {
		return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
	}
	return records, err
}

// File is a loaded book that answers lookups by key.
type File struct {
	Path    string
	records []Record
}

// OpenFile loads a book file for lookups.
func OpenFile(path string) (*File, error) {
	records, err := ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read book %s: %w", path, err)
	}
	return &File{Path: path, records: records}, nil
}

// Len returns the number of records.
func (f *File) Len() int {
	return len(f.records)
}

// Records returns all records in (key, move) order. The slice must not be modified.
func (f *File) Records() []Record {
	return f.records
}

// Lookup binary-searches for the records stored under key.
func (f *File) Lookup(key PositionKey) []Record {
	lo := sort.Search(len(f.records), func(i int) bool {
		return f.records[i].Key >= key
	})
	hi := lo
	for hi < len(f.records) && f.records[hi].Key == key {
		hi++
	}
	if lo == hi {
		return nil
	}
	return f.records[lo:hi]
}

func isCompressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".zst")
}
