package book

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/openbook/internal/move"
)

func randomBook(rng *rand.Rand, n int) *Book {
	b := New()
	for i := 0; i < n; i++ {
		key := PositionKey(rng.Intn(30))
		m := move.New(rng.Intn(64), rng.Intn(64), move.Promotion(rng.Intn(5)))
		b.Add(key, m, uint64(rng.Intn(100)))
	}
	return b
}

func TestMerge_AssociativeAndCommutative(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 50; i++ {
		a, b, c := randomBook(rng, 80), randomBook(rng, 80), randomBook(rng, 80)

		left := Merge(a, Merge(b, c))
		right := Merge(Merge(a, b), c)
		assert.Equal(t, snapshot(left), snapshot(right))

		assert.Equal(t, snapshot(Merge(a, b)), snapshot(Merge(b, a)))
		assert.Equal(t, snapshot(Merge(c, a, b)), snapshot(left))
	}
}

func TestMerge_InputsUntouchedAndStateReset(t *testing.T) {
	e4 := move.MustParseUCI("e2e4")
	a := New()
	a.Add(1, e4, 3)
	_, err := a.Normalize(10000, ClampToOne)
	require.NoError(t, err)

	b := New()
	b.Add(1, e4, 5)

	m := Merge(a, b)
	assert.Equal(t, StateAccumulating, m.State())

	w, _ := m.Weight(1, e4)
	assert.Equal(t, uint64(10005), w)
	w, _ = a.Weight(1, e4)
	assert.Equal(t, uint64(10000), w)
	assert.Equal(t, StateNormalized, a.State())
	assert.Equal(t, StateEmpty, Merge().State())
}

func TestKWayMergeIterator_SumsDuplicates(t *testing.T) {
	e4 := move.Encode(move.MustParseUCI("e2e4"))
	d4 := move.Encode(move.MustParseUCI("d2d4"))

	s1 := []Record{{Key: 1, Move: e4, Weight: 10}, {Key: 2, Move: d4, Weight: 1}}
	s2 := []Record{{Key: 1, Move: d4, Weight: 4}, {Key: 1, Move: e4, Weight: 65535}}
	sortRecords(s2)
	s3 := []Record{{Key: 1, Move: e4, Weight: 5}}

	it := NewKWayMergeIterator([]RecordIterator{
		NewSliceIterator(s1), NewSliceIterator(s2), NewSliceIterator(s3),
	})

	type row struct {
		key    PositionKey
		field  uint16
		weight uint64
	}
	var got []row
	for {
		k, f, w, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, row{k, f, w})
	}

	assert.Equal(t, []row{
		{1, d4, 4},
		{1, e4, 65535 + 10 + 5},
		{2, d4, 1},
	}, got)
}

func TestMergeSources_SkipsCorruptSources(t *testing.T) {
	dir := t.TempDir()
	e4 := move.MustParseUCI("e2e4")
	d4 := move.MustParseUCI("d2d4")

	a := New()
	a.Add(1, e4, 40000)
	a.Add(2, d4, 7)
	pathA := filepath.Join(dir, "a.bin")
	_, err := a.WriteFile(pathA)
	require.NoError(t, err)

	b := New()
	b.Add(1, e4, 40000)
	pathB := filepath.Join(dir, "b.bin.zst")
	_, err = b.WriteFile(pathB)
	require.NoError(t, err)

	truncated := filepath.Join(dir, "truncated.bin")
	require.NoError(t, os.WriteFile(truncated, make([]byte, 17), 0644))

	badMove := filepath.Join(dir, "badmove.bin")
	raw := make([]byte, RecordSize)
	EncodeRecord(raw, Record{Key: 1, Move: 0x7000 | 28, Weight: 99})
	require.NoError(t, os.WriteFile(badMove, raw, 0644))

	missing := filepath.Join(dir, "missing.bin")

	merged, report, err := MergeSources(context.Background(),
		[]string{pathA, truncated, pathB, badMove, missing}, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Skipped())
	require.Error(t, report.Warnings)
	var merr *multierror.Error
	require.ErrorAs(t, report.Warnings, &merr)
	assert.Len(t, merr.Errors, 3)

	for _, s := range report.Sources {
		switch s.Path {
		case truncated, badMove:
			assert.ErrorIs(t, s.Err, ErrCorrupt, s.Path)
		case missing:
			assert.ErrorIs(t, s.Err, os.ErrNotExist)
		default:
			assert.NoError(t, s.Err, s.Path)
		}
	}

	// 40000 + 40000 survives the merge unclamped.
	w, _ := merged.Weight(1, e4)
	assert.Equal(t, uint64(80000), w)
	w, _ = merged.Weight(2, d4)
	assert.Equal(t, uint64(7), w)
	assert.Equal(t, StateAccumulating, merged.State())
}

func TestMergeSources_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := MergeSources(ctx, []string{"x.bin"}, zerolog.Nop())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpandSources(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.bin", "a.bin", "c.bin.zst", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.bin"), 0755))

	got, err := ExpandSources([]string{dir, "explicit.bin"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.bin"),
		filepath.Join(dir, "b.bin"),
		filepath.Join(dir, "c.bin.zst"),
		"explicit.bin",
	}, got)
}

func sortRecords(records []Record) {
	for i := 1; i < len(records); i++ {
		for j := i; j > 0 && recordLess(records[j], records[j-1]); j-- {
			records[j], records[j-1] = records[j-1], records[j]
		}
	}
}
