package eco_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/openbook/internal/eco"
	"github.com/freeeve/openbook/internal/pgnsource"
)

const table = "eco\tname\tpgn\n" +
	"B00\tKing's Pawn Game\t1. e4\n" +
	"C50\tItalian Game\t1. e4 e5 2. Nf3 Nc6 3. Bc4\n" +
	"A00\tBroken\t1. e5\n" +
	"short line\n"

func TestReadAndLookup(t *testing.T) {
	db := eco.NewDatabase(nil)
	require.NoError(t, db.Read(strings.NewReader(table)))
	assert.Equal(t, 2, db.Count())

	afterE4, err := pgnsource.DefaultZobrist.FingerprintFEN("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	require.NoError(t, err)
	o := db.Lookup(afterE4)
	require.NotNil(t, o)
	assert.Equal(t, "B00", o.ECO)

	italian, err := pgnsource.DefaultZobrist.FingerprintFEN("r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 3 3")
	require.NoError(t, err)
	o = db.Lookup(italian)
	require.NotNil(t, o)
	assert.Equal(t, "Italian Game", o.Name)

	start, err := pgnsource.DefaultZobrist.FingerprintFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	require.NoError(t, err)
	assert.Nil(t, db.Lookup(start))
}

func TestLoad_DirAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.tsv")
	require.NoError(t, os.WriteFile(path, []byte(table), 0644))

	db := eco.NewDatabase(pgnsource.DefaultZobrist)
	require.NoError(t, db.Load(dir))
	assert.Equal(t, 2, db.Count())

	db = eco.NewDatabase(nil)
	require.NoError(t, db.Load(path))
	assert.Equal(t, 2, db.Count())

	assert.Error(t, eco.NewDatabase(nil).LoadDir(t.TempDir()))
	assert.Error(t, eco.NewDatabase(nil).Load(filepath.Join(dir, "missing")))
}
