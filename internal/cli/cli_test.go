package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/openbook/internal/book"
	"github.com/freeeve/openbook/internal/compile"
	"github.com/freeeve/openbook/internal/move"
	"github.com/freeeve/openbook/internal/pgnsource"
)

const games = `[Event "a"]
[White "w"]
[Black "b"]
[Result "1-0"]
[WhiteElo "2400"]
[BlackElo "2300"]

1. e4 e5 2. Nf3 Nc6 1-0

[Event "b"]
[White "w"]
[Black "b"]
[Result "1/2-1/2"]
[WhiteElo "1500"]
[BlackElo "1500"]

1. d4 d5 1/2-1/2

`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--log-level", "warn"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func startKey(t *testing.T) book.PositionKey {
	t.Helper()
	k, err := pgnsource.DefaultZobrist.FingerprintFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	require.NoError(t, err)
	return k
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"build", "merge", "dump", "watch", "config"} {
		assert.Contains(t, names, want)
	}
}

func TestBuildAndDump(t *testing.T) {
	dir := t.TempDir()
	pgnPath := filepath.Join(dir, "games.pgn")
	require.NoError(t, os.WriteFile(pgnPath, []byte(games), 0644))
	out := filepath.Join(dir, "book.bin")
	summary := filepath.Join(dir, "summary.json")

	stdout, err := run(t, "build", pgnPath, "-o", out, "--summary", summary, "--chunk-size", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, out)

	f, err := book.OpenFile(out)
	require.NoError(t, err)
	recs := f.Lookup(startKey(t))
	require.Len(t, recs, 2)
	// d4 drew (1), e4 won (2): 3333 and 6666 of 10000.
	assert.Equal(t, move.Encode(move.MustParseUCI("d2d4")), recs[0].Move)
	assert.Equal(t, uint16(3333), recs[0].Weight)
	assert.Equal(t, uint16(6666), recs[1].Weight)

	sum, err := compile.LoadSummary(summary)
	require.NoError(t, err)
	assert.Equal(t, "build", sum.Command)
	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, int64(2), sum.GamesUsed)

	stdout, err = run(t, "dump", out, "--key", startKey(t).String())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], startKey(t).String()+" d2d4"), lines[0])
	assert.Contains(t, lines[1], "e2e4")
	assert.Contains(t, lines[1], "6666")

	stdout, err = run(t, "dump", out, "-n", "1")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(stdout), "\n"), 1)
}

func TestDump_ECO(t *testing.T) {
	dir := t.TempDir()
	pgnPath := filepath.Join(dir, "games.pgn")
	require.NoError(t, os.WriteFile(pgnPath, []byte(games), 0644))
	out := filepath.Join(dir, "book.bin")
	_, err := run(t, "build", pgnPath, "-o", out)
	require.NoError(t, err)

	ecoPath := filepath.Join(dir, "eco.tsv")
	require.NoError(t, os.WriteFile(ecoPath, []byte("eco\tname\tpgn\nA40\tQueen's Pawn Game\t1. d4\n"), 0644))

	// Only the drawn d4 game leaves a non-zero reply in the book.
	afterD4, err := pgnsource.DefaultZobrist.FingerprintFEN("rnbqkbnr/pppppppp/8/8/3P4/8/PPP1PPPP/RNBQKBNR b KQkq - 0 1")
	require.NoError(t, err)
	stdout, err := run(t, "dump", out, "--key", afterD4.String(), "--eco", ecoPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "d7d5")
	assert.Contains(t, stdout, "A40 Queen's Pawn Game")

	stdout, err = run(t, "dump", out, "--key", startKey(t).String(), "--eco", ecoPath)
	require.NoError(t, err)
	assert.NotContains(t, stdout, "A40")

	_, err = run(t, "dump", out, "--eco", filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestBuild_MinEloFromEnv(t *testing.T) {
	t.Setenv("BOOKC_MIN_ELO", "2000")
	dir := t.TempDir()
	pgnPath := filepath.Join(dir, "games.pgn")
	require.NoError(t, os.WriteFile(pgnPath, []byte(games), 0644))
	out := filepath.Join(dir, "book.bin")

	_, err := run(t, "build", pgnPath, "-o", out)
	require.NoError(t, err)

	f, err := book.OpenFile(out)
	require.NoError(t, err)
	recs := f.Lookup(startKey(t))
	require.Len(t, recs, 1)
	assert.Equal(t, "e2e4", recs[0].DecodedMove().UCI())

	// An explicit flag beats the environment.
	_, err = run(t, "build", pgnPath, "-o", out, "--min-elo", "0")
	require.NoError(t, err)
	f, err = book.OpenFile(out)
	require.NoError(t, err)
	assert.Len(t, f.Lookup(startKey(t)), 2)
}

func TestBuild_Errors(t *testing.T) {
	_, err := run(t, "build", "x.pgn")
	assert.ErrorContains(t, err, "--output")

	_, err = run(t, "build", "x.pgn", "-o", filepath.Join(t.TempDir(), "o.bin"), "--floor", "round")
	assert.Error(t, err)

	_, err = run(t, "build")
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	parts := filepath.Join(dir, "parts")
	e4 := move.MustParseUCI("e2e4")
	d4 := move.MustParseUCI("d2d4")

	a := book.New()
	a.Add(7, e4, 30)
	_, err := a.WriteFile(filepath.Join(parts, "a.bin"))
	require.NoError(t, err)

	b := book.New()
	b.Add(7, e4, 30)
	b.Add(7, d4, 20)
	_, err = b.WriteFile(filepath.Join(parts, "b.bin.zst"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(parts, "c.bin"), []byte("garbage"), 0644))

	raw := filepath.Join(dir, "raw.bin")
	_, err = run(t, "merge", parts, "-o", raw)
	require.NoError(t, err)
	recs, err := book.ReadFile(raw)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, uint16(20), recs[0].Weight)
	assert.Equal(t, uint16(60), recs[1].Weight)

	norm := filepath.Join(dir, "norm.bin")
	summary := filepath.Join(dir, "merge.json")
	_, err = run(t, "merge", parts, "-o", norm, "--normalize", "--target", "100", "--summary", summary)
	require.NoError(t, err)
	recs, err = book.ReadFile(norm)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, uint16(25), recs[0].Weight)
	assert.Equal(t, uint16(75), recs[1].Weight)

	sum, err := compile.LoadSummary(summary)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.SourcesMerged)
	assert.Len(t, sum.SourcesSkipped, 1)
	assert.True(t, sum.Normalized)
}

func TestMerge_NothingToMerge(t *testing.T) {
	_, err := run(t, "merge", t.TempDir(), "-o", filepath.Join(t.TempDir(), "o.bin"))
	assert.Error(t, err)
}

func TestConfigCmd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookc.toml")
	require.NoError(t, os.WriteFile(path, []byte("max_plies = 24\n"), 0644))

	stdout, err := run(t, "--config", path, "config")
	require.NoError(t, err)
	assert.Contains(t, stdout, "max_plies = 24")
	assert.Contains(t, stdout, "target = 10000")
}

func TestWatch_RequiresDir(t *testing.T) {
	_, err := run(t, "watch")
	assert.ErrorContains(t, err, "watch dir")
}

func TestBadLogLevel(t *testing.T) {
	_, err := run(t, "config", "--log-level", "loud")
	assert.Error(t, err)
}
