// Package eco names book positions with ECO (Encyclopedia of Chess Openings)
// classifications.
package eco

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/freeeve/pgn/v3"

	"github.com/freeeve/openbook/internal/book"
	"github.com/freeeve/openbook/internal/pgnsource"
)

// Opening represents an ECO opening classification.
type Opening struct {
	ECO  string `json:"eco"`
	Name string `json:"name"`
}

// Database holds ECO opening data indexed by book key.
type Database struct {
	byKey map[book.PositionKey]Opening
	fp    pgnsource.Fingerprinter
	count int
}

// NewDatabase creates an empty ECO database keyed with fp. A nil fp means
// pgnsource.DefaultZobrist, matching books built with default settings.
func NewDatabase(fp pgnsource.Fingerprinter) *Database {
	if fp == nil {
		fp = pgnsource.DefaultZobrist
	}
	return &Database{
		byKey: make(map[book.PositionKey]Opening),
		fp:    fp,
	}
}

// moveNumberRegex matches move numbers like "1." or "12..."
var moveNumberRegex = regexp.MustCompile(`\d+\.+\s*`)

// Load reads path, which is either a .tsv file or a directory of them.
func (db *Database) Load(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return db.LoadDir(path)
	}
	return db.LoadFile(path)
}

// LoadDir loads all .tsv files from a directory.
func (db *Database) LoadDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.tsv"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .tsv files found in %s", dir)
	}

	for _, file := range files {
		if err := db.LoadFile(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// LoadFile loads a single TSV file.
func (db *Database) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return db.Read(f)
}

// Read loads "eco<TAB>name<TAB>moves" lines. A header line and lines whose
// moves do not replay are skipped.
func (db *Database) Read(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Skip header
		if lineNum == 1 && strings.HasPrefix(line, "eco\t") {
			continue
		}

		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}

		key, err := db.keyAfter(parts[2])
		if err != nil {
			continue
		}
		db.byKey[key] = Opening{ECO: parts[0], Name: parts[1]}
		db.count++
	}

	return scanner.Err()
}

// keyAfter replays moves like "1. e4 e5 2. Nf3 Nc6" and fingerprints the
// resulting position.
func (db *Database) keyAfter(pgnMoves string) (book.PositionKey, error) {
	pos := pgn.NewStartingPosition()

	// Remove move numbers: "1. e4 e5 2. Nf3" -> "e4 e5 Nf3"
	cleaned := moveNumberRegex.ReplaceAllString(pgnMoves, "")
	for _, san := range strings.Fields(cleaned) {
		// Skip annotations
		if san[0] == '$' || san[0] == '{' {
			continue
		}
		san = strings.TrimSuffix(san, "+")
		san = strings.TrimSuffix(san, "#")

		mv, err := pgn.ParseSAN(pos, san)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", san, err)
		}
		if err := pgn.ApplyMove(pos, mv); err != nil {
			return 0, fmt.Errorf("apply %q: %w", san, err)
		}
	}

	p, err := pgnsource.ParseFEN(pos.ToFEN())
	if err != nil {
		return 0, err
	}
	return db.fp.Fingerprint(p), nil
}

// Lookup returns the ECO opening for a book key, or nil if not found.
func (db *Database) Lookup(key book.PositionKey) *Opening {
	if o, ok := db.byKey[key]; ok {
		return &o
	}
	return nil
}

// Count returns the number of openings loaded.
func (db *Database) Count() int {
	return db.count
}
