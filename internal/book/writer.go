package book

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// WriteStats contains statistics from writing a book file
type WriteStats struct {
	Records     int
	Positions   int
	Saturated   int   // records whose weight was clamped to MaxWeight
	Bytes       int64 // uncompressed size
	StoredBytes int64 // size on disk
}

// EncodeRecords writes sorted records to w.
func EncodeRecords(w io.Writer, records []Record) error {
	bw := bufio.NewWriterSize(w, 64*1024)
	var buf [RecordSize]byte
	for _, r := range records {
		EncodeRecord(buf[:], r)
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile sorts and serializes the book to path. The records are written
// to a temp file in the same directory, synced, then renamed over path, so
// a failed write never leaves a partial book behind. Paths ending in ".zst"
// are zstd-compressed. A book with no positive weights is written as an
// empty file, which is still a valid book.
func (b *Book) WriteFile(path string) (WriteStats, error) {
	var stats WriteStats

	records := b.Records()
	stats.Records = len(records)
	stats.Bytes = int64(len(records)) * RecordSize
	for i, r := range records {
		if i == 0 || r.Key != records[i-1].Key {
			stats.Positions++
		}
		if r.Weight == MaxWeight {
			if w, _ := b.Weight(r.Key, r.DecodedMove()); w > uint64(MaxWeight) {
				stats.Saturated++
			}
		}
	}

	if err := writeAtomic(path, records); err != nil {
		return stats, err
	}
	if fi, err := os.Stat(path); err == nil {
		stats.StoredBytes = fi.Size()
	}

	b.state = StateSerialized
	return stats, nil
}

func writeAtomic(path string, records []Record) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err = tmp.Chmod(0644); err != nil {
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}

	if isCompressed(path) {
		enc, encErr := zstd.NewWriter(tmp, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if encErr != nil {
			return fmt.Errorf("create zstd encoder: %w", encErr)
		}
		if err = EncodeRecords(enc, records); err != nil {
			enc.Close()
			return fmt.Errorf("write book %s: %w", path, err)
		}
		if err = enc.Close(); err != nil {
			return fmt.Errorf("finish zstd stream %s: %w", path, err)
		}
	} else if err = EncodeRecords(tmp, records); err != nil {
		return fmt.Errorf("write book %s: %w", path, err)
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync book %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close book %s: %w", path, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename book %s: %w", path, err)
	}
	return nil
}
