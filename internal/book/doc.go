// Package book compiles scored games into an opening book and reads and
// writes the book file format.
//
// In-memory model:
//   - Book: PositionKey -> entry, each entry a small set of weighted moves
//     keyed by canonical move. Weights are uint64 accumulators and are only
//     clamped when records are produced for serialization.
//
// File format (polyglot compatible), a flat run of 16-byte big-endian records:
//
//	offset  size  field
//	0       8     position key (uint64)
//	8       2     move field (see package move for the bit layout)
//	10      2     weight (uint16, 1-65535)
//	12      4     learn field, always written as 0
//
// Records are sorted ascending by (key, move) so readers can binary-search
// by key. Files whose name ends in ".zst" hold the same byte stream
// compressed with zstd.
//
// Lifecycle: a Book starts empty, accumulates through AddGame or Merge, is
// optionally normalized once, then written. Merging always yields an
// accumulating book since summed normalized weights are no longer normalized.
package book
