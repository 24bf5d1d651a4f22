// Package offset implements the sparse-row offset codec: a strictly
// increasing sequence of row indices stored as a gap (delta) stream at byte,
// char (16-bit) or bitmap width.
//
// Gap streams reserve the element value zero as a carry marker: a gap larger
// than the element's representable range is emitted as one or more carry
// elements worth the element maximum, followed by a final element holding the
// remainder. Offsets are strictly increasing, so a real gap of zero cannot
// occur and the marker is unambiguous.
//
// Iteration is cursor-based. Iterators are NOT safe for concurrent use; every
// goroutine scanning a row range must obtain its own cursor via Iterator or
// Clone. An iterator positioned by one scan may be handed to a later scan of
// a disjoint, higher row range of the same group to avoid re-seeking from the
// start.
package offset

import (
	"fmt"
	"math/bits"

	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
)

// Offsets is an immutable encoded sequence of strictly increasing row
// indices.
type Offsets interface {
	// Type returns the element-width tag of the encoding.
	Type() format.OffsetType
	// First returns the first (smallest) row index.
	First() int
	// Last returns the last (largest) row index.
	Last() int
	// Count returns the number of encoded row indices.
	Count() int
	// Iterator returns a new cursor positioned on the first offset.
	Iterator() Iterator
	// MemSize returns the estimated in-memory size in bytes.
	MemSize() int64
}

// Iterator is a stateful forward-only cursor over an offset sequence.
//
// A fresh iterator is positioned on the first offset: Value returns it and
// DataIndex is zero. Next advances to the following offset and returns it;
// advancing past the last offset is undefined, so callers bound iteration by
// Count or by comparing Value against Last.
type Iterator interface {
	// Next advances the cursor and returns the new absolute row index.
	Next() int
	// Value returns the absolute row index at the cursor without advancing.
	Value() int
	// DataIndex returns the position of the cursor within the logical
	// sequence, usable as an index into a parallel mapping array.
	DataIndex() int
	// SkipTo advances the cursor until Value() >= idx or the sequence is
	// exhausted, and returns the final Value(). Intermediate offsets are not
	// materialized for the caller.
	SkipTo(idx int) int
	// Clone returns an independent copy of the cursor for forked iteration.
	Clone() Iterator
}

const (
	maxByteV = 255   // largest byte gap element; 0 is the carry marker
	maxCharV = 65535 // largest char gap element; 0 is the carry marker
)

// validate checks that indexes is non-empty, non-negative and strictly
// increasing.
func validate(indexes []int) error {
	if len(indexes) == 0 {
		return errs.ErrEmptyOffsets
	}
	if indexes[0] < 0 {
		return fmt.Errorf("offset: negative row index %d: %w", indexes[0], errs.ErrNotIncreasing)
	}
	for i := 1; i < len(indexes); i++ {
		if indexes[i] <= indexes[i-1] {
			return fmt.Errorf("offset: index %d after %d at position %d: %w",
				indexes[i], indexes[i-1], i, errs.ErrNotIncreasing)
		}
	}

	return nil
}

// gapElements returns the number of gap-stream elements needed to encode
// indexes at the given element maximum, excluding the implicit first offset.
func gapElements(indexes []int, maxV int) int {
	n := 0
	for i := 1; i < len(indexes); i++ {
		gap := indexes[i] - indexes[i-1]
		n += 1 + (gap-1)/maxV
	}

	return n
}

// Encode encodes the strictly increasing row indexes at the cheapest element
// width: the byte, char and bitmap encodings are sized against the actual
// sequence and the smallest wins, with ties going to the narrower stream.
func Encode(indexes []int) (Offsets, error) {
	if err := validate(indexes); err != nil {
		return nil, err
	}

	byteSize := gapElements(indexes, maxByteV)
	charSize := gapElements(indexes, maxCharV) * 2
	bitmapSize := (indexes[len(indexes)-1]/64 + 1) * 8

	switch {
	case byteSize <= charSize && byteSize <= bitmapSize:
		return NewByte(indexes)
	case charSize <= bitmapSize:
		return NewChar(indexes)
	default:
		return NewBitmap(indexes)
	}
}

// Expand decodes all offsets back into a row-index slice, mainly for tests
// and diagnostics.
func Expand(off Offsets) []int {
	ret := make([]int, off.Count())
	it := off.Iterator()
	ret[0] = it.Value()
	for i := 1; i < len(ret); i++ {
		ret[i] = it.Next()
	}

	return ret
}

// countNonZero returns the number of non-zero (non-carry) elements plus one
// for the implicit first offset; this recovers the logical offset count from
// a raw gap stream.
func countNonZeroBytes(data []uint8) int {
	n := 1
	for _, v := range data {
		if v != 0 {
			n++
		}
	}

	return n
}

func countNonZeroChars(data []uint16) int {
	n := 1
	for _, v := range data {
		if v != 0 {
			n++
		}
	}

	return n
}

func popcount(words []uint64) int {
	n := 0
	for _, w := range words {
		n += bits.OnesCount64(w)
	}

	return n
}
