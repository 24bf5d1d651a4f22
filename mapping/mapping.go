// Package mapping implements the bit-packed tuple-index codec: for each
// explicit row of a column group, the index of its tuple in the dictionary,
// packed at the minimum bit width that represents the number of distinct
// tuples.
//
// Available widths are 1-bit, nibble (4-bit), byte, char (16-bit) and int
// (32-bit); Create picks the narrowest width that fits. The all-default
// degenerate case (no distinct tuples at all) is not represented here — such
// groups use the Empty scheme and carry no mapping instance.
package mapping

import (
	"fmt"

	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
)

// Mapping is an immutable packed array of dictionary tuple indexes.
type Mapping interface {
	// Type returns the bit-width tag of the packing.
	Type() format.MapType
	// Index returns the tuple index at position i.
	Index(i int) int
	// Size returns the number of packed positions.
	Size() int
	// Unique returns the declared number of distinct tuple indexes.
	Unique() int
	// Counts returns the per-tuple occurrence counts, one entry per distinct
	// tuple index. A fresh slice is allocated per call.
	Counts() []int
	// CountsInto accumulates per-tuple occurrence counts into out, which must
	// have at least Unique() entries.
	CountsInto(out []int)
	// MemSize returns the estimated in-memory size in bytes.
	MemSize() int64
}

// Create packs the tuple indexes in values at the narrowest width that
// represents unique distinct values. Every value must lie in [0, unique).
func Create(values []int, unique int) (Mapping, error) {
	if unique <= 0 {
		return nil, fmt.Errorf("mapping: non-positive unique count %d: %w", unique, errs.ErrIndexOutOfRange)
	}
	for i, v := range values {
		if v < 0 || v >= unique {
			return nil, fmt.Errorf("mapping: value %d at position %d outside [0, %d): %w",
				v, i, unique, errs.ErrIndexOutOfRange)
		}
	}

	switch {
	case unique <= 2:
		return newBit(values, unique), nil
	case unique <= 16:
		return newNibble(values, unique), nil
	case unique <= 256:
		return newByte(values, unique), nil
	case unique <= 65536:
		return newChar(values, unique), nil
	default:
		return newInt(values, unique), nil
	}
}

// DistinctCount returns the number of tuple indexes that actually occur in
// m, or -1 when a packed value falls outside [0, Unique()). It equals Unique
// for a well-formed mapping; group deserialization uses it to reject streams
// whose declared cardinality the packed values do not attain.
func DistinctCount(m Mapping) int {
	seen := make([]bool, m.Unique())
	distinct := 0
	for i := 0; i < m.Size(); i++ {
		v := m.Index(i)
		if v < 0 || v >= len(seen) {
			return -1
		}
		if !seen[v] {
			seen[v] = true
			distinct++
		}
	}

	return distinct
}

func countsOf(m Mapping) []int {
	out := make([]int, m.Unique())
	m.CountsInto(out)

	return out
}
