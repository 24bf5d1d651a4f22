// Package colgroup implements the column-group encoding variants and their
// shared algebra contract.
//
// A column group owns an ordered set of matrix columns compressed under one
// scheme: Empty, Const, Uncompressed, DDC, the SDC family, RLE or OLE. Groups
// are immutable after construction; every transform (scalar, unary, binary
// row op, replace, one-hot expansion) allocates a new group that shares the
// old offset and mapping structures but carries a freshly computed dictionary
// and default tuple. Construction eagerly verifies the cross-codec
// cardinality invariants so that corrupt state is rejected before any algebra
// runs on it.
package colgroup

import (
	"fmt"
	"math"
	"sync"

	"github.com/arloliu/colpack/dict"
	"github.com/arloliu/colpack/endian"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/internal/pool"
	"github.com/arloliu/colpack/mapping"
	"github.com/arloliu/colpack/offset"
	"github.com/arloliu/colpack/ops"
)

// ColGroup is the shared contract of every encoding variant.
//
// Row-range methods operate on rows [rl, ru) and accumulate into out, which
// is indexed by absolute row. Column methods accumulate into out indexed by
// the global column positions of the group. GetCell takes the column's local
// offset within Columns, not its global position.
type ColGroup interface {
	// Type returns the scheme tag of the variant.
	Type() format.CompressionType
	// Columns returns the ordered global column indexes the group covers.
	// Callers must not modify the returned slice.
	Columns() []int
	// NumRows returns the number of matrix rows the group spans.
	NumRows() int
	// NumCols returns the number of columns in the group.
	NumCols() int

	// GetCell returns the value at (row, local column offset).
	GetCell(row, col int) float64
	// RowSums adds each row's sum across the group's columns into out.
	RowSums(out []float64, rl, ru int)
	// RowAggregate folds each row's values across the group's columns with fn
	// and combines the result into out, one fold per row.
	RowAggregate(out []float64, fn ops.Builtin, rl, ru int)
	// RowProducts multiplies each row's product across the group's columns
	// into out. Returns ErrNotSupported for schemes without a row-product
	// kernel.
	RowProducts(out []float64, rl, ru int) error
	// ColSums adds per-column sums into out.
	ColSums(out []float64)
	// ColSumsSq adds per-column sums of squares into out.
	ColSumsSq(out []float64)
	// ColProducts multiplies per-column products into out.
	ColProducts(out []float64)
	// Sum returns the sum of all cells in the group.
	Sum() float64
	// SumSq returns the sum of squares of all cells in the group.
	SumSq() float64
	// NonZeros returns the number of non-zero cells in the group.
	NonZeros() int64
	// ContainsValue reports whether any cell of the group equals pattern.
	ContainsValue(pattern float64) bool

	// ApplyScalar returns a new group with op applied to every cell.
	ApplyScalar(op ops.ScalarOp) (ColGroup, error)
	// ApplyUnary returns a new group with fn applied to every cell.
	ApplyUnary(fn ops.UnaryFn) (ColGroup, error)
	// BinOpLeft returns a new group computing fn(v[col], cell) with v indexed
	// by global column.
	BinOpLeft(fn ops.BinaryFn, v []float64) (ColGroup, error)
	// BinOpRight returns a new group computing fn(cell, v[col]) with v
	// indexed by global column.
	BinOpRight(fn ops.BinaryFn, v []float64) (ColGroup, error)
	// Replace returns a new group with every cell equal to pattern replaced
	// by replacement, including the implicit zeros of zero-default schemes.
	// Returns ErrNotSupported for schemes that cannot represent a non-zero
	// value on their uncovered rows.
	Replace(pattern, replacement float64) (ColGroup, error)
	// RexpandCols reinterprets a single-column group's values as one-hot
	// class indexes and expands into max output columns.
	RexpandCols(max int, ignore, cast bool) (ColGroup, error)
	// ExtractCommon factors the group's default tuple (if any) into acc,
	// indexed by global column, and returns an equivalent zero-default group.
	ExtractCommon(acc []float64) ColGroup

	// MemSize returns the estimated in-memory size in bytes.
	MemSize() int64
	// AppendTo serializes the group into buf.
	AppendTo(buf *pool.ByteBuffer, engine endian.EndianEngine)
	// SizeOnDisk returns the exact serialized size in bytes.
	SizeOnDisk() int
}

// base carries the column metadata shared by every variant.
type base struct {
	cols    []int
	numRows int
}

func (b *base) Columns() []int { return b.cols }
func (b *base) NumRows() int   { return b.numRows }
func (b *base) NumCols() int   { return len(b.cols) }

// countsCell memoizes per-tuple occurrence counts. Groups are shared across
// goroutines after construction, so the lazy computation goes through a
// sync.Once and the slice is never written again.
type countsCell struct {
	once   sync.Once
	counts []int
}

func (c *countsCell) get(m mapping.Mapping) []int {
	c.once.Do(func() { c.counts = m.Counts() })

	return c.counts
}

// forEachRow walks rows [rl, ru) against an offset stream: explicit is called
// with the row and its data index for rows carrying an offset, implicit for
// the remaining rows. implicit may be nil.
func forEachRow(off offset.Offsets, rl, ru int, explicit func(r, di int), implicit func(r int)) {
	it := off.Iterator()
	it.SkipTo(rl)
	last := off.Count() - 1
	done := false
	for r := rl; r < ru; r++ {
		if !done && it.Value() == r {
			explicit(r, it.DataIndex())
			if it.DataIndex() < last {
				it.Next()
			} else {
				done = true
			}
		} else if implicit != nil {
			implicit(r)
		}
	}
}

// cellAt resolves a single (row, data index) lookup against an offset
// stream, returning the data index and whether the row carries an offset.
func cellAt(off offset.Offsets, row int) (int, bool) {
	if row < off.First() || row > off.Last() {
		return 0, false
	}

	it := off.Iterator()
	it.SkipTo(row)

	return it.DataIndex(), it.Value() == row
}

func allZero(tuple []float64) bool {
	for _, v := range tuple {
		if v != 0 {
			return false
		}
	}

	return true
}

func containsVal(tuple []float64, pattern float64) bool {
	for _, v := range tuple {
		if v == pattern {
			return true
		}
	}

	return false
}

func nonZeros(tuple []float64) int {
	n := 0
	for _, v := range tuple {
		if v != 0 {
			n++
		}
	}

	return n
}

func mapTuple(tuple []float64, fn func(float64) float64) []float64 {
	out := make([]float64, len(tuple))
	for i, v := range tuple {
		out[i] = fn(v)
	}

	return out
}

// rexpandValue expands a single class value into a one-hot tuple of length
// max, with the same class-validity rules as the dictionary expansion.
func rexpandValue(v float64, max int, ignore, cast bool) ([]float64, error) {
	out := make([]float64, max)
	if cast {
		v = math.Round(v)
	} else if v != math.Floor(v) {
		if ignore {
			return out, nil
		}

		return nil, fmt.Errorf("colgroup: non-integral class value %v: %w", v, errs.ErrInvalidClassValue)
	}

	class := int(v)
	if class <= 0 || class > max {
		if ignore {
			return out, nil
		}

		return nil, fmt.Errorf("colgroup: class value %d outside [1, %d]: %w", class, max, errs.ErrInvalidClassValue)
	}
	out[class-1] = 1

	return out, nil
}

func powf(v, n float64) float64 { return math.Pow(v, n) }

// filled returns a tuple of n copies of v, or nil when v is zero so that the
// result feeds straight into the zero-default collapse.
func filled(n int, v float64) []float64 {
	if v == 0 {
		return nil
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}

	return out
}

// weightedSum returns the counts-weighted sum of per-tuple aggregates.
func weightedSum(per []float64, counts []int) float64 {
	s := 0.0
	for i, cnt := range counts {
		s += per[i] * float64(cnt)
	}

	return s
}

// seqCols returns the column index set {0, 1, ..., n-1} used by expansion
// results that form a standalone group.
func seqCols(n int) []int {
	cols := make([]int, n)
	for i := range cols {
		cols[i] = i
	}

	return cols
}

func colsString(cols []int) string {
	return fmt.Sprintf("%v", cols)
}

// newSDCAny builds the correct SDC-family variant for the given parts,
// collapsing an all-zero default tuple into the zero-default variants and a
// single-tuple dictionary into the single variants. All transform paths and
// Encode route through here so the family invariants cannot be violated by
// construction.
func newSDCAny(cols []int, numRows int, d *dict.Dictionary, off offset.Offsets, m mapping.Mapping, def []float64) (ColGroup, error) {
	if d == nil {
		return nil, fmt.Errorf("colgroup: SDC over columns %s without a dictionary: %w",
			colsString(cols), errs.ErrEmptyDictionary)
	}

	zeroDef := def == nil || allZero(def)
	single := d.NumTuples() == 1

	switch {
	case zeroDef && single:
		return NewSDCSingleZero(cols, numRows, d, off)
	case zeroDef:
		return NewSDCZero(cols, numRows, d, off, m)
	case single:
		return NewSDCSingle(cols, numRows, d, off, def)
	default:
		return NewSDC(cols, numRows, d, off, m, def)
	}
}

// mustGroup unwraps constructor results on internal paths where the inputs
// were produced by an already validated group and cannot violate the
// invariants.
func mustGroup(g ColGroup, err error) ColGroup {
	if err != nil {
		panic(err)
	}

	return g
}
