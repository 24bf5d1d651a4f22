package colgroup

import (
	"fmt"

	"github.com/arloliu/colpack/dict"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/ops"
)

// RLE is the run-length encoding: each dictionary tuple owns a sorted list
// of (start, length) row runs, and rows covered by no run are implicitly
// zero. Suited to long runs of repeated values such as sorted categorical
// columns.
type RLE struct {
	base
	dict   *dict.Dictionary
	ptr    []int32  // run-pair boundaries per tuple, length k+1
	runs   []uint32 // flat (start, length) pairs
	counts []int    // rows covered per tuple
}

var _ ColGroup = (*RLE)(nil)

// NewRLE creates a run-length group. ptr partitions the flat runs slice into
// per-tuple pair ranges and must have one boundary per dictionary tuple plus
// one.
func NewRLE(cols []int, numRows int, d *dict.Dictionary, ptr []int32, runs []uint32) (*RLE, error) {
	if d == nil {
		return nil, fmt.Errorf("colgroup: RLE over columns %s without a dictionary: %w",
			colsString(cols), errs.ErrEmptyDictionary)
	}
	if d.NumCols() != len(cols) {
		return nil, fmt.Errorf("colgroup: RLE over columns %s with %d-column dictionary: %w",
			colsString(cols), d.NumCols(), errs.ErrTupleLengthMismatch)
	}
	k := d.NumTuples()
	if len(ptr) != k+1 || ptr[0] != 0 || int(ptr[k])*2 != len(runs) {
		return nil, fmt.Errorf("colgroup: RLE over columns %s with run boundaries for %d of %d tuples: %w",
			colsString(cols), len(ptr)-1, k, errs.ErrCardinalityMismatch)
	}

	counts := make([]int, k)
	for i := 0; i < k; i++ {
		if ptr[i] > ptr[i+1] {
			return nil, fmt.Errorf("colgroup: RLE over columns %s with decreasing run boundaries: %w",
				colsString(cols), errs.ErrNotIncreasing)
		}
		for p := ptr[i]; p < ptr[i+1]; p++ {
			start, length := int(runs[p*2]), int(runs[p*2+1])
			if length == 0 || start+length > numRows {
				return nil, fmt.Errorf("colgroup: RLE over columns %s with run [%d, %d) beyond %d rows: %w",
					colsString(cols), start, start+length, numRows, errs.ErrIndexOutOfRange)
			}
			counts[i] += length
		}
	}

	return &RLE{base: base{cols: cols, numRows: numRows}, dict: d, ptr: ptr, runs: runs, counts: counts}, nil
}

func (g *RLE) Type() format.CompressionType { return format.TypeRLE }

// Counts returns the per-tuple covered-row counts. Callers must not modify
// the returned slice.
func (g *RLE) Counts() []int { return g.counts }

func (g *RLE) coveredRows() int {
	n := 0
	for _, c := range g.counts {
		n += c
	}

	return n
}

func (g *RLE) uncoveredRows() int { return g.numRows - g.coveredRows() }

// tupleOf returns the tuple covering row, or -1 when the row is implicitly
// zero. Binary search over the run starts of each tuple.
func (g *RLE) tupleOf(row int) int {
	for i := 0; i < len(g.ptr)-1; i++ {
		lo, hi := int(g.ptr[i]), int(g.ptr[i+1])
		for lo < hi {
			mid := (lo + hi) / 2
			start, length := int(g.runs[mid*2]), int(g.runs[mid*2+1])
			switch {
			case row < start:
				hi = mid
			case row >= start+length:
				lo = mid + 1
			default:
				return i
			}
		}
	}

	return -1
}

// tupleOfRows materializes the covering tuple per row in [rl, ru), -1 for
// implicitly zero rows.
func (g *RLE) tupleOfRows(rl, ru int) []int {
	out := make([]int, ru-rl)
	for i := range out {
		out[i] = -1
	}
	g.forEachRun(rl, ru, func(tuple, lo, hi int) {
		for r := lo; r < hi; r++ {
			out[r-rl] = tuple
		}
	})

	return out
}

// forEachRun calls fn(tuple, lo, hi) for the portion of every run clipped to
// [rl, ru).
func (g *RLE) forEachRun(rl, ru int, fn func(tuple, lo, hi int)) {
	for i := 0; i < len(g.ptr)-1; i++ {
		for p := g.ptr[i]; p < g.ptr[i+1]; p++ {
			start, length := int(g.runs[p*2]), int(g.runs[p*2+1])
			lo, hi := start, start+length
			if lo < rl {
				lo = rl
			}
			if hi > ru {
				hi = ru
			}
			if lo < hi {
				fn(i, lo, hi)
			}
		}
	}
}

func (g *RLE) GetCell(row, col int) float64 {
	if t := g.tupleOf(row); t >= 0 {
		return g.dict.Value(t, col)
	}

	return 0
}

func (g *RLE) RowSums(out []float64, rl, ru int) {
	preAgg := g.dict.SumAllRows()
	g.forEachRun(rl, ru, func(tuple, lo, hi int) {
		for r := lo; r < hi; r++ {
			out[r] += preAgg[tuple]
		}
	})
}

func (g *RLE) RowAggregate(out []float64, fn ops.Builtin, rl, ru int) {
	preAgg := g.dict.AggregateRows(fn)
	for i, t := range g.tupleOfRows(rl, ru) {
		r := rl + i
		if t >= 0 {
			out[r] = fn(out[r], preAgg[t])
		} else {
			out[r] = fn(out[r], 0)
		}
	}
}

func (g *RLE) RowProducts(out []float64, rl, ru int) error {
	return fmt.Errorf("colgroup: row products on RLE over columns %s: %w",
		colsString(g.cols), errs.ErrNotSupported)
}

func (g *RLE) ColSums(out []float64) {
	g.dict.ColSums(out, g.counts, g.cols)
}

func (g *RLE) ColSumsSq(out []float64) {
	g.dict.ColSumsSq(out, g.counts, g.cols)
}

func (g *RLE) ColProducts(out []float64) {
	if g.uncoveredRows() > 0 {
		for _, c := range g.cols {
			out[c] = 0
		}

		return
	}
	g.dict.ColProducts(out, g.counts, g.cols)
}

func (g *RLE) Sum() float64 {
	return weightedSum(g.dict.SumAllRows(), g.counts)
}

func (g *RLE) SumSq() float64 {
	return weightedSum(g.dict.SumSqAllRows(), g.counts)
}

func (g *RLE) NonZeros() int64 {
	var n int64
	per := g.dict.NonZerosPerTuple()
	for i, cnt := range g.counts {
		n += int64(per[i]) * int64(cnt)
	}

	return n
}

func (g *RLE) ContainsValue(pattern float64) bool {
	if pattern == 0 && g.uncoveredRows() > 0 {
		return true
	}

	return g.dict.ContainsValue(pattern)
}

// checkZeroPreserved rejects transforms that would assign a non-zero value
// to the implicitly zero rows, which this scheme cannot represent without
// re-encoding.
func (g *RLE) checkZeroPreserved(v0 float64) error {
	if v0 != 0 && g.uncoveredRows() > 0 {
		return fmt.Errorf("colgroup: operation maps zero to %v on RLE over columns %s: %w",
			v0, colsString(g.cols), errs.ErrNotSupported)
	}

	return nil
}

func (g *RLE) ApplyScalar(op ops.ScalarOp) (ColGroup, error) {
	if err := g.checkZeroPreserved(op.Apply(0)); err != nil {
		return nil, err
	}

	return g.withDict(g.dict.ApplyScalar(op)), nil
}

func (g *RLE) ApplyUnary(fn ops.UnaryFn) (ColGroup, error) {
	if err := g.checkZeroPreserved(fn(0)); err != nil {
		return nil, err
	}

	return g.withDict(g.dict.ApplyUnary(fn)), nil
}

func (g *RLE) BinOpLeft(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	for _, c := range g.cols {
		if err := g.checkZeroPreserved(fn(v[c], 0)); err != nil {
			return nil, err
		}
	}

	return g.withDict(g.dict.BinOpLeft(fn, v, g.cols)), nil
}

func (g *RLE) BinOpRight(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	for _, c := range g.cols {
		if err := g.checkZeroPreserved(fn(0, v[c])); err != nil {
			return nil, err
		}
	}

	return g.withDict(g.dict.BinOpRight(fn, v, g.cols)), nil
}

// withDict shares the run structure with the transformed copy.
func (g *RLE) withDict(nd *dict.Dictionary) ColGroup {
	return mustGroup(NewRLE(g.cols, g.numRows, nd, g.ptr, g.runs))
}

func (g *RLE) Replace(pattern, replacement float64) (ColGroup, error) {
	if pattern == 0 {
		if err := g.checkZeroPreserved(replacement); err != nil {
			return nil, err
		}
	}
	if !g.dict.ContainsValue(pattern) {
		return g, nil
	}

	return g.withDict(g.dict.Replace(pattern, replacement)), nil
}

func (g *RLE) RexpandCols(max int, ignore, cast bool) (ColGroup, error) {
	nd, err := g.dict.RexpandCols(max, ignore, cast)
	if err != nil {
		return nil, err
	}
	if g.uncoveredRows() > 0 {
		if _, err := rexpandValue(0, max, ignore, cast); err != nil {
			return nil, err
		}
	}

	return NewRLE(seqCols(max), g.numRows, nd, g.ptr, g.runs)
}

func (g *RLE) ExtractCommon(acc []float64) ColGroup { return g }

func (g *RLE) MemSize() int64 {
	return 24 + int64(len(g.cols))*8 + g.dict.MemSize() +
		24 + int64(len(g.ptr))*4 + 24 + int64(len(g.runs))*4 + 24 + int64(len(g.counts))*8
}
