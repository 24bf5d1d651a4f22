package colgroup

import (
	"fmt"

	"github.com/arloliu/colpack/dict"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/offset"
	"github.com/arloliu/colpack/ops"
)

// OLE is the offset-list encoding: each dictionary tuple owns its own offset
// stream of the rows it occupies, and rows in no list are implicitly zero.
// Suited to sparse columns with scattered but repeated values.
type OLE struct {
	base
	dict   *dict.Dictionary
	lists  []offset.Offsets // one per tuple
	counts []int
}

var _ ColGroup = (*OLE)(nil)

// NewOLE creates an offset-list group with one offset stream per dictionary
// tuple.
func NewOLE(cols []int, numRows int, d *dict.Dictionary, lists []offset.Offsets) (*OLE, error) {
	if d == nil {
		return nil, fmt.Errorf("colgroup: OLE over columns %s without a dictionary: %w",
			colsString(cols), errs.ErrEmptyDictionary)
	}
	if d.NumCols() != len(cols) {
		return nil, fmt.Errorf("colgroup: OLE over columns %s with %d-column dictionary: %w",
			colsString(cols), d.NumCols(), errs.ErrTupleLengthMismatch)
	}
	if len(lists) != d.NumTuples() {
		return nil, fmt.Errorf("colgroup: OLE over columns %s with %d offset lists for %d tuples: %w",
			colsString(cols), len(lists), d.NumTuples(), errs.ErrCardinalityMismatch)
	}

	counts := make([]int, len(lists))
	for i, l := range lists {
		if l == nil || l.Count() == 0 {
			return nil, fmt.Errorf("colgroup: OLE over columns %s with empty offset list for tuple %d: %w",
				colsString(cols), i, errs.ErrEmptyOffsets)
		}
		if l.Last() >= numRows {
			return nil, fmt.Errorf("colgroup: OLE over columns %s with offset %d beyond %d rows: %w",
				colsString(cols), l.Last(), numRows, errs.ErrIndexOutOfRange)
		}
		counts[i] = l.Count()
	}

	return &OLE{base: base{cols: cols, numRows: numRows}, dict: d, lists: lists, counts: counts}, nil
}

func (g *OLE) Type() format.CompressionType { return format.TypeOLE }

// Counts returns the per-tuple occurrence counts. Callers must not modify
// the returned slice.
func (g *OLE) Counts() []int { return g.counts }

func (g *OLE) coveredRows() int {
	n := 0
	for _, c := range g.counts {
		n += c
	}

	return n
}

func (g *OLE) uncoveredRows() int { return g.numRows - g.coveredRows() }

func (g *OLE) GetCell(row, col int) float64 {
	for i, l := range g.lists {
		if _, ok := cellAt(l, row); ok {
			return g.dict.Value(i, col)
		}
	}

	return 0
}

func (g *OLE) RowSums(out []float64, rl, ru int) {
	preAgg := g.dict.SumAllRows()
	for i, l := range g.lists {
		v := preAgg[i]
		forEachRow(l, rl, ru, func(r, di int) { out[r] += v }, nil)
	}
}

func (g *OLE) RowAggregate(out []float64, fn ops.Builtin, rl, ru int) {
	preAgg := g.dict.AggregateRows(fn)
	covered := make([]bool, ru-rl)
	for i, l := range g.lists {
		v := preAgg[i]
		forEachRow(l, rl, ru, func(r, di int) {
			out[r] = fn(out[r], v)
			covered[r-rl] = true
		}, nil)
	}
	for i, c := range covered {
		if !c {
			r := rl + i
			out[r] = fn(out[r], 0)
		}
	}
}

func (g *OLE) RowProducts(out []float64, rl, ru int) error {
	return fmt.Errorf("colgroup: row products on OLE over columns %s: %w",
		colsString(g.cols), errs.ErrNotSupported)
}

func (g *OLE) ColSums(out []float64) {
	g.dict.ColSums(out, g.counts, g.cols)
}

func (g *OLE) ColSumsSq(out []float64) {
	g.dict.ColSumsSq(out, g.counts, g.cols)
}

func (g *OLE) ColProducts(out []float64) {
	if g.uncoveredRows() > 0 {
		for _, c := range g.cols {
			out[c] = 0
		}

		return
	}
	g.dict.ColProducts(out, g.counts, g.cols)
}

func (g *OLE) Sum() float64 {
	return weightedSum(g.dict.SumAllRows(), g.counts)
}

func (g *OLE) SumSq() float64 {
	return weightedSum(g.dict.SumSqAllRows(), g.counts)
}

func (g *OLE) NonZeros() int64 {
	var n int64
	per := g.dict.NonZerosPerTuple()
	for i, cnt := range g.counts {
		n += int64(per[i]) * int64(cnt)
	}

	return n
}

func (g *OLE) ContainsValue(pattern float64) bool {
	if pattern == 0 && g.uncoveredRows() > 0 {
		return true
	}

	return g.dict.ContainsValue(pattern)
}

func (g *OLE) checkZeroPreserved(v0 float64) error {
	if v0 != 0 && g.uncoveredRows() > 0 {
		return fmt.Errorf("colgroup: operation maps zero to %v on OLE over columns %s: %w",
			v0, colsString(g.cols), errs.ErrNotSupported)
	}

	return nil
}

func (g *OLE) ApplyScalar(op ops.ScalarOp) (ColGroup, error) {
	if err := g.checkZeroPreserved(op.Apply(0)); err != nil {
		return nil, err
	}

	return g.withDict(g.dict.ApplyScalar(op)), nil
}

func (g *OLE) ApplyUnary(fn ops.UnaryFn) (ColGroup, error) {
	if err := g.checkZeroPreserved(fn(0)); err != nil {
		return nil, err
	}

	return g.withDict(g.dict.ApplyUnary(fn)), nil
}

func (g *OLE) BinOpLeft(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	for _, c := range g.cols {
		if err := g.checkZeroPreserved(fn(v[c], 0)); err != nil {
			return nil, err
		}
	}

	return g.withDict(g.dict.BinOpLeft(fn, v, g.cols)), nil
}

func (g *OLE) BinOpRight(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	for _, c := range g.cols {
		if err := g.checkZeroPreserved(fn(0, v[c])); err != nil {
			return nil, err
		}
	}

	return g.withDict(g.dict.BinOpRight(fn, v, g.cols)), nil
}

// withDict shares the offset lists with the transformed copy.
func (g *OLE) withDict(nd *dict.Dictionary) ColGroup {
	return mustGroup(NewOLE(g.cols, g.numRows, nd, g.lists))
}

func (g *OLE) Replace(pattern, replacement float64) (ColGroup, error) {
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

func (g *OLE) RexpandCols(max int, ignore, cast bool) (ColGroup, error) {
	nd, err := g.dict.RexpandCols(max, ignore, cast)
	if err != nil {
		return nil, err
	}
	if g.uncoveredRows() > 0 {
		if _, err := rexpandValue(0, max, ignore, cast); err != nil {
			return nil, err
		}
	}

	return NewOLE(seqCols(max), g.numRows, nd, g.lists)
}

func (g *OLE) ExtractCommon(acc []float64) ColGroup { return g }

func (g *OLE) MemSize() int64 {
	size := 24 + int64(len(g.cols))*8 + g.dict.MemSize() + 24 + int64(len(g.counts))*8
	for _, l := range g.lists {
		size += l.MemSize()
	}

	return size
}
