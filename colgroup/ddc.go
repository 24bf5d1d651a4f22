package colgroup

import (
	"fmt"

	"github.com/arloliu/colpack/dict"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/mapping"
	"github.com/arloliu/colpack/ops"
)

// DDC is the dense dictionary encoding: every row resolves through a dense
// per-row mapping into the dictionary, with no offset structure.
type DDC struct {
	base
	dict   *dict.Dictionary
	data   mapping.Mapping
	counts countsCell
}

var _ ColGroup = (*DDC)(nil)

// NewDDC creates a dense dictionary group. The mapping must cover every row
// and its cardinality must match the dictionary's tuple count.
func NewDDC(cols []int, numRows int, d *dict.Dictionary, m mapping.Mapping) (*DDC, error) {
	if d == nil {
		return nil, fmt.Errorf("colgroup: DDC over columns %s without a dictionary: %w",
			colsString(cols), errs.ErrEmptyDictionary)
	}
	if d.NumCols() != len(cols) {
		return nil, fmt.Errorf("colgroup: DDC over columns %s with %d-column dictionary: %w",
			colsString(cols), d.NumCols(), errs.ErrTupleLengthMismatch)
	}
	if m.Size() != numRows {
		return nil, fmt.Errorf("colgroup: DDC over columns %s maps %d of %d rows: %w",
			colsString(cols), m.Size(), numRows, errs.ErrCardinalityMismatch)
	}
	if m.Unique() != d.NumTuples() {
		return nil, fmt.Errorf("colgroup: DDC over columns %s with %d mapped but %d dictionary tuples: %w",
			colsString(cols), m.Unique(), d.NumTuples(), errs.ErrCardinalityMismatch)
	}

	return &DDC{base: base{cols: cols, numRows: numRows}, dict: d, data: m}, nil
}

func (g *DDC) Type() format.CompressionType { return format.TypeDDC }

// Counts returns the per-tuple occurrence counts, computed once and shared.
// Callers must not modify the returned slice.
func (g *DDC) Counts() []int { return g.counts.get(g.data) }

func (g *DDC) GetCell(row, col int) float64 {
	return g.dict.Value(g.data.Index(row), col)
}

func (g *DDC) RowSums(out []float64, rl, ru int) {
	preAgg := g.dict.SumAllRows()
	for r := rl; r < ru; r++ {
		out[r] += preAgg[g.data.Index(r)]
	}
}

func (g *DDC) RowAggregate(out []float64, fn ops.Builtin, rl, ru int) {
	preAgg := g.dict.AggregateRows(fn)
	for r := rl; r < ru; r++ {
		out[r] = fn(out[r], preAgg[g.data.Index(r)])
	}
}

func (g *DDC) RowProducts(out []float64, rl, ru int) error {
	preAgg := g.dict.AggregateRows(ops.Builtin(ops.Multiply))
	for r := rl; r < ru; r++ {
		out[r] *= preAgg[g.data.Index(r)]
	}

	return nil
}

func (g *DDC) ColSums(out []float64) {
	g.dict.ColSums(out, g.Counts(), g.cols)
}

func (g *DDC) ColSumsSq(out []float64) {
	g.dict.ColSumsSq(out, g.Counts(), g.cols)
}

func (g *DDC) ColProducts(out []float64) {
	g.dict.ColProducts(out, g.Counts(), g.cols)
}

func (g *DDC) Sum() float64 {
	return weightedSum(g.dict.SumAllRows(), g.Counts())
}

func (g *DDC) SumSq() float64 {
	return weightedSum(g.dict.SumSqAllRows(), g.Counts())
}

func (g *DDC) NonZeros() int64 {
	var n int64
	per := g.dict.NonZerosPerTuple()
	for i, cnt := range g.Counts() {
		n += int64(per[i]) * int64(cnt)
	}

	return n
}

func (g *DDC) ContainsValue(pattern float64) bool {
	return g.dict.ContainsValue(pattern)
}

func (g *DDC) ApplyScalar(op ops.ScalarOp) (ColGroup, error) {
	return g.withDict(g.dict.ApplyScalar(op)), nil
}

func (g *DDC) ApplyUnary(fn ops.UnaryFn) (ColGroup, error) {
	return g.withDict(g.dict.ApplyUnary(fn)), nil
}

func (g *DDC) BinOpLeft(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	return g.withDict(g.dict.BinOpLeft(fn, v, g.cols)), nil
}

func (g *DDC) BinOpRight(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	return g.withDict(g.dict.BinOpRight(fn, v, g.cols)), nil
}

// withDict shares the mapping with the transformed copy.
func (g *DDC) withDict(nd *dict.Dictionary) ColGroup {
	return mustGroup(NewDDC(g.cols, g.numRows, nd, g.data))
}

func (g *DDC) Replace(pattern, replacement float64) (ColGroup, error) {
	if !g.dict.ContainsValue(pattern) {
		return g, nil
	}

	return g.withDict(g.dict.Replace(pattern, replacement)), nil
}

func (g *DDC) RexpandCols(max int, ignore, cast bool) (ColGroup, error) {
	nd, err := g.dict.RexpandCols(max, ignore, cast)
	if err != nil {
		return nil, err
	}

	return NewDDC(seqCols(max), g.numRows, nd, g.data)
}

func (g *DDC) ExtractCommon(acc []float64) ColGroup { return g }

func (g *DDC) MemSize() int64 {
	return 24 + int64(len(g.cols))*8 + g.dict.MemSize() + g.data.MemSize()
}
