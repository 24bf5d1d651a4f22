package colgroup

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/arloliu/colpack/dict"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/mapping"
	"github.com/arloliu/colpack/offset"
	"github.com/arloliu/colpack/ops"
)

// SDCZero is the sparse encoding whose default tuple is all-zero: rows
// without an offset are implicitly zero and no default tuple is stored.
type SDCZero struct {
	base
	dict    *dict.Dictionary
	offsets offset.Offsets
	data    mapping.Mapping
	counts  countsCell
}

var _ ColGroup = (*SDCZero)(nil)

// NewSDCZero creates a zero-default sparse group.
func NewSDCZero(cols []int, numRows int, d *dict.Dictionary, off offset.Offsets, m mapping.Mapping) (*SDCZero, error) {
	if err := validateSparse(format.TypeSDCZero, cols, numRows, d, off); err != nil {
		return nil, err
	}
	if m == nil || off.Count() != m.Size() {
		return nil, fmt.Errorf("colgroup: SDCZero over columns %s with mismatched offset and mapping sizes: %w",
			colsString(cols), errs.ErrCardinalityMismatch)
	}
	if m.Unique() != d.NumTuples() {
		return nil, fmt.Errorf("colgroup: SDCZero over columns %s maps %d tuples but dictionary has %d: %w",
			colsString(cols), m.Unique(), d.NumTuples(), errs.ErrCardinalityMismatch)
	}

	return &SDCZero{base: base{cols: cols, numRows: numRows}, dict: d, offsets: off, data: m}, nil
}

func (g *SDCZero) Type() format.CompressionType { return format.TypeSDCZero }

// Counts returns the per-tuple occurrence counts of the explicit rows,
// computed once and shared. Callers must not modify the returned slice.
func (g *SDCZero) Counts() []int { return g.counts.get(g.data) }

func (g *SDCZero) defaultRows() int { return g.numRows - g.offsets.Count() }

func (g *SDCZero) GetCell(row, col int) float64 {
	if di, ok := cellAt(g.offsets, row); ok {
		return g.dict.Value(g.data.Index(di), col)
	}

	return 0
}

func (g *SDCZero) RowSums(out []float64, rl, ru int) {
	preAgg := g.dict.SumAllRows()
	forEachRow(g.offsets, rl, ru,
		func(r, di int) { out[r] += preAgg[g.data.Index(di)] }, nil)
}

func (g *SDCZero) RowAggregate(out []float64, fn ops.Builtin, rl, ru int) {
	preAgg := g.dict.AggregateRows(fn)
	forEachRow(g.offsets, rl, ru,
		func(r, di int) { out[r] = fn(out[r], preAgg[g.data.Index(di)]) },
		func(r int) { out[r] = fn(out[r], 0) })
}

func (g *SDCZero) RowProducts(out []float64, rl, ru int) error {
	preAgg := g.dict.AggregateRows(ops.Builtin(ops.Multiply))
	forEachRow(g.offsets, rl, ru,
		func(r, di int) { out[r] *= preAgg[g.data.Index(di)] },
		func(r int) { out[r] = 0 })

	return nil
}

func (g *SDCZero) ColSums(out []float64) {
	g.dict.ColSums(out, g.Counts(), g.cols)
}

func (g *SDCZero) ColSumsSq(out []float64) {
	g.dict.ColSumsSq(out, g.Counts(), g.cols)
}

func (g *SDCZero) ColProducts(out []float64) {
	if g.defaultRows() > 0 {
		for _, c := range g.cols {
			out[c] = 0
		}

		return
	}
	g.dict.ColProducts(out, g.Counts(), g.cols)
}

func (g *SDCZero) Sum() float64 {
	return weightedSum(g.dict.SumAllRows(), g.Counts())
}

func (g *SDCZero) SumSq() float64 {
	return weightedSum(g.dict.SumSqAllRows(), g.Counts())
}

func (g *SDCZero) NonZeros() int64 {
	var n int64
	per := g.dict.NonZerosPerTuple()
	for i, cnt := range g.Counts() {
		n += int64(per[i]) * int64(cnt)
	}

	return n
}

func (g *SDCZero) ContainsValue(pattern float64) bool {
	if pattern == 0 && g.defaultRows() > 0 {
		return true
	}

	return g.dict.ContainsValue(pattern)
}

func (g *SDCZero) ApplyScalar(op ops.ScalarOp) (ColGroup, error) {
	return newSDCAny(g.cols, g.numRows, g.dict.ApplyScalar(op), g.offsets, g.data,
		filled(len(g.cols), op.Apply(0)))
}

func (g *SDCZero) ApplyUnary(fn ops.UnaryFn) (ColGroup, error) {
	return newSDCAny(g.cols, g.numRows, g.dict.ApplyUnary(fn), g.offsets, g.data,
		filled(len(g.cols), fn(0)))
}

func (g *SDCZero) BinOpLeft(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	ndef := make([]float64, len(g.cols))
	for i, c := range g.cols {
		ndef[i] = fn(v[c], 0)
	}

	return newSDCAny(g.cols, g.numRows, g.dict.BinOpLeft(fn, v, g.cols), g.offsets, g.data, ndef)
}

func (g *SDCZero) BinOpRight(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	ndef := make([]float64, len(g.cols))
	for i, c := range g.cols {
		ndef[i] = fn(0, v[c])
	}

	return newSDCAny(g.cols, g.numRows, g.dict.BinOpRight(fn, v, g.cols), g.offsets, g.data, ndef)
}

func (g *SDCZero) Replace(pattern, replacement float64) (ColGroup, error) {
	// pattern zero rewrites the implicit default rows, so the result carries
	// a default tuple and leaves the zero-default family
	if pattern == 0 && replacement != 0 && g.defaultRows() > 0 {
		return newSDCAny(g.cols, g.numRows, g.dict.Replace(pattern, replacement),
			g.offsets, g.data, filled(len(g.cols), replacement))
	}
	if !g.dict.ContainsValue(pattern) {
		return g, nil
	}

	return newSDCAny(g.cols, g.numRows, g.dict.Replace(pattern, replacement),
		g.offsets, g.data, nil)
}

func (g *SDCZero) RexpandCols(max int, ignore, cast bool) (ColGroup, error) {
	nd, err := g.dict.RexpandCols(max, ignore, cast)
	if err != nil {
		return nil, err
	}
	// implicit zeros hold class value 0, which is always out of range
	if _, err := rexpandValue(0, max, ignore, cast); err != nil {
		return nil, err
	}

	return NewSDCZero(seqCols(max), g.numRows, nd, g.offsets, g.data)
}

func (g *SDCZero) ExtractCommon(acc []float64) ColGroup { return g }

func (g *SDCZero) MemSize() int64 {
	return 24 + int64(len(g.cols))*8 + g.dict.MemSize() + g.offsets.MemSize() + g.data.MemSize()
}

// SDCSingleZero is the zero-default sparse encoding with exactly one
// distinct tuple: offsets alone carry the structure.
type SDCSingleZero struct {
	base
	dict    *dict.Dictionary
	offsets offset.Offsets
}

var _ ColGroup = (*SDCSingleZero)(nil)

// NewSDCSingleZero creates a single-tuple zero-default sparse group. The
// dictionary must hold exactly one tuple.
func NewSDCSingleZero(cols []int, numRows int, d *dict.Dictionary, off offset.Offsets) (*SDCSingleZero, error) {
	if err := validateSparse(format.TypeSDCSingleZero, cols, numRows, d, off); err != nil {
		return nil, err
	}
	if d.NumTuples() != 1 {
		return nil, fmt.Errorf("colgroup: SDCSingleZero over columns %s with %d dictionary tuples: %w",
			colsString(cols), d.NumTuples(), errs.ErrCardinalityMismatch)
	}

	return &SDCSingleZero{base: base{cols: cols, numRows: numRows}, dict: d, offsets: off}, nil
}

func (g *SDCSingleZero) Type() format.CompressionType { return format.TypeSDCSingleZero }

func (g *SDCSingleZero) tuple() []float64  { return g.dict.Tuple(0) }
func (g *SDCSingleZero) explicitRows() int { return g.offsets.Count() }
func (g *SDCSingleZero) defaultRows() int  { return g.numRows - g.offsets.Count() }

func (g *SDCSingleZero) GetCell(row, col int) float64 {
	if _, ok := cellAt(g.offsets, row); ok {
		return g.dict.Value(0, col)
	}

	return 0
}

func (g *SDCSingleZero) RowSums(out []float64, rl, ru int) {
	ts := floats.Sum(g.tuple())
	forEachRow(g.offsets, rl, ru, func(r, di int) { out[r] += ts }, nil)
}

func (g *SDCSingleZero) RowAggregate(out []float64, fn ops.Builtin, rl, ru int) {
	agg := g.dict.AggregateRows(fn)[0]
	forEachRow(g.offsets, rl, ru,
		func(r, di int) { out[r] = fn(out[r], agg) },
		func(r int) { out[r] = fn(out[r], 0) })
}

func (g *SDCSingleZero) RowProducts(out []float64, rl, ru int) error {
	p := g.dict.AggregateRows(ops.Builtin(ops.Multiply))[0]
	forEachRow(g.offsets, rl, ru,
		func(r, di int) { out[r] *= p },
		func(r int) { out[r] = 0 })

	return nil
}

func (g *SDCSingleZero) ColSums(out []float64) {
	en := float64(g.explicitRows())
	for i, c := range g.cols {
		out[c] += g.dict.Value(0, i) * en
	}
}

func (g *SDCSingleZero) ColSumsSq(out []float64) {
	en := float64(g.explicitRows())
	for i, c := range g.cols {
		v := g.dict.Value(0, i)
		out[c] += v * v * en
	}
}

func (g *SDCSingleZero) ColProducts(out []float64) {
	if g.defaultRows() > 0 {
		for _, c := range g.cols {
			out[c] = 0
		}

		return
	}
	en := float64(g.explicitRows())
	for i, c := range g.cols {
		out[c] *= powf(g.dict.Value(0, i), en)
	}
}

func (g *SDCSingleZero) Sum() float64 {
	return floats.Sum(g.tuple()) * float64(g.explicitRows())
}

func (g *SDCSingleZero) SumSq() float64 {
	t := g.tuple()

	return floats.Dot(t, t) * float64(g.explicitRows())
}

func (g *SDCSingleZero) NonZeros() int64 {
	return int64(nonZeros(g.tuple())) * int64(g.explicitRows())
}

func (g *SDCSingleZero) ContainsValue(pattern float64) bool {
	if pattern == 0 && g.defaultRows() > 0 {
		return true
	}

	return g.dict.ContainsValue(pattern)
}

func (g *SDCSingleZero) ApplyScalar(op ops.ScalarOp) (ColGroup, error) {
	return newSDCAny(g.cols, g.numRows, g.dict.ApplyScalar(op), g.offsets, nil,
		filled(len(g.cols), op.Apply(0)))
}

func (g *SDCSingleZero) ApplyUnary(fn ops.UnaryFn) (ColGroup, error) {
	return newSDCAny(g.cols, g.numRows, g.dict.ApplyUnary(fn), g.offsets, nil,
		filled(len(g.cols), fn(0)))
}

func (g *SDCSingleZero) BinOpLeft(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	ndef := make([]float64, len(g.cols))
	for i, c := range g.cols {
		ndef[i] = fn(v[c], 0)
	}

	return newSDCAny(g.cols, g.numRows, g.dict.BinOpLeft(fn, v, g.cols), g.offsets, nil, ndef)
}

func (g *SDCSingleZero) BinOpRight(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	ndef := make([]float64, len(g.cols))
	for i, c := range g.cols {
		ndef[i] = fn(0, v[c])
	}

	return newSDCAny(g.cols, g.numRows, g.dict.BinOpRight(fn, v, g.cols), g.offsets, nil, ndef)
}

func (g *SDCSingleZero) Replace(pattern, replacement float64) (ColGroup, error) {
	if pattern == 0 && replacement != 0 && g.defaultRows() > 0 {
		return newSDCAny(g.cols, g.numRows, g.dict.Replace(pattern, replacement),
			g.offsets, nil, filled(len(g.cols), replacement))
	}
	if !g.dict.ContainsValue(pattern) {
		return g, nil
	}

	return newSDCAny(g.cols, g.numRows, g.dict.Replace(pattern, replacement),
		g.offsets, nil, nil)
}

func (g *SDCSingleZero) RexpandCols(max int, ignore, cast bool) (ColGroup, error) {
	nd, err := g.dict.RexpandCols(max, ignore, cast)
	if err != nil {
		return nil, err
	}
	if _, err := rexpandValue(0, max, ignore, cast); err != nil {
		return nil, err
	}

	return NewSDCSingleZero(seqCols(max), g.numRows, nd, g.offsets)
}

func (g *SDCSingleZero) ExtractCommon(acc []float64) ColGroup { return g }

func (g *SDCSingleZero) MemSize() int64 {
	return 24 + int64(len(g.cols))*8 + g.dict.MemSize() + g.offsets.MemSize()
}
