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

// SDC is the sparse-with-default encoding: most rows hold one frequent
// non-zero default tuple, and only the minority rows carry an offset into the
// dictionary through the mapping.
type SDC struct {
	base
	dict         *dict.Dictionary
	offsets      offset.Offsets
	data         mapping.Mapping
	defaultTuple []float64
	counts       countsCell
}

var _ ColGroup = (*SDC)(nil)

// NewSDC creates a sparse-with-default group. The default tuple must not be
// all-zero; callers holding an all-zero default must construct an SDCZero
// instead (newSDCAny does this collapse automatically).
func NewSDC(cols []int, numRows int, d *dict.Dictionary, off offset.Offsets, m mapping.Mapping, def []float64) (*SDC, error) {
	if err := validateSparse(format.TypeSDC, cols, numRows, d, off); err != nil {
		return nil, err
	}
	if m == nil || off.Count() != m.Size() {
		return nil, fmt.Errorf("colgroup: SDC over columns %s with mismatched offset and mapping sizes: %w",
			colsString(cols), errs.ErrCardinalityMismatch)
	}
	if m.Unique() != d.NumTuples() {
		return nil, fmt.Errorf("colgroup: SDC over columns %s maps %d tuples but dictionary has %d: %w",
			colsString(cols), m.Unique(), d.NumTuples(), errs.ErrCardinalityMismatch)
	}
	if err := validateDefault(format.TypeSDC, cols, def); err != nil {
		return nil, err
	}

	return &SDC{
		base:         base{cols: cols, numRows: numRows},
		dict:         d,
		offsets:      off,
		data:         m,
		defaultTuple: def,
	}, nil
}

func validateSparse(t format.CompressionType, cols []int, numRows int, d *dict.Dictionary, off offset.Offsets) error {
	if d == nil {
		return fmt.Errorf("colgroup: %s over columns %s without a dictionary: %w",
			t, colsString(cols), errs.ErrEmptyDictionary)
	}
	if d.NumCols() != len(cols) {
		return fmt.Errorf("colgroup: %s over columns %s with %d-column dictionary: %w",
			t, colsString(cols), d.NumCols(), errs.ErrTupleLengthMismatch)
	}
	if off == nil || off.Count() == 0 {
		return fmt.Errorf("colgroup: %s over columns %s without offsets: %w", t, colsString(cols), errs.ErrEmptyOffsets)
	}
	if off.Last() >= numRows {
		return fmt.Errorf("colgroup: %s over columns %s with offset %d beyond %d rows: %w",
			t, colsString(cols), off.Last(), numRows, errs.ErrIndexOutOfRange)
	}

	return nil
}

func validateDefault(t format.CompressionType, cols []int, def []float64) error {
	if len(def) != len(cols) {
		return fmt.Errorf("colgroup: %s over columns %s with default tuple of length %d: %w",
			t, colsString(cols), len(def), errs.ErrTupleLengthMismatch)
	}
	if allZero(def) {
		return fmt.Errorf("colgroup: %s over columns %s with all-zero default tuple: %w",
			t, colsString(cols), errs.ErrZeroDefaultTuple)
	}

	return nil
}

func (g *SDC) Type() format.CompressionType { return format.TypeSDC }

// DefaultTuple returns the default tuple. Callers must not modify it.
func (g *SDC) DefaultTuple() []float64 { return g.defaultTuple }

// Counts returns the per-tuple occurrence counts of the explicit rows,
// computed once and shared. Callers must not modify the returned slice.
func (g *SDC) Counts() []int { return g.counts.get(g.data) }

func (g *SDC) defaultRows() int { return g.numRows - g.offsets.Count() }

func (g *SDC) GetCell(row, col int) float64 {
	if di, ok := cellAt(g.offsets, row); ok {
		return g.dict.Value(g.data.Index(di), col)
	}

	return g.defaultTuple[col]
}

func (g *SDC) RowSums(out []float64, rl, ru int) {
	preAgg := g.dict.SumAllRowsWithDefault(g.defaultTuple)
	k := g.dict.NumTuples()
	forEachRow(g.offsets, rl, ru,
		func(r, di int) { out[r] += preAgg[g.data.Index(di)] },
		func(r int) { out[r] += preAgg[k] })
}

func (g *SDC) RowAggregate(out []float64, fn ops.Builtin, rl, ru int) {
	preAgg := g.dict.AggregateRowsWithDefault(fn, g.defaultTuple)
	k := g.dict.NumTuples()
	forEachRow(g.offsets, rl, ru,
		func(r, di int) { out[r] = fn(out[r], preAgg[g.data.Index(di)]) },
		func(r int) { out[r] = fn(out[r], preAgg[k]) })
}

func (g *SDC) RowProducts(out []float64, rl, ru int) error {
	preAgg := g.dict.AggregateRowsWithDefault(ops.Builtin(ops.Multiply), g.defaultTuple)
	k := g.dict.NumTuples()
	forEachRow(g.offsets, rl, ru,
		func(r, di int) { out[r] *= preAgg[g.data.Index(di)] },
		func(r int) { out[r] *= preAgg[k] })

	return nil
}

func (g *SDC) ColSums(out []float64) {
	g.dict.ColSums(out, g.Counts(), g.cols)
	n := float64(g.defaultRows())
	for i, c := range g.cols {
		out[c] += g.defaultTuple[i] * n
	}
}

func (g *SDC) ColSumsSq(out []float64) {
	g.dict.ColSumsSq(out, g.Counts(), g.cols)
	n := float64(g.defaultRows())
	for i, c := range g.cols {
		out[c] += g.defaultTuple[i] * g.defaultTuple[i] * n
	}
}

func (g *SDC) ColProducts(out []float64) {
	g.dict.ColProducts(out, g.Counts(), g.cols)
	n := float64(g.defaultRows())
	for i, c := range g.cols {
		out[c] *= powf(g.defaultTuple[i], n)
	}
}

func (g *SDC) Sum() float64 {
	return weightedSum(g.dict.SumAllRows(), g.Counts()) +
		floats.Sum(g.defaultTuple)*float64(g.defaultRows())
}

func (g *SDC) SumSq() float64 {
	return weightedSum(g.dict.SumSqAllRows(), g.Counts()) +
		floats.Dot(g.defaultTuple, g.defaultTuple)*float64(g.defaultRows())
}

func (g *SDC) NonZeros() int64 {
	var n int64
	per := g.dict.NonZerosPerTuple()
	for i, cnt := range g.Counts() {
		n += int64(per[i]) * int64(cnt)
	}

	return n + int64(nonZeros(g.defaultTuple))*int64(g.defaultRows())
}

func (g *SDC) ContainsValue(pattern float64) bool {
	return g.dict.ContainsValue(pattern) || containsVal(g.defaultTuple, pattern)
}

func (g *SDC) ApplyScalar(op ops.ScalarOp) (ColGroup, error) {
	return newSDCAny(g.cols, g.numRows, g.dict.ApplyScalar(op), g.offsets, g.data,
		mapTuple(g.defaultTuple, op.Apply))
}

func (g *SDC) ApplyUnary(fn ops.UnaryFn) (ColGroup, error) {
	return newSDCAny(g.cols, g.numRows, g.dict.ApplyUnary(fn), g.offsets, g.data,
		mapTuple(g.defaultTuple, fn))
}

func (g *SDC) BinOpLeft(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	ndef := make([]float64, len(g.cols))
	for i, c := range g.cols {
		ndef[i] = fn(v[c], g.defaultTuple[i])
	}

	return newSDCAny(g.cols, g.numRows, g.dict.BinOpLeft(fn, v, g.cols), g.offsets, g.data, ndef)
}

func (g *SDC) BinOpRight(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	ndef := make([]float64, len(g.cols))
	for i, c := range g.cols {
		ndef[i] = fn(g.defaultTuple[i], v[c])
	}

	return newSDCAny(g.cols, g.numRows, g.dict.BinOpRight(fn, v, g.cols), g.offsets, g.data, ndef)
}

func (g *SDC) Replace(pattern, replacement float64) (ColGroup, error) {
	if !g.ContainsValue(pattern) {
		return g, nil
	}

	ndef := make([]float64, len(g.defaultTuple))
	for i, v := range g.defaultTuple {
		if v == pattern {
			ndef[i] = replacement
		} else {
			ndef[i] = v
		}
	}

	// a replacement zeroing the default tuple collapses to SDCZero
	return newSDCAny(g.cols, g.numRows, g.dict.Replace(pattern, replacement),
		g.offsets, g.data, ndef)
}

func (g *SDC) RexpandCols(max int, ignore, cast bool) (ColGroup, error) {
	nd, err := g.dict.RexpandCols(max, ignore, cast)
	if err != nil {
		return nil, err
	}
	ndef, err := rexpandValue(g.defaultTuple[0], max, ignore, cast)
	if err != nil {
		return nil, err
	}

	return newSDCAny(seqCols(max), g.numRows, nd, g.offsets, g.data, ndef)
}

func (g *SDC) ExtractCommon(acc []float64) ColGroup {
	for i, c := range g.cols {
		acc[c] += g.defaultTuple[i]
	}
	sub, err := g.dict.SubtractTuple(g.defaultTuple)
	if err != nil {
		panic(err)
	}

	return mustGroup(NewSDCZero(g.cols, g.numRows, sub, g.offsets, g.data))
}

func (g *SDC) MemSize() int64 {
	return 24 + int64(len(g.cols))*8 + g.dict.MemSize() + g.offsets.MemSize() +
		g.data.MemSize() + 24 + int64(len(g.defaultTuple))*8
}

// SDCSingle is the SDC specialization with exactly one distinct non-default
// tuple: offsets alone identify the minority rows and no mapping is stored.
type SDCSingle struct {
	base
	dict         *dict.Dictionary
	offsets      offset.Offsets
	defaultTuple []float64
}

var _ ColGroup = (*SDCSingle)(nil)

// NewSDCSingle creates a single-tuple sparse-with-default group. The
// dictionary must hold exactly one tuple.
func NewSDCSingle(cols []int, numRows int, d *dict.Dictionary, off offset.Offsets, def []float64) (*SDCSingle, error) {
	if err := validateSparse(format.TypeSDCSingle, cols, numRows, d, off); err != nil {
		return nil, err
	}
	if d.NumTuples() != 1 {
		return nil, fmt.Errorf("colgroup: SDCSingle over columns %s with %d dictionary tuples: %w",
			colsString(cols), d.NumTuples(), errs.ErrCardinalityMismatch)
	}
	if err := validateDefault(format.TypeSDCSingle, cols, def); err != nil {
		return nil, err
	}

	return &SDCSingle{
		base:         base{cols: cols, numRows: numRows},
		dict:         d,
		offsets:      off,
		defaultTuple: def,
	}, nil
}

func (g *SDCSingle) Type() format.CompressionType { return format.TypeSDCSingle }

// DefaultTuple returns the default tuple. Callers must not modify it.
func (g *SDCSingle) DefaultTuple() []float64 { return g.defaultTuple }

func (g *SDCSingle) tuple() []float64  { return g.dict.Tuple(0) }
func (g *SDCSingle) explicitRows() int { return g.offsets.Count() }
func (g *SDCSingle) defaultRows() int  { return g.numRows - g.offsets.Count() }

func (g *SDCSingle) GetCell(row, col int) float64 {
	if _, ok := cellAt(g.offsets, row); ok {
		return g.dict.Value(0, col)
	}

	return g.defaultTuple[col]
}

func (g *SDCSingle) RowSums(out []float64, rl, ru int) {
	ts := floats.Sum(g.tuple())
	ds := floats.Sum(g.defaultTuple)
	forEachRow(g.offsets, rl, ru,
		func(r, di int) { out[r] += ts },
		func(r int) { out[r] += ds })
}

func (g *SDCSingle) RowAggregate(out []float64, fn ops.Builtin, rl, ru int) {
	preAgg := g.dict.AggregateRowsWithDefault(fn, g.defaultTuple)
	forEachRow(g.offsets, rl, ru,
		func(r, di int) { out[r] = fn(out[r], preAgg[0]) },
		func(r int) { out[r] = fn(out[r], preAgg[1]) })
}

func (g *SDCSingle) RowProducts(out []float64, rl, ru int) error {
	preAgg := g.dict.AggregateRowsWithDefault(ops.Builtin(ops.Multiply), g.defaultTuple)
	forEachRow(g.offsets, rl, ru,
		func(r, di int) { out[r] *= preAgg[0] },
		func(r int) { out[r] *= preAgg[1] })

	return nil
}

func (g *SDCSingle) ColSums(out []float64) {
	en := float64(g.explicitRows())
	dn := float64(g.defaultRows())
	for i, c := range g.cols {
		out[c] += g.dict.Value(0, i)*en + g.defaultTuple[i]*dn
	}
}

func (g *SDCSingle) ColSumsSq(out []float64) {
	en := float64(g.explicitRows())
	dn := float64(g.defaultRows())
	for i, c := range g.cols {
		t := g.dict.Value(0, i)
		d := g.defaultTuple[i]
		out[c] += t*t*en + d*d*dn
	}
}

func (g *SDCSingle) ColProducts(out []float64) {
	en := float64(g.explicitRows())
	dn := float64(g.defaultRows())
	for i, c := range g.cols {
		out[c] *= powf(g.dict.Value(0, i), en) * powf(g.defaultTuple[i], dn)
	}
}

func (g *SDCSingle) Sum() float64 {
	return floats.Sum(g.tuple())*float64(g.explicitRows()) +
		floats.Sum(g.defaultTuple)*float64(g.defaultRows())
}

func (g *SDCSingle) SumSq() float64 {
	t := g.tuple()

	return floats.Dot(t, t)*float64(g.explicitRows()) +
		floats.Dot(g.defaultTuple, g.defaultTuple)*float64(g.defaultRows())
}

func (g *SDCSingle) NonZeros() int64 {
	return int64(nonZeros(g.tuple()))*int64(g.explicitRows()) +
		int64(nonZeros(g.defaultTuple))*int64(g.defaultRows())
}

func (g *SDCSingle) ContainsValue(pattern float64) bool {
	return g.dict.ContainsValue(pattern) || containsVal(g.defaultTuple, pattern)
}

func (g *SDCSingle) ApplyScalar(op ops.ScalarOp) (ColGroup, error) {
	return newSDCAny(g.cols, g.numRows, g.dict.ApplyScalar(op), g.offsets, nil,
		mapTuple(g.defaultTuple, op.Apply))
}

func (g *SDCSingle) ApplyUnary(fn ops.UnaryFn) (ColGroup, error) {
	return newSDCAny(g.cols, g.numRows, g.dict.ApplyUnary(fn), g.offsets, nil,
		mapTuple(g.defaultTuple, fn))
}

func (g *SDCSingle) BinOpLeft(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	ndef := make([]float64, len(g.cols))
	for i, c := range g.cols {
		ndef[i] = fn(v[c], g.defaultTuple[i])
	}

	return newSDCAny(g.cols, g.numRows, g.dict.BinOpLeft(fn, v, g.cols), g.offsets, nil, ndef)
}

func (g *SDCSingle) BinOpRight(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	ndef := make([]float64, len(g.cols))
	for i, c := range g.cols {
		ndef[i] = fn(g.defaultTuple[i], v[c])
	}

	return newSDCAny(g.cols, g.numRows, g.dict.BinOpRight(fn, v, g.cols), g.offsets, nil, ndef)
}

func (g *SDCSingle) Replace(pattern, replacement float64) (ColGroup, error) {
	if !g.ContainsValue(pattern) {
		return g, nil
	}

	ndef := make([]float64, len(g.defaultTuple))
	for i, v := range g.defaultTuple {
		if v == pattern {
			ndef[i] = replacement
		} else {
			ndef[i] = v
		}
	}

	return newSDCAny(g.cols, g.numRows, g.dict.Replace(pattern, replacement),
		g.offsets, nil, ndef)
}

func (g *SDCSingle) RexpandCols(max int, ignore, cast bool) (ColGroup, error) {
	nd, err := g.dict.RexpandCols(max, ignore, cast)
	if err != nil {
		return nil, err
	}
	ndef, err := rexpandValue(g.defaultTuple[0], max, ignore, cast)
	if err != nil {
		return nil, err
	}

	return newSDCAny(seqCols(max), g.numRows, nd, g.offsets, nil, ndef)
}

func (g *SDCSingle) ExtractCommon(acc []float64) ColGroup {
	for i, c := range g.cols {
		acc[c] += g.defaultTuple[i]
	}
	sub, err := g.dict.SubtractTuple(g.defaultTuple)
	if err != nil {
		panic(err)
	}

	return mustGroup(NewSDCSingleZero(g.cols, g.numRows, sub, g.offsets))
}

func (g *SDCSingle) MemSize() int64 {
	return 24 + int64(len(g.cols))*8 + g.dict.MemSize() + g.offsets.MemSize() +
		24 + int64(len(g.defaultTuple))*8
}
