package colgroup

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/arloliu/colpack/dict"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/ops"
)

// Const represents columns holding one constant tuple in every row. The
// tuple is stored as a single-entry dictionary so serialization shares the
// dictionary layout of the other variants.
type Const struct {
	base
	dict *dict.Dictionary
}

var _ ColGroup = (*Const)(nil)

// NewConst creates a constant group holding tuple in every row.
func NewConst(cols []int, numRows int, tuple []float64) (*Const, error) {
	if len(tuple) != len(cols) {
		return nil, fmt.Errorf("colgroup: Const over columns %s with tuple of length %d: %w",
			colsString(cols), len(tuple), errs.ErrTupleLengthMismatch)
	}

	d, err := dict.New(tuple, len(cols))
	if err != nil {
		return nil, err
	}

	return &Const{base: base{cols: cols, numRows: numRows}, dict: d}, nil
}

func (g *Const) Type() format.CompressionType { return format.TypeConst }

// Tuple returns the constant tuple. Callers must not modify it.
func (g *Const) Tuple() []float64 { return g.dict.Tuple(0) }

func (g *Const) GetCell(row, col int) float64 {
	return g.dict.Value(0, col)
}

func (g *Const) RowSums(out []float64, rl, ru int) {
	s := floats.Sum(g.Tuple())
	for r := rl; r < ru; r++ {
		out[r] += s
	}
}

func (g *Const) RowAggregate(out []float64, fn ops.Builtin, rl, ru int) {
	agg := g.dict.AggregateRows(fn)[0]
	for r := rl; r < ru; r++ {
		out[r] = fn(out[r], agg)
	}
}

func (g *Const) RowProducts(out []float64, rl, ru int) error {
	p := 1.0
	for _, v := range g.Tuple() {
		p *= v
	}
	for r := rl; r < ru; r++ {
		out[r] *= p
	}

	return nil
}

func (g *Const) ColSums(out []float64) {
	for i, c := range g.cols {
		out[c] += g.dict.Value(0, i) * float64(g.numRows)
	}
}

func (g *Const) ColSumsSq(out []float64) {
	for i, c := range g.cols {
		v := g.dict.Value(0, i)
		out[c] += v * v * float64(g.numRows)
	}
}

func (g *Const) ColProducts(out []float64) {
	for i, c := range g.cols {
		out[c] *= math.Pow(g.dict.Value(0, i), float64(g.numRows))
	}
}

func (g *Const) Sum() float64 {
	return floats.Sum(g.Tuple()) * float64(g.numRows)
}

func (g *Const) SumSq() float64 {
	t := g.Tuple()

	return floats.Dot(t, t) * float64(g.numRows)
}

func (g *Const) NonZeros() int64 {
	return int64(nonZeros(g.Tuple())) * int64(g.numRows)
}

func (g *Const) ContainsValue(pattern float64) bool {
	return g.numRows > 0 && containsVal(g.Tuple(), pattern)
}

func (g *Const) ApplyScalar(op ops.ScalarOp) (ColGroup, error) {
	return g.withTuple(mapTuple(g.Tuple(), op.Apply)), nil
}

func (g *Const) ApplyUnary(fn ops.UnaryFn) (ColGroup, error) {
	return g.withTuple(mapTuple(g.Tuple(), fn)), nil
}

func (g *Const) BinOpLeft(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	nt := make([]float64, len(g.cols))
	for i, c := range g.cols {
		nt[i] = fn(v[c], g.dict.Value(0, i))
	}

	return g.withTuple(nt), nil
}

func (g *Const) BinOpRight(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	nt := make([]float64, len(g.cols))
	for i, c := range g.cols {
		nt[i] = fn(g.dict.Value(0, i), v[c])
	}

	return g.withTuple(nt), nil
}

// withTuple collapses an all-zero result tuple into an Empty group.
func (g *Const) withTuple(tuple []float64) ColGroup {
	if allZero(tuple) {
		return NewEmpty(g.cols, g.numRows)
	}

	return mustGroup(NewConst(g.cols, g.numRows, tuple))
}

func (g *Const) Replace(pattern, replacement float64) (ColGroup, error) {
	if !containsVal(g.Tuple(), pattern) {
		return g, nil
	}

	return g.withTuple(g.dict.Replace(pattern, replacement).Values()), nil
}

func (g *Const) RexpandCols(max int, ignore, cast bool) (ColGroup, error) {
	nd, err := g.dict.RexpandCols(max, ignore, cast)
	if err != nil {
		return nil, err
	}

	tuple := nd.Values()
	if allZero(tuple) {
		return NewEmpty(seqCols(max), g.numRows), nil
	}

	return NewConst(seqCols(max), g.numRows, tuple)
}

func (g *Const) ExtractCommon(acc []float64) ColGroup {
	for i, c := range g.cols {
		acc[c] += g.dict.Value(0, i)
	}

	return NewEmpty(g.cols, g.numRows)
}

func (g *Const) MemSize() int64 {
	return 24 + int64(len(g.cols))*8 + g.dict.MemSize()
}
