package colgroup

import (
	"fmt"

	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/ops"
)

// Empty represents columns that are entirely zero. It carries no per-row
// data at all.
type Empty struct {
	base
}

var _ ColGroup = (*Empty)(nil)

// NewEmpty creates an all-zero group over the given columns.
func NewEmpty(cols []int, numRows int) *Empty {
	return &Empty{base{cols: cols, numRows: numRows}}
}

func (g *Empty) Type() format.CompressionType { return format.TypeEmpty }

func (g *Empty) GetCell(row, col int) float64 { return 0 }

func (g *Empty) RowSums(out []float64, rl, ru int) {}

func (g *Empty) RowAggregate(out []float64, fn ops.Builtin, rl, ru int) {
	for r := rl; r < ru; r++ {
		out[r] = fn(out[r], 0)
	}
}

func (g *Empty) RowProducts(out []float64, rl, ru int) error {
	for r := rl; r < ru; r++ {
		out[r] = 0
	}

	return nil
}

func (g *Empty) ColSums(out []float64)   {}
func (g *Empty) ColSumsSq(out []float64) {}

func (g *Empty) ColProducts(out []float64) {
	if g.numRows == 0 {
		return
	}
	for _, c := range g.cols {
		out[c] = 0
	}
}

func (g *Empty) Sum() float64    { return 0 }
func (g *Empty) SumSq() float64  { return 0 }
func (g *Empty) NonZeros() int64 { return 0 }

func (g *Empty) ContainsValue(pattern float64) bool {
	return pattern == 0 && g.numRows > 0
}

func (g *Empty) ApplyScalar(op ops.ScalarOp) (ColGroup, error) {
	return g.applyZero(op.Apply(0)), nil
}

func (g *Empty) ApplyUnary(fn ops.UnaryFn) (ColGroup, error) {
	return g.applyZero(fn(0)), nil
}

func (g *Empty) BinOpLeft(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	return g.binOp(func(c int) float64 { return fn(v[c], 0) }), nil
}

func (g *Empty) BinOpRight(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	return g.binOp(func(c int) float64 { return fn(0, v[c]) }), nil
}

// applyZero lifts an elementwise op on the implicit zero cells: a non-zero
// result turns the group constant.
func (g *Empty) applyZero(v0 float64) ColGroup {
	if v0 == 0 {
		return g
	}

	tuple := make([]float64, len(g.cols))
	for i := range tuple {
		tuple[i] = v0
	}

	return mustGroup(NewConst(g.cols, g.numRows, tuple))
}

func (g *Empty) binOp(cell func(c int) float64) ColGroup {
	tuple := make([]float64, len(g.cols))
	for i, c := range g.cols {
		tuple[i] = cell(c)
	}
	if allZero(tuple) {
		return g
	}

	return mustGroup(NewConst(g.cols, g.numRows, tuple))
}

func (g *Empty) Replace(pattern, replacement float64) (ColGroup, error) {
	if pattern != 0 || g.numRows == 0 {
		return g, nil
	}

	return g.applyZero(replacement), nil
}

func (g *Empty) RexpandCols(max int, ignore, cast bool) (ColGroup, error) {
	// class value zero is out of range for every row
	if !ignore {
		return nil, fmt.Errorf("colgroup: Empty group over columns %s holds class value 0: %w",
			colsString(g.cols), errs.ErrInvalidClassValue)
	}

	return NewEmpty(seqCols(max), g.numRows), nil
}

func (g *Empty) ExtractCommon(acc []float64) ColGroup { return g }

func (g *Empty) MemSize() int64 {
	return 24 + int64(len(g.cols))*8
}
