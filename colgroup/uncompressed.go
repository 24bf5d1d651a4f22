package colgroup

import (
	"fmt"
	"math"

	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/ops"
)

// Uncompressed stores a raw row-major sub-block of the input, the fallback
// for column subsets where dictionary encoding yields no gain.
type Uncompressed struct {
	base
	data []float64 // numRows * len(cols), row-major
}

var _ ColGroup = (*Uncompressed)(nil)

// NewUncompressed creates a raw group over the given row-major sub-block.
// The slice is retained, not copied.
func NewUncompressed(cols []int, numRows int, data []float64) (*Uncompressed, error) {
	if len(data) != numRows*len(cols) {
		return nil, fmt.Errorf("colgroup: Uncompressed over columns %s with %d values for %d rows: %w",
			colsString(cols), len(data), numRows, errs.ErrTupleLengthMismatch)
	}

	return &Uncompressed{base: base{cols: cols, numRows: numRows}, data: data}, nil
}

func (g *Uncompressed) Type() format.CompressionType { return format.TypeUncompressed }

func (g *Uncompressed) row(r int) []float64 {
	c := len(g.cols)

	return g.data[r*c : (r+1)*c]
}

func (g *Uncompressed) GetCell(row, col int) float64 {
	return g.data[row*len(g.cols)+col]
}

func (g *Uncompressed) RowSums(out []float64, rl, ru int) {
	for r := rl; r < ru; r++ {
		for _, v := range g.row(r) {
			out[r] += v
		}
	}
}

func (g *Uncompressed) RowAggregate(out []float64, fn ops.Builtin, rl, ru int) {
	for r := rl; r < ru; r++ {
		row := g.row(r)
		acc := row[0]
		for _, v := range row[1:] {
			acc = fn(acc, v)
		}
		out[r] = fn(out[r], acc)
	}
}

func (g *Uncompressed) RowProducts(out []float64, rl, ru int) error {
	for r := rl; r < ru; r++ {
		for _, v := range g.row(r) {
			out[r] *= v
		}
	}

	return nil
}

func (g *Uncompressed) ColSums(out []float64) {
	for r := 0; r < g.numRows; r++ {
		for i, c := range g.cols {
			out[c] += g.GetCell(r, i)
		}
	}
}

func (g *Uncompressed) ColSumsSq(out []float64) {
	for r := 0; r < g.numRows; r++ {
		for i, c := range g.cols {
			v := g.GetCell(r, i)
			out[c] += v * v
		}
	}
}

func (g *Uncompressed) ColProducts(out []float64) {
	for r := 0; r < g.numRows; r++ {
		for i, c := range g.cols {
			out[c] *= g.GetCell(r, i)
		}
	}
}

func (g *Uncompressed) Sum() float64 {
	s := 0.0
	for _, v := range g.data {
		s += v
	}

	return s
}

func (g *Uncompressed) SumSq() float64 {
	s := 0.0
	for _, v := range g.data {
		s += v * v
	}

	return s
}

func (g *Uncompressed) NonZeros() int64 {
	return int64(nonZeros(g.data))
}

func (g *Uncompressed) ContainsValue(pattern float64) bool {
	return containsVal(g.data, pattern)
}

func (g *Uncompressed) ApplyScalar(op ops.ScalarOp) (ColGroup, error) {
	return g.withData(mapTuple(g.data, op.Apply)), nil
}

func (g *Uncompressed) ApplyUnary(fn ops.UnaryFn) (ColGroup, error) {
	return g.withData(mapTuple(g.data, fn)), nil
}

func (g *Uncompressed) BinOpLeft(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	nd := make([]float64, len(g.data))
	for r := 0; r < g.numRows; r++ {
		for i, c := range g.cols {
			idx := r*len(g.cols) + i
			nd[idx] = fn(v[c], g.data[idx])
		}
	}

	return g.withData(nd), nil
}

func (g *Uncompressed) BinOpRight(fn ops.BinaryFn, v []float64) (ColGroup, error) {
	nd := make([]float64, len(g.data))
	for r := 0; r < g.numRows; r++ {
		for i, c := range g.cols {
			idx := r*len(g.cols) + i
			nd[idx] = fn(g.data[idx], v[c])
		}
	}

	return g.withData(nd), nil
}

func (g *Uncompressed) withData(data []float64) ColGroup {
	return mustGroup(NewUncompressed(g.cols, g.numRows, data))
}

func (g *Uncompressed) Replace(pattern, replacement float64) (ColGroup, error) {
	if !containsVal(g.data, pattern) {
		return g, nil
	}

	nd := make([]float64, len(g.data))
	for i, v := range g.data {
		if v == pattern {
			nd[i] = replacement
		} else {
			nd[i] = v
		}
	}

	return g.withData(nd), nil
}

func (g *Uncompressed) RexpandCols(max int, ignore, cast bool) (ColGroup, error) {
	if len(g.cols) != 1 {
		return nil, fmt.Errorf("colgroup: one-hot expansion of %d-column Uncompressed group: %w",
			len(g.cols), errs.ErrNotSupported)
	}

	nd := make([]float64, g.numRows*max)
	for r := 0; r < g.numRows; r++ {
		v := g.data[r]
		if cast {
			v = math.Round(v)
		} else if v != math.Floor(v) {
			if ignore {
				continue
			}

			return nil, fmt.Errorf("colgroup: non-integral class value %v at row %d: %w",
				v, r, errs.ErrInvalidClassValue)
		}

		class := int(v)
		if class <= 0 || class > max {
			if ignore {
				continue
			}

			return nil, fmt.Errorf("colgroup: class value %d at row %d outside [1, %d]: %w",
				class, r, max, errs.ErrInvalidClassValue)
		}
		nd[r*max+class-1] = 1
	}

	return NewUncompressed(seqCols(max), g.numRows, nd)
}

func (g *Uncompressed) ExtractCommon(acc []float64) ColGroup { return g }

func (g *Uncompressed) MemSize() int64 {
	return 24 + int64(len(g.cols))*8 + 24 + int64(len(g.data))*8
}
