// Package matrix defines the matrix-block contract consumed by the
// compression engine.
//
// A Block is a dense or sparse 2-D float64 array with known row/column
// counts, a non-zero count and a sparsity. The engine never mutates a Block;
// all compression and estimation paths read it through this interface.
//
// Two implementations are provided: Dense (row-major flat slice) and CSR
// (compressed sparse row). Transposed (column-major) inputs are handled by
// wrapping a Block in a transposed view rather than by reordering data.
package matrix

// Block is an immutable n-row by m-column numeric matrix.
type Block interface {
	// NumRows returns the number of rows.
	NumRows() int
	// NumCols returns the number of columns.
	NumCols() int
	// NonZeros returns the number of non-zero cells.
	NonZeros() int64
	// Sparsity returns NonZeros / (NumRows*NumCols), in [0, 1].
	Sparsity() float64
	// Get returns the value at (row, col).
	Get(row, col int) float64
	// IsSparse reports whether the block is stored in a sparse layout.
	IsSparse() bool
}

// Dense is a row-major dense matrix block.
type Dense struct {
	values []float64
	rows   int
	cols   int
	nnz    int64
}

var _ Block = (*Dense)(nil)

// NewDense creates a dense block over the given row-major values.
// The slice is retained, not copied; len(values) must equal rows*cols.
func NewDense(rows, cols int, values []float64) *Dense {
	if len(values) != rows*cols {
		panic("matrix: dense value count does not match dimensions")
	}

	var nnz int64
	for _, v := range values {
		if v != 0 {
			nnz++
		}
	}

	return &Dense{values: values, rows: rows, cols: cols, nnz: nnz}
}

func (d *Dense) NumRows() int    { return d.rows }
func (d *Dense) NumCols() int    { return d.cols }
func (d *Dense) NonZeros() int64 { return d.nnz }
func (d *Dense) IsSparse() bool  { return false }

func (d *Dense) Sparsity() float64 {
	if d.rows == 0 || d.cols == 0 {
		return 0
	}

	return float64(d.nnz) / float64(d.rows) / float64(d.cols)
}

func (d *Dense) Get(row, col int) float64 {
	return d.values[row*d.cols+col]
}

// Row returns the row-major slice backing row r. Callers must not modify it.
func (d *Dense) Row(r int) []float64 {
	return d.values[r*d.cols : (r+1)*d.cols]
}

// CSR is a compressed-sparse-row matrix block.
type CSR struct {
	rowPtr []int32
	colIdx []int32
	values []float64
	rows   int
	cols   int
}

var _ Block = (*CSR)(nil)

// NewCSR creates a sparse block from CSR arrays. rowPtr has length rows+1;
// column indexes within each row must be strictly increasing. The slices are
// retained, not copied.
func NewCSR(rows, cols int, rowPtr, colIdx []int32, values []float64) *CSR {
	if len(rowPtr) != rows+1 {
		panic("matrix: rowPtr length does not match row count")
	}
	if len(colIdx) != len(values) {
		panic("matrix: colIdx and values length mismatch")
	}

	return &CSR{rowPtr: rowPtr, colIdx: colIdx, values: values, rows: rows, cols: cols}
}

func (c *CSR) NumRows() int    { return c.rows }
func (c *CSR) NumCols() int    { return c.cols }
func (c *CSR) NonZeros() int64 { return int64(len(c.values)) }
func (c *CSR) IsSparse() bool  { return true }

func (c *CSR) Sparsity() float64 {
	if c.rows == 0 || c.cols == 0 {
		return 0
	}

	return float64(len(c.values)) / float64(c.rows) / float64(c.cols)
}

func (c *CSR) Get(row, col int) float64 {
	lo := int(c.rowPtr[row])
	hi := int(c.rowPtr[row+1])
	// binary search within the row
	for lo < hi {
		mid := (lo + hi) / 2
		switch mc := int(c.colIdx[mid]); {
		case mc == col:
			return c.values[mid]
		case mc < col:
			lo = mid + 1
		default:
			hi = mid
		}
	}

	return 0
}

// RowRange returns the column indexes and values of row r.
// Callers must not modify the returned slices.
func (c *CSR) RowRange(r int) ([]int32, []float64) {
	lo := int(c.rowPtr[r])
	hi := int(c.rowPtr[r+1])

	return c.colIdx[lo:hi], c.values[lo:hi]
}

// Transposed is a column-major view over another block: Get(r, c) reads
// (c, r) of the underlying block. It is used when the input matrix is stored
// transposed, avoiding any data movement.
type Transposed struct {
	inner Block
}

var _ Block = (*Transposed)(nil)

// NewTransposed wraps blk in a transposed view.
func NewTransposed(blk Block) *Transposed {
	return &Transposed{inner: blk}
}

func (t *Transposed) NumRows() int             { return t.inner.NumCols() }
func (t *Transposed) NumCols() int             { return t.inner.NumRows() }
func (t *Transposed) NonZeros() int64          { return t.inner.NonZeros() }
func (t *Transposed) Sparsity() float64        { return t.inner.Sparsity() }
func (t *Transposed) IsSparse() bool           { return t.inner.IsSparse() }
func (t *Transposed) Get(row, col int) float64 { return t.inner.Get(col, row) }
