// Package dict implements the shared dictionary of distinct value-tuples
// referenced by column-group row mappings.
//
// A Dictionary stores k distinct tuples over c columns as a flat k*c float64
// slice, row-major by tuple. Dictionaries are immutable: every transform
// (scalar, unary, binary, subtract, replace) allocates and returns a new
// Dictionary, so a column group can share its offsets and mapping with a
// transformed copy of itself without aliasing hazards.
package dict

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/arloliu/colpack/endian"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/internal/pool"
	"github.com/arloliu/colpack/ops"
)

// Dictionary is an immutable table of distinct value-tuples.
type Dictionary struct {
	values []float64
	cols   int
}

// New creates a dictionary over the given flat tuple values.
// The slice is retained, not copied; len(values) must be a non-zero multiple
// of cols.
func New(values []float64, cols int) (*Dictionary, error) {
	if cols <= 0 {
		return nil, fmt.Errorf("dict: invalid column count %d", cols)
	}
	if len(values) == 0 {
		return nil, errs.ErrEmptyDictionary
	}
	if len(values)%cols != 0 {
		return nil, fmt.Errorf("dict: %d values is not a multiple of %d columns: %w",
			len(values), cols, errs.ErrTupleLengthMismatch)
	}

	return &Dictionary{values: values, cols: cols}, nil
}

// MustNew is like New but panics on invalid input. Intended for tests and
// literals where the shape is statically known.
func MustNew(values []float64, cols int) *Dictionary {
	d, err := New(values, cols)
	if err != nil {
		panic(err)
	}

	return d
}

// NumTuples returns the number of distinct tuples k.
func (d *Dictionary) NumTuples() int {
	return len(d.values) / d.cols
}

// NumCols returns the number of columns c per tuple.
func (d *Dictionary) NumCols() int {
	return d.cols
}

// Value returns the value at (tuple, col).
func (d *Dictionary) Value(tuple, col int) float64 {
	return d.values[tuple*d.cols+col]
}

// Tuple returns the tuple at index i as a slice view.
// Callers must not modify the returned slice.
func (d *Dictionary) Tuple(i int) []float64 {
	return d.values[i*d.cols : (i+1)*d.cols]
}

// Values returns the flat backing slice. Callers must not modify it.
func (d *Dictionary) Values() []float64 {
	return d.values
}

// Aggregate folds fn over every value in the dictionary starting from init.
func (d *Dictionary) Aggregate(init float64, fn ops.Builtin) float64 {
	ret := init
	for _, v := range d.values {
		ret = fn(ret, v)
	}

	return ret
}

// AggregateWithDefault folds fn over every dictionary value and the default
// tuple contributed from outside.
func (d *Dictionary) AggregateWithDefault(init float64, fn ops.Builtin, def []float64) float64 {
	ret := d.Aggregate(init, fn)
	for _, v := range def {
		ret = fn(ret, v)
	}

	return ret
}

// AggregateCols folds fn per group column into out, indexed by the global
// column positions in colIndexes.
func (d *Dictionary) AggregateCols(out []float64, fn ops.Builtin, colIndexes []int) {
	k := d.NumTuples()
	for i := 0; i < k; i++ {
		for j, c := range colIndexes {
			out[c] = fn(out[c], d.values[i*d.cols+j])
		}
	}
}

// SumAllRows returns the per-tuple row sums, one entry per tuple.
// This is the pre-aggregation half of row-sum computation: aggregate once per
// distinct tuple, then scatter per row.
func (d *Dictionary) SumAllRows() []float64 {
	k := d.NumTuples()
	ret := make([]float64, k)
	for i := 0; i < k; i++ {
		ret[i] = floats.Sum(d.Tuple(i))
	}

	return ret
}

// SumAllRowsWithDefault returns the per-tuple row sums with the default
// tuple's sum appended as the last entry, so that callers can index rows with
// no explicit offset at position k.
func (d *Dictionary) SumAllRowsWithDefault(def []float64) []float64 {
	k := d.NumTuples()
	ret := make([]float64, k+1)
	for i := 0; i < k; i++ {
		ret[i] = floats.Sum(d.Tuple(i))
	}
	ret[k] = floats.Sum(def)

	return ret
}

// SumSqAllRows returns the per-tuple sums of squares, one entry per tuple.
func (d *Dictionary) SumSqAllRows() []float64 {
	k := d.NumTuples()
	ret := make([]float64, k)
	for i := 0; i < k; i++ {
		ret[i] = floats.Dot(d.Tuple(i), d.Tuple(i))
	}

	return ret
}

// SumSqAllRowsWithDefault is SumSqAllRows with the default tuple's sum of
// squares appended as the last entry.
func (d *Dictionary) SumSqAllRowsWithDefault(def []float64) []float64 {
	per := d.SumSqAllRows()

	return append(per, floats.Dot(def, def))
}

// SelectColumns returns a new dictionary keeping only the given local column
// offsets of every tuple, in the given order. Duplicate tuples may result;
// the tuple count is preserved.
func (d *Dictionary) SelectColumns(offsets []int) (*Dictionary, error) {
	for _, o := range offsets {
		if o < 0 || o >= d.cols {
			return nil, fmt.Errorf("dict: column offset %d outside [0, %d): %w", o, d.cols, errs.ErrIndexOutOfRange)
		}
	}
	if len(offsets) == 0 {
		return nil, errs.ErrEmptyDictionary
	}

	k := d.NumTuples()
	nv := make([]float64, 0, k*len(offsets))
	for i := 0; i < k; i++ {
		t := d.Tuple(i)
		for _, o := range offsets {
			nv = append(nv, t[o])
		}
	}

	return &Dictionary{values: nv, cols: len(offsets)}, nil
}

// AggregateRows folds fn across each tuple starting from the tuple's first
// value, one result per tuple. Used to pre-aggregate row min/max.
func (d *Dictionary) AggregateRows(fn ops.Builtin) []float64 {
	k := d.NumTuples()
	ret := make([]float64, k)
	for i := 0; i < k; i++ {
		t := d.Tuple(i)
		acc := t[0]
		for _, v := range t[1:] {
			acc = fn(acc, v)
		}
		ret[i] = acc
	}

	return ret
}

// AggregateRowsWithDefault is AggregateRows with the default tuple's fold
// appended as the last entry.
func (d *Dictionary) AggregateRowsWithDefault(fn ops.Builtin, def []float64) []float64 {
	per := d.AggregateRows(fn)
	acc := def[0]
	for _, v := range def[1:] {
		acc = fn(acc, v)
	}

	return append(per, acc)
}

// ColSums adds counts-weighted per-column sums into out, indexed by the
// global column positions in colIndexes.
func (d *Dictionary) ColSums(out []float64, counts []int, colIndexes []int) {
	for i, cnt := range counts {
		if cnt == 0 {
			continue
		}
		for j, c := range colIndexes {
			out[c] += d.values[i*d.cols+j] * float64(cnt)
		}
	}
}

// ColSumsSq adds counts-weighted per-column sums of squares into out.
func (d *Dictionary) ColSumsSq(out []float64, counts []int, colIndexes []int) {
	for i, cnt := range counts {
		if cnt == 0 {
			continue
		}
		for j, c := range colIndexes {
			v := d.values[i*d.cols+j]
			out[c] += v * v * float64(cnt)
		}
	}
}

// ColProducts multiplies counts-weighted per-column products into out.
func (d *Dictionary) ColProducts(out []float64, counts []int, colIndexes []int) {
	for i, cnt := range counts {
		if cnt == 0 {
			continue
		}
		for j, c := range colIndexes {
			out[c] *= math.Pow(d.values[i*d.cols+j], float64(cnt))
		}
	}
}

// ApplyScalar returns a new dictionary with op applied elementwise.
func (d *Dictionary) ApplyScalar(op ops.ScalarOp) *Dictionary {
	nv := make([]float64, len(d.values))
	for i, v := range d.values {
		nv[i] = op.Apply(v)
	}

	return &Dictionary{values: nv, cols: d.cols}
}

// ApplyUnary returns a new dictionary with fn applied elementwise.
func (d *Dictionary) ApplyUnary(fn ops.UnaryFn) *Dictionary {
	nv := make([]float64, len(d.values))
	for i, v := range d.values {
		nv[i] = fn(v)
	}

	return &Dictionary{values: nv, cols: d.cols}
}

// BinOpLeft returns a new dictionary with fn(v[col], value) applied, where v
// is an external row vector indexed by the global columns in colIndexes.
func (d *Dictionary) BinOpLeft(fn ops.BinaryFn, v []float64, colIndexes []int) *Dictionary {
	nv := make([]float64, len(d.values))
	k := d.NumTuples()
	for i := 0; i < k; i++ {
		for j, c := range colIndexes {
			idx := i*d.cols + j
			nv[idx] = fn(v[c], d.values[idx])
		}
	}

	return &Dictionary{values: nv, cols: d.cols}
}

// BinOpRight returns a new dictionary with fn(value, v[col]) applied.
func (d *Dictionary) BinOpRight(fn ops.BinaryFn, v []float64, colIndexes []int) *Dictionary {
	nv := make([]float64, len(d.values))
	k := d.NumTuples()
	for i := 0; i < k; i++ {
		for j, c := range colIndexes {
			idx := i*d.cols + j
			nv[idx] = fn(d.values[idx], v[c])
		}
	}

	return &Dictionary{values: nv, cols: d.cols}
}

// SubtractTuple returns a new dictionary with tuple subtracted from every
// tuple. Used when a default tuple is absorbed into the dictionary while
// converting a default-bearing scheme into a zero-default one.
func (d *Dictionary) SubtractTuple(tuple []float64) (*Dictionary, error) {
	if len(tuple) != d.cols {
		return nil, fmt.Errorf("dict: subtract tuple of length %d from %d-column dictionary: %w",
			len(tuple), d.cols, errs.ErrTupleLengthMismatch)
	}

	nv := make([]float64, len(d.values))
	for i, v := range d.values {
		nv[i] = v - tuple[i%d.cols]
	}

	return &Dictionary{values: nv, cols: d.cols}, nil
}

// Replace returns a new dictionary with every cell equal to pattern replaced
// by replacement.
func (d *Dictionary) Replace(pattern, replacement float64) *Dictionary {
	nv := make([]float64, len(d.values))
	for i, v := range d.values {
		if v == pattern {
			nv[i] = replacement
		} else {
			nv[i] = v
		}
	}

	return &Dictionary{values: nv, cols: d.cols}
}

// ContainsValue reports whether any cell equals pattern.
func (d *Dictionary) ContainsValue(pattern float64) bool {
	for _, v := range d.values {
		if v == pattern {
			return true
		}
	}

	return false
}

// Sparsity returns the fraction of non-zero cells in the dictionary.
func (d *Dictionary) Sparsity() float64 {
	if len(d.values) == 0 {
		return 0
	}

	nnz := 0
	for _, v := range d.values {
		if v != 0 {
			nnz++
		}
	}

	return float64(nnz) / float64(len(d.values))
}

// NonZerosPerTuple returns the count of non-zero cells in each tuple.
func (d *Dictionary) NonZerosPerTuple() []int {
	k := d.NumTuples()
	ret := make([]int, k)
	for i := 0; i < k; i++ {
		for _, v := range d.Tuple(i) {
			if v != 0 {
				ret[i]++
			}
		}
	}

	return ret
}

// RexpandCols reinterprets a single-column dictionary's values as one-hot
// class indexes and expands each tuple into max output columns. Class c maps
// to column c-1; non-positive and out-of-range classes produce an all-zero
// tuple when ignore is true, otherwise an error. When cast is true values are
// rounded to the nearest integer, otherwise non-integral values are invalid.
func (d *Dictionary) RexpandCols(max int, ignore, cast bool) (*Dictionary, error) {
	if d.cols != 1 {
		return nil, fmt.Errorf("dict: one-hot expansion requires a single column, have %d: %w",
			d.cols, errs.ErrNotSupported)
	}

	k := d.NumTuples()
	nv := make([]float64, k*max)
	for i := 0; i < k; i++ {
		v := d.values[i]
		if cast {
			v = math.Round(v)
		} else if v != math.Floor(v) {
			if ignore {
				continue
			}

			return nil, fmt.Errorf("dict: non-integral class value %v: %w", v, errs.ErrInvalidClassValue)
		}

		class := int(v)
		if class <= 0 || class > max {
			if ignore {
				continue
			}

			return nil, fmt.Errorf("dict: class value %d outside [1, %d]: %w", class, max, errs.ErrInvalidClassValue)
		}
		nv[i*max+class-1] = 1
	}

	return &Dictionary{values: nv, cols: max}, nil
}

// MemSize returns the estimated in-memory size in bytes.
func (d *Dictionary) MemSize() int64 {
	// struct + slice header + backing array
	return 32 + int64(len(d.values))*8
}

// AppendTo serializes the dictionary as a 4-byte tuple count followed by the
// flat tuple values.
func (d *Dictionary) AppendTo(buf *pool.ByteBuffer, engine endian.EndianEngine) {
	buf.Grow(4 + len(d.values)*8)
	buf.B = engine.AppendUint32(buf.B, uint32(d.NumTuples()))
	for _, v := range d.values {
		buf.B = engine.AppendUint64(buf.B, math.Float64bits(v))
	}
}

// Read deserializes a dictionary with the given column count from data,
// returning the dictionary and the number of bytes consumed.
func Read(data []byte, cols int, engine endian.EndianEngine) (*Dictionary, int, error) {
	if len(data) < 4 {
		return nil, 0, errs.ErrTruncatedPayload
	}

	k := int(engine.Uint32(data[:4]))
	n := 4 + k*cols*8
	if len(data) < n {
		return nil, 0, fmt.Errorf("dict: %d tuples over %d columns: %w", k, cols, errs.ErrTruncatedPayload)
	}

	values := make([]float64, k*cols)
	off := 4
	for i := range values {
		values[i] = math.Float64frombits(engine.Uint64(data[off : off+8]))
		off += 8
	}

	d, err := New(values, cols)
	if err != nil {
		return nil, 0, err
	}

	return d, n, nil
}
