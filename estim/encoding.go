// Package estim implements the compressed-size and cardinality estimator
// that prices candidate schemes for a column subset, either exactly or from
// a bias-corrected random sample.
package estim

import (
	"fmt"
	"math"

	"github.com/arloliu/colpack/endian"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/mapping"
	"github.com/arloliu/colpack/matrix"
	"github.com/arloliu/colpack/offset"
)

// Encoding is a per-row encoding of a column subset, the intermediate the
// estimator extracts factors from. Combining two encodings joins their
// per-row tuple classes, so a merged subset is estimated from real row data
// rather than from summary statistics.
type Encoding interface {
	// Unique returns the number of distinct explicit tuples; the implicit
	// zero tuple of sparse encodings is not counted.
	Unique() int
	// Size returns the number of explicit rows.
	Size() int
	// Rows returns the number of encoded rows.
	Rows() int
	// Combine joins this encoding with another over the same rows.
	Combine(other Encoding) (Encoding, error)
	// ExtractFacts derives estimation factors at the encoding's own row
	// scale.
	ExtractFacts(tupleSparsity, overallSparsity float64) Factors
}

// EmptyEncoding represents an all-zero subset.
type EmptyEncoding struct {
	rows int
}

// ConstEncoding represents a subset holding one non-zero tuple in every row.
type ConstEncoding struct {
	rows int
}

// DenseEncoding maps every row to a tuple class.
type DenseEncoding struct {
	data mapping.Mapping
}

// SparseEncoding maps only non-zero rows, identified by offsets, to tuple
// classes.
type SparseEncoding struct {
	off  offset.Offsets
	data mapping.Mapping
	rows int
}

var (
	_ Encoding = (*EmptyEncoding)(nil)
	_ Encoding = (*ConstEncoding)(nil)
	_ Encoding = (*DenseEncoding)(nil)
	_ Encoding = (*SparseEncoding)(nil)
)

func (e *EmptyEncoding) Unique() int { return 1 }
func (e *EmptyEncoding) Size() int   { return 0 }
func (e *EmptyEncoding) Rows() int   { return e.rows }

func (e *EmptyEncoding) Combine(other Encoding) (Encoding, error) { return other, nil }

func (e *EmptyEncoding) ExtractFacts(tupleSparsity, overallSparsity float64) Factors {
	return Factors{
		Rows:            e.rows,
		Distinct:        1,
		Largest:         e.rows,
		OverallSparsity: overallSparsity,
	}
}

func (e *ConstEncoding) Unique() int { return 1 }
func (e *ConstEncoding) Size() int   { return e.rows }
func (e *ConstEncoding) Rows() int   { return e.rows }

// Combine returns the other encoding unchanged: a constant subset multiplies
// the joint tuple space by one.
func (e *ConstEncoding) Combine(other Encoding) (Encoding, error) { return other, nil }

func (e *ConstEncoding) ExtractFacts(tupleSparsity, overallSparsity float64) Factors {
	return Factors{
		Rows:            e.rows,
		Distinct:        1,
		Offs:            e.rows,
		Largest:         e.rows,
		Frequencies:     []int{e.rows},
		OverallSparsity: overallSparsity,
		TupleSparsity:   tupleSparsity,
	}
}

func (e *DenseEncoding) Unique() int { return e.data.Unique() }
func (e *DenseEncoding) Size() int   { return e.data.Size() }
func (e *DenseEncoding) Rows() int   { return e.data.Size() }

func (e *DenseEncoding) Combine(other Encoding) (Encoding, error) {
	switch o := other.(type) {
	case *EmptyEncoding, *ConstEncoding:
		return e, nil
	case *DenseEncoding:
		return combineClasses(classesOfDense(e), classesOfDense(o), e.Rows(), false)
	case *SparseEncoding:
		return combineClasses(classesOfDense(e), classesOfSparse(o), e.Rows(), false)
	default:
		return nil, fmt.Errorf("estim: combine with unknown encoding %T: %w", other, errs.ErrNotSupported)
	}
}

func (e *DenseEncoding) ExtractFacts(tupleSparsity, overallSparsity float64) Factors {
	counts := e.data.Counts()

	return factorsFromCounts(e.Rows(), e.Rows(), counts, tupleSparsity, overallSparsity)
}

func (e *SparseEncoding) Unique() int { return e.data.Unique() }
func (e *SparseEncoding) Size() int   { return e.off.Count() }
func (e *SparseEncoding) Rows() int   { return e.rows }

func (e *SparseEncoding) Combine(other Encoding) (Encoding, error) {
	switch o := other.(type) {
	case *EmptyEncoding, *ConstEncoding:
		return e, nil
	case *DenseEncoding:
		return combineClasses(classesOfSparse(e), classesOfDense(o), e.rows, false)
	case *SparseEncoding:
		return combineClasses(classesOfSparse(e), classesOfSparse(o), e.rows, true)
	default:
		return nil, fmt.Errorf("estim: combine with unknown encoding %T: %w", other, errs.ErrNotSupported)
	}
}

func (e *SparseEncoding) ExtractFacts(tupleSparsity, overallSparsity float64) Factors {
	counts := e.data.Counts()
	f := factorsFromCounts(e.rows, e.off.Count(), counts, tupleSparsity, overallSparsity)
	// the implicit zero tuple may outnumber every explicit tuple
	if zeros := e.rows - e.off.Count(); zeros > f.Largest {
		f.Largest = zeros
	}

	return f
}

func factorsFromCounts(rows, offs int, counts []int, tupleSparsity, overallSparsity float64) Factors {
	largest := 0
	single := 0
	for _, c := range counts {
		if c > largest {
			largest = c
		}
		if c == 1 {
			single++
		}
	}

	return Factors{
		Rows:            rows,
		Distinct:        len(counts),
		Offs:            offs,
		Largest:         largest,
		Frequencies:     counts,
		NumSingle:       single,
		OverallSparsity: overallSparsity,
		TupleSparsity:   tupleSparsity,
	}
}

// classesOfDense returns the per-row tuple class, 1-based so that class zero
// stays reserved for implicit zeros.
func classesOfDense(e *DenseEncoding) []int {
	out := make([]int, e.Rows())
	for r := range out {
		out[r] = e.data.Index(r) + 1
	}

	return out
}

func classesOfSparse(e *SparseEncoding) []int {
	out := make([]int, e.rows)
	it := e.off.Iterator()
	for i := 0; i < e.off.Count(); i++ {
		out[it.Value()] = e.data.Index(i) + 1
		if i < e.off.Count()-1 {
			it.Next()
		}
	}

	return out
}

// combineClasses renumbers the joint (a, b) class pairs. With sparseZero
// set, rows where both sides are implicitly zero stay implicit and the
// result is sparse; otherwise the joint encoding is dense.
func combineClasses(a, b []int, rows int, sparseZero bool) (Encoding, error) {
	renumber := make(map[int]int)
	classes := make([]int, rows)
	width := 0
	for _, v := range b {
		if v > width {
			width = v
		}
	}
	width++

	next := 1
	for r := 0; r < rows; r++ {
		if sparseZero && a[r] == 0 && b[r] == 0 {
			continue
		}
		key := a[r]*width + b[r]
		cls, ok := renumber[key]
		if !ok {
			cls = next
			renumber[key] = cls
			next++
		}
		classes[r] = cls
	}

	if !sparseZero {
		values := make([]int, rows)
		for r, c := range classes {
			values[r] = c - 1
		}
		m, err := mapping.Create(values, next-1)
		if err != nil {
			return nil, err
		}

		return &DenseEncoding{data: m}, nil
	}

	indexes := make([]int, 0, rows)
	values := make([]int, 0, rows)
	for r, c := range classes {
		if c == 0 {
			continue
		}
		indexes = append(indexes, r)
		values = append(values, c-1)
	}
	if len(indexes) == 0 {
		return &EmptyEncoding{rows: rows}, nil
	}

	off, err := offset.Encode(indexes)
	if err != nil {
		return nil, err
	}
	m, err := mapping.Create(values, next-1)
	if err != nil {
		return nil, err
	}

	return &SparseEncoding{off: off, data: m, rows: rows}, nil
}

// tupleScan is the shared row-tuple extraction behind the encoding
// factories.
type tupleScan struct {
	classes   []int // per scanned row, tuple class in first-appearance order
	unique    int
	zeroClass int // class of the all-zero tuple, or -1
	nnzCells  int // non-zero cells across scanned rows
	tupleNnz  int // non-zero cells across distinct tuples
}

func scanTuples(blk matrix.Block, cols []int, rowAt func(i int) int, n int) *tupleScan {
	engine := endian.GetLittleEndianEngine()
	sc := &tupleScan{classes: make([]int, n), zeroClass: -1}

	// keyed by the full value bytes so equal hashes of distinct tuples can
	// never merge classes
	seen := make(map[string]int)
	key := make([]byte, 0, len(cols)*8)
	for i := 0; i < n; i++ {
		r := rowAt(i)
		key = key[:0]
		nnz := 0
		for _, c := range cols {
			v := blk.Get(r, c)
			if v != 0 {
				nnz++
			}
			key = engine.AppendUint64(key, math.Float64bits(v))
		}
		sc.nnzCells += nnz

		cls, ok := seen[string(key)]
		if !ok {
			cls = sc.unique
			seen[string(key)] = cls
			sc.unique++
			sc.tupleNnz += nnz
			if nnz == 0 {
				sc.zeroClass = cls
			}
		}
		sc.classes[i] = cls
	}

	return sc
}

// Stats carries the sparsity observations gathered while encoding.
type Stats struct {
	// OverallSparsity is the non-zero fraction of the scanned cells.
	OverallSparsity float64
	// TupleSparsity is the non-zero fraction across the distinct tuples.
	TupleSparsity float64
}

func (sc *tupleScan) stats(cols int) Stats {
	var st Stats
	if len(sc.classes) > 0 && cols > 0 {
		st.OverallSparsity = float64(sc.nnzCells) / float64(len(sc.classes)) / float64(cols)
	}
	if sc.unique > 0 && cols > 0 {
		st.TupleSparsity = float64(sc.tupleNnz) / float64(sc.unique) / float64(cols)
	}

	return st
}

// build turns the scan into the narrowest encoding: Empty for all-zero
// subsets, Const for a single repeated non-zero tuple, Sparse when a zero
// tuple exists, Dense otherwise.
func (sc *tupleScan) build() (Encoding, error) {
	n := len(sc.classes)
	if n == 0 {
		return &EmptyEncoding{rows: 0}, nil
	}
	if sc.unique == 1 {
		if sc.zeroClass == 0 {
			return &EmptyEncoding{rows: n}, nil
		}

		return &ConstEncoding{rows: n}, nil
	}

	if sc.zeroClass < 0 {
		m, err := mapping.Create(sc.classes, sc.unique)
		if err != nil {
			return nil, err
		}

		return &DenseEncoding{data: m}, nil
	}

	// renumber around the zero class
	indexes := make([]int, 0, n)
	values := make([]int, 0, n)
	for i, cls := range sc.classes {
		if cls == sc.zeroClass {
			continue
		}
		if cls > sc.zeroClass {
			cls--
		}
		indexes = append(indexes, i)
		values = append(values, cls)
	}

	off, err := offset.Encode(indexes)
	if err != nil {
		return nil, err
	}
	m, err := mapping.Create(values, sc.unique-1)
	if err != nil {
		return nil, err
	}

	return &SparseEncoding{off: off, data: m, rows: n}, nil
}

// CreateFromBlock encodes every row of the column subset.
func CreateFromBlock(blk matrix.Block, cols []int) (Encoding, Stats, error) {
	sc := scanTuples(blk, cols, func(i int) int { return i }, blk.NumRows())
	enc, err := sc.build()

	return enc, sc.stats(len(cols)), err
}

// CreateFromRows encodes the given sample rows of the column subset, treated
// as a contiguous virtual block.
func CreateFromRows(blk matrix.Block, cols []int, rows []int) (Encoding, Stats, error) {
	sc := scanTuples(blk, cols, func(i int) int { return rows[i] }, len(rows))
	enc, err := sc.build()

	return enc, sc.stats(len(cols)), err
}

// CreateFromBlockDelta encodes adjacent-row deltas over the contiguous
// prefix [0, n). Delta-oriented schemes need faithful adjacent rows, so this
// never samples randomly.
func CreateFromBlockDelta(blk matrix.Block, cols []int, n int) (Encoding, Stats, error) {
	if n > blk.NumRows() {
		n = blk.NumRows()
	}

	engine := endian.GetLittleEndianEngine()
	sc := &tupleScan{classes: make([]int, n), zeroClass: -1}

	seen := make(map[string]int)
	key := make([]byte, 0, len(cols)*8)
	prev := make([]float64, len(cols))
	cur := make([]float64, len(cols))
	for r := 0; r < n; r++ {
		key = key[:0]
		nnz := 0
		for j, c := range cols {
			cur[j] = blk.Get(r, c)
			d := cur[j]
			if r > 0 {
				d -= prev[j]
			}
			if d != 0 {
				nnz++
			}
			key = engine.AppendUint64(key, math.Float64bits(d))
		}
		prev, cur = cur, prev
		sc.nnzCells += nnz

		cls, ok := seen[string(key)]
		if !ok {
			cls = sc.unique
			seen[string(key)] = cls
			sc.unique++
			sc.tupleNnz += nnz
			if nnz == 0 {
				sc.zeroClass = cls
			}
		}
		sc.classes[r] = cls
	}

	enc, err := sc.build()

	return enc, sc.stats(len(cols)), err
}
