package colgroup

import (
	"fmt"
	"math"

	"github.com/arloliu/colpack/dict"
	"github.com/arloliu/colpack/endian"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/mapping"
	"github.com/arloliu/colpack/matrix"
	"github.com/arloliu/colpack/offset"
)

// Encode compresses the given columns of blk under the requested scheme.
//
// The caller (the scheme-selection planner) decides which scheme to request;
// Encode only builds it. Degenerate inputs collapse to the cheaper variant
// regardless of the request: an all-zero subset always yields Empty, a
// single-tuple subset requested as SDC yields Const, and the SDC family
// collapses per the zero-default and single-tuple rules.
func Encode(blk matrix.Block, cols []int, ctype format.CompressionType) (ColGroup, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("colgroup: encode with no columns: %w", errs.ErrEmptyOffsets)
	}
	for i, c := range cols {
		if c < 0 || c >= blk.NumCols() {
			return nil, fmt.Errorf("colgroup: column %d outside [0, %d): %w", c, blk.NumCols(), errs.ErrIndexOutOfRange)
		}
		if i > 0 && c <= cols[i-1] {
			return nil, fmt.Errorf("colgroup: column indexes %s not strictly increasing: %w",
				colsString(cols), errs.ErrNotIncreasing)
		}
	}

	sc := scanRows(blk, cols)
	if sc.allZero() {
		return NewEmpty(cols, blk.NumRows()), nil
	}

	switch ctype {
	case format.TypeEmpty:
		return nil, fmt.Errorf("colgroup: Empty scheme on non-zero columns %s: %w",
			colsString(cols), errs.ErrNotSupported)
	case format.TypeConst:
		if len(sc.tuples) != 1 {
			return nil, fmt.Errorf("colgroup: Const scheme on columns %s with %d distinct tuples: %w",
				colsString(cols), len(sc.tuples), errs.ErrNotSupported)
		}

		return NewConst(cols, blk.NumRows(), sc.tuples[0])
	case format.TypeUncompressed:
		return encodeUncompressed(blk, cols)
	case format.TypeDDC:
		return encodeDDC(cols, blk.NumRows(), sc)
	case format.TypeSDC, format.TypeSDCSingle:
		return encodeSDC(cols, blk.NumRows(), sc, sc.mostFrequent())
	case format.TypeSDCZero, format.TypeSDCSingleZero:
		return encodeSDC(cols, blk.NumRows(), sc, sc.zeroIdx)
	case format.TypeRLE:
		return encodeRLE(cols, blk.NumRows(), sc)
	case format.TypeOLE:
		return encodeOLE(cols, blk.NumRows(), sc)
	default:
		return nil, fmt.Errorf("colgroup: scheme tag 0x%x: %w", uint8(ctype), errs.ErrInvalidTypeTag)
	}
}

// rowScan is the per-row tuple extraction shared by every scheme builder.
type rowScan struct {
	tuples   [][]float64 // distinct tuples in first-appearance order
	rowTuple []int       // tuple index per row
	counts   []int       // occurrences per tuple
	zeroIdx  int         // index of the all-zero tuple, or -1
}

func scanRows(blk matrix.Block, cols []int) *rowScan {
	engine := endian.GetLittleEndianEngine()
	rows := blk.NumRows()
	sc := &rowScan{rowTuple: make([]int, rows), zeroIdx: -1}

	seen := make(map[string]int)
	key := make([]byte, 0, len(cols)*8)
	tuple := make([]float64, len(cols))
	for r := 0; r < rows; r++ {
		key = key[:0]
		for i, c := range cols {
			tuple[i] = blk.Get(r, c)
			key = engine.AppendUint64(key, math.Float64bits(tuple[i]))
		}

		idx, ok := seen[string(key)]
		if !ok {
			idx = len(sc.tuples)
			seen[string(key)] = idx
			sc.tuples = append(sc.tuples, append([]float64(nil), tuple...))
			sc.counts = append(sc.counts, 0)
			if allZero(tuple) {
				sc.zeroIdx = idx
			}
		}
		sc.rowTuple[r] = idx
		sc.counts[idx]++
	}

	return sc
}

func (sc *rowScan) allZero() bool {
	return len(sc.tuples) == 1 && sc.zeroIdx == 0
}

func (sc *rowScan) mostFrequent() int {
	best := 0
	for i, c := range sc.counts {
		if c > sc.counts[best] {
			best = i
		}
	}

	return best
}

// dictOf flattens the distinct tuples, skipping the tuple index in skip
// (pass -1 to keep all). remap translates scan tuple indexes to dictionary
// indexes, -1 for the skipped tuple.
func (sc *rowScan) dictOf(cols int, skip int) (*dict.Dictionary, []int, error) {
	flat := make([]float64, 0, len(sc.tuples)*cols)
	remap := make([]int, len(sc.tuples))
	next := 0
	for i, t := range sc.tuples {
		if i == skip {
			remap[i] = -1
			continue
		}
		remap[i] = next
		next++
		flat = append(flat, t...)
	}

	d, err := dict.New(flat, cols)
	if err != nil {
		return nil, nil, err
	}

	return d, remap, nil
}

func encodeUncompressed(blk matrix.Block, cols []int) (ColGroup, error) {
	rows := blk.NumRows()
	data := make([]float64, rows*len(cols))
	for r := 0; r < rows; r++ {
		for i, c := range cols {
			data[r*len(cols)+i] = blk.Get(r, c)
		}
	}

	return NewUncompressed(cols, rows, data)
}

func encodeDDC(cols []int, numRows int, sc *rowScan) (ColGroup, error) {
	d, _, err := sc.dictOf(len(cols), -1)
	if err != nil {
		return nil, err
	}
	m, err := mapping.Create(sc.rowTuple, len(sc.tuples))
	if err != nil {
		return nil, err
	}

	return NewDDC(cols, numRows, d, m)
}

// encodeSDC builds the SDC family with the tuple at defIdx as the default.
// A defIdx of -1 (no zero tuple when a zero default was requested) makes
// every row explicit.
func encodeSDC(cols []int, numRows int, sc *rowScan, defIdx int) (ColGroup, error) {
	if defIdx >= 0 && sc.counts[defIdx] == numRows {
		// every row holds the default tuple
		return NewConst(cols, numRows, sc.tuples[defIdx])
	}

	d, remap, err := sc.dictOf(len(cols), defIdx)
	if err != nil {
		return nil, err
	}

	indexes := make([]int, 0, numRows)
	mapped := make([]int, 0, numRows)
	for r, t := range sc.rowTuple {
		if t == defIdx {
			continue
		}
		indexes = append(indexes, r)
		mapped = append(mapped, remap[t])
	}

	off, err := offset.Encode(indexes)
	if err != nil {
		return nil, err
	}
	m, err := mapping.Create(mapped, d.NumTuples())
	if err != nil {
		return nil, err
	}

	var def []float64
	if defIdx >= 0 {
		def = sc.tuples[defIdx]
	}

	return newSDCAny(cols, numRows, d, off, m, def)
}

func encodeRLE(cols []int, numRows int, sc *rowScan) (ColGroup, error) {
	d, remap, err := sc.dictOf(len(cols), sc.zeroIdx)
	if err != nil {
		return nil, err
	}

	k := d.NumTuples()
	starts := make([][]uint32, k)
	for r := 0; r < numRows; r++ {
		t := remap[sc.rowTuple[r]]
		if t < 0 {
			continue
		}
		runs := starts[t]
		if n := len(runs); n > 0 && int(runs[n-2])+int(runs[n-1]) == r {
			runs[n-1]++
		} else {
			runs = append(runs, uint32(r), 1)
		}
		starts[t] = runs
	}

	ptr := make([]int32, k+1)
	var flat []uint32
	for i, runs := range starts {
		ptr[i+1] = ptr[i] + int32(len(runs)/2)
		flat = append(flat, runs...)
	}

	return NewRLE(cols, numRows, d, ptr, flat)
}

func encodeOLE(cols []int, numRows int, sc *rowScan) (ColGroup, error) {
	d, remap, err := sc.dictOf(len(cols), sc.zeroIdx)
	if err != nil {
		return nil, err
	}

	k := d.NumTuples()
	perTuple := make([][]int, k)
	for r := 0; r < numRows; r++ {
		if t := remap[sc.rowTuple[r]]; t >= 0 {
			perTuple[t] = append(perTuple[t], r)
		}
	}

	lists := make([]offset.Offsets, k)
	for i, rows := range perTuple {
		off, err := offset.Encode(rows)
		if err != nil {
			return nil, err
		}
		lists[i] = off
	}

	return NewOLE(cols, numRows, d, lists)
}
