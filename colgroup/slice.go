package colgroup

import (
	"fmt"

	"github.com/arloliu/colpack/errs"
)

// Slice returns a narrower group covering only the columns of g whose global
// index falls in [lo, hi), with the surviving indexes shifted down by lo.
// Offset and mapping structures are shared with g; only the dictionary and
// default tuple are projected. Returns nil without error when no column of g
// falls in the range.
func Slice(g ColGroup, lo, hi int) (ColGroup, error) {
	if lo < 0 || hi <= lo {
		return nil, fmt.Errorf("colgroup: slice range [%d, %d): %w", lo, hi, errs.ErrIndexOutOfRange)
	}

	var sel []int     // local offsets of surviving columns
	var newCols []int // shifted global indexes
	for i, c := range g.Columns() {
		if c >= lo && c < hi {
			sel = append(sel, i)
			newCols = append(newCols, c-lo)
		}
	}
	if len(sel) == 0 {
		return nil, nil
	}

	switch v := g.(type) {
	case *Empty:
		return NewEmpty(newCols, v.numRows), nil
	case *Const:
		tuple := make([]float64, len(sel))
		for i, o := range sel {
			tuple[i] = v.dict.Value(0, o)
		}
		if allZero(tuple) {
			return NewEmpty(newCols, v.numRows), nil
		}

		return NewConst(newCols, v.numRows, tuple)
	case *Uncompressed:
		data := make([]float64, v.numRows*len(sel))
		for r := 0; r < v.numRows; r++ {
			for i, o := range sel {
				data[r*len(sel)+i] = v.GetCell(r, o)
			}
		}

		return NewUncompressed(newCols, v.numRows, data)
	case *DDC:
		nd, err := v.dict.SelectColumns(sel)
		if err != nil {
			return nil, err
		}

		return NewDDC(newCols, v.numRows, nd, v.data)
	case *SDC:
		nd, err := v.dict.SelectColumns(sel)
		if err != nil {
			return nil, err
		}
		ndef := make([]float64, len(sel))
		for i, o := range sel {
			ndef[i] = v.defaultTuple[o]
		}

		return newSDCAny(newCols, v.numRows, nd, v.offsets, v.data, ndef)
	case *SDCZero:
		nd, err := v.dict.SelectColumns(sel)
		if err != nil {
			return nil, err
		}

		return NewSDCZero(newCols, v.numRows, nd, v.offsets, v.data)
	case *SDCSingle:
		nd, err := v.dict.SelectColumns(sel)
		if err != nil {
			return nil, err
		}
		ndef := make([]float64, len(sel))
		for i, o := range sel {
			ndef[i] = v.defaultTuple[o]
		}

		return newSDCAny(newCols, v.numRows, nd, v.offsets, nil, ndef)
	case *SDCSingleZero:
		nd, err := v.dict.SelectColumns(sel)
		if err != nil {
			return nil, err
		}

		return NewSDCSingleZero(newCols, v.numRows, nd, v.offsets)
	case *RLE:
		nd, err := v.dict.SelectColumns(sel)
		if err != nil {
			return nil, err
		}

		return NewRLE(newCols, v.numRows, nd, v.ptr, v.runs)
	case *OLE:
		nd, err := v.dict.SelectColumns(sel)
		if err != nil {
			return nil, err
		}

		return NewOLE(newCols, v.numRows, nd, v.lists)
	default:
		return nil, fmt.Errorf("colgroup: slice of unknown group implementation %T: %w", g, errs.ErrNotSupported)
	}
}
