package estim

import (
	"fmt"

	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
)

// EstimateSize prices the in-memory size of compressing a subset of nCols
// columns as the given scheme, mirroring the column-group memory estimates.
// The returned size is a planning signal, not a byte-exact prediction: run
// counts and offset stream widths are approximated from the factors.
func EstimateSize(t format.CompressionType, f Factors, nCols int) (int64, error) {
	base := int64(24 + nCols*8)

	switch t {
	case format.TypeEmpty:
		return base, nil

	case format.TypeConst:
		return base + dictBytes(1, nCols), nil

	case format.TypeUncompressed:
		return base + 24 + int64(f.Rows)*int64(nCols)*8, nil

	case format.TypeDDC:
		return base + dictBytes(f.Distinct, nCols) +
			mappingBytes(f.Rows, f.Distinct), nil

	case format.TypeSDC:
		offs := f.Rows - f.Largest
		if f.Offs > 0 && f.Offs < offs {
			offs = f.Offs
		}
		k := f.Distinct - 1
		if k < 1 {
			k = 1
		}

		return base + dictBytes(k, nCols) + int64(24+nCols*8) +
			offsetBytes(offs, f.Rows) + mappingBytes(offs, k), nil

	case format.TypeSDCSingle:
		offs := f.Rows - f.Largest

		return base + dictBytes(1, nCols) + int64(24+nCols*8) +
			offsetBytes(offs, f.Rows), nil

	case format.TypeSDCZero:
		return base + dictBytes(f.Distinct, nCols) +
			offsetBytes(f.Offs, f.Rows) + mappingBytes(f.Offs, f.Distinct), nil

	case format.TypeSDCSingleZero:
		return base + dictBytes(1, nCols) + offsetBytes(f.Offs, f.Rows), nil

	case format.TypeRLE:
		// without run statistics assume an average run length of two
		runs := int64(f.Offs+1) / 2
		if runs < int64(f.Distinct) {
			runs = int64(f.Distinct)
		}

		return base + dictBytes(f.Distinct, nCols) +
			24 + int64(f.Distinct+1)*4 + 24 + runs*8 +
			24 + int64(f.Distinct)*8, nil

	case format.TypeOLE:
		return base + dictBytes(f.Distinct, nCols) +
			int64(f.Distinct)*48 + offsetBytes(f.Offs, f.Rows) +
			24 + int64(f.Distinct)*8, nil

	default:
		return 0, fmt.Errorf("estim: no size model for scheme %v: %w", t, errs.ErrNotSupported)
	}
}

// CheapestType prices every allowed scheme and returns the smallest. Schemes
// whose invariants the factors cannot satisfy are skipped: Const needs a
// single tuple covering all rows, the Single variants need exactly one
// explicit tuple, Empty needs an all-zero subset.
func CheapestType(f Factors, nCols int, allowed func(format.CompressionType) bool) (format.CompressionType, int64) {
	if allowed == nil {
		allowed = func(format.CompressionType) bool { return true }
	}

	best := format.TypeUncompressed
	bestSize, _ := EstimateSize(format.TypeUncompressed, f, nCols)

	for _, t := range candidateTypes(f) {
		if !allowed(t) {
			continue
		}
		size, err := EstimateSize(t, f, nCols)
		if err != nil {
			continue
		}
		if !allowed(best) || size < bestSize {
			best = t
			bestSize = size
		}
	}

	return best, bestSize
}

func candidateTypes(f Factors) []format.CompressionType {
	if f.Distinct == 1 && f.Offs == 0 && f.OverallSparsity == 0 {
		return []format.CompressionType{format.TypeEmpty}
	}

	types := []format.CompressionType{format.TypeDDC, format.TypeRLE, format.TypeOLE}
	if f.Distinct == 1 && f.Offs >= f.Rows {
		types = append(types, format.TypeConst)
	}
	if f.Offs < f.Rows {
		// an implicit or dominant default exists
		if f.Distinct <= 1 {
			types = append(types, format.TypeSDCSingleZero)
		} else {
			types = append(types, format.TypeSDCZero)
		}
	}
	if f.Largest > f.Rows/2 {
		if f.Distinct <= 2 {
			types = append(types, format.TypeSDCSingle)
		} else {
			types = append(types, format.TypeSDC)
		}
	}

	return types
}

func dictBytes(tuples, nCols int) int64 {
	return 32 + int64(tuples)*int64(nCols)*8
}

// mappingBytes mirrors the mapping codec's width selection.
func mappingBytes(n, unique int) int64 {
	switch {
	case unique <= 2:
		return 40 + int64((n+63)/64)*8
	case unique <= 16:
		return 40 + int64(n+1)/2
	case unique <= 256:
		return 32 + int64(n)
	case unique <= 65536:
		return 32 + int64(n)*2
	default:
		return 32 + int64(n)*4
	}
}

// offsetBytes prices the cheapest offset stream over offs rows of [0, rows),
// assuming evenly spread offsets: byte and char streams pay one element per
// offset plus carry markers for over-range gaps, the bitmap pays one bit per
// row up to the last offset.
func offsetBytes(offs, rows int) int64 {
	if offs <= 0 {
		return 48
	}

	byteSize := int64(48 + offs + rows/255)
	charSize := int64(48 + 2*(offs+rows/65535))
	bitmapSize := int64(48 + (rows+63)/64*8)

	size := byteSize
	if charSize < size {
		size = charSize
	}
	if bitmapSize < size {
		size = bitmapSize
	}

	return size
}
