package colgroup

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/colpack/dict"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/mapping"
	"github.com/arloliu/colpack/matrix"
	"github.com/arloliu/colpack/offset"
	"github.com/arloliu/colpack/ops"
)

// testBlock builds a 12x4 block mixing a dominant non-zero value, implicit
// zeros, a constant column and runs, so every scheme has something to chew
// on.
func testBlock(t *testing.T) *matrix.Dense {
	t.Helper()
	values := []float64{
		3, 0, 5, 7,
		3, 0, 5, 7,
		1, 4, 5, 7,
		3, 0, 5, 2,
		3, 4, 5, 2,
		2, 0, 5, 2,
		3, 0, 5, 0,
		3, 9, 5, 0,
		1, 0, 5, 0,
		3, 0, 5, 7,
		3, 0, 5, 7,
		2, 0, 5, 7,
	}

	return matrix.NewDense(12, 4, values)
}

func encodableTypes() []format.CompressionType {
	return []format.CompressionType{
		format.TypeUncompressed,
		format.TypeDDC,
		format.TypeSDC,
		format.TypeSDCZero,
		format.TypeRLE,
		format.TypeOLE,
	}
}

func TestEncode_SchemeEquivalence(t *testing.T) {
	blk := testBlock(t)
	cols := []int{0, 1, 2, 3}
	rows := blk.NumRows()

	for _, ctype := range encodableTypes() {
		t.Run(ctype.String(), func(t *testing.T) {
			g, err := Encode(blk, cols, ctype)
			require.NoError(t, err)
			require.Equal(t, rows, g.NumRows())

			for r := 0; r < rows; r++ {
				for i, c := range cols {
					require.InDelta(t, blk.Get(r, c), g.GetCell(r, i), 1e-12, "cell (%d, %d)", r, i)
				}
			}

			rowSums := make([]float64, rows)
			g.RowSums(rowSums, 0, rows)
			rowMax := make([]float64, rows)
			for r := range rowMax {
				rowMax[r] = math.Inf(-1)
			}
			g.RowAggregate(rowMax, ops.Max, 0, rows)

			colSums := make([]float64, 4)
			g.ColSums(colSums)
			colSumsSq := make([]float64, 4)
			g.ColSumsSq(colSumsSq)
			colProd := []float64{1, 1, 1, 1}
			g.ColProducts(colProd)

			var wantSum, wantSumSq float64
			var wantNnz int64
			for r := 0; r < rows; r++ {
				var ws, wm float64
				wm = math.Inf(-1)
				for _, c := range cols {
					v := blk.Get(r, c)
					ws += v
					wm = math.Max(wm, v)
					wantSum += v
					wantSumSq += v * v
					if v != 0 {
						wantNnz++
					}
				}
				require.InDelta(t, ws, rowSums[r], 1e-9, "row sum %d", r)
				require.InDelta(t, wm, rowMax[r], 1e-9, "row max %d", r)
			}
			for i, c := range cols {
				var ws, wq float64
				wp := 1.0
				for r := 0; r < rows; r++ {
					v := blk.Get(r, c)
					ws += v
					wq += v * v
					wp *= v
				}
				require.InDelta(t, ws, colSums[c], 1e-9, "col sum %d", i)
				require.InDelta(t, wq, colSumsSq[c], 1e-9, "col sumsq %d", i)
				require.InDelta(t, wp, colProd[c], 1e-6, "col product %d", i)
			}

			require.InDelta(t, wantSum, g.Sum(), 1e-9)
			require.InDelta(t, wantSumSq, g.SumSq(), 1e-9)
			require.Equal(t, wantNnz, g.NonZeros())
			require.True(t, g.ContainsValue(5))
			require.False(t, g.ContainsValue(-13))
		})
	}
}

func TestEncode_DominantDefaultScenario(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rows := 10000
	values := make([]float64, rows)
	for i := range values {
		values[i] = 3.0
	}
	minoritySum := 0.0
	perm := rng.Perm(rows)[:1000]
	for _, r := range perm {
		v := float64(rng.Intn(2) + 1)
		values[r] = v
		minoritySum += v
	}
	blk := matrix.NewDense(rows, 1, values)

	g, err := Encode(blk, []int{0}, format.TypeSDC)
	require.NoError(t, err)
	require.Equal(t, format.TypeSDC, g.Type())
	require.Equal(t, []float64{3.0}, g.(*SDC).DefaultTuple())

	rowSums := make([]float64, rows)
	g.RowSums(rowSums, 0, rows)
	total := 0.0
	for _, v := range rowSums {
		total += v
	}
	require.InDelta(t, 9000*3.0+minoritySum, total, 1e-6)
	require.InDelta(t, 9000*3.0+minoritySum, g.Sum(), 1e-6)
}

func TestEncode_AllZeroYieldsEmpty(t *testing.T) {
	blk := matrix.NewDense(5, 5, make([]float64, 25))
	cols := []int{0, 1, 2, 3, 4}

	for _, ctype := range encodableTypes() {
		g, err := Encode(blk, cols, ctype)
		require.NoError(t, err, ctype)
		require.Equal(t, format.TypeEmpty, g.Type(), ctype)
	}

	empty, err := Encode(blk, cols, format.TypeDDC)
	require.NoError(t, err)
	raw, err := NewUncompressed(cols, 5, make([]float64, 25))
	require.NoError(t, err)
	require.Less(t, empty.MemSize(), raw.MemSize())
	require.EqualValues(t, 0, empty.NonZeros())
}

func TestEncode_InvalidColumns(t *testing.T) {
	blk := testBlock(t)

	_, err := Encode(blk, nil, format.TypeDDC)
	require.Error(t, err)

	_, err = Encode(blk, []int{2, 1}, format.TypeDDC)
	require.ErrorIs(t, err, errs.ErrNotIncreasing)

	_, err = Encode(blk, []int{9}, format.TypeDDC)
	require.ErrorIs(t, err, errs.ErrIndexOutOfRange)
}

func TestConstructors_InvariantViolations(t *testing.T) {
	d := dict.MustNew([]float64{1, 2}, 1)
	off, err := offset.Encode([]int{1, 3, 5})
	require.NoError(t, err)
	m3, err := mapping.Create([]int{0, 1, 0}, 2)
	require.NoError(t, err)

	t.Run("zero default tuple", func(t *testing.T) {
		_, err := NewSDC([]int{0}, 10, d, off, m3, []float64{0})
		require.ErrorIs(t, err, errs.ErrZeroDefaultTuple)
	})

	t.Run("cardinality mismatch", func(t *testing.T) {
		m1, err := mapping.Create([]int{0, 0, 0}, 1)
		require.NoError(t, err)
		_, err = NewSDCZero([]int{0}, 10, d, off, m1)
		require.ErrorIs(t, err, errs.ErrCardinalityMismatch)
	})

	t.Run("offset mapping size mismatch", func(t *testing.T) {
		m2, err := mapping.Create([]int{0, 1}, 2)
		require.NoError(t, err)
		_, err = NewSDCZero([]int{0}, 10, d, off, m2)
		require.ErrorIs(t, err, errs.ErrCardinalityMismatch)
	})

	t.Run("nil dictionary", func(t *testing.T) {
		_, err := NewSDCZero([]int{0}, 10, nil, off, m3)
		require.ErrorIs(t, err, errs.ErrEmptyDictionary)
	})

	t.Run("offset beyond rows", func(t *testing.T) {
		_, err := NewSDCZero([]int{0}, 4, d, off, m3)
		require.ErrorIs(t, err, errs.ErrIndexOutOfRange)
	})

	t.Run("ddc partial mapping", func(t *testing.T) {
		_, err := NewDDC([]int{0}, 10, d, m3)
		require.ErrorIs(t, err, errs.ErrCardinalityMismatch)
	})

	t.Run("single with wide dictionary", func(t *testing.T) {
		_, err := NewSDCSingle([]int{0}, 10, d, off, []float64{7})
		require.ErrorIs(t, err, errs.ErrCardinalityMismatch)
	})
}

func TestSDC_DefaultCollapse(t *testing.T) {
	d := dict.MustNew([]float64{1, 2}, 1)
	off, err := offset.Encode([]int{1, 3, 5})
	require.NoError(t, err)
	m, err := mapping.Create([]int{0, 1, 0}, 2)
	require.NoError(t, err)

	g, err := newSDCAny([]int{0}, 10, d, off, m, []float64{0})
	require.NoError(t, err)
	require.Equal(t, format.TypeSDCZero, g.Type())

	single := dict.MustNew([]float64{4}, 1)
	g, err = newSDCAny([]int{0}, 10, single, off, nil, []float64{9})
	require.NoError(t, err)
	require.Equal(t, format.TypeSDCSingle, g.Type())

	g, err = newSDCAny([]int{0}, 10, single, off, nil, nil)
	require.NoError(t, err)
	require.Equal(t, format.TypeSDCSingleZero, g.Type())
}

func TestTransforms_MatchDenseReference(t *testing.T) {
	blk := testBlock(t)
	cols := []int{0, 1, 2, 3}
	rows := blk.NumRows()

	times2 := ops.ScalarOp{Fn: ops.Multiply, Constant: 2}
	rowVec := []float64{0.5, -1, 2, 3}

	for _, ctype := range []format.CompressionType{format.TypeUncompressed, format.TypeDDC, format.TypeSDC} {
		t.Run(ctype.String(), func(t *testing.T) {
			g, err := Encode(blk, cols, ctype)
			require.NoError(t, err)

			scaled, err := g.ApplyScalar(times2)
			require.NoError(t, err)
			neg, err := g.ApplyUnary(ops.Neg)
			require.NoError(t, err)
			left, err := g.BinOpLeft(ops.Minus, rowVec)
			require.NoError(t, err)
			right, err := g.BinOpRight(ops.Plus, rowVec)
			require.NoError(t, err)

			for r := 0; r < rows; r++ {
				for i, c := range cols {
					v := blk.Get(r, c)
					require.InDelta(t, v*2, scaled.GetCell(r, i), 1e-12)
					require.InDelta(t, -v, neg.GetCell(r, i), 1e-12)
					require.InDelta(t, rowVec[c]-v, left.GetCell(r, i), 1e-12)
					require.InDelta(t, v+rowVec[c], right.GetCell(r, i), 1e-12)
				}
			}
		})
	}
}

func TestTransforms_CollapseAcrossFamily(t *testing.T) {
	blk := testBlock(t)

	t.Run("sdc times zero collapses", func(t *testing.T) {
		g, err := Encode(blk, []int{0}, format.TypeSDC)
		require.NoError(t, err)
		require.Equal(t, format.TypeSDC, g.Type())

		zeroed, err := g.ApplyScalar(ops.ScalarOp{Fn: ops.Multiply, Constant: 0})
		require.NoError(t, err)
		require.Equal(t, format.TypeSDCZero, zeroed.Type())
		require.EqualValues(t, 0, zeroed.NonZeros())
	})

	t.Run("sdczero plus one becomes default bearing", func(t *testing.T) {
		g, err := Encode(blk, []int{1}, format.TypeSDCZero)
		require.NoError(t, err)
		require.Equal(t, format.TypeSDCZero, g.Type())

		shifted, err := g.ApplyScalar(ops.ScalarOp{Fn: ops.Plus, Constant: 1})
		require.NoError(t, err)
		require.True(t, shifted.Type().IsDefaultBearing())
		for r := 0; r < blk.NumRows(); r++ {
			require.InDelta(t, blk.Get(r, 1)+1, shifted.GetCell(r, 0), 1e-12)
		}
	})

	t.Run("replace default to zero collapses", func(t *testing.T) {
		g, err := Encode(blk, []int{0}, format.TypeSDC)
		require.NoError(t, err)

		replaced, err := g.Replace(3.0, 0)
		require.NoError(t, err)
		require.Equal(t, format.TypeSDCZero, replaced.Type())
		for r := 0; r < blk.NumRows(); r++ {
			want := blk.Get(r, 0)
			if want == 3.0 {
				want = 0
			}
			require.InDelta(t, want, replaced.GetCell(r, 0), 1e-12)
		}
	})

	t.Run("replace zero rewrites implicit rows", func(t *testing.T) {
		data := []float64{0, 0, 0, 0, 0, 0, 0, 1, 2, 1}
		blk := matrix.NewDense(10, 1, data)

		raw, err := Encode(blk, []int{0}, format.TypeUncompressed)
		require.NoError(t, err)
		sparse, err := Encode(blk, []int{0}, format.TypeSDCZero)
		require.NoError(t, err)

		rawRep, err := raw.Replace(0, 5)
		require.NoError(t, err)
		sparseRep, err := sparse.Replace(0, 5)
		require.NoError(t, err)

		for r := range data {
			want := data[r]
			if want == 0 {
				want = 5
			}
			require.Equal(t, want, rawRep.GetCell(r, 0), "row %d", r)
			require.Equal(t, want, sparseRep.GetCell(r, 0), "row %d", r)
		}
		require.True(t, sparseRep.Type().IsDefaultBearing())
	})

	t.Run("replace zero on single tuple sparse", func(t *testing.T) {
		blk := matrix.NewDense(6, 1, []float64{0, 0, 2, 0, 0, 2})
		g, err := Encode(blk, []int{0}, format.TypeSDCZero)
		require.NoError(t, err)
		require.Equal(t, format.TypeSDCSingleZero, g.Type())

		rep, err := g.Replace(0, 9)
		require.NoError(t, err)
		for r, want := range []float64{9, 9, 2, 9, 9, 2} {
			require.Equal(t, want, rep.GetCell(r, 0), "row %d", r)
		}
	})

	t.Run("replace zero on empty", func(t *testing.T) {
		g := NewEmpty([]int{0, 1}, 4)

		rep, err := g.Replace(0, 3)
		require.NoError(t, err)
		require.Equal(t, format.TypeConst, rep.Type())
		require.Equal(t, 3.0, rep.GetCell(2, 1))

		same, err := g.Replace(0, 0)
		require.NoError(t, err)
		require.Equal(t, format.TypeEmpty, same.Type())
	})

	t.Run("replace zero unsupported on run schemes", func(t *testing.T) {
		blk := matrix.NewDense(8, 1, []float64{0, 0, 4, 4, 0, 0, 7, 7})
		for _, ctype := range []format.CompressionType{format.TypeRLE, format.TypeOLE} {
			g, err := Encode(blk, []int{0}, ctype)
			require.NoError(t, err)

			_, err = g.Replace(0, 1)
			require.ErrorIs(t, err, errs.ErrNotSupported)

			// replacing explicit values stays supported
			rep, err := g.Replace(4, 6)
			require.NoError(t, err)
			require.Equal(t, 6.0, rep.GetCell(2, 0))
			require.Equal(t, 0.0, rep.GetCell(0, 0))
		}
	})

	t.Run("rle zero changing op unsupported", func(t *testing.T) {
		g, err := Encode(blk, []int{1}, format.TypeRLE)
		require.NoError(t, err)

		_, err = g.ApplyScalar(ops.ScalarOp{Fn: ops.Plus, Constant: 1})
		require.ErrorIs(t, err, errs.ErrNotSupported)

		_, err = g.ApplyScalar(ops.ScalarOp{Fn: ops.Multiply, Constant: 3})
		require.NoError(t, err)
	})
}

func TestRowProducts_SchemeSupport(t *testing.T) {
	blk := testBlock(t)
	out := make([]float64, blk.NumRows())

	rle, err := Encode(blk, []int{3}, format.TypeRLE)
	require.NoError(t, err)
	require.ErrorIs(t, rle.RowProducts(out, 0, blk.NumRows()), errs.ErrNotSupported)

	ole, err := Encode(blk, []int{3}, format.TypeOLE)
	require.NoError(t, err)
	require.ErrorIs(t, ole.RowProducts(out, 0, blk.NumRows()), errs.ErrNotSupported)

	ddc, err := Encode(blk, []int{0, 3}, format.TypeDDC)
	require.NoError(t, err)
	for i := range out {
		out[i] = 1
	}
	require.NoError(t, ddc.RowProducts(out, 0, blk.NumRows()))
	for r := 0; r < blk.NumRows(); r++ {
		require.InDelta(t, blk.Get(r, 0)*blk.Get(r, 3), out[r], 1e-12)
	}
}

func TestExtractCommon(t *testing.T) {
	blk := testBlock(t)
	g, err := Encode(blk, []int{0}, format.TypeSDC)
	require.NoError(t, err)

	acc := make([]float64, 4)
	zeroed := g.ExtractCommon(acc)
	require.Equal(t, format.TypeSDCZero, zeroed.Type())
	require.Equal(t, 3.0, acc[0])

	for r := 0; r < blk.NumRows(); r++ {
		require.InDelta(t, blk.Get(r, 0), zeroed.GetCell(r, 0)+acc[0], 1e-12)
	}
}

func TestRexpandCols(t *testing.T) {
	values := []float64{1, 2, 3, 2, 2, 1, 5, 2}
	blk := matrix.NewDense(8, 1, values)

	g, err := Encode(blk, []int{0}, format.TypeSDC)
	require.NoError(t, err)

	expanded, err := g.RexpandCols(3, true, false)
	require.NoError(t, err)
	require.Equal(t, 3, expanded.NumCols())
	for r, v := range values {
		for c := 0; c < 3; c++ {
			want := 0.0
			if int(v) == c+1 {
				want = 1
			}
			require.InDelta(t, want, expanded.GetCell(r, c), 1e-12, "row %d col %d", r, c)
		}
	}

	_, err = g.RexpandCols(3, false, false)
	require.ErrorIs(t, err, errs.ErrInvalidClassValue)
}

func TestSlice(t *testing.T) {
	blk := testBlock(t)
	cols := []int{0, 1, 2, 3}

	for _, ctype := range encodableTypes() {
		t.Run(ctype.String(), func(t *testing.T) {
			g, err := Encode(blk, cols, ctype)
			require.NoError(t, err)

			sub, err := Slice(g, 1, 3)
			require.NoError(t, err)
			require.Equal(t, []int{0, 1}, sub.Columns())

			for r := 0; r < blk.NumRows(); r++ {
				require.InDelta(t, blk.Get(r, 1), sub.GetCell(r, 0), 1e-12)
				require.InDelta(t, blk.Get(r, 2), sub.GetCell(r, 1), 1e-12)
			}

			none, err := Slice(g, 40, 50)
			require.NoError(t, err)
			require.Nil(t, none)
		})
	}
}

func TestRowRange_PartialScan(t *testing.T) {
	blk := testBlock(t)

	for _, ctype := range encodableTypes() {
		g, err := Encode(blk, []int{0, 1}, ctype)
		require.NoError(t, err)

		out := make([]float64, blk.NumRows())
		g.RowSums(out, 3, 9)
		for r := 0; r < blk.NumRows(); r++ {
			want := 0.0
			if r >= 3 && r < 9 {
				want = blk.Get(r, 0) + blk.Get(r, 1)
			}
			require.InDelta(t, want, out[r], 1e-12, "%s row %d", ctype, r)
		}
	}
}
