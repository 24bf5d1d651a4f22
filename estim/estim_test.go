package estim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/colpack/config"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/matrix"
)

// testBlock mirrors the column-group test fixture: a constant column, a
// dense multi-value column, a sparse column and an all-zero column.
func estimBlock() *matrix.Dense {
	values := []float64{
		5, 1, 0, 0,
		5, 2, 0, 0,
		5, 1, 4, 0,
		5, 3, 0, 0,
		5, 2, 0, 0,
		5, 1, 4, 0,
		5, 3, 0, 0,
		5, 2, 9, 0,
	}

	return matrix.NewDense(8, 4, values)
}

func TestCreateFromBlock_EncodingKinds(t *testing.T) {
	blk := estimBlock()

	t.Run("all zero", func(t *testing.T) {
		enc, st, err := CreateFromBlock(blk, []int{3})
		require.NoError(t, err)
		require.IsType(t, &EmptyEncoding{}, enc)
		require.Equal(t, 1, enc.Unique())
		require.Equal(t, 0, enc.Size())
		require.Zero(t, st.OverallSparsity)
	})

	t.Run("constant", func(t *testing.T) {
		enc, st, err := CreateFromBlock(blk, []int{0})
		require.NoError(t, err)
		require.IsType(t, &ConstEncoding{}, enc)
		require.Equal(t, 1, enc.Unique())
		require.Equal(t, 8, enc.Size())
		require.Equal(t, 1.0, st.OverallSparsity)
	})

	t.Run("dense", func(t *testing.T) {
		enc, _, err := CreateFromBlock(blk, []int{1})
		require.NoError(t, err)
		require.IsType(t, &DenseEncoding{}, enc)
		require.Equal(t, 3, enc.Unique())
		require.Equal(t, 8, enc.Size())
	})

	t.Run("sparse", func(t *testing.T) {
		enc, st, err := CreateFromBlock(blk, []int{2})
		require.NoError(t, err)
		require.IsType(t, &SparseEncoding{}, enc)
		require.Equal(t, 2, enc.Unique())
		require.Equal(t, 3, enc.Size())
		require.InDelta(t, 3.0/8.0, st.OverallSparsity, 1e-12)
		// two non-zero cells across three distinct tuples, zero included
		require.InDelta(t, 2.0/3.0, st.TupleSparsity, 1e-12)
	})
}

func TestCreateFromBlock_DistinctTuplesNeverMerge(t *testing.T) {
	// the scan keys tuples by their value bytes, so the class count must be
	// exact no matter how the values hash
	rng := rand.New(rand.NewSource(99))
	n := 512
	values := make([]float64, n)
	for i := range values {
		values[i] = rng.NormFloat64() + 1
	}
	blk := matrix.NewDense(n, 1, values)

	enc, _, err := CreateFromBlock(blk, []int{0})
	require.NoError(t, err)
	require.Equal(t, n, enc.Unique())
	require.Equal(t, n, enc.Size())
}

func TestEncoding_Combine(t *testing.T) {
	blk := estimBlock()

	t.Run("const multiplies by one", func(t *testing.T) {
		konst, _, err := CreateFromBlock(blk, []int{0})
		require.NoError(t, err)
		dense, _, err := CreateFromBlock(blk, []int{1})
		require.NoError(t, err)

		joint, err := konst.Combine(dense)
		require.NoError(t, err)
		require.Equal(t, dense.Unique(), joint.Unique())
	})

	t.Run("dense pair", func(t *testing.T) {
		a, _, err := CreateFromBlock(blk, []int{1})
		require.NoError(t, err)
		b, _, err := CreateFromBlock(blk, []int{2})
		require.NoError(t, err)

		joint, err := a.Combine(b)
		require.NoError(t, err)

		// reference: distinct (col1, col2) pairs
		want, _, err := CreateFromBlock(blk, []int{1, 2})
		require.NoError(t, err)
		require.Equal(t, want.Unique(), joint.Unique())
		require.Equal(t, 8, joint.Rows())
	})

	t.Run("sparse pair keeps implicit zeros", func(t *testing.T) {
		sparse := matrix.NewDense(6, 2, []float64{
			0, 0,
			1, 0,
			0, 2,
			0, 0,
			1, 2,
			0, 0,
		})
		a, _, err := CreateFromBlock(sparse, []int{0})
		require.NoError(t, err)
		b, _, err := CreateFromBlock(sparse, []int{1})
		require.NoError(t, err)

		joint, err := a.Combine(b)
		require.NoError(t, err)
		require.IsType(t, &SparseEncoding{}, joint)
		require.Equal(t, 3, joint.Unique())
		require.Equal(t, 3, joint.Size())
	})

	t.Run("empty is identity", func(t *testing.T) {
		empty, _, err := CreateFromBlock(blk, []int{3})
		require.NoError(t, err)
		dense, _, err := CreateFromBlock(blk, []int{1})
		require.NoError(t, err)

		joint, err := empty.Combine(dense)
		require.NoError(t, err)
		require.Equal(t, dense, joint)
	})
}

func TestEstimator_Exact(t *testing.T) {
	blk := estimBlock()
	e := New(blk, config.Default())
	require.True(t, e.IsExact(), "8 rows is below the minimum sample size")
	require.Equal(t, 8, e.SampleSize())

	info, err := e.Estimate([]int{1}, 0)
	require.NoError(t, err)
	require.Equal(t, 3, info.Facts.Distinct)
	require.Equal(t, 8, info.Facts.Rows)
	require.Equal(t, 8, info.Facts.Offs)
	require.Equal(t, 3, info.Facts.Largest)
	require.Equal(t, 1.0, info.Facts.OverallSparsity)
}

func TestEstimator_Combine(t *testing.T) {
	blk := estimBlock()
	e := New(blk, config.Default())

	a, err := e.Estimate([]int{1}, 0)
	require.NoError(t, err)
	b, err := e.Estimate([]int{2}, 0)
	require.NoError(t, err)

	ab, err := e.Combine(a, b, 0)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, ab.Cols)

	want, err := e.Estimate([]int{1, 2}, 0)
	require.NoError(t, err)
	require.Equal(t, want.Facts.Distinct, ab.Facts.Distinct)
	require.Equal(t, want.Facts.Largest, ab.Facts.Largest)
}

// dominantColumn builds the 10000-row single column with 9000 copies of 3.0
// and 1000 minority values drawn from {1, 2}.
func dominantColumn() (*matrix.Dense, float64) {
	const rows = 10000
	values := make([]float64, rows)
	for i := range values {
		values[i] = 3.0
	}

	rng := rand.New(rand.NewSource(42))
	minoritySum := 0.0
	for i, r := range rng.Perm(rows)[:1000] {
		v := float64(1 + i%2)
		values[r] = v
		minoritySum += v
	}

	return matrix.NewDense(rows, 1, values), minoritySum
}

func TestEstimator_SampleConvergence(t *testing.T) {
	blk, _ := dominantColumn()

	cfg, err := config.New(config.WithSampleRatio(0.5), config.WithSeed(7))
	require.NoError(t, err)

	e := New(blk, cfg)
	require.False(t, e.IsExact())
	require.Equal(t, 5000, e.SampleSize())

	info, err := e.Estimate([]int{0}, 0)
	require.NoError(t, err)

	f := info.Facts
	require.Equal(t, 10000, f.Rows)
	require.Equal(t, 3, f.Distinct, "no singletons, so Chao adds nothing")
	require.InDelta(t, 9000, f.Largest, 0.2*9000)
	require.Equal(t, 10000, f.Offs, "dense column has no implicit rows")
	require.InDelta(t, 1.0, f.OverallSparsity, 1e-12)
}

func TestEstimator_ScaledCorrection(t *testing.T) {
	blk, _ := dominantColumn()

	cfg, err := config.New(
		config.WithSampleRatio(0.5),
		config.WithSeed(7),
		config.WithEstimationType(format.EstimationScaled),
	)
	require.NoError(t, err)

	info, err := New(blk, cfg).Estimate([]int{0}, 4)
	require.NoError(t, err)
	// linear scaling doubles the 3 observed tuples, then the cap applies
	require.Equal(t, 4, info.Facts.Distinct)
}

func TestEstimator_EmptySampleFallback(t *testing.T) {
	blk := matrix.NewDense(5, 5, make([]float64, 25))
	e := New(blk, config.Default())

	info, err := e.Estimate([]int{0, 1, 2, 3, 4}, 0)
	require.NoError(t, err)
	require.Equal(t, 1, info.Facts.Distinct)
	require.Equal(t, 5, info.Facts.Largest)
	require.Zero(t, info.Facts.OverallSparsity)

	// a sampled estimator that observed only zeros consults the full block
	sparse := make([]float64, 1000)
	sparse[999] = 7
	facts := New(matrix.NewDense(1000, 1, sparse), config.Default()).emptySampleFacts([]int{0})
	require.Equal(t, 1000, facts.Rows)
	require.Equal(t, 1, facts.Offs)
	require.Equal(t, 999, facts.Largest)
	require.InDelta(t, 0.001, facts.OverallSparsity, 1e-12)
}

func TestEstimateDelta_LinearSequence(t *testing.T) {
	const rows = 64
	values := make([]float64, rows)
	for i := range values {
		values[i] = float64(i + 1)
	}
	blk := matrix.NewDense(rows, 1, values)

	e := New(blk, config.Default())

	plain, err := e.Estimate([]int{0}, 0)
	require.NoError(t, err)
	require.Equal(t, rows, plain.Facts.Distinct)

	// first row keeps its raw value 1, every delta afterwards is 1
	delta, err := e.EstimateDelta([]int{0}, 0)
	require.NoError(t, err)
	require.Equal(t, 1, delta.Facts.Distinct)
}

func TestEstimateSize_Ordering(t *testing.T) {
	// dominant-default column: 10000 rows, 3 tuples, 9000-row default
	f := Factors{
		Rows:            10000,
		Distinct:        3,
		Offs:            10000,
		Largest:         9000,
		Frequencies:     []int{9000, 500, 500},
		OverallSparsity: 1,
		TupleSparsity:   1,
	}

	sdc, err := EstimateSize(format.TypeSDC, f, 1)
	require.NoError(t, err)
	ddc, err := EstimateSize(format.TypeDDC, f, 1)
	require.NoError(t, err)
	raw, err := EstimateSize(format.TypeUncompressed, f, 1)
	require.NoError(t, err)

	require.Less(t, sdc, ddc)
	require.Less(t, ddc, raw)

	_, err = EstimateSize(format.CompressionType(0x7F), f, 1)
	require.Error(t, err)
}

func TestCheapestType(t *testing.T) {
	t.Run("all zero", func(t *testing.T) {
		f := Factors{Rows: 100, Distinct: 1, Largest: 100}
		ctype, _ := CheapestType(f, 2, nil)
		require.Equal(t, format.TypeEmpty, ctype)
	})

	t.Run("dominant default", func(t *testing.T) {
		f := Factors{
			Rows:        10000,
			Distinct:    3,
			Offs:        10000,
			Largest:     9000,
			Frequencies: []int{9000, 500, 500},
		}
		ctype, size := CheapestType(f, 1, nil)
		require.Equal(t, format.TypeSDC, ctype)

		raw, err := EstimateSize(format.TypeUncompressed, f, 1)
		require.NoError(t, err)
		require.Less(t, size, raw)
	})

	t.Run("restricted schemes", func(t *testing.T) {
		cfg, err := config.New(config.WithValidCompressions(format.TypeDDC))
		require.NoError(t, err)

		f := Factors{
			Rows:        10000,
			Distinct:    3,
			Offs:        10000,
			Largest:     9000,
			Frequencies: []int{9000, 500, 500},
		}
		ctype, _ := CheapestType(f, 1, cfg.Allows)
		require.Equal(t, format.TypeDDC, ctype)
	})
}
