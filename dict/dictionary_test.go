package dict

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/colpack/endian"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/internal/pool"
	"github.com/arloliu/colpack/ops"
)

func testDict(t *testing.T) *Dictionary {
	t.Helper()
	// three tuples over two columns
	d, err := New([]float64{1, 2, 0, 4, 3, 0}, 2)
	require.NoError(t, err)

	return d
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, 2)
	require.ErrorIs(t, err, errs.ErrEmptyDictionary)

	_, err = New([]float64{1, 2, 3}, 2)
	require.ErrorIs(t, err, errs.ErrTupleLengthMismatch)

	_, err = New([]float64{1}, 0)
	require.Error(t, err)
}

func TestDictionary_Lookups(t *testing.T) {
	d := testDict(t)
	require.Equal(t, 3, d.NumTuples())
	require.Equal(t, 2, d.NumCols())
	require.Equal(t, 4.0, d.Value(1, 1))
	require.Equal(t, []float64{3, 0}, d.Tuple(2))
}

func TestDictionary_PreAggregation(t *testing.T) {
	d := testDict(t)

	t.Run("row sums", func(t *testing.T) {
		require.Equal(t, []float64{3, 4, 3}, d.SumAllRows())
	})

	t.Run("row sums with default last", func(t *testing.T) {
		per := d.SumAllRowsWithDefault([]float64{5, 5})
		require.Equal(t, []float64{3, 4, 3, 10}, per)
	})

	t.Run("row sums of squares", func(t *testing.T) {
		require.Equal(t, []float64{5, 16, 9}, d.SumSqAllRows())
	})

	t.Run("row max", func(t *testing.T) {
		require.Equal(t, []float64{2, 4, 3}, d.AggregateRows(ops.Max))
		require.Equal(t, []float64{2, 4, 3, 5}, d.AggregateRowsWithDefault(ops.Max, []float64{5, 1}))
	})

	t.Run("counts-weighted column sums", func(t *testing.T) {
		out := make([]float64, 4)
		d.ColSums(out, []int{2, 1, 3}, []int{1, 3})
		require.Equal(t, []float64{0, 1*2 + 0*1 + 3*3, 0, 2*2 + 4*1 + 0*3}, out)
	})

	t.Run("aggregate all", func(t *testing.T) {
		require.Equal(t, 10.0, d.Aggregate(0, ops.Sum))
		require.Equal(t, 4.0, d.Aggregate(d.Value(0, 0), ops.Max))
	})
}

func TestDictionary_Transforms(t *testing.T) {
	d := testDict(t)

	t.Run("scalar leaves original untouched", func(t *testing.T) {
		nd := d.ApplyScalar(ops.ScalarOp{Fn: ops.Multiply, Constant: 2})
		require.Equal(t, []float64{2, 4, 0, 8, 6, 0}, nd.Values())
		require.Equal(t, []float64{1, 2, 0, 4, 3, 0}, d.Values())
	})

	t.Run("unary", func(t *testing.T) {
		nd := d.ApplyUnary(ops.Neg)
		require.Equal(t, -2.0, nd.Value(0, 1))
	})

	t.Run("binary against row vector", func(t *testing.T) {
		// v indexed by global columns {1, 3}
		v := []float64{0, 10, 0, 20}
		nd := d.BinOpLeft(ops.Minus, v, []int{1, 3})
		require.Equal(t, []float64{10 - 1, 20 - 2, 10 - 0, 20 - 4, 10 - 3, 20 - 0}, nd.Values())

		nd = d.BinOpRight(ops.Minus, v, []int{1, 3})
		require.Equal(t, []float64{1 - 10, 2 - 20, 0 - 10, 4 - 20, 3 - 10, 0 - 20}, nd.Values())
	})

	t.Run("subtract tuple", func(t *testing.T) {
		nd, err := d.SubtractTuple([]float64{1, 1})
		require.NoError(t, err)
		require.Equal(t, []float64{0, 1, -1, 3, 2, -1}, nd.Values())

		_, err = d.SubtractTuple([]float64{1})
		require.ErrorIs(t, err, errs.ErrTupleLengthMismatch)
	})

	t.Run("replace", func(t *testing.T) {
		nd := d.Replace(0, 7)
		require.Equal(t, []float64{1, 2, 7, 4, 3, 7}, nd.Values())
		require.True(t, d.ContainsValue(0))
		require.False(t, nd.ContainsValue(0))
	})
}

func TestDictionary_SelectColumns(t *testing.T) {
	d := testDict(t)

	nd, err := d.SelectColumns([]int{1})
	require.NoError(t, err)
	require.Equal(t, 3, nd.NumTuples())
	require.Equal(t, []float64{2, 4, 0}, nd.Values())

	_, err = d.SelectColumns([]int{2})
	require.ErrorIs(t, err, errs.ErrIndexOutOfRange)

	_, err = d.SelectColumns(nil)
	require.ErrorIs(t, err, errs.ErrEmptyDictionary)
}

func TestDictionary_Stats(t *testing.T) {
	d := testDict(t)
	require.InDelta(t, 4.0/6.0, d.Sparsity(), 1e-12)
	require.Equal(t, []int{2, 1, 1}, d.NonZerosPerTuple())
}

func TestDictionary_RexpandCols(t *testing.T) {
	d, err := New([]float64{1, 3, 2}, 1)
	require.NoError(t, err)

	nd, err := d.RexpandCols(3, false, false)
	require.NoError(t, err)
	require.Equal(t, []float64{
		1, 0, 0,
		0, 0, 1,
		0, 1, 0,
	}, nd.Values())

	t.Run("out of range", func(t *testing.T) {
		bad, err := New([]float64{4}, 1)
		require.NoError(t, err)

		_, err = bad.RexpandCols(3, false, false)
		require.ErrorIs(t, err, errs.ErrInvalidClassValue)

		nd, err := bad.RexpandCols(3, true, false)
		require.NoError(t, err)
		require.Equal(t, []float64{0, 0, 0}, nd.Values())
	})

	t.Run("non-integral", func(t *testing.T) {
		frac, err := New([]float64{1.5}, 1)
		require.NoError(t, err)

		_, err = frac.RexpandCols(3, false, false)
		require.ErrorIs(t, err, errs.ErrInvalidClassValue)

		nd, err := frac.RexpandCols(3, false, true)
		require.NoError(t, err)
		require.Equal(t, []float64{0, 1, 0}, nd.Values())
	})

	t.Run("multi-column rejected", func(t *testing.T) {
		_, err := testDict(t).RexpandCols(3, false, false)
		require.ErrorIs(t, err, errs.ErrNotSupported)
	})
}

func TestDictionary_SerializeRoundTrip(t *testing.T) {
	d := testDict(t)
	engine := endian.GetLittleEndianEngine()

	buf := pool.GetGroupBuffer()
	defer pool.PutGroupBuffer(buf)

	d.AppendTo(buf, engine)
	require.Equal(t, 4+6*8, buf.Len())

	back, n, err := Read(buf.Bytes(), 2, engine)
	require.NoError(t, err)
	require.Equal(t, buf.Len(), n)
	require.Equal(t, d.Values(), back.Values())
	require.Equal(t, d.NumCols(), back.NumCols())

	_, _, err = Read(buf.Bytes()[:10], 2, engine)
	require.ErrorIs(t, err, errs.ErrTruncatedPayload)
}
