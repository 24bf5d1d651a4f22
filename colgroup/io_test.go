package colgroup

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/colpack/endian"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/internal/pool"
	"github.com/arloliu/colpack/matrix"
)

// roundTripGroups builds one group per variant from mixed data.
func roundTripGroups(t *testing.T) []ColGroup {
	t.Helper()
	blk := testBlock(t)

	groups := []ColGroup{
		NewEmpty([]int{2, 3}, 12),
	}

	konst, err := NewConst([]int{1, 2}, 12, []float64{4, 5})
	require.NoError(t, err)
	groups = append(groups, konst)

	for _, ctype := range encodableTypes() {
		g, err := Encode(blk, []int{0, 1, 2, 3}, ctype)
		require.NoError(t, err)
		groups = append(groups, g)
	}

	// single-tuple minority forces the Single variants
	single := matrix.NewDense(8, 1, []float64{7, 7, 2, 7, 7, 2, 7, 7})
	g, err := Encode(single, []int{0}, format.TypeSDC)
	require.NoError(t, err)
	require.Equal(t, format.TypeSDCSingle, g.Type())
	groups = append(groups, g)

	zeroSingle := matrix.NewDense(8, 1, []float64{0, 0, 2, 0, 0, 2, 0, 0})
	g, err = Encode(zeroSingle, []int{0}, format.TypeSDCZero)
	require.NoError(t, err)
	require.Equal(t, format.TypeSDCSingleZero, g.Type())
	groups = append(groups, g)

	return groups
}

func TestGroup_SerializeRoundTrip(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	for _, g := range roundTripGroups(t) {
		t.Run(g.Type().String(), func(t *testing.T) {
			buf := pool.GetGroupBuffer()
			defer pool.PutGroupBuffer(buf)

			g.AppendTo(buf, engine)
			require.Equal(t, g.SizeOnDisk(), buf.Len())

			back, n, err := Read(buf.Bytes(), g.NumRows(), engine)
			require.NoError(t, err)
			require.Equal(t, buf.Len(), n)
			require.Equal(t, g.Type(), back.Type())
			require.Equal(t, g.Columns(), back.Columns())
			require.Equal(t, g.MemSize(), back.MemSize())

			for r := 0; r < g.NumRows(); r++ {
				for i := 0; i < g.NumCols(); i++ {
					require.Equal(t, g.GetCell(r, i), back.GetCell(r, i), "cell (%d, %d)", r, i)
				}
			}
		})
	}
}

func TestGroupRead_Corruption(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	t.Run("truncated header", func(t *testing.T) {
		_, _, err := Read([]byte{byte(format.TypeDDC), 0}, 4, engine)
		require.ErrorIs(t, err, errs.ErrTruncatedPayload)
	})

	t.Run("bad type tag", func(t *testing.T) {
		data := make([]byte, 16)
		data[0] = 0x7F
		_, _, err := Read(data, 4, engine)
		require.ErrorIs(t, err, errs.ErrInvalidTypeTag)
	})

	t.Run("rle boundary with high bit", func(t *testing.T) {
		blk := matrix.NewDense(8, 1, []float64{0, 0, 4, 4, 0, 0, 7, 7})
		g, err := Encode(blk, []int{0}, format.TypeRLE)
		require.NoError(t, err)
		rle := g.(*RLE)

		buf := pool.GetGroupBuffer()
		defer pool.PutGroupBuffer(buf)
		g.AppendTo(buf, engine)

		bad := make([]byte, buf.Len())
		copy(bad, buf.Bytes())
		// the last run boundary sits after the header, the dictionary and the
		// k leading boundaries
		k := rle.dict.NumTuples()
		off := groupHeaderSize(g.Columns()) + 4 + k*g.NumCols()*8 + k*4
		bad[off+3] |= 0x80

		_, _, err = Read(bad, g.NumRows(), engine)
		require.ErrorIs(t, err, errs.ErrIndexOutOfRange)
	})

	t.Run("mapping with unattained cardinality", func(t *testing.T) {
		blk := matrix.NewDense(4, 1, []float64{5, 6, 7, 7})
		g, err := Encode(blk, []int{0}, format.TypeDDC)
		require.NoError(t, err)

		buf := pool.GetGroupBuffer()
		defer pool.PutGroupBuffer(buf)
		g.AppendTo(buf, engine)

		bad := make([]byte, buf.Len())
		copy(bad, buf.Bytes())
		// the final nibble byte holds both rows of the last tuple class;
		// rewriting it leaves the declared third class unattained
		bad[len(bad)-1] = 0x11
		_, _, err = Read(bad, g.NumRows(), engine)
		require.ErrorIs(t, err, errs.ErrCardinalityMismatch)

		// an index beyond the declared cardinality is rejected the same way
		bad[len(bad)-1] = 0xFF
		_, _, err = Read(bad, g.NumRows(), engine)
		require.ErrorIs(t, err, errs.ErrCardinalityMismatch)
	})

	t.Run("truncated payload", func(t *testing.T) {
		blk := testBlock(t)
		g, err := Encode(blk, []int{0, 1}, format.TypeDDC)
		require.NoError(t, err)

		buf := pool.GetGroupBuffer()
		defer pool.PutGroupBuffer(buf)
		g.AppendTo(buf, engine)

		_, _, err = Read(buf.Bytes()[:buf.Len()-3], g.NumRows(), engine)
		require.ErrorIs(t, err, errs.ErrTruncatedPayload)
	})
}
