package offset

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/colpack/endian"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/internal/pool"
)

var testSequences = map[string][]int{
	"single":           {7},
	"adjacent":         {0, 1, 2, 3, 4},
	"small gaps":       {3, 10, 11, 40, 41, 200},
	"byte carry":       {0, 300, 301, 1000},
	"byte carry exact": {0, 255, 510, 765},
	"char carry":       {0, 70000, 70001, 200000},
	"char carry exact": {0, 65535, 131070},
	"sparse tail":      {5, 100000},
	"zero start":       {0, 128, 256, 1024},
	"large first":      {99999, 100001},
}

func encoders() map[string]func([]int) (Offsets, error) {
	return map[string]func([]int) (Offsets, error){
		"byte":   func(idx []int) (Offsets, error) { return NewByte(idx) },
		"char":   func(idx []int) (Offsets, error) { return NewChar(idx) },
		"bitmap": func(idx []int) (Offsets, error) { return NewBitmap(idx) },
	}
}

func TestOffsets_RoundTrip(t *testing.T) {
	for encName, enc := range encoders() {
		for seqName, seq := range testSequences {
			t.Run(encName+"/"+seqName, func(t *testing.T) {
				off, err := enc(seq)
				require.NoError(t, err)

				require.Equal(t, seq[0], off.First())
				require.Equal(t, seq[len(seq)-1], off.Last())
				require.Equal(t, len(seq), off.Count())
				require.Equal(t, seq, Expand(off))
			})
		}
	}
}

func TestOffsets_SingleOffset(t *testing.T) {
	for encName, enc := range encoders() {
		t.Run(encName, func(t *testing.T) {
			off, err := enc([]int{42})
			require.NoError(t, err)
			require.Equal(t, 42, off.First())
			require.Equal(t, 42, off.Last())
			require.Equal(t, 1, off.Count())

			it := off.Iterator()
			require.Equal(t, 42, it.Value())
			require.Equal(t, 0, it.DataIndex())
		})
	}
}

func TestOffsets_InvalidInput(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := Encode(nil)
		require.ErrorIs(t, err, errs.ErrEmptyOffsets)
	})

	t.Run("not increasing", func(t *testing.T) {
		_, err := Encode([]int{1, 5, 5})
		require.ErrorIs(t, err, errs.ErrNotIncreasing)
	})

	t.Run("decreasing", func(t *testing.T) {
		_, err := Encode([]int{9, 3})
		require.ErrorIs(t, err, errs.ErrNotIncreasing)
	})

	t.Run("negative", func(t *testing.T) {
		_, err := Encode([]int{-1, 3})
		require.ErrorIs(t, err, errs.ErrNotIncreasing)
	})
}

func TestOffsets_SkipToMatchesNext(t *testing.T) {
	for encName, enc := range encoders() {
		for seqName, seq := range testSequences {
			t.Run(encName+"/"+seqName, func(t *testing.T) {
				off, err := enc(seq)
				require.NoError(t, err)

				// every target from before the first offset to past the last
				targets := []int{0, seq[0], seq[0] + 1, seq[len(seq)-1], seq[len(seq)-1] + 10}
				for _, mid := range seq {
					targets = append(targets, mid, mid+1)
				}

				for _, target := range targets {
					skip := off.Iterator()
					skip.SkipTo(target)

					walk := off.Iterator()
					for walk.Value() < target && walk.DataIndex() < off.Count()-1 {
						walk.Next()
					}

					require.Equal(t, walk.Value(), skip.Value(), "target %d", target)
					require.Equal(t, walk.DataIndex(), skip.DataIndex(), "target %d", target)
				}
			})
		}
	}
}

func TestOffsets_CloneIsIndependent(t *testing.T) {
	off, err := NewByte([]int{0, 300, 301, 1000, 1001})
	require.NoError(t, err)

	it := off.Iterator()
	it.Next()

	fork := it.Clone()
	it.Next()
	it.Next()

	require.Equal(t, 300, fork.Value())
	require.Equal(t, 1, fork.DataIndex())
	require.Equal(t, 1000, it.Value())

	require.Equal(t, 301, fork.Next())
}

func TestOffsets_RandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 25; trial++ {
		n := rng.Intn(200) + 1
		seq := make([]int, n)
		cur := rng.Intn(10)
		for i := range seq {
			seq[i] = cur
			cur += rng.Intn(700) + 1 // gaps regularly exceed byte range
		}

		for encName, enc := range encoders() {
			off, err := enc(seq)
			require.NoError(t, err, encName)
			require.Equal(t, seq, Expand(off), encName)
		}
	}
}

func TestEncode_PicksSmallestWidth(t *testing.T) {
	t.Run("moderate gaps prefer byte", func(t *testing.T) {
		seq := make([]int, 100)
		for i := range seq {
			seq[i] = i * 200
		}
		off, err := Encode(seq)
		require.NoError(t, err)
		require.Equal(t, format.OffsetByte, off.Type())
	})

	t.Run("huge gaps prefer char", func(t *testing.T) {
		off, err := Encode([]int{0, 1000000})
		require.NoError(t, err)
		require.Equal(t, format.OffsetChar, off.Type())
	})

	t.Run("dense adjacent rows prefer bitmap", func(t *testing.T) {
		seq := make([]int, 100)
		for i := range seq {
			seq[i] = i * 3
		}
		off, err := Encode(seq)
		require.NoError(t, err)
		require.Equal(t, format.OffsetBitmap, off.Type())
	})
}

func TestOffsets_SerializeRoundTrip(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	for encName, enc := range encoders() {
		for seqName, seq := range testSequences {
			t.Run(encName+"/"+seqName, func(t *testing.T) {
				off, err := enc(seq)
				require.NoError(t, err)

				buf := pool.GetGroupBuffer()
				defer pool.PutGroupBuffer(buf)

				AppendTo(off, buf, engine)
				require.Equal(t, SizeOnDisk(off), buf.Len())

				back, n, err := Read(buf.Bytes(), engine)
				require.NoError(t, err)
				require.Equal(t, buf.Len(), n)
				require.Equal(t, off.Type(), back.Type())
				require.Equal(t, seq, Expand(back))
			})
		}
	}
}

func TestRead_Corruption(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	t.Run("truncated header", func(t *testing.T) {
		_, _, err := Read([]byte{byte(format.OffsetByte), 0, 0}, engine)
		require.ErrorIs(t, err, errs.ErrTruncatedPayload)
	})

	t.Run("bad tag", func(t *testing.T) {
		data := make([]byte, headerSize)
		data[0] = 0x7F
		_, _, err := Read(data, engine)
		require.ErrorIs(t, err, errs.ErrInvalidTypeTag)
	})

	t.Run("truncated elements", func(t *testing.T) {
		off, err := NewByte([]int{1, 2, 3})
		require.NoError(t, err)

		buf := pool.GetGroupBuffer()
		defer pool.PutGroupBuffer(buf)
		AppendTo(off, buf, engine)

		_, _, err = Read(buf.Bytes()[:buf.Len()-1], engine)
		require.ErrorIs(t, err, errs.ErrTruncatedPayload)
	})
}
