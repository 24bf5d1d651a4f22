package offset

import (
	"math/bits"

	"github.com/arloliu/colpack/format"
)

// Bitmap encodes offsets as a bitset over rows 0..Last. It wins over the gap
// streams for dense groups where most rows carry an explicit value, at one
// bit per row regardless of gap structure.
type Bitmap struct {
	words []uint64
	first int
	last  int
	count int
}

var _ Offsets = (*Bitmap)(nil)

// NewBitmap encodes the strictly increasing row indexes as a bitset.
func NewBitmap(indexes []int) (*Bitmap, error) {
	if err := validate(indexes); err != nil {
		return nil, err
	}

	last := indexes[len(indexes)-1]
	words := make([]uint64, last/64+1)
	for _, idx := range indexes {
		words[idx/64] |= 1 << (idx % 64)
	}

	return &Bitmap{
		words: words,
		first: indexes[0],
		last:  last,
		count: len(indexes),
	}, nil
}

func newBitmapRaw(words []uint64, first, last int) *Bitmap {
	return &Bitmap{
		words: words,
		first: first,
		last:  last,
		count: popcount(words),
	}
}

func (b *Bitmap) Type() format.OffsetType { return format.OffsetBitmap }
func (b *Bitmap) First() int              { return b.first }
func (b *Bitmap) Last() int               { return b.last }
func (b *Bitmap) Count() int              { return b.count }

func (b *Bitmap) MemSize() int64 {
	return 48 + int64(len(b.words))*8
}

func (b *Bitmap) Iterator() Iterator {
	return &bitmapIterator{src: b, offset: b.first}
}

type bitmapIterator struct {
	src       *Bitmap
	dataIndex int
	offset    int
}

func (it *bitmapIterator) Next() int {
	pos := it.offset + 1
	w := pos / 64
	shift := uint(pos % 64)
	for w < len(it.src.words) {
		masked := it.src.words[w] &^ (1<<shift - 1)
		if masked != 0 {
			it.offset = w*64 + bits.TrailingZeros64(masked)
			it.dataIndex++

			return it.offset
		}
		w++
		shift = 0
	}

	return it.offset
}

func (it *bitmapIterator) Value() int {
	return it.offset
}

func (it *bitmapIterator) DataIndex() int {
	return it.dataIndex
}

func (it *bitmapIterator) SkipTo(idx int) int {
	// DataIndex must stay in sync with the parallel mapping array, so every
	// set bit is stepped over; Next already hops empty words in one go.
	for it.offset < idx && it.dataIndex < it.src.count-1 {
		it.Next()
	}

	return it.offset
}

func (it *bitmapIterator) Clone() Iterator {
	c := *it
	return &c
}
