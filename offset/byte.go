package offset

import "github.com/arloliu/colpack/format"

// Byte encodes gaps as 8-bit elements with zero reserved as the carry marker
// for gaps above 255. It is the densest choice for groups whose explicit rows
// are rarely more than 255 apart.
type Byte struct {
	gaps   []uint8
	first  int
	last   int
	count  int
	noZero bool
}

var _ Offsets = (*Byte)(nil)

// NewByte encodes the strictly increasing row indexes at byte width.
func NewByte(indexes []int) (*Byte, error) {
	if err := validate(indexes); err != nil {
		return nil, err
	}

	gaps := make([]uint8, gapElements(indexes, maxByteV))
	p := 0
	for i := 1; i < len(indexes); i++ {
		gap := indexes[i] - indexes[i-1]
		div, mod := gap/maxByteV, gap%maxByteV
		if mod == 0 {
			p += div - 1 // carry markers stay zero
			gaps[p] = maxByteV
		} else {
			p += div
			gaps[p] = uint8(mod)
		}
		p++
	}

	return newByteRaw(gaps, indexes[0], indexes[len(indexes)-1]), nil
}

// newByteRaw wraps an existing gap stream, recovering the logical count and
// the no-carry fast-path flag by scanning.
func newByteRaw(gaps []uint8, first, last int) *Byte {
	b := &Byte{
		gaps:  gaps,
		first: first,
		last:  last,
		count: countNonZeroBytes(gaps),
	}
	b.noZero = b.count == len(gaps)+1

	return b
}

func (b *Byte) Type() format.OffsetType { return format.OffsetByte }
func (b *Byte) First() int              { return b.first }
func (b *Byte) Last() int               { return b.last }
func (b *Byte) Count() int              { return b.count }

func (b *Byte) MemSize() int64 {
	return 48 + int64(len(b.gaps))
}

func (b *Byte) Iterator() Iterator {
	return &byteIterator{src: b, offset: b.first}
}

type byteIterator struct {
	src       *Byte
	index     int // position in the gap stream
	dataIndex int // position in the logical sequence
	offset    int // current absolute row index
}

func (it *byteIterator) Next() int {
	v := it.src.gaps[it.index]
	for v == 0 {
		it.offset += maxByteV
		it.index++
		v = it.src.gaps[it.index]
	}
	it.offset += int(v)
	it.index++
	it.dataIndex++

	return it.offset
}

func (it *byteIterator) Value() int {
	return it.offset
}

func (it *byteIterator) DataIndex() int {
	return it.dataIndex
}

func (it *byteIterator) SkipTo(idx int) int {
	if it.src.noZero {
		// no carry markers anywhere in the stream, so every element is a
		// real gap and the zero checks can be skipped entirely
		for it.offset < idx && it.index < len(it.src.gaps) {
			it.offset += int(it.src.gaps[it.index])
			it.index++
			it.dataIndex++
		}

		return it.offset
	}

	for it.offset < idx && it.index < len(it.src.gaps) {
		it.Next()
	}

	return it.offset
}

func (it *byteIterator) Clone() Iterator {
	c := *it
	return &c
}
