package offset

import "github.com/arloliu/colpack/format"

// Char encodes gaps as 16-bit elements with zero reserved as the carry
// marker for gaps above 65535. Chosen for groups with sparse explicit rows
// where byte-width streams would drown in carry markers.
type Char struct {
	gaps   []uint16
	first  int
	last   int
	count  int
	noZero bool
}

var _ Offsets = (*Char)(nil)

// NewChar encodes the strictly increasing row indexes at char width.
func NewChar(indexes []int) (*Char, error) {
	if err := validate(indexes); err != nil {
		return nil, err
	}

	gaps := make([]uint16, gapElements(indexes, maxCharV))
	p := 0
	for i := 1; i < len(indexes); i++ {
		gap := indexes[i] - indexes[i-1]
		div, mod := gap/maxCharV, gap%maxCharV
		if mod == 0 {
			p += div - 1 // carry markers stay zero
			gaps[p] = maxCharV
		} else {
			p += div
			gaps[p] = uint16(mod)
		}
		p++
	}

	return newCharRaw(gaps, indexes[0], indexes[len(indexes)-1]), nil
}

func newCharRaw(gaps []uint16, first, last int) *Char {
	c := &Char{
		gaps:  gaps,
		first: first,
		last:  last,
		count: countNonZeroChars(gaps),
	}
	c.noZero = c.count == len(gaps)+1

	return c
}

func (c *Char) Type() format.OffsetType { return format.OffsetChar }
func (c *Char) First() int              { return c.first }
func (c *Char) Last() int               { return c.last }
func (c *Char) Count() int              { return c.count }

func (c *Char) MemSize() int64 {
	return 48 + int64(len(c.gaps))*2
}

func (c *Char) Iterator() Iterator {
	return &charIterator{src: c, offset: c.first}
}

type charIterator struct {
	src       *Char
	index     int
	dataIndex int
	offset    int
}

func (it *charIterator) Next() int {
	v := it.src.gaps[it.index]
	for v == 0 {
		it.offset += maxCharV
		it.index++
		v = it.src.gaps[it.index]
	}
	it.offset += int(v)
	it.index++
	it.dataIndex++

	return it.offset
}

func (it *charIterator) Value() int {
	return it.offset
}

func (it *charIterator) DataIndex() int {
	return it.dataIndex
}

func (it *charIterator) SkipTo(idx int) int {
	if it.src.noZero {
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

func (it *charIterator) Clone() Iterator {
	c := *it
	return &c
}
