package mapping

import (
	"math/bits"

	"github.com/arloliu/colpack/format"
)

// Bit packs tuple indexes at one bit per position, for dictionaries of at
// most two tuples.
type Bit struct {
	words  []uint64
	size   int
	unique int
}

var _ Mapping = (*Bit)(nil)

func newBit(values []int, unique int) *Bit {
	words := make([]uint64, (len(values)+63)/64)
	for i, v := range values {
		if v != 0 {
			words[i/64] |= 1 << (i % 64)
		}
	}

	return &Bit{words: words, size: len(values), unique: unique}
}

func newBitRaw(words []uint64, size, unique int) *Bit {
	return &Bit{words: words, size: size, unique: unique}
}

func (m *Bit) Type() format.MapType { return format.MapBit }
func (m *Bit) Size() int            { return m.size }
func (m *Bit) Unique() int          { return m.unique }

func (m *Bit) Index(i int) int {
	return int(m.words[i/64] >> (i % 64) & 1)
}

func (m *Bit) Counts() []int { return countsOf(m) }

func (m *Bit) CountsInto(out []int) {
	ones := 0
	for _, w := range m.words {
		ones += bits.OnesCount64(w)
	}
	out[0] += m.size - ones
	if m.unique > 1 {
		out[1] += ones
	}
}

func (m *Bit) MemSize() int64 {
	return 40 + int64(len(m.words))*8
}
