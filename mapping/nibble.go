package mapping

import "github.com/arloliu/colpack/format"

// Nibble packs tuple indexes at four bits per position, two positions per
// byte, for dictionaries of at most 16 tuples.
type Nibble struct {
	packed []uint8
	size   int
	unique int
}

var _ Mapping = (*Nibble)(nil)

func newNibble(values []int, unique int) *Nibble {
	packed := make([]uint8, (len(values)+1)/2)
	for i, v := range values {
		packed[i/2] |= uint8(v) << ((i % 2) * 4)
	}

	return &Nibble{packed: packed, size: len(values), unique: unique}
}

func newNibbleRaw(packed []uint8, size, unique int) *Nibble {
	return &Nibble{packed: packed, size: size, unique: unique}
}

func (m *Nibble) Type() format.MapType { return format.MapNibble }
func (m *Nibble) Size() int            { return m.size }
func (m *Nibble) Unique() int          { return m.unique }

func (m *Nibble) Index(i int) int {
	return int(m.packed[i/2] >> ((i % 2) * 4) & 0xF)
}

func (m *Nibble) Counts() []int { return countsOf(m) }

func (m *Nibble) CountsInto(out []int) {
	for i := 0; i < m.size; i++ {
		out[m.Index(i)]++
	}
}

func (m *Nibble) MemSize() int64 {
	return 40 + int64(len(m.packed))
}
