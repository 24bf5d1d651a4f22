package mapping

import "github.com/arloliu/colpack/format"

// Char stores tuple indexes at two bytes per position, for dictionaries of
// at most 65536 tuples.
type Char struct {
	data   []uint16
	unique int
}

var _ Mapping = (*Char)(nil)

func newChar(values []int, unique int) *Char {
	data := make([]uint16, len(values))
	for i, v := range values {
		data[i] = uint16(v)
	}

	return &Char{data: data, unique: unique}
}

func newCharRaw(data []uint16, unique int) *Char {
	return &Char{data: data, unique: unique}
}

func (m *Char) Type() format.MapType { return format.MapChar }
func (m *Char) Size() int            { return len(m.data) }
func (m *Char) Unique() int          { return m.unique }

func (m *Char) Index(i int) int {
	return int(m.data[i])
}

func (m *Char) Counts() []int { return countsOf(m) }

func (m *Char) CountsInto(out []int) {
	for _, v := range m.data {
		out[v]++
	}
}

func (m *Char) MemSize() int64 {
	return 32 + int64(len(m.data))*2
}
