package mapping

import "github.com/arloliu/colpack/format"

// Byte stores tuple indexes at one byte per position, for dictionaries of at
// most 256 tuples.
type Byte struct {
	data   []uint8
	unique int
}

var _ Mapping = (*Byte)(nil)

func newByte(values []int, unique int) *Byte {
	data := make([]uint8, len(values))
	for i, v := range values {
		data[i] = uint8(v)
	}

	return &Byte{data: data, unique: unique}
}

func newByteRaw(data []uint8, unique int) *Byte {
	return &Byte{data: data, unique: unique}
}

func (m *Byte) Type() format.MapType { return format.MapByte }
func (m *Byte) Size() int            { return len(m.data) }
func (m *Byte) Unique() int          { return m.unique }

func (m *Byte) Index(i int) int {
	return int(m.data[i])
}

func (m *Byte) Counts() []int { return countsOf(m) }

func (m *Byte) CountsInto(out []int) {
	for _, v := range m.data {
		out[v]++
	}
}

func (m *Byte) MemSize() int64 {
	return 32 + int64(len(m.data))
}
