package mapping

import "github.com/arloliu/colpack/format"

// Int stores tuple indexes at four bytes per position, the fallback for
// dictionaries beyond 65536 tuples.
type Int struct {
	data   []uint32
	unique int
}

var _ Mapping = (*Int)(nil)

func newInt(values []int, unique int) *Int {
	data := make([]uint32, len(values))
	for i, v := range values {
		data[i] = uint32(v)
	}

	return &Int{data: data, unique: unique}
}

func newIntRaw(data []uint32, unique int) *Int {
	return &Int{data: data, unique: unique}
}

func (m *Int) Type() format.MapType { return format.MapInt }
func (m *Int) Size() int            { return len(m.data) }
func (m *Int) Unique() int          { return m.unique }

func (m *Int) Index(i int) int {
	return int(m.data[i])
}

func (m *Int) Counts() []int { return countsOf(m) }

func (m *Int) CountsInto(out []int) {
	for _, v := range m.data {
		out[v]++
	}
}

func (m *Int) MemSize() int64 {
	return 32 + int64(len(m.data))*4
}
