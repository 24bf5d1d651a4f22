package colgroup

import (
	"fmt"
	"math"

	"github.com/arloliu/colpack/dict"
	"github.com/arloliu/colpack/endian"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/internal/pool"
	"github.com/arloliu/colpack/mapping"
	"github.com/arloliu/colpack/offset"
)

// Serialized layout, shared by all variants:
//
//	[1-byte type tag][4-byte column count][4-byte column indexes...]
//	[dictionary][scheme payload]
//
// Empty and Uncompressed carry no dictionary. Scheme payloads follow in the
// fixed order default tuple, offsets, mapping, with the parts the variant
// does not use omitted. Row count is not part of the layout; it travels in
// the enclosing container header and is passed back into Read.

func appendGroupHeader(buf *pool.ByteBuffer, engine endian.EndianEngine, t format.CompressionType, cols []int) {
	buf.B = append(buf.B, byte(t))
	buf.B = engine.AppendUint32(buf.B, uint32(len(cols)))
	for _, c := range cols {
		buf.B = engine.AppendUint32(buf.B, uint32(c))
	}
}

func groupHeaderSize(cols []int) int {
	return 1 + 4 + 4*len(cols)
}

func appendTuple(buf *pool.ByteBuffer, engine endian.EndianEngine, tuple []float64) {
	for _, v := range tuple {
		buf.B = engine.AppendUint64(buf.B, math.Float64bits(v))
	}
}

func readTuple(data []byte, n int, engine endian.EndianEngine) ([]float64, int, error) {
	if len(data) < n*8 {
		return nil, 0, fmt.Errorf("colgroup: tuple of %d values: %w", n, errs.ErrTruncatedPayload)
	}

	tuple := make([]float64, n)
	for i := range tuple {
		tuple[i] = math.Float64frombits(engine.Uint64(data[i*8 : i*8+8]))
	}

	return tuple, n * 8, nil
}

func (g *Empty) AppendTo(buf *pool.ByteBuffer, engine endian.EndianEngine) {
	appendGroupHeader(buf, engine, format.TypeEmpty, g.cols)
}

func (g *Empty) SizeOnDisk() int { return groupHeaderSize(g.cols) }

func (g *Const) AppendTo(buf *pool.ByteBuffer, engine endian.EndianEngine) {
	appendGroupHeader(buf, engine, format.TypeConst, g.cols)
	g.dict.AppendTo(buf, engine)
}

func (g *Const) SizeOnDisk() int {
	return groupHeaderSize(g.cols) + 4 + len(g.cols)*8
}

func (g *Uncompressed) AppendTo(buf *pool.ByteBuffer, engine endian.EndianEngine) {
	appendGroupHeader(buf, engine, format.TypeUncompressed, g.cols)
	appendTuple(buf, engine, g.data)
}

func (g *Uncompressed) SizeOnDisk() int {
	return groupHeaderSize(g.cols) + len(g.data)*8
}

func (g *DDC) AppendTo(buf *pool.ByteBuffer, engine endian.EndianEngine) {
	appendGroupHeader(buf, engine, format.TypeDDC, g.cols)
	g.dict.AppendTo(buf, engine)
	mapping.AppendTo(g.data, buf, engine)
}

func (g *DDC) SizeOnDisk() int {
	return groupHeaderSize(g.cols) + 4 + g.dict.NumTuples()*len(g.cols)*8 + mapping.SizeOnDisk(g.data)
}

func (g *SDC) AppendTo(buf *pool.ByteBuffer, engine endian.EndianEngine) {
	appendGroupHeader(buf, engine, format.TypeSDC, g.cols)
	g.dict.AppendTo(buf, engine)
	appendTuple(buf, engine, g.defaultTuple)
	offset.AppendTo(g.offsets, buf, engine)
	mapping.AppendTo(g.data, buf, engine)
}

func (g *SDC) SizeOnDisk() int {
	return groupHeaderSize(g.cols) + 4 + g.dict.NumTuples()*len(g.cols)*8 +
		len(g.defaultTuple)*8 + offset.SizeOnDisk(g.offsets) + mapping.SizeOnDisk(g.data)
}

func (g *SDCZero) AppendTo(buf *pool.ByteBuffer, engine endian.EndianEngine) {
	appendGroupHeader(buf, engine, format.TypeSDCZero, g.cols)
	g.dict.AppendTo(buf, engine)
	offset.AppendTo(g.offsets, buf, engine)
	mapping.AppendTo(g.data, buf, engine)
}

func (g *SDCZero) SizeOnDisk() int {
	return groupHeaderSize(g.cols) + 4 + g.dict.NumTuples()*len(g.cols)*8 +
		offset.SizeOnDisk(g.offsets) + mapping.SizeOnDisk(g.data)
}

func (g *SDCSingle) AppendTo(buf *pool.ByteBuffer, engine endian.EndianEngine) {
	appendGroupHeader(buf, engine, format.TypeSDCSingle, g.cols)
	g.dict.AppendTo(buf, engine)
	appendTuple(buf, engine, g.defaultTuple)
	offset.AppendTo(g.offsets, buf, engine)
}

func (g *SDCSingle) SizeOnDisk() int {
	return groupHeaderSize(g.cols) + 4 + len(g.cols)*8 +
		len(g.defaultTuple)*8 + offset.SizeOnDisk(g.offsets)
}

func (g *SDCSingleZero) AppendTo(buf *pool.ByteBuffer, engine endian.EndianEngine) {
	appendGroupHeader(buf, engine, format.TypeSDCSingleZero, g.cols)
	g.dict.AppendTo(buf, engine)
	offset.AppendTo(g.offsets, buf, engine)
}

func (g *SDCSingleZero) SizeOnDisk() int {
	return groupHeaderSize(g.cols) + 4 + len(g.cols)*8 + offset.SizeOnDisk(g.offsets)
}

func (g *RLE) AppendTo(buf *pool.ByteBuffer, engine endian.EndianEngine) {
	appendGroupHeader(buf, engine, format.TypeRLE, g.cols)
	g.dict.AppendTo(buf, engine)
	for _, p := range g.ptr {
		buf.B = engine.AppendUint32(buf.B, uint32(p))
	}
	for _, r := range g.runs {
		buf.B = engine.AppendUint32(buf.B, r)
	}
}

func (g *RLE) SizeOnDisk() int {
	return groupHeaderSize(g.cols) + 4 + g.dict.NumTuples()*len(g.cols)*8 +
		len(g.ptr)*4 + len(g.runs)*4
}

func (g *OLE) AppendTo(buf *pool.ByteBuffer, engine endian.EndianEngine) {
	appendGroupHeader(buf, engine, format.TypeOLE, g.cols)
	g.dict.AppendTo(buf, engine)
	for _, l := range g.lists {
		offset.AppendTo(l, buf, engine)
	}
}

func (g *OLE) SizeOnDisk() int {
	size := groupHeaderSize(g.cols) + 4 + g.dict.NumTuples()*len(g.cols)*8
	for _, l := range g.lists {
		size += offset.SizeOnDisk(l)
	}

	return size
}

// readMapping deserializes a mapping and verifies every declared tuple index
// actually occurs. In-memory construction guarantees this, a corrupt stream
// can declare a cardinality no packed value attains.
func readMapping(data []byte, engine endian.EndianEngine) (mapping.Mapping, int, error) {
	m, n, err := mapping.Read(data, engine)
	if err != nil {
		return nil, 0, err
	}
	if d := mapping.DistinctCount(m); d != m.Unique() {
		return nil, 0, fmt.Errorf("colgroup: mapping declares %d distinct tuples but packs %d: %w",
			m.Unique(), d, errs.ErrCardinalityMismatch)
	}

	return m, n, nil
}

// Read deserializes one column group from data, dispatching on the type tag,
// and returns the group and the number of bytes consumed. numRows is the row
// count recorded by the enclosing container.
func Read(data []byte, numRows int, engine endian.EndianEngine) (ColGroup, int, error) {
	if len(data) < 5 {
		return nil, 0, fmt.Errorf("colgroup: group header: %w", errs.ErrTruncatedPayload)
	}

	tag := format.CompressionType(data[0])
	nCols := int(engine.Uint32(data[1:5]))
	if len(data) < 5+nCols*4 {
		return nil, 0, fmt.Errorf("colgroup: header with %d columns: %w", nCols, errs.ErrTruncatedPayload)
	}
	cols := make([]int, nCols)
	for i := range cols {
		cols[i] = int(engine.Uint32(data[5+i*4 : 9+i*4]))
	}
	pos := 5 + nCols*4

	switch tag {
	case format.TypeEmpty:
		return NewEmpty(cols, numRows), pos, nil

	case format.TypeConst:
		d, n, err := dict.Read(data[pos:], nCols, engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		g, err := NewConst(cols, numRows, d.Values())

		return g, pos, err

	case format.TypeUncompressed:
		raw, n, err := readTuple(data[pos:], numRows*nCols, engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		g, err := NewUncompressed(cols, numRows, raw)

		return g, pos, err

	case format.TypeDDC:
		d, n, err := dict.Read(data[pos:], nCols, engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		m, n, err := readMapping(data[pos:], engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		g, err := NewDDC(cols, numRows, d, m)

		return g, pos, err

	case format.TypeSDC:
		d, n, err := dict.Read(data[pos:], nCols, engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		def, n, err := readTuple(data[pos:], nCols, engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		off, n, err := offset.Read(data[pos:], engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		m, n, err := readMapping(data[pos:], engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		g, err := NewSDC(cols, numRows, d, off, m, def)

		return g, pos, err

	case format.TypeSDCZero:
		d, n, err := dict.Read(data[pos:], nCols, engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		off, n, err := offset.Read(data[pos:], engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		m, n, err := readMapping(data[pos:], engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		g, err := NewSDCZero(cols, numRows, d, off, m)

		return g, pos, err

	case format.TypeSDCSingle:
		d, n, err := dict.Read(data[pos:], nCols, engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		def, n, err := readTuple(data[pos:], nCols, engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		off, n, err := offset.Read(data[pos:], engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		g, err := NewSDCSingle(cols, numRows, d, off, def)

		return g, pos, err

	case format.TypeSDCSingleZero:
		d, n, err := dict.Read(data[pos:], nCols, engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		off, n, err := offset.Read(data[pos:], engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		g, err := NewSDCSingleZero(cols, numRows, d, off)

		return g, pos, err

	case format.TypeRLE:
		d, n, err := dict.Read(data[pos:], nCols, engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		k := d.NumTuples()
		if len(data[pos:]) < (k+1)*4 {
			return nil, 0, fmt.Errorf("colgroup: RLE boundaries for %d tuples: %w", k, errs.ErrTruncatedPayload)
		}
		ptr := make([]int32, k+1)
		for i := range ptr {
			v := engine.Uint32(data[pos+i*4 : pos+i*4+4])
			if v > math.MaxInt32 {
				return nil, 0, fmt.Errorf("colgroup: RLE boundary %d: %w", v, errs.ErrIndexOutOfRange)
			}
			ptr[i] = int32(v)
		}
		pos += (k + 1) * 4
		nRuns := int(ptr[k]) * 2
		if len(data[pos:]) < nRuns*4 {
			return nil, 0, fmt.Errorf("colgroup: RLE stream of %d runs: %w", nRuns/2, errs.ErrTruncatedPayload)
		}
		runs := make([]uint32, nRuns)
		for i := range runs {
			runs[i] = engine.Uint32(data[pos+i*4 : pos+i*4+4])
		}
		pos += nRuns * 4
		g, err := NewRLE(cols, numRows, d, ptr, runs)

		return g, pos, err

	case format.TypeOLE:
		d, n, err := dict.Read(data[pos:], nCols, engine)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		lists := make([]offset.Offsets, d.NumTuples())
		for i := range lists {
			l, n, err := offset.Read(data[pos:], engine)
			if err != nil {
				return nil, 0, err
			}
			lists[i] = l
			pos += n
		}
		g, err := NewOLE(cols, numRows, d, lists)

		return g, pos, err

	default:
		return nil, 0, fmt.Errorf("colgroup: type tag 0x%x: %w", data[0], errs.ErrInvalidTypeTag)
	}
}
