package mapping

import (
	"fmt"

	"github.com/arloliu/colpack/endian"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/internal/pool"
)

// Serialized layout, shared by all widths:
//
//	[1-byte width tag][4-byte element count][4-byte unique count][packed bytes...]
//
// The packed region is the raw backing array at the width's native element
// size, so its length is fully determined by the header.
const headerSize = 1 + 4 + 4

// AppendTo serializes m into buf.
func AppendTo(m Mapping, buf *pool.ByteBuffer, engine endian.EndianEngine) {
	switch v := m.(type) {
	case *Bit:
		buf.Grow(headerSize + len(v.words)*8)
		appendHeader(buf, engine, format.MapBit, v.size, v.unique)
		for _, w := range v.words {
			buf.B = engine.AppendUint64(buf.B, w)
		}
	case *Nibble:
		buf.Grow(headerSize + len(v.packed))
		appendHeader(buf, engine, format.MapNibble, v.size, v.unique)
		buf.MustWrite(v.packed)
	case *Byte:
		buf.Grow(headerSize + len(v.data))
		appendHeader(buf, engine, format.MapByte, len(v.data), v.unique)
		buf.MustWrite(v.data)
	case *Char:
		buf.Grow(headerSize + len(v.data)*2)
		appendHeader(buf, engine, format.MapChar, len(v.data), v.unique)
		for _, d := range v.data {
			buf.B = engine.AppendUint16(buf.B, d)
		}
	case *Int:
		buf.Grow(headerSize + len(v.data)*4)
		appendHeader(buf, engine, format.MapInt, len(v.data), v.unique)
		for _, d := range v.data {
			buf.B = engine.AppendUint32(buf.B, d)
		}
	default:
		panic(fmt.Sprintf("mapping: unknown mapping implementation %T", m))
	}
}

func appendHeader(buf *pool.ByteBuffer, engine endian.EndianEngine, tag format.MapType, size, unique int) {
	buf.B = append(buf.B, byte(tag))
	buf.B = engine.AppendUint32(buf.B, uint32(size))
	buf.B = engine.AppendUint32(buf.B, uint32(unique))
}

// SizeOnDisk returns the exact serialized size of m in bytes.
func SizeOnDisk(m Mapping) int {
	switch v := m.(type) {
	case *Bit:
		return headerSize + len(v.words)*8
	case *Nibble:
		return headerSize + len(v.packed)
	case *Byte:
		return headerSize + len(v.data)
	case *Char:
		return headerSize + len(v.data)*2
	case *Int:
		return headerSize + len(v.data)*4
	default:
		panic(fmt.Sprintf("mapping: unknown mapping implementation %T", m))
	}
}

// Read deserializes a mapping from data, dispatching on the width tag, and
// returns the mapping and the number of bytes consumed.
func Read(data []byte, engine endian.EndianEngine) (Mapping, int, error) {
	if len(data) < headerSize {
		return nil, 0, fmt.Errorf("mapping: header needs %d bytes, have %d: %w",
			headerSize, len(data), errs.ErrTruncatedPayload)
	}

	tag := format.MapType(data[0])
	size := int(engine.Uint32(data[1:5]))
	unique := int(engine.Uint32(data[5:9]))
	payload := data[headerSize:]

	switch tag {
	case format.MapBit:
		words := (size + 63) / 64
		if len(payload) < words*8 {
			return nil, 0, fmt.Errorf("mapping: bit stream of %d words: %w", words, errs.ErrTruncatedPayload)
		}
		w := make([]uint64, words)
		for i := range w {
			w[i] = engine.Uint64(payload[i*8 : i*8+8])
		}

		return newBitRaw(w, size, unique), headerSize + words*8, nil

	case format.MapNibble:
		n := (size + 1) / 2
		if len(payload) < n {
			return nil, 0, fmt.Errorf("mapping: nibble stream of %d bytes: %w", n, errs.ErrTruncatedPayload)
		}
		packed := make([]uint8, n)
		copy(packed, payload[:n])

		return newNibbleRaw(packed, size, unique), headerSize + n, nil

	case format.MapByte:
		if len(payload) < size {
			return nil, 0, fmt.Errorf("mapping: byte stream of %d elements: %w", size, errs.ErrTruncatedPayload)
		}
		d := make([]uint8, size)
		copy(d, payload[:size])

		return newByteRaw(d, unique), headerSize + size, nil

	case format.MapChar:
		if len(payload) < size*2 {
			return nil, 0, fmt.Errorf("mapping: char stream of %d elements: %w", size, errs.ErrTruncatedPayload)
		}
		d := make([]uint16, size)
		for i := range d {
			d[i] = engine.Uint16(payload[i*2 : i*2+2])
		}

		return newCharRaw(d, unique), headerSize + size*2, nil

	case format.MapInt:
		if len(payload) < size*4 {
			return nil, 0, fmt.Errorf("mapping: int stream of %d elements: %w", size, errs.ErrTruncatedPayload)
		}
		d := make([]uint32, size)
		for i := range d {
			d[i] = engine.Uint32(payload[i*4 : i*4+4])
		}

		return newIntRaw(d, unique), headerSize + size*4, nil

	default:
		return nil, 0, fmt.Errorf("mapping: width tag 0x%x: %w", data[0], errs.ErrInvalidTypeTag)
	}
}
