package offset

import (
	"fmt"

	"github.com/arloliu/colpack/endian"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/internal/pool"
)

// Serialized layout, shared by all widths:
//
//	[1-byte width tag][4-byte offsetToFirst][4-byte element count][4-byte offsetToLast][elements...]
//
// Elements are the raw gap stream (1 or 2 bytes each) or the bitmap words
// (8 bytes each); the element count is the physical element count, not the
// logical offset count, which is recovered by scanning.
const headerSize = 1 + 4 + 4 + 4

// AppendTo serializes off into buf.
func AppendTo(off Offsets, buf *pool.ByteBuffer, engine endian.EndianEngine) {
	switch o := off.(type) {
	case *Byte:
		buf.Grow(headerSize + len(o.gaps))
		appendHeader(buf, engine, format.OffsetByte, o.first, len(o.gaps), o.last)
		buf.MustWrite(o.gaps)
	case *Char:
		buf.Grow(headerSize + len(o.gaps)*2)
		appendHeader(buf, engine, format.OffsetChar, o.first, len(o.gaps), o.last)
		for _, g := range o.gaps {
			buf.B = engine.AppendUint16(buf.B, g)
		}
	case *Bitmap:
		buf.Grow(headerSize + len(o.words)*8)
		appendHeader(buf, engine, format.OffsetBitmap, o.first, len(o.words), o.last)
		for _, w := range o.words {
			buf.B = engine.AppendUint64(buf.B, w)
		}
	default:
		panic(fmt.Sprintf("offset: unknown offsets implementation %T", off))
	}
}

func appendHeader(buf *pool.ByteBuffer, engine endian.EndianEngine, tag format.OffsetType, first, elements, last int) {
	buf.B = append(buf.B, byte(tag))
	buf.B = engine.AppendUint32(buf.B, uint32(first))
	buf.B = engine.AppendUint32(buf.B, uint32(elements))
	buf.B = engine.AppendUint32(buf.B, uint32(last))
}

// SizeOnDisk returns the exact serialized size of off in bytes.
func SizeOnDisk(off Offsets) int {
	switch o := off.(type) {
	case *Byte:
		return headerSize + len(o.gaps)
	case *Char:
		return headerSize + len(o.gaps)*2
	case *Bitmap:
		return headerSize + len(o.words)*8
	default:
		panic(fmt.Sprintf("offset: unknown offsets implementation %T", off))
	}
}

// Read deserializes an offset encoding from data, dispatching on the width
// tag, and returns the encoding and the number of bytes consumed.
func Read(data []byte, engine endian.EndianEngine) (Offsets, int, error) {
	if len(data) < headerSize {
		return nil, 0, fmt.Errorf("offset: header needs %d bytes, have %d: %w",
			headerSize, len(data), errs.ErrTruncatedPayload)
	}

	tag := format.OffsetType(data[0])
	first := int(engine.Uint32(data[1:5]))
	elements := int(engine.Uint32(data[5:9]))
	last := int(engine.Uint32(data[9:13]))
	payload := data[headerSize:]

	switch tag {
	case format.OffsetByte:
		if len(payload) < elements {
			return nil, 0, fmt.Errorf("offset: byte stream of %d elements: %w", elements, errs.ErrTruncatedPayload)
		}
		gaps := make([]uint8, elements)
		copy(gaps, payload[:elements])

		return newByteRaw(gaps, first, last), headerSize + elements, nil

	case format.OffsetChar:
		if len(payload) < elements*2 {
			return nil, 0, fmt.Errorf("offset: char stream of %d elements: %w", elements, errs.ErrTruncatedPayload)
		}
		gaps := make([]uint16, elements)
		for i := range gaps {
			gaps[i] = engine.Uint16(payload[i*2 : i*2+2])
		}

		return newCharRaw(gaps, first, last), headerSize + elements*2, nil

	case format.OffsetBitmap:
		if len(payload) < elements*8 {
			return nil, 0, fmt.Errorf("offset: bitmap of %d words: %w", elements, errs.ErrTruncatedPayload)
		}
		words := make([]uint64, elements)
		for i := range words {
			words[i] = engine.Uint64(payload[i*8 : i*8+8])
		}

		return newBitmapRaw(words, first, last), headerSize + elements*8, nil

	default:
		return nil, 0, fmt.Errorf("offset: width tag 0x%x: %w", data[0], errs.ErrInvalidTypeTag)
	}
}
