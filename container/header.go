package container

import (
	"fmt"

	"github.com/arloliu/colpack/endian"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
)

const (
	// HeaderSize is the fixed container header size in bytes.
	HeaderSize = 24

	// magicNumberMask selects the magic bits of the Options field.
	magicNumberMask = 0xFFF0
	// MagicContainerV1 identifies a version 1 colpack container.
	MagicContainerV1 = 0xC510

	endiannessMask  = 0x0001
	littleEndianOpt = 0x0001
)

// Flag is the packed options field of the container header: bits 4-15 hold
// the magic number, bit 0 the payload endianness, the remaining bits are
// reserved and must be zero.
type Flag struct {
	Options uint16
	Codec   uint8
	// Reserved must be zero; non-zero values are rejected on parse so the
	// byte stays available for future layout revisions.
	Reserved uint8
}

// NewFlag creates a Flag for a little-endian container with the given codec.
func NewFlag(codec format.CodecType) Flag {
	return Flag{
		Options: MagicContainerV1 | littleEndianOpt,
		Codec:   uint8(codec),
	}
}

// GetMagicNumber returns the magic bits of the Options field.
func (f Flag) GetMagicNumber() uint16 {
	return f.Options & magicNumberMask
}

// IsLittleEndian reports whether the payload is little-endian.
func (f Flag) IsLittleEndian() bool {
	return f.Options&endiannessMask == littleEndianOpt
}

// GetEndianEngine returns the engine matching the payload endianness.
func (f Flag) GetEndianEngine() endian.EndianEngine {
	if f.IsLittleEndian() {
		return endian.GetLittleEndianEngine()
	}

	return endian.GetBigEndianEngine()
}

// CodecType returns the payload codec.
func (f Flag) CodecType() format.CodecType {
	return format.CodecType(f.Codec)
}

// Validate checks the magic number and the reserved byte.
func (f Flag) Validate() error {
	if f.GetMagicNumber() != MagicContainerV1 {
		return fmt.Errorf("container flag 0x%04X: %w", f.Options, errs.ErrInvalidMagicNumber)
	}
	if f.Reserved != 0 {
		return fmt.Errorf("container reserved byte 0x%02X is not zero: %w", f.Reserved, errs.ErrInvalidTypeTag)
	}

	return nil
}

// Header is the fixed-size section at the start of a container blob.
//
// Layout:
//
//	[0:2]   Options (always little-endian)
//	[2]     codec type
//	[3]     reserved
//	[4:8]   group count
//	[8:12]  row count
//	[12:16] uncompressed payload size
//	[16:24] xxhash64 checksum of the compressed payload
type Header struct {
	Flag        Flag
	GroupCount  uint32
	RowCount    uint32
	PayloadSize uint32
	Checksum    uint64
}

// NewHeader creates a header for a container of groupCount groups spanning
// rowCount rows. Payload size and checksum are filled by Pack.
func NewHeader(codec format.CodecType, groupCount, rowCount int) *Header {
	return &Header{
		Flag:       NewFlag(codec),
		GroupCount: uint32(groupCount),
		RowCount:   uint32(rowCount),
	}
}

// Bytes serializes the header.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderSize)

	// the Options field is little-endian regardless of payload endianness,
	// so parsers can read the endianness bit before picking an engine
	b[0] = byte(h.Flag.Options)
	b[1] = byte(h.Flag.Options >> 8)
	b[2] = h.Flag.Codec
	b[3] = h.Flag.Reserved

	engine := h.Flag.GetEndianEngine()
	engine.PutUint32(b[4:8], h.GroupCount)
	engine.PutUint32(b[8:12], h.RowCount)
	engine.PutUint32(b[12:16], h.PayloadSize)
	engine.PutUint64(b[16:24], h.Checksum)

	return b
}

// Parse parses and validates a header from the start of data.
func (h *Header) Parse(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("container header needs %d bytes, got %d: %w",
			HeaderSize, len(data), errs.ErrTruncatedPayload)
	}

	h.Flag.Options = uint16(data[0]) | uint16(data[1])<<8
	h.Flag.Codec = data[2]
	h.Flag.Reserved = data[3]
	if err := h.Flag.Validate(); err != nil {
		return err
	}

	engine := h.Flag.GetEndianEngine()
	h.GroupCount = engine.Uint32(data[4:8])
	h.RowCount = engine.Uint32(data[8:12])
	h.PayloadSize = engine.Uint32(data[12:16])
	h.Checksum = engine.Uint64(data[16:24])

	return nil
}
