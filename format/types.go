package format

type (
	// CompressionType identifies the column-group encoding scheme.
	CompressionType uint8
	// OffsetType identifies the element width of an offset stream.
	OffsetType uint8
	// MapType identifies the bit width of a mapping stream.
	MapType uint8
	// CodecType identifies the container payload compression codec.
	CodecType uint8
	// EstimationType selects the distinct-count correction formula used by
	// the sample-based size estimator.
	EstimationType uint8
)

const (
	TypeEmpty         CompressionType = 0x1 // TypeEmpty represents a group of all-zero columns.
	TypeConst         CompressionType = 0x2 // TypeConst represents a group with a single constant tuple.
	TypeUncompressed  CompressionType = 0x3 // TypeUncompressed represents a raw sub-block of the input.
	TypeDDC           CompressionType = 0x4 // TypeDDC represents dense dictionary encoding.
	TypeSDC           CompressionType = 0x5 // TypeSDC represents sparse encoding with a non-zero default tuple.
	TypeSDCZero       CompressionType = 0x6 // TypeSDCZero represents sparse encoding with an all-zero default.
	TypeSDCSingle     CompressionType = 0x7 // TypeSDCSingle represents SDC with exactly one distinct tuple.
	TypeSDCSingleZero CompressionType = 0x8 // TypeSDCSingleZero represents SDCZero with exactly one distinct tuple.
	TypeRLE           CompressionType = 0x9 // TypeRLE represents run-length encoding.
	TypeOLE           CompressionType = 0xA // TypeOLE represents offset-list encoding.

	OffsetByte   OffsetType = 0x1 // OffsetByte represents 8-bit gap elements.
	OffsetChar   OffsetType = 0x2 // OffsetChar represents 16-bit gap elements.
	OffsetBitmap OffsetType = 0x3 // OffsetBitmap represents a bitset over rows.

	MapBit    MapType = 0x1 // MapBit represents 1-bit packing.
	MapNibble MapType = 0x2 // MapNibble represents 4-bit packing.
	MapByte   MapType = 0x3 // MapByte represents 8-bit packing.
	MapChar   MapType = 0x4 // MapChar represents 16-bit packing.
	MapInt    MapType = 0x5 // MapInt represents 32-bit packing.

	CodecNone CodecType = 0x1 // CodecNone represents no compression.
	CodecZstd CodecType = 0x2 // CodecZstd represents Zstandard compression.
	CodecS2   CodecType = 0x3 // CodecS2 represents S2 compression.
	CodecLZ4  CodecType = 0x4 // CodecLZ4 represents LZ4 compression.

	EstimationChao   EstimationType = 0x1 // EstimationChao represents Chao's coverage-based estimator.
	EstimationScaled EstimationType = 0x2 // EstimationScaled represents naive linear scaling.
)

func (c CompressionType) String() string {
	switch c {
	case TypeEmpty:
		return "Empty"
	case TypeConst:
		return "Const"
	case TypeUncompressed:
		return "Uncompressed"
	case TypeDDC:
		return "DDC"
	case TypeSDC:
		return "SDC"
	case TypeSDCZero:
		return "SDCZero"
	case TypeSDCSingle:
		return "SDCSingle"
	case TypeSDCSingleZero:
		return "SDCSingleZero"
	case TypeRLE:
		return "RLE"
	case TypeOLE:
		return "OLE"
	default:
		return "Unknown"
	}
}

// IsDefaultBearing reports whether the scheme carries an explicit non-zero
// default tuple for rows without an offset.
func (c CompressionType) IsDefaultBearing() bool {
	return c == TypeSDC || c == TypeSDCSingle
}

func (o OffsetType) String() string {
	switch o {
	case OffsetByte:
		return "Byte"
	case OffsetChar:
		return "Char"
	case OffsetBitmap:
		return "Bitmap"
	default:
		return "Unknown"
	}
}

func (m MapType) String() string {
	switch m {
	case MapBit:
		return "Bit"
	case MapNibble:
		return "Nibble"
	case MapByte:
		return "Byte"
	case MapChar:
		return "Char"
	case MapInt:
		return "Int"
	default:
		return "Unknown"
	}
}

func (c CodecType) String() string {
	switch c {
	case CodecNone:
		return "None"
	case CodecZstd:
		return "Zstd"
	case CodecS2:
		return "S2"
	case CodecLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

func (e EstimationType) String() string {
	switch e {
	case EstimationChao:
		return "Chao"
	case EstimationScaled:
		return "Scaled"
	default:
		return "Unknown"
	}
}
