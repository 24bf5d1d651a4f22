// Package compress provides the payload codecs used by the container format.
//
// A serialized group payload is a concatenation of dictionary doubles, gap
// streams and packed mappings; the doubles dominate and compress well under
// dictionary coders. Zstd is the default, S2 and LZ4 trade ratio for speed,
// and NoOp stores the payload raw.
package compress

import (
	"fmt"

	"github.com/arloliu/colpack/format"
)

// Compressor compresses a serialized payload.
type Compressor interface {
	// Compress compresses data and returns a newly allocated result.
	// The input slice is not modified and may be reused by the caller.
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a payload produced by the matching Compressor.
type Decompressor interface {
	// Decompress decompresses data and returns a newly allocated result.
	// Corrupted or mismatched input yields an error, never a partial payload.
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions. Implementations are stateless values and
// safe for concurrent use; internal encoder state lives in sync.Pools.
type Codec interface {
	Compressor
	Decompressor
}

var builtinCodecs = map[format.CodecType]Codec{
	format.CodecNone: NewNoOpCodec(),
	format.CodecZstd: NewZstdCodec(),
	format.CodecS2:   NewS2Codec(),
	format.CodecLZ4:  NewLZ4Codec(),
}

// GetCodec retrieves the built-in Codec for the given codec type.
func GetCodec(t format.CodecType) (Codec, error) {
	if codec, ok := builtinCodecs[t]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported codec type: %s", t)
}
