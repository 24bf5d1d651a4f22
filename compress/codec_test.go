package compress

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/colpack/format"
)

// testPayload mimics a serialized group: repetitive float64 bit patterns
// followed by small gap bytes.
func testPayload() []byte {
	rng := rand.New(rand.NewSource(1))
	buf := make([]byte, 0, 8*1024)
	for i := 0; i < 512; i++ {
		bits := math.Float64bits(float64(rng.Intn(16)))
		for s := 0; s < 64; s += 8 {
			buf = append(buf, byte(bits>>s))
		}
	}
	for i := 0; i < 2048; i++ {
		buf = append(buf, byte(rng.Intn(32)))
	}

	return buf
}

func TestCodec_RoundTrip(t *testing.T) {
	payload := testPayload()

	for _, ct := range []format.CodecType{
		format.CodecNone,
		format.CodecZstd,
		format.CodecS2,
		format.CodecLZ4,
	} {
		t.Run(ct.String(), func(t *testing.T) {
			codec, err := GetCodec(ct)
			require.NoError(t, err)

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)

			back, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.True(t, bytes.Equal(payload, back))

			if ct != format.CodecNone {
				require.Less(t, len(compressed), len(payload), "repetitive payload should shrink")
			}
		})
	}
}

func TestCodec_EmptyInput(t *testing.T) {
	for _, ct := range []format.CodecType{
		format.CodecNone,
		format.CodecS2,
		format.CodecLZ4,
	} {
		codec, err := GetCodec(ct)
		require.NoError(t, err)

		compressed, err := codec.Compress(nil)
		require.NoError(t, err)

		back, err := codec.Decompress(compressed)
		require.NoError(t, err)
		require.Empty(t, back)
	}
}

func TestCodec_CorruptedInput(t *testing.T) {
	garbage := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03}

	zc, err := GetCodec(format.CodecZstd)
	require.NoError(t, err)
	_, err = zc.Decompress(garbage)
	require.Error(t, err)

	sc, err := GetCodec(format.CodecS2)
	require.NoError(t, err)
	_, err = sc.Decompress(garbage)
	require.Error(t, err)
}

func TestGetCodec_Unknown(t *testing.T) {
	_, err := GetCodec(format.CodecType(0x7F))
	require.Error(t, err)
}
