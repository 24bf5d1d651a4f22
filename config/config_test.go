package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/colpack/format"
)

func TestNew_Defaults(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	require.Equal(t, DefaultSampleRatio, s.SampleRatio)
	require.Equal(t, DefaultMinSampleSize, s.MinSampleSize)
	require.Equal(t, format.EstimationChao, s.Estimation)
	require.Equal(t, format.CodecZstd, s.Codec)
	require.False(t, s.Transposed)
}

func TestNew_Options(t *testing.T) {
	s, err := New(
		WithSampleRatio(0.5),
		WithMinSampleSize(100),
		WithSeed(7),
		WithTransposed(true),
		WithEstimationType(format.EstimationScaled),
		WithCodec(format.CodecLZ4),
		WithValidCompressions(format.TypeDDC, format.TypeSDC),
	)
	require.NoError(t, err)
	require.Equal(t, 0.5, s.SampleRatio)
	require.Equal(t, 100, s.MinSampleSize)
	require.EqualValues(t, 7, s.Seed)
	require.True(t, s.Transposed)
	require.Equal(t, format.EstimationScaled, s.Estimation)
	require.Equal(t, format.CodecLZ4, s.Codec)
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(WithSampleRatio(1.5))
	require.Error(t, err)

	_, err = New(WithSampleRatio(0))
	require.Error(t, err)

	_, err = New(WithMinSampleSize(0))
	require.Error(t, err)
}

func TestAllows(t *testing.T) {
	s := Default()
	require.True(t, s.Allows(format.TypeRLE))

	s, err := New(WithValidCompressions(format.TypeDDC))
	require.NoError(t, err)
	require.True(t, s.Allows(format.TypeDDC))
	require.False(t, s.Allows(format.TypeRLE))
}
