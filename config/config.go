// Package config holds the compression settings consumed by the estimator
// and the compression entry points.
package config

import (
	"fmt"

	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/internal/options"
)

const (
	// DefaultSampleRatio is the fraction of rows drawn by the sample-based
	// estimator.
	DefaultSampleRatio = 0.05
	// DefaultMinSampleSize is the floor on the estimator sample size.
	DefaultMinSampleSize = 2000
)

// Settings configures compression and estimation behavior.
type Settings struct {
	// ValidCompressions restricts which schemes the planner may choose.
	// Empty means all schemes are allowed.
	ValidCompressions []format.CompressionType
	// SampleRatio is the fraction of rows the sample estimator draws,
	// in (0, 1]. A ratio of 1 forces exact estimation.
	SampleRatio float64
	// MinSampleSize is the minimum number of sampled rows.
	MinSampleSize int
	// Seed makes sampling deterministic. Zero seeds from the default source.
	Seed int64
	// Transposed marks the input block as column-major.
	Transposed bool
	// Estimation selects the distinct-count correction formula.
	Estimation format.EstimationType
	// Codec selects the container payload compression.
	Codec format.CodecType
}

// Option is a functional option for Settings.
type Option = options.Option[*Settings]

// New creates Settings with defaults overridden by the given options.
func New(opts ...Option) (*Settings, error) {
	s := &Settings{
		SampleRatio:   DefaultSampleRatio,
		MinSampleSize: DefaultMinSampleSize,
		Estimation:    format.EstimationChao,
		Codec:         format.CodecZstd,
	}
	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}

	return s, nil
}

// Default returns Settings with all defaults.
func Default() *Settings {
	s, _ := New()

	return s
}

// Allows reports whether the settings permit the given scheme.
func (s *Settings) Allows(t format.CompressionType) bool {
	if len(s.ValidCompressions) == 0 {
		return true
	}
	for _, v := range s.ValidCompressions {
		if v == t {
			return true
		}
	}

	return false
}

// WithValidCompressions restricts the schemes the planner may choose.
func WithValidCompressions(types ...format.CompressionType) Option {
	return options.NoError(func(s *Settings) {
		s.ValidCompressions = types
	})
}

// WithSampleRatio sets the estimator sample ratio, in (0, 1].
func WithSampleRatio(ratio float64) Option {
	return options.New(func(s *Settings) error {
		if ratio <= 0 || ratio > 1 {
			return fmt.Errorf("config: sample ratio %v outside (0, 1]", ratio)
		}
		s.SampleRatio = ratio

		return nil
	})
}

// WithMinSampleSize sets the minimum number of sampled rows.
func WithMinSampleSize(n int) Option {
	return options.New(func(s *Settings) error {
		if n <= 0 {
			return fmt.Errorf("config: minimum sample size %d must be positive", n)
		}
		s.MinSampleSize = n

		return nil
	})
}

// WithSeed makes estimator sampling deterministic.
func WithSeed(seed int64) Option {
	return options.NoError(func(s *Settings) {
		s.Seed = seed
	})
}

// WithTransposed marks the input block as column-major.
func WithTransposed(transposed bool) Option {
	return options.NoError(func(s *Settings) {
		s.Transposed = transposed
	})
}

// WithEstimationType selects the distinct-count correction formula.
func WithEstimationType(t format.EstimationType) Option {
	return options.NoError(func(s *Settings) {
		s.Estimation = t
	})
}

// WithCodec selects the container payload compression codec.
func WithCodec(c format.CodecType) Option {
	return options.NoError(func(s *Settings) {
		s.Codec = c
	})
}
