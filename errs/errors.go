// Package errs defines the sentinel errors returned by the colpack engine.
//
// Errors fall into three families:
//
//   - Construction-invariant violations: reported eagerly from column-group
//     constructors, aborting compression of the offending group only.
//   - Unsupported algebra: an operation that a scheme cannot answer correctly;
//     callers must pick a different scheme or decompose the operation.
//   - Serialization corruption: unexpected type tags or truncated streams,
//     surfaced to the caller of deserialization without retry.
//
// Estimation degeneracies (empty sample, all-default subsets) are not errors;
// they are handled with documented fallback values inside the estimator.
package errs

import "errors"

var (
	// ErrCardinalityMismatch indicates that a mapping's distinct count does not
	// match the dictionary tuple count at a column-group constructor boundary.
	ErrCardinalityMismatch = errors.New("mapping distinct count does not match dictionary tuple count")

	// ErrEmptyDictionary indicates a nil or zero-tuple dictionary passed to a
	// non-empty scheme constructor.
	ErrEmptyDictionary = errors.New("empty dictionary in non-empty scheme")

	// ErrZeroDefaultTuple indicates an attempt to construct a default-bearing
	// scheme with an all-zero default tuple; the zero-default constructor must
	// be used instead.
	ErrZeroDefaultTuple = errors.New("all-zero default tuple requires the zero-default constructor")

	// ErrNotSupported indicates an algebra operation that is not implemented
	// for the scheme it was invoked on.
	ErrNotSupported = errors.New("operation not supported for this scheme")

	// ErrInvalidTypeTag indicates an unrecognized type tag in a serialized
	// stream.
	ErrInvalidTypeTag = errors.New("invalid type tag")

	// ErrTruncatedPayload indicates a serialized stream shorter than its
	// declared layout.
	ErrTruncatedPayload = errors.New("truncated payload")

	// ErrInvalidMagicNumber indicates a container blob that does not start
	// with the colpack magic number.
	ErrInvalidMagicNumber = errors.New("invalid magic number")

	// ErrChecksumMismatch indicates a container payload whose checksum does
	// not match the header.
	ErrChecksumMismatch = errors.New("payload checksum mismatch")

	// ErrNotIncreasing indicates an offset sequence that is not strictly
	// increasing.
	ErrNotIncreasing = errors.New("offset sequence is not strictly increasing")

	// ErrEmptyOffsets indicates an attempt to encode an empty offset list;
	// all-default groups use the Empty scheme instead.
	ErrEmptyOffsets = errors.New("empty offset list")

	// ErrIndexOutOfRange indicates a tuple index outside the dictionary range
	// or a row index outside the group range.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvalidClassValue indicates a non-positive or out-of-range class
	// value during one-hot expansion when out-of-range values are not ignored.
	ErrInvalidClassValue = errors.New("invalid class value in one-hot expansion")

	// ErrTupleLengthMismatch indicates a tuple whose length does not match the
	// number of columns in the group.
	ErrTupleLengthMismatch = errors.New("tuple length does not match group columns")
)
