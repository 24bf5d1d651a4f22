// Package container packs a set of serialized column groups into a single
// self-describing blob.
//
// A container is a fixed 24-byte header followed by the payload: the
// serialized groups concatenated in order, optionally compressed with one of
// the compress codecs. The header carries the group count, the shared row
// count (groups do not store it themselves), the uncompressed payload size
// and an xxhash64 checksum of the stored payload. Unpack verifies the magic
// number and checksum before touching the payload.
package container

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/arloliu/colpack/colgroup"
	"github.com/arloliu/colpack/compress"
	"github.com/arloliu/colpack/errs"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/internal/pool"
)

// Pack serializes groups into one container blob. All groups must span
// numRows rows; the row count is stored once in the header and handed back
// to every group on Unpack.
func Pack(groups []colgroup.ColGroup, numRows int, codecType format.CodecType) ([]byte, error) {
	codec, err := compress.GetCodec(codecType)
	if err != nil {
		return nil, err
	}

	header := NewHeader(codecType, len(groups), numRows)
	engine := header.Flag.GetEndianEngine()

	payload := pool.GetContainerBuffer()
	defer pool.PutContainerBuffer(payload)

	for i, g := range groups {
		if g.NumRows() != numRows {
			return nil, fmt.Errorf("group %d spans %d rows, container holds %d: %w",
				i, g.NumRows(), numRows, errs.ErrTupleLengthMismatch)
		}
		g.AppendTo(payload, engine)
	}

	compressed, err := codec.Compress(payload.Bytes())
	if err != nil {
		return nil, err
	}

	header.PayloadSize = uint32(payload.Len())
	header.Checksum = xxhash.Sum64(compressed)

	out := make([]byte, 0, HeaderSize+len(compressed))
	out = append(out, header.Bytes()...)
	out = append(out, compressed...)

	return out, nil
}

// Unpack parses a container blob back into its column groups and the shared
// row count.
func Unpack(data []byte) ([]colgroup.ColGroup, int, error) {
	var header Header
	if err := header.Parse(data); err != nil {
		return nil, 0, err
	}

	compressed := data[HeaderSize:]
	if sum := xxhash.Sum64(compressed); sum != header.Checksum {
		return nil, 0, fmt.Errorf("payload checksum 0x%016X, header declares 0x%016X: %w",
			sum, header.Checksum, errs.ErrChecksumMismatch)
	}

	codec, err := compress.GetCodec(header.Flag.CodecType())
	if err != nil {
		return nil, 0, err
	}

	payload, err := codec.Decompress(compressed)
	if err != nil {
		return nil, 0, err
	}
	if len(payload) != int(header.PayloadSize) {
		return nil, 0, fmt.Errorf("payload is %d bytes, header declares %d: %w",
			len(payload), header.PayloadSize, errs.ErrTruncatedPayload)
	}

	engine := header.Flag.GetEndianEngine()
	numRows := int(header.RowCount)

	groups := make([]colgroup.ColGroup, 0, header.GroupCount)
	pos := 0
	for i := uint32(0); i < header.GroupCount; i++ {
		g, n, err := colgroup.Read(payload[pos:], numRows, engine)
		if err != nil {
			return nil, 0, fmt.Errorf("group %d: %w", i, err)
		}
		groups = append(groups, g)
		pos += n
	}
	if pos != len(payload) {
		return nil, 0, fmt.Errorf("%d trailing payload bytes after %d groups: %w",
			len(payload)-pos, header.GroupCount, errs.ErrTruncatedPayload)
	}

	return groups, numRows, nil
}
