// Package colpack provides columnar dictionary-based compression for dense
// and sparse float64 matrices.
//
// Colpack splits a matrix into column groups, picks a compression scheme per
// group from a size estimate, and packs the compressed groups into a single
// self-describing container blob. Compressed groups answer linear-algebra
// queries (sums, aggregates, scalar and element-wise transforms) directly,
// without decompressing.
//
// # Core Features
//
//   - Ten column-group schemes: Empty, Const, Uncompressed, DDC, the SDC
//     family (non-zero default, zero default, single-tuple variants), RLE
//     and OLE
//   - Shared dictionaries with pre-aggregated tuple math, so row aggregates
//     cost one pass over distinct tuples instead of one pass over rows
//   - Sample-based size estimation with Chao bias correction for picking
//     the cheapest scheme per column subset
//   - Container format with optional payload compression (Zstd, S2, LZ4)
//     and an xxhash64 integrity checksum
//
// # Basic Usage
//
// Compressing and decompressing a matrix:
//
//	blk := matrix.NewDense(rows, cols, values)
//	blob, err := colpack.Compress(blk)
//	if err != nil {
//	    return err
//	}
//
//	back, err := colpack.Decompress(blob)
//	if err != nil {
//	    return err
//	}
//
// Tuning compression:
//
//	blob, err := colpack.Compress(blk,
//	    config.WithSampleRatio(0.1),
//	    config.WithCodec(format.CodecS2),
//	    config.WithValidCompressions(format.TypeDDC, format.TypeSDCZero),
//	)
//
// # Package Structure
//
// This package provides the top-level compress/decompress entry points. For
// fine-grained control use the sub-packages directly: colgroup constructs
// and queries individual groups, estim prices candidate schemes, container
// handles the blob layout.
package colpack

import (
	"github.com/arloliu/colpack/colgroup"
	"github.com/arloliu/colpack/config"
	"github.com/arloliu/colpack/container"
	"github.com/arloliu/colpack/estim"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/matrix"
)

// Compress compresses a matrix block into a container blob.
//
// Columns are planned greedily: each column is estimated on a shared row
// sample, adjacent columns are co-coded into one group when the joint
// estimate beats the sum of the separate estimates, and each final group is
// encoded as its cheapest allowed scheme.
func Compress(blk matrix.Block, opts ...config.Option) ([]byte, error) {
	cfg, err := config.New(opts...)
	if err != nil {
		return nil, err
	}

	if cfg.Transposed {
		blk = matrix.NewTransposed(blk)
	}

	groups, err := planGroups(blk, cfg)
	if err != nil {
		return nil, err
	}

	return container.Pack(groups, blk.NumRows(), cfg.Codec)
}

// Decompress unpacks a container blob into a dense matrix block.
func Decompress(data []byte) (*matrix.Dense, error) {
	groups, rows, err := container.Unpack(data)
	if err != nil {
		return nil, err
	}

	cols := 0
	for _, g := range groups {
		for _, c := range g.Columns() {
			if c+1 > cols {
				cols = c + 1
			}
		}
	}

	values := make([]float64, rows*cols)
	for _, g := range groups {
		for i, c := range g.Columns() {
			for r := 0; r < rows; r++ {
				values[r*cols+c] = g.GetCell(r, i)
			}
		}
	}

	return matrix.NewDense(rows, cols, values), nil
}

// planGroups estimates every column on one shared sample, merges adjacent
// columns whose joint encoding is cheaper, and encodes the result.
func planGroups(blk matrix.Block, cfg *config.Settings) ([]colgroup.ColGroup, error) {
	// the estimator handles the transposed view itself; blk is already
	// un-transposed here
	estCfg := *cfg
	estCfg.Transposed = false
	est := estim.New(blk, &estCfg)

	nCols := blk.NumCols()
	infos := make([]*estim.Info, 0, nCols)
	for c := 0; c < nCols; c++ {
		info, err := est.Estimate([]int{c}, 0)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}

	merged := make([]*estim.Info, 0, len(infos))
	for _, next := range infos {
		if len(merged) == 0 {
			merged = append(merged, next)
			continue
		}

		cur := merged[len(merged)-1]
		joint, err := est.Combine(cur, next, 0)
		if err != nil {
			return nil, err
		}

		_, jointSize := estim.CheapestType(joint.Facts, len(joint.Cols), cfg.Allows)
		_, curSize := estim.CheapestType(cur.Facts, len(cur.Cols), cfg.Allows)
		_, nextSize := estim.CheapestType(next.Facts, len(next.Cols), cfg.Allows)

		if jointSize < curSize+nextSize {
			merged[len(merged)-1] = joint
		} else {
			merged = append(merged, next)
		}
	}

	groups := make([]colgroup.ColGroup, 0, len(merged))
	for _, info := range merged {
		ctype, _ := estim.CheapestType(info.Facts, len(info.Cols), cfg.Allows)
		g, err := colgroup.Encode(blk, info.Cols, ctype)
		if err != nil {
			// a sample can suggest a scheme the full data violates, e.g.
			// Const for a column whose minority tuples were never sampled
			g, err = colgroup.Encode(blk, info.Cols, format.TypeUncompressed)
			if err != nil {
				return nil, err
			}
		}
		groups = append(groups, g)
	}

	return groups, nil
}
