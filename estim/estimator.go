package estim

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/arloliu/colpack/config"
	"github.com/arloliu/colpack/format"
	"github.com/arloliu/colpack/matrix"
)

// Factors summarizes a column subset for size pricing. All counts are at
// full-matrix scale; sample-derived factors are scaled and bias-corrected
// before they reach callers.
type Factors struct {
	// Rows is the matrix row count.
	Rows int
	// Distinct is the estimated number of distinct non-implicit tuples.
	Distinct int
	// Offs is the estimated number of rows holding a non-default tuple.
	Offs int
	// Largest is the estimated frequency of the most common tuple,
	// implicit defaults included.
	Largest int
	// Frequencies holds the per-tuple counts observed during encoding.
	Frequencies []int
	// NumSingle is the number of tuples observed exactly once.
	NumSingle int
	// OverallSparsity is the non-zero fraction of the subset's cells.
	OverallSparsity float64
	// TupleSparsity is the non-zero fraction across distinct tuples.
	TupleSparsity float64
}

// Info is the estimate for one column subset: its encoding, retained so
// subsets can be merged through real row data, and the scaled factors.
type Info struct {
	Cols  []int
	Facts Factors

	enc   Encoding
	stats Stats
}

// Estimator prices compression schemes for column subsets of a block. With
// a sample ratio below 1 it draws one row sample up front and reuses it for
// every subset, so co-coded subsets are estimated over identical rows.
type Estimator struct {
	blk    matrix.Block
	cfg    *config.Settings
	rows   int
	sample []int // sorted sample rows; nil means exact estimation
}

// New creates an estimator over blk. When cfg.Transposed is set the block is
// read through a column-major view.
func New(blk matrix.Block, cfg *config.Settings) *Estimator {
	if cfg == nil {
		cfg = config.Default()
	}
	if cfg.Transposed {
		blk = matrix.NewTransposed(blk)
	}

	e := &Estimator{blk: blk, cfg: cfg, rows: blk.NumRows()}

	size := int(cfg.SampleRatio * float64(e.rows))
	if size < cfg.MinSampleSize {
		size = cfg.MinSampleSize
	}
	if size < e.rows {
		e.sample = sampleRows(e.rows, size, cfg.Seed)
	}

	return e
}

// SampleSize returns the number of rows each estimate scans.
func (e *Estimator) SampleSize() int {
	if e.sample == nil {
		return e.rows
	}

	return len(e.sample)
}

// IsExact reports whether estimates are computed from all rows.
func (e *Estimator) IsExact() bool { return e.sample == nil }

// Estimate builds the encoding and factors for one column subset.
// maxDistinct caps the corrected distinct count; a non-positive cap defaults
// to the row count.
func (e *Estimator) Estimate(cols []int, maxDistinct int) (*Info, error) {
	var (
		enc Encoding
		st  Stats
		err error
	)
	if e.sample == nil {
		enc, st, err = CreateFromBlock(e.blk, cols)
	} else {
		enc, st, err = CreateFromRows(e.blk, cols, e.sample)
	}
	if err != nil {
		return nil, err
	}

	return e.info(cols, enc, st, maxDistinct)
}

// EstimateDelta builds the factors for the delta encoding of a subset,
// scanning a contiguous row prefix since adjacent-row deltas do not survive
// random sampling.
func (e *Estimator) EstimateDelta(cols []int, maxDistinct int) (*Info, error) {
	enc, st, err := CreateFromBlockDelta(e.blk, cols, e.SampleSize())
	if err != nil {
		return nil, err
	}

	return e.info(cols, enc, st, maxDistinct)
}

// Combine merges the estimates of two disjoint column subsets by joining
// their encodings row by row, which captures tuple correlation that summary
// statistics would miss.
func (e *Estimator) Combine(a, b *Info, maxDistinct int) (*Info, error) {
	enc, err := a.enc.Combine(b.enc)
	if err != nil {
		return nil, err
	}

	cols := make([]int, 0, len(a.Cols)+len(b.Cols))
	cols = append(cols, a.Cols...)
	cols = append(cols, b.Cols...)
	sort.Ints(cols)

	na := float64(len(a.Cols))
	nb := float64(len(b.Cols))
	st := Stats{
		OverallSparsity: (a.stats.OverallSparsity*na + b.stats.OverallSparsity*nb) / (na + nb),
		TupleSparsity:   (a.stats.TupleSparsity*na + b.stats.TupleSparsity*nb) / (na + nb),
	}

	return e.info(cols, enc, st, maxDistinct)
}

func (e *Estimator) info(cols []int, enc Encoding, st Stats, maxDistinct int) (*Info, error) {
	if maxDistinct <= 0 {
		maxDistinct = e.rows
	}

	inf := &Info{Cols: cols, enc: enc, stats: st}

	if _, empty := enc.(*EmptyEncoding); empty && e.sample != nil {
		inf.Facts = e.emptySampleFacts(cols)

		return inf, nil
	}

	facts := enc.ExtractFacts(st.TupleSparsity, st.OverallSparsity)
	if e.sample == nil || enc.Rows() >= e.rows {
		inf.Facts = facts

		return inf, nil
	}

	inf.Facts = e.scaleFacts(facts, enc.Rows(), maxDistinct)

	return inf, nil
}

// emptySampleFacts handles an all-zero sample of a possibly non-zero subset:
// the full block is consulted for sparsity instead of trusting the sample.
func (e *Estimator) emptySampleFacts(cols []int) Factors {
	sp := exactSparsity(e.blk, cols)
	if sp == 0 {
		return Factors{Rows: e.rows, Distinct: 1, Largest: e.rows}
	}

	offs := int(math.Ceil(sp * float64(e.rows)))
	largest := e.rows - offs
	if offs > largest {
		largest = offs
	}

	return Factors{
		Rows:            e.rows,
		Distinct:        1,
		Offs:            offs,
		Largest:         largest,
		Frequencies:     []int{offs},
		OverallSparsity: sp,
		TupleSparsity:   1,
	}
}

// scaleFacts lifts sample-scale factors to full-matrix scale and applies the
// configured distinct-count correction.
func (e *Estimator) scaleFacts(f Factors, sampleRows, maxDistinct int) Factors {
	scale := float64(e.rows) / float64(sampleRows)

	distinct := e.correctDistinct(f, sampleRows, maxDistinct)

	offs := int(float64(f.Offs) * scale)
	if offs > e.rows {
		offs = e.rows
	}

	largest := int(float64(f.Largest) * scale)
	if bound := e.rows - distinct + 1; largest > bound {
		largest = bound
	}
	if largest < 1 {
		largest = 1
	}

	freqs := make([]int, len(f.Frequencies))
	for i, c := range f.Frequencies {
		freqs[i] = int(float64(c) * scale)
	}

	ts := f.TupleSparsity + 0.1
	if ts > 1 {
		ts = 1
	}

	return Factors{
		Rows:            e.rows,
		Distinct:        distinct,
		Offs:            offs,
		Largest:         largest,
		Frequencies:     freqs,
		NumSingle:       f.NumSingle,
		OverallSparsity: f.OverallSparsity,
		TupleSparsity:   ts,
	}
}

// correctDistinct estimates the full-matrix distinct tuple count from sample
// frequencies. The Chao correction adds f1^2/(2*f2) unseen tuples, with the
// f2 == 0 fallback f1*(f1-1)/2; the scaled correction multiplies linearly.
func (e *Estimator) correctDistinct(f Factors, sampleRows, maxDistinct int) int {
	d := f.Distinct

	var est int
	switch e.cfg.Estimation {
	case format.EstimationScaled:
		est = int(float64(d) * float64(e.rows) / float64(sampleRows))
	case format.EstimationChao:
		fallthrough
	default:
		f1 := f.NumSingle
		f2 := 0
		for _, c := range f.Frequencies {
			if c == 2 {
				f2++
			}
		}
		if f2 > 0 {
			est = d + f1*f1/(2*f2)
		} else {
			est = d + f1*(f1-1)/2
		}
	}

	if est < d {
		est = d
	}
	if est > maxDistinct {
		est = maxDistinct
	}
	if est > e.rows {
		est = e.rows
	}

	return est
}

// sampleRows draws size distinct rows of [0, rows), sorted ascending. Dense
// draws shuffle a full permutation; sparse draws use reservoir sampling so
// the permutation slice is never allocated for huge matrices.
func sampleRows(rows, size int, seed int64) []int {
	rng := newRand(seed)

	var out []int
	if rows/100 < size {
		out = rng.Perm(rows)[:size]
	} else {
		out = make([]int, size)
		for i := 0; i < size; i++ {
			out[i] = i
		}
		for i := size; i < rows; i++ {
			j := rng.Intn(i + 1)
			if j < size {
				out[j] = i
			}
		}
	}
	sort.Ints(out)

	return out
}

func exactSparsity(blk matrix.Block, cols []int) float64 {
	rows := blk.NumRows()
	if rows == 0 || len(cols) == 0 {
		return 0
	}

	nnz := 0
	for r := 0; r < rows; r++ {
		for _, c := range cols {
			if blk.Get(r, c) != 0 {
				nnz++
			}
		}
	}

	return float64(nnz) / float64(rows) / float64(len(cols))
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return rand.New(rand.NewSource(seed))
}
