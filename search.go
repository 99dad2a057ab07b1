package transducer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Stats summarizes the work done by one search.
type Stats struct {
	OracleCalls int
	Candidates  int
	Pruned      int
}

// Result is the outcome of a successful search.
type Result struct {
	// Markers are the target indices at which a block boundary marker must be
	// inserted, one per boundary between consecutive blocks.
	Markers []int
	// Boundaries are the target indices at which every block ends; the last
	// one is always the length of the targets.
	Boundaries []int
	LogProb    float64
	Blocks     int
	Stats      Stats
}

// A Searcher finds the most probable placement of block boundaries.
// It keeps no state between calls to Align and may be shared.
type Searcher struct {
	cfg      Config
	oracle   Oracle
	encoder  Encoder
	metrics  *Metrics
	observer func(block int, alignments []*Alignment)
}

// An Option configures a Searcher.
type Option func(*Searcher)

// WithMetrics records search metrics in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Searcher) { s.metrics = m }
}

// WithRoundObserver calls f with the surviving alignments after every block.
// f must not modify the alignments.
func WithRoundObserver(f func(block int, alignments []*Alignment)) Option {
	return func(s *Searcher) { s.observer = f }
}

// NewSearcher returns a Searcher scoring alignments with oracle.
// If oracle also implements Encoder, it is used to encode every block.
func NewSearcher(cfg Config, oracle Oracle, opts ...Option) (*Searcher, error) {
	if oracle == nil {
		return nil, errors.New("nil oracle")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(ErrInfeasibleConfiguration, err.Error())
	}
	s := &Searcher{cfg: cfg, oracle: oracle}
	if enc, ok := oracle.(Encoder); ok {
		s.encoder = enc
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// run holds the read-only inputs of one search.
type run struct {
	cfg     Config
	inputs  [][]float64
	targets []int
	blocks  int
}

// Align searches the alignment of targets to inputs that maximizes the sum
// of target log probabilities under the oracle.
func (s *Searcher) Align(ctx context.Context, inputs [][]float64, targets []int) (*Result, error) {
	start := time.Now()
	res, err := s.align(ctx, inputs, targets)
	s.metrics.observeSearch(outcome(err), time.Since(start))
	return res, err
}

func (s *Searcher) align(ctx context.Context, inputs [][]float64, targets []int) (*Result, error) {
	r, err := s.newRun(inputs, targets)
	if err != nil {
		return nil, err
	}

	var encState State
	if s.encoder != nil {
		encState = s.encoder.InitialEncoderState()
	}
	alignments := []*Alignment{NewAlignment(s.oracle.InitialState())}
	var stats Stats
	for b := 1; b <= r.blocks; b++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		block := Block{Index: b, Inputs: inputs[(b-1)*s.cfg.BlockSize : b*s.cfg.BlockSize]}
		if s.encoder != nil {
			block.Encoded, encState, err = s.encoder.Encode(block.Inputs, encState)
			if err != nil {
				return nil, errors.WithMessagef(err, "encoding block %d", b)
			}
		}

		var rs roundStats
		alignments, rs, err = s.expand(ctx, r, alignments, block)
		s.metrics.observeRound(rs.calls, rs.candidates, rs.survivors)
		if err != nil {
			return nil, err
		}
		stats.OracleCalls += rs.calls
		stats.Candidates += rs.candidates
		stats.Pruned += rs.candidates - rs.survivors
		klog.V(1).Infof("block %d/%d: %d candidates, %d survivors", b, r.blocks, rs.candidates, rs.survivors)
		if s.observer != nil {
			s.observer(b, alignments)
		}
	}

	if len(alignments) != 1 {
		return nil, errors.Wrapf(ErrSearchDegenerate, "%d alignments left after the last block", len(alignments))
	}
	a := alignments[0]
	return &Result{
		Markers:    a.Markers(),
		Boundaries: a.Boundaries,
		LogProb:    a.LogProb,
		Blocks:     r.blocks,
		Stats:      stats,
	}, nil
}

// newRun checks that a search over inputs and targets can succeed before
// anything is computed.
func (s *Searcher) newRun(inputs [][]float64, targets []int) (*run, error) {
	bs := s.cfg.BlockSize
	if len(inputs) == 0 {
		return nil, errors.Wrap(ErrInfeasibleConfiguration, "no input frames")
	}
	if len(inputs)%bs != 0 {
		return nil, errors.Wrapf(ErrInfeasibleConfiguration, "input length %d is not a multiple of block size %d", len(inputs), bs)
	}
	blocks := len(inputs) / bs
	if n := len(targets); n > blocks*s.cfg.MaxWidth {
		return nil, errors.Wrapf(ErrInfeasibleConfiguration, "%d targets cannot be emitted by %d blocks of max width %d", n, blocks, s.cfg.MaxWidth)
	}
	if n := len(targets); n < blocks*s.cfg.MinWidth {
		return nil, errors.Wrapf(ErrInfeasibleConfiguration, "%d targets cannot fill %d blocks of min width %d", n, blocks, s.cfg.MinWidth)
	}
	for i, t := range targets {
		if t < 0 || (s.cfg.VocabSize > 0 && t >= s.cfg.VocabSize) {
			return nil, errors.Wrapf(ErrInfeasibleConfiguration, "target %d is symbol %d, outside vocabulary of size %d", i, t, s.cfg.VocabSize)
		}
	}
	return &run{cfg: s.cfg, inputs: inputs, targets: targets, blocks: blocks}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrInfeasibleConfiguration):
		return outcomeInfeasible
	case errors.Is(err, ErrSearchDegenerate):
		return outcomeDegenerate
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCanceled
	default:
		return outcomeOracle
	}
}

// Align returns the marker positions of the best alignment of targets to
// inputs, cut into blocks of blockSize frames emitting at most maxWidth
// symbols each.
func Align(ctx context.Context, oracle Oracle, inputs [][]float64, targets []int, blockSize, maxWidth int) ([]int, error) {
	s, err := NewSearcher(Config{BlockSize: blockSize, MaxWidth: maxWidth, Workers: 1}, oracle)
	if err != nil {
		return nil, err
	}
	res, err := s.Align(ctx, inputs, targets)
	if err != nil {
		return nil, err
	}
	return res.Markers, nil
}
