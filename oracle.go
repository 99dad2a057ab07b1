package transducer

import (
	"math"

	"github.com/gonum/floats"
	"github.com/pkg/errors"
)

// distributionTolerance bounds how far the sum of a returned distribution may
// stray from 1.
const distributionTolerance = 1e-6

// A State is a recurrent state snapshot. Its shape is owned by the oracle;
// the search only copies it.
type State []float64

// Clone returns a copy of s that shares no memory with it.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	c := make(State, len(s))
	copy(c, s)
	return c
}

// A Block is the read-only view of one input block handed to the oracle.
type Block struct {
	Index   int         // 1-based block index
	Inputs  [][]float64 // the block's input frames
	Encoded [][]float64 // encoder outputs for the block, nil without an Encoder
}

// An Oracle scores one input block for one alignment.
//
// Transduce must return exactly width output distributions over the
// vocabulary, each strictly positive and summing to 1, and the updated state
// with the same shape as state. It must be deterministic, and safe for
// concurrent use if the Searcher runs with more than one worker.
type Oracle interface {
	InitialState() State
	Transduce(block Block, state State, width int) ([][]float64, State, error)
}

// An Encoder is implemented by oracles that run an encoder over the input.
// The driver encodes every block once, in order, carrying the encoder state
// from block to block, and hands the outputs to Transduce in Block.Encoded.
type Encoder interface {
	InitialEncoderState() State
	Encode(inputs [][]float64, prev State) ([][]float64, State, error)
}

// OracleFunc adapts a function to the Oracle interface. Its initial state is
// a zero state of length StateSize.
type OracleFunc struct {
	StateSize int
	F         func(block Block, state State, width int) ([][]float64, State, error)
}

func (o OracleFunc) InitialState() State {
	return make(State, o.StateSize)
}

func (o OracleFunc) Transduce(block Block, state State, width int) ([][]float64, State, error) {
	return o.F(block, state, width)
}

// checkOutput verifies what the oracle returned for a request of the given
// width. vocab is the expected distribution width, or 0 to only require that
// all distributions have the same width.
func checkOutput(dists [][]float64, in, out State, width, vocab int) error {
	if len(dists) != width {
		return errors.Wrapf(ErrOracleContractViolation, "got %d distributions, want %d", len(dists), width)
	}
	if len(out) != len(in) {
		return errors.Wrapf(ErrOracleContractViolation, "state of size %d returned for state of size %d", len(out), len(in))
	}
	for i, d := range dists {
		if vocab > 0 && len(d) != vocab {
			return errors.Wrapf(ErrOracleContractViolation, "distribution %d has %d entries, want %d", i, len(d), vocab)
		}
		if vocab == 0 && len(d) != len(dists[0]) {
			return errors.Wrapf(ErrOracleContractViolation, "distribution %d has %d entries, distribution 0 has %d", i, len(d), len(dists[0]))
		}
		if len(d) == 0 {
			return errors.Wrapf(ErrOracleContractViolation, "distribution %d is empty", i)
		}
		for j, p := range d {
			if math.IsNaN(p) || math.IsInf(p, 0) {
				return errors.Wrapf(ErrOracleContractViolation, "distribution %d entry %d is %v", i, j, p)
			}
		}
		if m := floats.Min(d); m <= 0 {
			return errors.Wrapf(ErrOracleContractViolation, "distribution %d has non-positive probability %v", i, m)
		}
		if s := floats.Sum(d); math.Abs(s-1) > distributionTolerance {
			return errors.Wrapf(ErrOracleContractViolation, "distribution %d sums to %v", i, s)
		}
	}
	return nil
}
