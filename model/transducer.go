// Package model implements a small recurrent Neural Transducer that can score
// alignments. Only the forward pass is implemented.
package model

import (
	"encoding/json"
	"io"
	"math/rand"

	"github.com/gonum/blas/blas64"
	"github.com/gonum/floats"
	"github.com/pkg/errors"

	"github.com/fumin/transducer"
)

// Config describes the shape of a Transducer.
type Config struct {
	InputSize   int `json:"input_size" yaml:"input_size"`
	EncoderSize int `json:"encoder_size" yaml:"encoder_size"`
	HiddenSize  int `json:"hidden_size" yaml:"hidden_size"`
	VocabSize   int `json:"vocab_size" yaml:"vocab_size"`

	// GoSymbol is fed to the transducer before its first output of a block.
	GoSymbol int `json:"go_symbol" yaml:"go_symbol"`
	// EndSymbol marks the end of a block in the training targets.
	EndSymbol int `json:"end_symbol" yaml:"end_symbol"`
}

// DefaultConfig returns a model over scalar frames and a vocabulary of two
// target symbols plus the end and go symbols.
func DefaultConfig() Config {
	return Config{
		InputSize:   1,
		EncoderSize: 8,
		HiddenSize:  8,
		VocabSize:   4,
		GoSymbol:    3,
		EndSymbol:   2,
	}
}

func (c Config) Validate() error {
	sizes := []struct {
		name string
		v    int
	}{
		{"input_size", c.InputSize},
		{"encoder_size", c.EncoderSize},
		{"hidden_size", c.HiddenSize},
		{"vocab_size", c.VocabSize},
	}
	for _, sz := range sizes {
		if sz.v <= 0 {
			return errors.Errorf("%s must be positive, got %d", sz.name, sz.v)
		}
	}
	if c.GoSymbol < 0 || c.GoSymbol >= c.VocabSize {
		return errors.Errorf("go_symbol %d outside vocabulary of size %d", c.GoSymbol, c.VocabSize)
	}
	if c.EndSymbol < 0 || c.EndSymbol >= c.VocabSize {
		return errors.Errorf("end_symbol %d outside vocabulary of size %d", c.EndSymbol, c.VocabSize)
	}
	return nil
}

// headSize is the number of units of the attention head: a key of the
// encoder's size, a sharpening strength and an interpolation gate.
func (c Config) headSize() int {
	return c.EncoderSize + 2
}

// A Transducer is an encoder RNN over input frames and a transducer RNN that
// attends to the encoded block and emits output distributions.
// It implements transducer.Oracle and transducer.Encoder, and is safe for
// concurrent use once its weights are set.
type Transducer struct {
	Config Config

	weights []float64

	// Encoder.
	Wex blas64.General // EncoderSize x InputSize
	Weh blas64.General // EncoderSize x EncoderSize
	Be  []float64

	// Attention head.
	Wuh blas64.General // headSize x HiddenSize
	Bu  []float64

	// Transducer cell.
	Wss blas64.General // HiddenSize x HiddenSize
	Wsc blas64.General // HiddenSize x EncoderSize
	Wsy blas64.General // HiddenSize x VocabSize, embedding of the previous output
	Bs  []float64

	// Output layer.
	Wys blas64.General // VocabSize x HiddenSize
	By  []float64
}

// New returns a Transducer with all weights set to zero.
func New(cfg Config) (*Transducer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessage(err, "model config")
	}
	e, h, v, hs := cfg.EncoderSize, cfg.HiddenSize, cfg.VocabSize, cfg.headSize()
	m := &Transducer{Config: cfg}
	m.weights = make([]float64, e*cfg.InputSize+e*e+e+hs*h+hs+h*h+h*e+h*v+h+v*h+v)

	rest := m.weights
	matrix := func(rows, cols int) blas64.General {
		n := rows * cols
		g := blas64.General{Rows: rows, Cols: cols, Stride: cols, Data: rest[:n:n]}
		rest = rest[n:]
		return g
	}
	vector := func(n int) []float64 {
		var s []float64
		s, rest = rest[:n:n], rest[n:]
		return s
	}
	m.Wex, m.Weh, m.Be = matrix(e, cfg.InputSize), matrix(e, e), vector(e)
	m.Wuh, m.Bu = matrix(hs, h), vector(hs)
	m.Wss, m.Wsc, m.Wsy, m.Bs = matrix(h, h), matrix(h, e), matrix(h, v), vector(h)
	m.Wys, m.By = matrix(v, h), vector(v)
	return m, nil
}

// Weights returns all weights as one slice backed by the model.
func (m *Transducer) Weights() []float64 {
	return m.weights
}

// RandomWeights sets every weight uniformly in [-0.5, 0.5).
func (m *Transducer) RandomWeights(rng *rand.Rand) {
	for i := range m.weights {
		m.weights[i] = rng.Float64() - 0.5
	}
}

// LoadWeights reads weights written by SaveWeights.
func (m *Transducer) LoadWeights(r io.Reader) error {
	var ws []float64
	if err := json.NewDecoder(r).Decode(&ws); err != nil {
		return errors.Wrap(err, "decoding weights")
	}
	if len(ws) != len(m.weights) {
		return errors.Errorf("got %d weights, model has %d", len(ws), len(m.weights))
	}
	copy(m.weights, ws)
	return nil
}

// SaveWeights writes the weights as a JSON array.
func (m *Transducer) SaveWeights(w io.Writer) error {
	return errors.Wrap(json.NewEncoder(w).Encode(m.weights), "encoding weights")
}

func (m *Transducer) InitialEncoderState() transducer.State {
	return make(transducer.State, m.Config.EncoderSize)
}

// Encode runs the encoder over one block of frames starting from prev.
// It returns the hidden vector of every frame and the final hidden vector.
func (m *Transducer) Encode(inputs [][]float64, prev transducer.State) ([][]float64, transducer.State, error) {
	if len(prev) != m.Config.EncoderSize {
		return nil, nil, errors.Errorf("encoder state has size %d, want %d", len(prev), m.Config.EncoderSize)
	}
	h := []float64(prev.Clone())
	outputs := make([][]float64, len(inputs))
	for t, x := range inputs {
		if len(x) != m.Config.InputSize {
			return nil, nil, errors.Errorf("frame %d has %d features, want %d", t, len(x), m.Config.InputSize)
		}
		z := make([]float64, m.Config.EncoderSize)
		copy(z, m.Be)
		mulAdd(m.Wex, x, z)
		mulAdd(m.Weh, h, z)
		tanhInPlace(z)
		h = z
		outputs[t] = z
	}
	return outputs, transducer.State(h).Clone(), nil
}

func (m *Transducer) InitialState() transducer.State {
	return make(transducer.State, m.Config.HiddenSize)
}

// Transduce emits width output distributions for one block, feeding back its
// most probable output after each step.
func (m *Transducer) Transduce(block transducer.Block, state transducer.State, width int) ([][]float64, transducer.State, error) {
	cfg := m.Config
	if len(state) != cfg.HiddenSize {
		return nil, nil, errors.Errorf("transducer state has size %d, want %d", len(state), cfg.HiddenSize)
	}
	s := []float64(state.Clone())
	attn := newAttention(block.Encoded)
	prev := cfg.GoSymbol
	dists := make([][]float64, width)
	for k := 0; k < width; k++ {
		head := make([]float64, cfg.headSize())
		copy(head, m.Bu)
		mulAdd(m.Wuh, s, head)
		c := attn.read(head[:cfg.EncoderSize], head[cfg.EncoderSize], head[cfg.EncoderSize+1], cfg.EncoderSize)

		z := make([]float64, cfg.HiddenSize)
		copy(z, m.Bs)
		mulAdd(m.Wss, s, z)
		mulAdd(m.Wsc, c, z)
		for i := range z {
			z[i] += m.Wsy.Data[i*m.Wsy.Stride+prev]
		}
		tanhInPlace(z)
		s = z

		y := make([]float64, cfg.VocabSize)
		copy(y, m.By)
		mulAdd(m.Wys, s, y)
		Softmax(y)
		dists[k] = y
		prev = floats.MaxIdx(y)
	}
	return dists, transducer.State(s), nil
}
