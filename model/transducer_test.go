package model

import (
	"bytes"
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/gonum/floats"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fumin/transducer"
)

func randomModel(t *testing.T, seed int64) *Transducer {
	m, err := New(DefaultConfig())
	require.NoError(t, err)
	m.RandomWeights(rand.New(rand.NewSource(seed)))
	return m
}

func randomFrames(rng *rand.Rand, n, size int) [][]float64 {
	frames := MakeTensor2(n, size)
	for i := range frames {
		for j := range frames[i] {
			frames[i][j] = 2*rng.Float64() - 1
		}
	}
	return frames
}

func TestSoftmax(t *testing.T) {
	x := []float64{1, 2, 3, 1000}
	Softmax(x)
	assert.InDelta(t, 1, floats.Sum(x), 1e-12)
	assert.Equal(t, 3, floats.MaxIdx(x))
	for _, p := range x {
		assert.False(t, math.IsNaN(p))
	}

	y := []float64{0, math.Log(3)}
	Softmax(y)
	assert.InDelta(t, 0.25, y[0], 1e-12)
	assert.InDelta(t, 0.75, y[1], 1e-12)
}

func TestNewInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GoSymbol = cfg.VocabSize
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.HiddenSize = 0
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestTransduce(t *testing.T) {
	m := randomModel(t, 1)
	rng := rand.New(rand.NewSource(2))
	enc, encState, err := m.Encode(randomFrames(rng, 3, 1), m.InitialEncoderState())
	require.NoError(t, err)
	require.Len(t, enc, 3)
	assert.Len(t, encState, m.Config.EncoderSize)

	block := transducer.Block{Index: 1, Encoded: enc}
	state := m.InitialState()
	state[0] = 0.25
	dists, next, err := m.Transduce(block, state, 3)
	require.NoError(t, err)
	require.Len(t, dists, 3)
	for _, d := range dists {
		require.Len(t, d, m.Config.VocabSize)
		assert.InDelta(t, 1, floats.Sum(d), 1e-9)
		assert.Greater(t, floats.Min(d), 0.0)
	}
	assert.Len(t, next, m.Config.HiddenSize)
	assert.Equal(t, 0.25, state[0], "input state must not be modified")

	again, next2, err := m.Transduce(block, state, 3)
	require.NoError(t, err)
	assert.Equal(t, dists, again)
	assert.Equal(t, next, next2)

	// A prefix of a longer run equals a shorter run.
	short, _, err := m.Transduce(block, state, 1)
	require.NoError(t, err)
	assert.Equal(t, dists[:1], short)

	none, same, err := m.Transduce(block, state, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Equal(t, state, same)

	_, _, err = m.Transduce(block, transducer.State{1}, 1)
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	m := randomModel(t, 3)
	frames := randomFrames(rand.New(rand.NewSource(4)), 3, 1)
	out1, s1, err := m.Encode(frames, m.InitialEncoderState())
	require.NoError(t, err)
	out2, _, err := m.Encode(frames, s1)
	require.NoError(t, err)
	assert.NotEqual(t, out1, out2, "encoder state is carried between blocks")
	assert.Equal(t, []float64(s1), out1[2])

	_, _, err = m.Encode([][]float64{{1, 2}}, m.InitialEncoderState())
	assert.Error(t, err)
	_, _, err = m.Encode(frames, transducer.State{0})
	assert.Error(t, err)
}

func TestWeightsRoundTrip(t *testing.T) {
	m := randomModel(t, 5)
	var buf bytes.Buffer
	require.NoError(t, m.SaveWeights(&buf))

	loaded := must.M1(New(DefaultConfig()))
	require.NoError(t, loaded.LoadWeights(&buf))
	assert.Equal(t, m.Weights(), loaded.Weights())
	assert.Equal(t, m.Wys.Data, loaded.Wys.Data)

	assert.Error(t, loaded.LoadWeights(bytes.NewBufferString("[1, 2, 3]")))
	assert.Error(t, loaded.LoadWeights(bytes.NewBufferString("{")))
}

func TestAttentionRead(t *testing.T) {
	a := newAttention([][]float64{{1, 0}, {0, 1}})
	r := a.read([]float64{2, 0}, math.Log(50), 50, 2)
	assert.InDelta(t, 1, r[0], 1e-9)
	assert.InDelta(t, 0, r[1], 1e-9)

	// A closed gate keeps the previous weighting.
	r = a.read([]float64{0, 1}, math.Log(50), -50, 2)
	assert.InDelta(t, 1, r[0], 1e-9)

	empty := newAttention(nil)
	assert.Equal(t, []float64{0, 0, 0}, empty.read([]float64{1, 1, 1}, 0, 0, 3))
}

func TestModelAsOracle(t *testing.T) {
	m := randomModel(t, 6)
	inputs := randomFrames(rand.New(rand.NewSource(7)), 12, 1)
	targets := []int{1, 0, 1, 1, 0}

	var results []*transducer.Result
	for _, workers := range []int{1, 4} {
		cfg := transducer.Config{BlockSize: 3, MaxWidth: 2, VocabSize: m.Config.VocabSize, Workers: workers}
		s := must.M1(transducer.NewSearcher(cfg, m))
		res, err := s.Align(context.Background(), inputs, targets)
		require.NoError(t, err)
		assert.Len(t, res.Markers, 3)
		assert.Equal(t, len(targets), res.Boundaries[3])
		results = append(results, res)
	}
	assert.Equal(t, results[0].Markers, results[1].Markers)
	assert.Equal(t, results[0].LogProb, results[1].LogProb)
}
