package transducer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignmentInsert(t *testing.T) {
	targets := []int{1, 1, 1, 1, 1}
	a := NewAlignment(nil)
	require.Equal(t, Position{Target: 0, Block: 1}, a.Position)
	require.Empty(t, a.Markers())

	a.Insert(2, 1, [][]float64{{0.1, 0.7, 0.2}, {0.2, 0.1, 0.7}}, targets, 2, nil)
	assert.InDelta(t, -2.65926, a.LogProb, 1e-5)
	assert.Equal(t, Position{Target: 2, Block: 1}, a.Position)

	before := a.LogProb
	a.Insert(5, 2, [][]float64{{0.2, 0.7, 0.1}, {0.3, 0.1, 0.6}, {0.2, 0.1, 0.7}}, targets, 3, State{1, 2})
	// The second block covers targets[2:5] and adds log(0.7)+2*log(0.1).
	assert.InDelta(t, -4.96185, a.LogProb-before, 1e-5)
	assert.InDelta(t, -7.62111, a.LogProb, 1e-5)
	assert.Equal(t, Position{Target: 5, Block: 2}, a.Position)
	assert.Equal(t, []int{2, 5}, a.Boundaries)
	assert.Equal(t, []int{2}, a.Markers())
	assert.Equal(t, State{1, 2}, a.State)
}

func TestAlignmentInsertZeroWidth(t *testing.T) {
	a := NewAlignment(State{0})
	a.Insert(0, 1, nil, []int{3}, 0, State{1})
	assert.Equal(t, 0.0, a.LogProb)
	assert.Equal(t, []int{0}, a.Boundaries)
	assert.Equal(t, State{1}, a.State)
}

func TestAlignmentClone(t *testing.T) {
	a := NewAlignment(State{1, 2, 3})
	a.Insert(1, 1, [][]float64{{0.5, 0.5}}, []int{0}, 1, State{4, 5, 6})

	c := a.Clone()
	c.Insert(2, 2, [][]float64{{0.25, 0.75}}, []int{0, 1}, 1, State{7, 8, 9})
	c.State[0] = 100

	assert.Equal(t, []int{1}, a.Boundaries)
	assert.Equal(t, State{4, 5, 6}, a.State)
	assert.Equal(t, Position{Target: 1, Block: 1}, a.Position)
	assert.InDelta(t, math.Log(0.5), a.LogProb, 1e-12)
	assert.Equal(t, []int{1, 2}, c.Boundaries)
	assert.InDelta(t, math.Log(0.5)+math.Log(0.75), c.LogProb, 1e-12)
}

func TestStateClone(t *testing.T) {
	var nilState State
	assert.Nil(t, nilState.Clone())

	s := State{1, 2}
	c := s.Clone()
	c[0] = 3
	assert.Equal(t, State{1, 2}, s)
}
