package transducer

import (
	"fmt"
	"math"
)

// A Position is the search key of an alignment.
type Position struct {
	Target int // number of target symbols placed so far
	Block  int // index of the last consumed block, starting at 1
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Target, p.Block)
}

// An Alignment is one candidate path of the search.
// Alignments are cloned before they are extended, so a parent is never
// modified by the expansion of its children.
type Alignment struct {
	Position Position
	LogProb  float64 // sum of log probabilities of the covered targets

	// Boundaries holds, for every block processed so far, the target index at
	// which that block ended.
	Boundaries []int

	// State is the transducer state to resume this path from.
	State State
}

// NewAlignment returns the root alignment at position (0,1).
func NewAlignment(state State) *Alignment {
	return &Alignment{
		Position: Position{Target: 0, Block: 1},
		State:    state.Clone(),
	}
}

// Clone returns a deep copy of a.
func (a *Alignment) Clone() *Alignment {
	c := Alignment{
		Position: a.Position,
		LogProb:  a.LogProb,
		State:    a.State.Clone(),
	}
	if a.Boundaries != nil {
		c.Boundaries = make([]int, len(a.Boundaries))
		copy(c.Boundaries, a.Boundaries)
	}
	return &c
}

// Markers returns the target indices at which a block boundary marker must be
// inserted, excluding the boundary that closes the current block.
func (a *Alignment) Markers() []int {
	if len(a.Boundaries) == 0 {
		return []int{}
	}
	m := make([]int, len(a.Boundaries)-1)
	copy(m, a.Boundaries)
	return m
}

// Insert extends a by one block that ends at target index target.
// The block emitted width symbols whose distributions are dists, so the
// symbols covered are targets[target-width:target].
// Insert mutates a; clone it first to keep the parent.
func (a *Alignment) Insert(target, block int, dists [][]float64, targets []int, width int, state State) {
	a.Boundaries = append(a.Boundaries, target)
	a.Position = Position{Target: target, Block: block}
	start := target - width
	var lp float64
	for i := 0; i < width; i++ {
		lp += math.Log(dists[i][targets[start+i]])
	}
	a.LogProb += lp
	a.State = state
}

func (a *Alignment) String() string {
	return fmt.Sprintf("{%v %.5g %v}", a.Position, a.LogProb, a.Boundaries)
}
