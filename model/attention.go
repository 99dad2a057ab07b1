package model

import (
	"math"

	"github.com/gonum/floats"
)

// attention reads from the encoder outputs of one block. Its weighting is
// content based, and gated against the weighting of the previous read.
type attention struct {
	memory [][]float64
	wtm1   []float64 // weighting of the previous read
}

func newAttention(memory [][]float64) *attention {
	a := attention{memory: memory, wtm1: make([]float64, len(memory))}
	if len(memory) > 0 {
		for i := range a.wtm1 {
			a.wtm1[i] = 1 / float64(len(memory))
		}
	}
	return &a
}

// read returns the weighted sum of the memory rows.
// key is compared to every row by cosine similarity, sharpened by exp(beta),
// and the result is interpolated with the previous weighting by sigmoid(g).
func (a *attention) read(key []float64, beta, g float64, size int) []float64 {
	r := make([]float64, size)
	if len(a.memory) == 0 {
		return r
	}

	b := math.Exp(beta)
	wc := make([]float64, len(a.memory))
	for i, row := range a.memory {
		wc[i] = b * cosineSimilarity(key, row)
	}
	Softmax(wc)

	gate := Sigmoid(g)
	for i := range wc {
		wc[i] = gate*wc[i] + (1-gate)*a.wtm1[i]
	}
	a.wtm1 = wc

	for i, row := range a.memory {
		floats.AddScaled(r, wc[i], row)
	}
	return r
}
