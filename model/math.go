package model

import (
	"math"

	"github.com/gonum/blas"
	"github.com/gonum/blas/blas64"
	"github.com/gonum/floats"
)

// Sigmoid is the logistic function.
func Sigmoid(x float64) float64 {
	return 1.0 / (1 + math.Exp(-x))
}

// Softmax normalizes x in place into a probability distribution.
func Softmax(x []float64) {
	floats.AddConst(-floats.Max(x), x)
	for i, v := range x {
		x[i] = math.Exp(v)
	}
	floats.Scale(1/floats.Sum(x), x)
}

// cosineSimilarity returns the cosine of the angle between u and v, or 0 if
// either of them is zero.
func cosineSimilarity(u, v []float64) float64 {
	norm := floats.Norm(u, 2) * floats.Norm(v, 2)
	if norm == 0 {
		return 0
	}
	return floats.Dot(u, v) / norm
}

// mulAdd computes y += a*x.
func mulAdd(a blas64.General, x, y []float64) {
	blas64.Gemv(blas.NoTrans, 1, a, blas64.Vector{Inc: 1, Data: x}, 1, blas64.Vector{Inc: 1, Data: y})
}

func tanhInPlace(x []float64) {
	for i, v := range x {
		x[i] = math.Tanh(v)
	}
}

// MakeTensor2 allocates an n by m matrix.
func MakeTensor2(n, m int) [][]float64 {
	t := make([][]float64, n)
	for i := 0; i < len(t); i++ {
		t[i] = make([]float64, m)
	}
	return t
}
