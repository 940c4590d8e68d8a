package cremid

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

//IdentitySym will return a p x p identity matrix in symmetric storage
func IdentitySym(p int) *mat.SymDense {
	m := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		m.SetSym(i, i, 1.0)
	}
	return m
}

//ScaledSym will return scale*m as fresh symmetric storage
func ScaledSym(m *mat.SymDense, scale float64) *mat.SymDense {
	p := m.SymmetricDim()
	out := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			out.SetSym(i, j, m.At(i, j)*scale)
		}
	}
	return out
}

//CopySym will deep-copy a symmetric matrix
func CopySym(m *mat.SymDense) *mat.SymDense {
	p := m.SymmetricDim()
	out := mat.NewSymDense(p, nil)
	out.CopySym(m)
	return out
}

func copyFloats(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func copyInts(v []int) []int {
	out := make([]int, len(v))
	copy(out, v)
	return out
}

//logBeta will return the log of the Beta function B(a, b)
func logBeta(a, b float64) float64 {
	la, _ := math.Lgamma(a)
	lb, _ := math.Lgamma(b)
	lab, _ := math.Lgamma(a + b)
	return la + lb - lab
}

//Renormalize will rescale a weight vector in place so that it sums to one
func Renormalize(w []float64) {
	sum := 0.
	for _, v := range w {
		sum += v
	}
	if sum <= 0 {
		return
	}
	for i := range w {
		w[i] /= sum
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
