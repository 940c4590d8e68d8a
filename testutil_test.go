package cremid

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

//genGaussianData builds a synthetic dataset with one spherical Gaussian per
//group: counts[j] observations around means[j] with unit variance.
func genGaussianData(seed uint64, p int, counts []int, means [][]float64) *DataSet {
	rng := rand.New(rand.NewSource(seed))
	n := 0
	for _, c := range counts {
		n += c
	}
	y := mat.NewDense(n, p, nil)
	groups := make([]int, n)
	row := 0
	for j, c := range counts {
		for i := 0; i < c; i++ {
			for d := 0; d < p; d++ {
				y.Set(row, d, means[j][d]+rng.NormFloat64())
			}
			groups[row] = j + 1
			row++
		}
	}
	d, err := NewDataSet(y, groups)
	if err != nil {
		panic(err)
	}
	return d
}

//constVec returns a length-p vector with every entry v
func constVec(p int, v float64) []float64 {
	out := make([]float64, p)
	for i := range out {
		out[i] = v
	}
	return out
}
