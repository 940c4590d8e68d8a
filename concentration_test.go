package cremid

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestConcentrationSweep_SharedAlphaStaysPositive(t *testing.T) {
	d := genGaussianData(41, 2, []int{20, 20}, [][]float64{{0, 0}, {3, 3}})
	labels := make([]int, 40)
	for i := range labels {
		labels[i] = i % 3
	}
	st := newTestState([]bool{true, false, false}, labels)
	st.AlphaJ = []float64{1, 1}
	cs := &ConcentrationSampler{Data: d, Prior: DefaultPriors(d)}
	rng := rand.New(rand.NewSource(43))
	for sweep := 0; sweep < 200; sweep++ {
		require.NoError(t, cs.Sweep(st, rng))
		require.Greater(t, st.Alpha0, 0.0)
		for _, a := range st.AlphaJ {
			require.Equal(t, st.Alpha0, a) // shared_alpha ties every group to alpha0
		}
	}
}

func TestConcentrationSweep_PerGroupAlphas(t *testing.T) {
	d := genGaussianData(47, 2, []int{20, 20}, [][]float64{{0, 0}, {3, 3}})
	labels := make([]int, 40)
	for i := range labels {
		labels[i] = i % 3
	}
	st := newTestState([]bool{true, false, false}, labels)
	st.AlphaJ = []float64{1, 1}
	prior := DefaultPriors(d)
	prior.SharedAlpha = false
	cs := &ConcentrationSampler{Data: d, Prior: prior}
	rng := rand.New(rand.NewSource(53))
	for sweep := 0; sweep < 200; sweep++ {
		require.NoError(t, cs.Sweep(st, rng))
		require.Greater(t, st.Alpha0, 0.0)
		for _, a := range st.AlphaJ {
			require.Greater(t, a, 0.0)
		}
	}
}

func TestEscobarWest_EmptyPoolFallsBackToPrior(t *testing.T) {
	d := genGaussianData(59, 2, []int{10}, [][]float64{{0, 0}})
	cs := &ConcentrationSampler{Data: d, Prior: DefaultPriors(d)}
	rng := rand.New(rand.NewSource(61))
	for i := 0; i < 100; i++ {
		require.Greater(t, cs.escobarWest(1, 0, 0, rng), 0.0)
	}
}
