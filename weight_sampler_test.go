package cremid

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func weightFixture(t *testing.T) (*DataSet, *MixtureState, *WeightSampler) {
	t.Helper()
	d := genGaussianData(13, 2, []int{25, 25}, [][]float64{{0, 0}, {4, 4}})
	labels := make([]int, 50)
	for i := range labels {
		labels[i] = i % 4
	}
	st := newTestState([]bool{true, true, false, false}, labels)
	st.AlphaJ = []float64{1, 1}
	prior := DefaultPriors(d)
	return d, st, &WeightSampler{Data: d, Prior: prior}
}

func TestWeightSweep_SimplexInvariant(t *testing.T) {
	_, st, ws := weightFixture(t)
	rng := rand.New(rand.NewSource(17))
	for sweep := 0; sweep < 50; sweep++ {
		require.NoError(t, ws.Sweep(st, rng))
		sum := 0.
		for _, w := range st.W0 {
			require.Greater(t, w, 0.0)
			sum += w
		}
		require.InDelta(t, 1, sum, 1e-9)
		for j, wj := range st.WJ {
			sum = 0.
			for _, w := range wj {
				require.Greater(t, w, 0.0)
				sum += w
			}
			require.InDeltaf(t, 1, sum, 1e-9, "group %d", j+1)
		}
		require.GreaterOrEqual(t, st.Rho, 0.0)
		require.LessOrEqual(t, st.Rho, 1.0)
		require.GreaterOrEqual(t, st.Varphi, 0.0)
		require.LessOrEqual(t, st.Varphi, 1.0)
	}
}

func TestSpikeSlabDraw_SpikeReachableOnlyWithEmptyPool(t *testing.T) {
	_, _, ws := weightFixture(t)
	ws.Prior.PointMassRho = [2]float64{0.9, 0}
	rng := rand.New(rand.NewSource(23))
	zeros := 0
	for i := 0; i < 200; i++ {
		draw := ws.spikeSlabDraw(0, 100, ws.Prior.TauRho, ws.Prior.PointMassRho, rng)
		if draw == 0 {
			zeros++
		}
	}
	// with no shared mass and a heavy spike the point mass should dominate
	require.Greater(t, zeros, 100)

	// any observation in the shared pool forbids the spike at zero
	for i := 0; i < 200; i++ {
		draw := ws.spikeSlabDraw(5, 100, ws.Prior.TauRho, ws.Prior.PointMassRho, rng)
		require.NotEqual(t, 0.0, draw)
	}
}

func TestSpikeSlabDraw_NoPointMassStaysInterior(t *testing.T) {
	_, _, ws := weightFixture(t)
	rng := rand.New(rand.NewSource(29))
	for i := 0; i < 100; i++ {
		draw := ws.spikeSlabDraw(3, 7, ws.Prior.TauRho, [2]float64{0, 0}, rng)
		require.Greater(t, draw, 0.0)
		require.Less(t, draw, 1.0)
	}
}

func TestSpikeSlabDraw_RespectsEpsilonRange(t *testing.T) {
	_, _, ws := weightFixture(t)
	ws.Prior.EpsilonRange = [2]float64{0.2, 0.8}
	rng := rand.New(rand.NewSource(41))
	for i := 0; i < 100; i++ {
		// lopsided counts push the slab draw to the boundary; the
		// configured floor and ceiling must both hold
		lo := ws.spikeSlabDraw(0, 500, ws.Prior.TauRho, [2]float64{0, 0}, rng)
		require.GreaterOrEqual(t, lo, 0.2)
		hi := ws.spikeSlabDraw(500, 0, ws.Prior.TauRho, [2]float64{0, 0}, rng)
		require.LessOrEqual(t, hi, 0.8)
	}
}

func TestWeightSweep_FixedTruncationFreezesR(t *testing.T) {
	_, st, ws := weightFixture(t)
	require.Equal(t, TruncationFixed, ws.Prior.TruncationType)
	before := make([]bool, st.K())
	for k, c := range st.Components {
		before[k] = c.Shared
	}
	rng := rand.New(rand.NewSource(31))
	for sweep := 0; sweep < 20; sweep++ {
		require.NoError(t, ws.Sweep(st, rng))
	}
	for k, c := range st.Components {
		require.Equal(t, before[k], c.Shared)
	}
}

func TestWeightSweep_AdaptiveTruncationKeepsPoolsResolvable(t *testing.T) {
	_, st, ws := weightFixture(t)
	ws.Prior.TruncationType = TruncationAdaptive
	rng := rand.New(rand.NewSource(37))
	for sweep := 0; sweep < 50; sweep++ {
		require.NoError(t, ws.Sweep(st, rng))
		require.Equal(t, st.K(), st.Part.K0+st.Part.K1)
		require.GreaterOrEqual(t, st.Part.K0, 1)
		require.GreaterOrEqual(t, st.Part.K1, 1)
	}
}
