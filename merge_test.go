package cremid

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func mergeFixture(t *testing.T) (*DataSet, *MixtureState, *MergeStep) {
	t.Helper()
	d := genGaussianData(67, 2, []int{60}, [][]float64{{0, 0}})
	labels := make([]int, 60)
	for i := range labels {
		labels[i] = i % 2 // split one true cluster across two identical slots
	}
	st := newTestState([]bool{true, true, false}, labels)
	prior := DefaultPriors(d)
	sampler := &ComponentSampler{Data: d, Prior: prior}
	return d, st, &MergeStep{Threshold: prior.MergePar, Sampler: sampler}
}

func TestSymmetrizedKL_ZeroForIdenticalComponents(t *testing.T) {
	_, st, _ := mergeFixture(t)
	require.InDelta(t, 0, SymmetrizedKL(st.Components[0], st.Components[1]), 1e-10)
}

func TestSymmetrizedKL_GrowsWithSeparation(t *testing.T) {
	_, st, _ := mergeFixture(t)
	st.Components[1].Mean = []float64{10, 0}
	div := SymmetrizedKL(st.Components[0], st.Components[1])
	require.Greater(t, div, 10.0)
}

func TestMergeSweep_CollapsesIdenticalComponents(t *testing.T) {
	_, st, ms := mergeFixture(t)
	require.Equal(t, 2, len(st.OccupiedSlots()))
	require.NoError(t, ms.Sweep(st, rand.New(rand.NewSource(71))))
	occ := st.OccupiedSlots()
	require.Len(t, occ, 1)
	survivor := occ[0]
	require.Equal(t, 60, st.Components[survivor].Occupancy)
	for _, z := range st.Labels {
		require.Equal(t, survivor, z)
	}
	// the vacated slot stays alive as an empty prior draw
	for k, c := range st.Components {
		if k == survivor {
			continue
		}
		require.Equal(t, 0, c.Occupancy)
		_, err := StrictCholesky(c.Cov)
		require.NoError(t, err)
	}
	require.Equal(t, st.K(), st.Part.K0+st.Part.K1)
}

func TestMergeSweep_LeavesSeparatedComponentsAlone(t *testing.T) {
	d := genGaussianData(73, 2, []int{30, 30}, [][]float64{{0, 0}, {8, 8}})
	labels := make([]int, 60)
	for i := range labels {
		if i < 30 {
			labels[i] = 0
		} else {
			labels[i] = 1
		}
	}
	st := newTestState([]bool{true, true, false}, labels)
	st.Components[1].Mean = []float64{8, 8}
	prior := DefaultPriors(d)
	ms := &MergeStep{Threshold: prior.MergePar, Sampler: &ComponentSampler{Data: d, Prior: prior}}
	require.NoError(t, ms.Sweep(st, rand.New(rand.NewSource(79))))
	require.Len(t, st.OccupiedSlots(), 2)
}

func TestMergeSweep_SharedSlotSurvivesMixedRoleMerge(t *testing.T) {
	d := genGaussianData(83, 2, []int{40}, [][]float64{{0, 0}})
	labels := make([]int, 40)
	for i := range labels {
		labels[i] = i % 2
	}
	// slot 0 shared, slot 1 specific, identical laws; slot 1 holds as many
	// observations, but the shared slot must absorb it
	st := newTestState([]bool{true, false, false}, labels)
	prior := DefaultPriors(d)
	ms := &MergeStep{Threshold: prior.MergePar, Sampler: &ComponentSampler{Data: d, Prior: prior}}
	require.NoError(t, ms.Sweep(st, rand.New(rand.NewSource(89))))
	occ := st.OccupiedSlots()
	require.Len(t, occ, 1)
	require.True(t, st.Components[occ[0]].Shared)
}
