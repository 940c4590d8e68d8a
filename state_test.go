package cremid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestState(shared []bool, labels []int) *MixtureState {
	comps := make([]*Component, len(shared))
	for k, s := range shared {
		comps[k] = &Component{
			Mean:   []float64{0, 0},
			Cov:    IdentitySym(2),
			Shared: s,
		}
		ch, err := StrictCholesky(comps[k].Cov)
		if err != nil {
			panic(err)
		}
		comps[k].Chol = ch
	}
	st := &MixtureState{Components: comps, Labels: labels, Rho: 0.5, Varphi: 0.5, Alpha0: 1, AlphaJ: []float64{1}}
	st.Resolve()
	st.RefreshOccupancy()
	return st
}

func TestResolvePartition_CountsAndIndices(t *testing.T) {
	st := newTestState([]bool{true, false, true, false, false}, []int{0, 1, 2})
	require.Equal(t, 2, st.Part.K0)
	require.Equal(t, 3, st.Part.K1)
	require.Equal(t, st.K(), st.Part.K0+st.Part.K1)
	require.Equal(t, []int{0, 2}, st.Part.SharedSlots)
	require.Equal(t, []int{1, 3, 4}, st.Part.SpecificSlots)
	require.Equal(t, Role{Shared: true, Index: 1}, st.Part.Roles[2])
	require.Equal(t, Role{Shared: false, Index: 2}, st.Part.Roles[4])
}

func TestPoolCounts(t *testing.T) {
	st := newTestState([]bool{true, false}, []int{0, 0, 1})
	nShared, nSpecific := st.PoolCounts()
	require.Equal(t, 2, nShared)
	require.Equal(t, 1, nSpecific)
}

func TestOccupiedSlots(t *testing.T) {
	st := newTestState([]bool{true, false, false}, []int{0, 0, 2})
	require.Equal(t, []int{0, 2}, st.OccupiedSlots())
}

func TestClone_IsDeep(t *testing.T) {
	st := newTestState([]bool{true, false}, []int{0, 1})
	st.W0 = []float64{1}
	st.WJ = [][]float64{{1}}
	cl := st.Clone()
	cl.Labels[0] = 1
	cl.Components[0].Mean[0] = 99
	cl.W0[0] = 0.5
	require.Equal(t, 0, st.Labels[0])
	require.Equal(t, 0.0, st.Components[0].Mean[0])
	require.Equal(t, 1.0, st.W0[0])
	require.Equal(t, st.Part.K0, cl.Part.K0)
}
