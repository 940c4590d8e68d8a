package cremid

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

//ConcentrationSampler will update the Dirichlet concentration parameters via
//the Escobar-West auxiliary-variable scheme: draw eta ~ Beta(alpha+1, n),
//then alpha from a two-component Gamma mixture conditioned on eta and the
//number of occupied components.
type ConcentrationSampler struct {
	Data  *DataSet
	Prior *PriorSettings
}

//Sweep will update alpha0 and the group concentrations. Under the
//shared_alpha policy a single draw governs the shared pool and every group.
func (cs *ConcentrationSampler) Sweep(state *MixtureState, rng *rand.Rand) error {
	if cs.Prior.SharedAlpha {
		kOcc := len(state.OccupiedSlots())
		alpha := cs.escobarWest(state.Alpha0, kOcc, cs.Data.N, rng)
		if alpha <= 0 || math.IsNaN(alpha) {
			return errors.Wrap(ErrNumericalInstability, "shared concentration update")
		}
		state.Alpha0 = alpha
		for j := range state.AlphaJ {
			state.AlphaJ[j] = alpha
		}
		return nil
	}
	nShared, _ := state.PoolCounts()
	k0Occ := 0
	for _, k := range state.OccupiedSlots() {
		if state.Components[k].Shared {
			k0Occ++
		}
	}
	state.Alpha0 = cs.escobarWest(state.Alpha0, k0Occ, nShared, rng)
	if state.Alpha0 <= 0 || math.IsNaN(state.Alpha0) {
		return errors.Wrap(ErrNumericalInstability, "alpha0 update")
	}
	for j := 0; j < cs.Data.J; j++ {
		kjOcc := 0
		seen := make(map[int]bool)
		for _, i := range cs.Data.GroupRows[j] {
			z := state.Labels[i]
			if !state.Components[z].Shared && !seen[z] {
				seen[z] = true
				kjOcc++
			}
		}
		nj := 0
		for _, i := range cs.Data.GroupRows[j] {
			if !state.Components[state.Labels[i]].Shared {
				nj++
			}
		}
		state.AlphaJ[j] = cs.escobarWest(state.AlphaJ[j], kjOcc, nj, rng)
		if state.AlphaJ[j] <= 0 || math.IsNaN(state.AlphaJ[j]) {
			return errors.Wrapf(ErrNumericalInstability, "alpha update for group %d", j+1)
		}
	}
	return nil
}

//escobarWest performs one auxiliary-variable update of a concentration
//parameter given k occupied components among n observations. With no
//observations in the pool the draw falls back to the Gamma prior.
func (cs *ConcentrationSampler) escobarWest(alpha float64, k, n int, rng *rand.Rand) float64 {
	a, b := cs.Prior.TauAlpha[0], cs.Prior.TauAlpha[1]
	if n == 0 || k == 0 {
		return distuv.Gamma{Alpha: a, Beta: b, Src: rng}.Rand()
	}
	eta := distuv.Beta{Alpha: alpha + 1, Beta: float64(n), Src: rng}.Rand()
	if eta <= 0 || eta >= 1 {
		eta = clamp(eta, cs.Prior.EpsilonRange[0], 1-cs.Prior.EpsilonRange[0])
	}
	rate := b - math.Log(eta)
	odds := (a + float64(k) - 1) / (float64(n) * rate)
	shape := a + float64(k)
	if rng.Float64() >= odds/(1+odds) {
		shape = a + float64(k) - 1
	}
	if shape <= 0 {
		shape = a
	}
	draw := distuv.Gamma{Alpha: shape, Beta: rate, Src: rng}.Rand()
	if draw <= 0 {
		draw = cs.Prior.EpsilonRange[0]
	}
	return draw
}
