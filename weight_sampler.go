package cremid

import (
	"log/slog"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

//WeightSampler will update the shared and group weight vectors, the mixing
//proportion rho, the structural gate varphi, and (when the truncation policy
//allows it) the sharing indicator vector R.
type WeightSampler struct {
	Data   *DataSet
	Prior  *PriorSettings
	Logger *slog.Logger
}

//Sweep runs the weight-family updates in a fixed order so random-number
//consumption stays deterministic: R (under the adaptive truncation policy),
//then w0 and each wj, then rho, then varphi.
func (ws *WeightSampler) Sweep(state *MixtureState, rng *rand.Rand) error {
	if ws.Prior.TruncationType == TruncationAdaptive {
		ws.updateSharingIndicators(state, rng)
	}
	if err := ws.updatePoolWeights(state, rng); err != nil {
		return err
	}
	nShared, nSpecific := state.PoolCounts()
	state.Rho = ws.spikeSlabDraw(nShared, nSpecific, ws.Prior.TauRho, ws.Prior.PointMassRho, rng)
	// varphi conditions on the occupied component counts, so its spike at
	// zero is reachable exactly when no shared component holds data
	k0Occ, k1Occ := 0, 0
	for _, k := range state.OccupiedSlots() {
		if state.Components[k].Shared {
			k0Occ++
		} else {
			k1Occ++
		}
	}
	state.Varphi = ws.spikeSlabDraw(k0Occ, k1Occ, ws.Prior.TauVarphi, ws.Prior.PointMassVarphi, rng)
	if math.IsNaN(state.Rho) || math.IsNaN(state.Varphi) {
		return errors.Wrap(ErrNumericalInstability, "mixing proportion update")
	}
	return nil
}

//updatePoolWeights draws w0 and every wj from their Dirichlet-multinomial
//posteriors: symmetric prior concentration alpha/K plus pool label counts.
func (ws *WeightSampler) updatePoolWeights(state *MixtureState, rng *rand.Rand) error {
	part := state.Part
	if part.K0 > 0 {
		counts := make([]float64, part.K0)
		for _, z := range state.Labels {
			if role := part.Roles[z]; role.Shared {
				counts[role.Index]++
			}
		}
		conc := make([]float64, part.K0)
		base := state.Alpha0 / float64(part.K0)
		for i := range conc {
			conc[i] = base + counts[i]
		}
		state.W0 = ws.dirichletDraw(conc, rng)
		if !allFinite(state.W0) {
			return errors.Wrap(ErrNumericalInstability, "shared weight vector")
		}
	} else {
		state.W0 = nil
	}
	state.WJ = make([][]float64, ws.Data.J)
	if part.K1 == 0 {
		return nil
	}
	for j := 0; j < ws.Data.J; j++ {
		counts := make([]float64, part.K1)
		for _, i := range ws.Data.GroupRows[j] {
			if role := part.Roles[state.Labels[i]]; !role.Shared {
				counts[role.Index]++
			}
		}
		conc := make([]float64, part.K1)
		base := state.AlphaJ[j] / float64(part.K1)
		for c := range conc {
			conc[c] = base + counts[c]
		}
		state.WJ[j] = ws.dirichletDraw(conc, rng)
		if !allFinite(state.WJ[j]) {
			return errors.Wrapf(ErrNumericalInstability, "weight vector of group %d", j+1)
		}
	}
	return nil
}

//dirichletDraw samples a simplex vector, floors each coordinate at the
//configured epsilon and renormalizes so downstream logs never see a hard zero
func (ws *WeightSampler) dirichletDraw(conc []float64, rng *rand.Rand) []float64 {
	for i := range conc {
		if conc[i] <= 0 {
			conc[i] = ws.Prior.EpsilonRange[0]
		}
	}
	w := distmv.NewDirichlet(conc, rng).Rand(nil)
	floor := ws.Prior.EpsilonRange[0]
	for i := range w {
		if w[i] < floor {
			w[i] = floor
		}
	}
	Renormalize(w)
	return w
}

//spikeSlabDraw samples a proportion whose posterior is a mixture of point
//masses at 0 and 1 and a continuous Beta slab. The discrete part is sampled
//first with marginal-likelihood weights: a spike is only reachable when the
//allocation it implies is actually observed (no mass on the opposing pool);
//the slab weight is the Beta-binomial marginal of the pool counts.
//
//This discrete-then-continuous decomposition is the documented reading of
//the point-mass construction and still needs validation against the
//reference model.
func (ws *WeightSampler) spikeSlabDraw(nIn, nOut int, tau [2]float64, pm [2]float64, rng *rand.Rand) float64 {
	a, b := tau[0], tau[1]
	postA := a + float64(nIn)
	postB := b + float64(nOut)
	if pm[0] > 0 || pm[1] > 0 {
		w0, w1 := 0., 0.
		if nIn == 0 {
			w0 = pm[0]
		}
		if nOut == 0 {
			w1 = pm[1]
		}
		slab := (1 - pm[0] - pm[1]) * math.Exp(logBeta(postA, postB)-logBeta(a, b))
		total := w0 + w1 + slab
		if total > 0 {
			u := rng.Float64() * total
			if u < w0 {
				return 0
			}
			if u < w0+w1 {
				return 1
			}
		}
	}
	draw := distuv.Beta{Alpha: postA, Beta: postB, Src: rng}.Rand()
	return clamp(draw, ws.Prior.EpsilonRange[0], ws.Prior.EpsilonRange[1])
}

//updateSharingIndicators resamples each component's shared/specific role by
//a Metropolis flip. The data term measures how concentrated the component's
//occupants are in a single group: occupants spread like the group sizes
//favor the shared role, occupants piled into one group favor the specific
//role. The prior odds come from varphi, so a varphi pinned at 0 or 1 freezes
//the flips in the corresponding direction.
func (ws *WeightSampler) updateSharingIndicators(state *MixtureState, rng *rand.Rand) {
	groupCounts := make([]int, ws.Data.J)
	for k, comp := range state.Components {
		// never flip the last slot out of a pool; both pools must stay resolvable
		if comp.Shared && state.Part.K0 <= 1 {
			continue
		}
		if !comp.Shared && state.Part.K1 <= 1 {
			continue
		}
		for j := range groupCounts {
			groupCounts[j] = 0
		}
		nk := 0
		for i, z := range state.Labels {
			if z == k {
				groupCounts[ws.Data.Groups[i]-1]++
				nk++
			}
		}
		logOdds := ws.flipLogOdds(state, comp.Shared, groupCounts, nk)
		if math.Log(rng.Float64()) < logOdds {
			comp.Shared = !comp.Shared
			state.Resolve()
		}
	}
}

//flipLogOdds returns the log acceptance odds of flipping a component's role,
//combining the varphi Bernoulli prior with the multinomial fit of the
//component's occupants to each role.
func (ws *WeightSampler) flipLogOdds(state *MixtureState, curShared bool, groupCounts []int, nk int) float64 {
	logVarphi := math.Inf(-1)
	if state.Varphi > 0 {
		logVarphi = math.Log(state.Varphi)
	}
	logOneMinus := math.Inf(-1)
	if state.Varphi < 1 {
		logOneMinus = math.Log(1 - state.Varphi)
	}
	// shared role: occupants should spread proportionally to group sizes;
	// specific role: the empirical multinomial rewards concentration
	llShared, llSpecific := 0., 0.
	n := float64(ws.Data.N)
	for j, c := range groupCounts {
		if c == 0 {
			continue
		}
		fc := float64(c)
		llShared += fc * math.Log(float64(len(ws.Data.GroupRows[j]))/n)
		llSpecific += fc * math.Log(fc/float64(nk))
	}
	if curShared {
		return (logOneMinus + llSpecific) - (logVarphi + llShared)
	}
	return (logVarphi + llShared) - (logOneMinus + llSpecific)
}
