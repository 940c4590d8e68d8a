package cremid

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distmv"
)

//ErrNumericalInstability indicates a non-finite quantity that makes further
//sampling meaningless; the chain aborts when it is returned.
var ErrNumericalInstability = errors.New("non-finite value in sampler state")

//LabelSampler will reseat every observation's component label given the
//current component parameters and the shared/specific weight decomposition.
//This is the dominant cost of a sweep, so covariance Cholesky factors are
//computed once per component and reused across all observations.
type LabelSampler struct {
	Data    *DataSet
	Workers int
	Logger  *slog.Logger

	fallbacks atomic.Int64
}

//Fallbacks will report how many times the uniform safety net fired since the
//sampler was built. Repeated events mean the mixture has collapsed away from
//part of the data's support.
func (ls *LabelSampler) Fallbacks() int64 {
	return ls.fallbacks.Load()
}

//Sweep will resample all labels. With Workers > 1 the observations are split
//into contiguous blocks, each drawing from its own sub-stream seeded
//deterministically from (seed, sweep, block); Workers == 1 consumes the
//master stream so single-threaded runs stay bit-reproducible.
func (ls *LabelSampler) Sweep(state *MixtureState, sweep int, seed uint64, rng *rand.Rand) error {
	logPi := ls.mixtureLogWeights(state)
	if ls.Workers <= 1 {
		return ls.sweepRange(state, logPi, 0, ls.Data.N, rng)
	}
	blocks := ls.Workers
	if blocks > ls.Data.N {
		blocks = ls.Data.N
	}
	per := (ls.Data.N + blocks - 1) / blocks
	var wg sync.WaitGroup
	errs := make([]error, blocks)
	for b := 0; b < blocks; b++ {
		lo := b * per
		hi := lo + per
		if hi > ls.Data.N {
			hi = ls.Data.N
		}
		sub := rand.New(rand.NewSource(seed ^ (uint64(sweep)*0x9e3779b97f4a7c15 + uint64(b) + 1)))
		wg.Add(1)
		go func(lo, hi int, sub *rand.Rand, slot int) {
			defer wg.Done()
			errs[slot] = ls.sweepRange(state, logPi, lo, hi, sub)
		}(lo, hi, sub, b)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	state.RefreshOccupancy()
	return nil
}

//mixtureLogWeights resolves log pi_{j,k} for every group and component:
//log(rho w0_k) for shared slots, log((1-rho) wj_k) for specific slots.
//Empty pools contribute -Inf mass rather than dividing by zero.
func (ls *LabelSampler) mixtureLogWeights(state *MixtureState) [][]float64 {
	k := state.K()
	logPi := make([][]float64, ls.Data.J)
	logRho := math.Inf(-1)
	if state.Rho > 0 {
		logRho = math.Log(state.Rho)
	}
	logOneMinusRho := math.Inf(-1)
	if state.Rho < 1 {
		logOneMinusRho = math.Log(1 - state.Rho)
	}
	for j := 0; j < ls.Data.J; j++ {
		logPi[j] = make([]float64, k)
		for c, comp := range state.Components {
			role := state.Part.Roles[c]
			switch {
			case comp.Shared && state.Part.K0 > 0:
				w := state.W0[role.Index]
				if w > 0 {
					logPi[j][c] = logRho + math.Log(w)
				} else {
					logPi[j][c] = math.Inf(-1)
				}
			case !comp.Shared && state.Part.K1 > 0:
				w := state.WJ[j][role.Index]
				if w > 0 {
					logPi[j][c] = logOneMinusRho + math.Log(w)
				} else {
					logPi[j][c] = math.Inf(-1)
				}
			default:
				logPi[j][c] = math.Inf(-1)
			}
		}
	}
	return logPi
}

func (ls *LabelSampler) sweepRange(state *MixtureState, logPi [][]float64, lo, hi int, rng *rand.Rand) error {
	k := state.K()
	logp := make([]float64, k)
	prob := make([]float64, k)
	// one density object per component, sharing its cached Cholesky factor
	// across every observation in the block
	normals := make([]*distmv.Normal, k)
	for c, comp := range state.Components {
		normals[c] = distmv.NewNormalChol(comp.Mean, comp.Chol, nil)
	}
	for i := lo; i < hi; i++ {
		y := ls.Data.Row(i)
		j := ls.Data.Groups[i] - 1
		for c := 0; c < k; c++ {
			lp := logPi[j][c]
			if math.IsInf(lp, -1) {
				logp[c] = math.Inf(-1)
				continue
			}
			den := normals[c].LogProb(y)
			if math.IsNaN(den) {
				return errors.Wrapf(ErrNumericalInstability, "density of observation %d under component %d", i, c)
			}
			logp[c] = lp + den
		}
		norm := floats.LogSumExp(logp)
		if math.IsInf(norm, -1) {
			// all mass underflowed: uniform safety net, flagged for diagnostics
			ls.fallbacks.Add(1)
			if ls.Logger != nil {
				ls.Logger.Warn("all-zero label probabilities, falling back to uniform",
					"observation", i, "group", j+1)
			}
			state.Labels[i] = rng.Intn(k)
			continue
		}
		if math.IsNaN(norm) || math.IsInf(norm, 1) {
			return errors.Wrapf(ErrNumericalInstability, "label normalizer for observation %d", i)
		}
		for c := range logp {
			prob[c] = math.Exp(logp[c] - norm)
		}
		state.Labels[i] = categorical(prob, rng)
	}
	if lo == 0 && hi == ls.Data.N {
		state.RefreshOccupancy()
	}
	return nil
}

//categorical draws an index proportional to the (normalized) weights
func categorical(prob []float64, rng *rand.Rand) int {
	u := rng.Float64()
	cum := 0.
	for c, p := range prob {
		cum += p
		if u < cum {
			return c
		}
	}
	return len(prob) - 1
}
