package cremid

import (
	"log/slog"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

//MergeStep will consolidate near-duplicate components after a sweep. The
//truncated representation tends to split one true cluster across several
//slots; merging pairs whose Gaussian laws sit within a symmetrized-KL
//threshold trades a small bias for removing that redundancy.
type MergeStep struct {
	Threshold float64
	Sampler   *ComponentSampler
	Logger    *slog.Logger
}

type mergePair struct {
	a, b int
	div  float64
}

//Sweep will greedily merge occupied component pairs in ascending divergence
//order. A slot that takes part in a merge is excluded from further pairs in
//the same sweep; a pair whose re-estimated covariance comes out non-SPD is
//skipped rather than failing the sweep.
func (ms *MergeStep) Sweep(state *MixtureState, rng *rand.Rand) error {
	occ := state.OccupiedSlots()
	var pairs []mergePair
	for i := 0; i < len(occ); i++ {
		for j := i + 1; j < len(occ); j++ {
			a, b := occ[i], occ[j]
			div := SymmetrizedKL(state.Components[a], state.Components[b])
			if math.IsNaN(div) {
				continue
			}
			if div < ms.Threshold {
				pairs = append(pairs, mergePair{a: a, b: b, div: div})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].div < pairs[j].div })
	touched := make(map[int]bool)
	for _, pr := range pairs {
		if touched[pr.a] || touched[pr.b] {
			continue
		}
		if ms.merge(state, pr.a, pr.b, rng) {
			touched[pr.a] = true
			touched[pr.b] = true
		}
	}
	return nil
}

func (ms *MergeStep) merge(state *MixtureState, a, b int, rng *rand.Rand) bool {
	ca, cb := state.Components[a], state.Components[b]
	survivor, vacated := a, b
	switch {
	case ca.Shared != cb.Shared:
		// the shared slot survives so no group loses prior support
		if cb.Shared {
			survivor, vacated = b, a
		}
	case cb.Occupancy > ca.Occupancy:
		survivor, vacated = b, a
	}
	var union []int
	for i, z := range state.Labels {
		if z == survivor || z == vacated {
			union = append(union, i)
		}
	}
	// re-estimate into a scratch slot first so a failed draw leaves the
	// current sweep's state untouched
	scratch := &Component{Mean: copyFloats(state.Components[survivor].Mean), Shared: state.Components[survivor].Shared}
	if err := ms.Sampler.RedrawSlot(scratch, union, rng); err != nil {
		if ms.Logger != nil {
			ms.Logger.Warn("skipping degenerate merge", "survivor", survivor, "vacated", vacated, "err", err)
		}
		return false
	}
	empty := &Component{Shared: state.Components[vacated].Shared}
	if err := ms.Sampler.RedrawSlot(empty, nil, rng); err != nil {
		if ms.Logger != nil {
			ms.Logger.Warn("skipping merge, vacated slot reseed failed", "vacated", vacated, "err", err)
		}
		return false
	}
	for i, z := range state.Labels {
		if z == vacated {
			state.Labels[i] = survivor
		}
	}
	state.Components[survivor] = scratch
	state.Components[vacated] = empty
	state.Resolve()
	state.RefreshOccupancy()
	return true
}

//SymmetrizedKL will evaluate 0.5*(KL(a||b) + KL(b||a)) between the Gaussian
//laws of two components
func SymmetrizedKL(a, b *Component) float64 {
	return 0.5 * (gaussianKL(a, b) + gaussianKL(b, a))
}

//gaussianKL evaluates KL(N(ma,Sa) || N(mb,Sb)) in closed form
func gaussianKL(a, b *Component) float64 {
	p := len(a.Mean)
	// tr(Sb^-1 Sa)
	var x mat.Dense
	if err := b.Chol.SolveTo(&x, a.Cov); err != nil {
		return math.NaN()
	}
	tr := mat.Trace(&x)
	diff := make([]float64, p)
	for d := 0; d < p; d++ {
		diff[d] = b.Mean[d] - a.Mean[d]
	}
	quad := QuadForm(diff, b.Chol)
	return 0.5 * (tr + quad - float64(p) + b.Chol.LogDet() - a.Chol.LogDet())
}
