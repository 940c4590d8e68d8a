package cremid

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

//maxRedraws bounds consecutive redraw attempts on near-singular draws before
//the sweep is declared fatal (misspecified priors)
const maxRedraws = 5

//ComponentSampler will redraw every slot's (mean, covariance) pair from the
//semi-conjugate posterior given the observations currently assigned to it.
//Unoccupied slots redraw from the prior, which is what keeps unused slots of
//the truncation alive for later reassignment.
type ComponentSampler struct {
	Data  *DataSet
	Prior *PriorSettings
}

//Sweep will update every component slot in index order
func (cs *ComponentSampler) Sweep(state *MixtureState, rng *rand.Rand) error {
	members := make([][]int, state.K())
	for i, z := range state.Labels {
		members[z] = append(members[z], i)
	}
	for k, comp := range state.Components {
		if err := cs.redrawSlot(comp, members[k], rng); err != nil {
			return errors.Wrapf(err, "component %d", k)
		}
	}
	return nil
}

//RedrawSlot will re-estimate a single slot from an explicit observation set.
//The merge step reuses this to refresh a surviving slot from the union of two
//former memberships.
func (cs *ComponentSampler) RedrawSlot(comp *Component, rows []int, rng *rand.Rand) error {
	return cs.redrawSlot(comp, rows, rng)
}

func (cs *ComponentSampler) redrawSlot(comp *Component, rows []int, rng *rand.Rand) error {
	var lastErr error
	for attempt := 0; attempt < maxRedraws; attempt++ {
		var mu []float64
		var sigma *mat.SymDense
		var err error
		if len(rows) == 0 {
			mu, sigma, err = SampleNIW(cs.Prior.M0, cs.Prior.V0, cs.Prior.Psi2, cs.Prior.Nu2, rng)
		} else {
			mu, sigma, err = cs.posteriorDraw(comp, rows, rng)
		}
		if err != nil {
			lastErr = err
			continue
		}
		chol, err := StrictCholesky(sigma)
		if err != nil {
			lastErr = err
			continue
		}
		comp.Mean = mu
		comp.Cov = sigma
		comp.Chol = chol
		comp.Occupancy = len(rows)
		return nil
	}
	return errors.Wrapf(lastErr, "exhausted %d redraws", maxRedraws)
}

//posteriorDraw performs the two conditional draws of the semi-conjugate
//update: Sigma | mu, data from an inverse-Wishart with the scatter about the
//current mean added to the prior scale, then mu | Sigma, data from the
//precision-weighted Gaussian combination of prior and sample information.
func (cs *ComponentSampler) posteriorDraw(comp *Component, rows []int, rng *rand.Rand) ([]float64, *mat.SymDense, error) {
	p := cs.Data.P
	n := float64(len(rows))

	// scatter of the assigned observations about the current component mean
	scatter := mat.NewSymDense(p, nil)
	ybar := make([]float64, p)
	diff := make([]float64, p)
	for _, i := range rows {
		y := cs.Data.Row(i)
		for d := 0; d < p; d++ {
			diff[d] = y[d] - comp.Mean[d]
			ybar[d] += y[d]
		}
		for d1 := 0; d1 < p; d1++ {
			for d2 := d1; d2 < p; d2++ {
				scatter.SetSym(d1, d2, scatter.At(d1, d2)+diff[d1]*diff[d2])
			}
		}
	}
	for d := 0; d < p; d++ {
		ybar[d] /= n
	}
	psiN := CopySym(cs.Prior.Psi2)
	psiN.AddSym(psiN, scatter)
	sigma, err := SampleInverseWishart(psiN, cs.Prior.Nu2+n, rng)
	if err != nil {
		return nil, nil, err
	}

	// mu | Sigma: precision V0^-1 + n Sigma^-1, mean the weighted combination
	v0Chol, err := SafeCholesky(cs.Prior.V0)
	if err != nil {
		return nil, nil, err
	}
	sigChol, err := SafeCholesky(sigma)
	if err != nil {
		return nil, nil, err
	}
	v0Inv := mat.NewSymDense(p, nil)
	if err := v0Chol.InverseTo(v0Inv); err != nil {
		return nil, nil, err
	}
	sigInv := mat.NewSymDense(p, nil)
	if err := sigChol.InverseTo(sigInv); err != nil {
		return nil, nil, err
	}
	prec := mat.NewSymDense(p, nil)
	prec.AddSym(v0Inv, ScaledSym(sigInv, n))
	precChol, err := SafeCholesky(prec)
	if err != nil {
		return nil, nil, err
	}
	vn := mat.NewSymDense(p, nil)
	if err := precChol.InverseTo(vn); err != nil {
		return nil, nil, err
	}
	// b = V0^-1 m0 + n Sigma^-1 ybar
	b := mat.NewVecDense(p, nil)
	b.MulVec(v0Inv, mat.NewVecDense(p, cs.Prior.M0))
	nb := mat.NewVecDense(p, nil)
	nb.MulVec(sigInv, mat.NewVecDense(p, ybar))
	b.AddScaledVec(b, n, nb)
	mn := mat.NewVecDense(p, nil)
	mn.MulVec(vn, b)
	vnChol, err := SafeCholesky(vn)
	if err != nil {
		return nil, nil, err
	}
	mu := SampleMVN(mn.RawVector().Data, vnChol, rng)
	return mu, sigma, nil
}
