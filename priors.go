package cremid

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

//Truncation policies for the sharing indicator vector R.
const (
	TruncationFixed    = "fixed"    // R stays at its initial draw
	TruncationAdaptive = "adaptive" // R is resampled each sweep
)

//PriorSettings will store every hyperparameter of the mixture prior along
//with the structural run options. Matrix-valued defaults are filled in from
//summary statistics of the data by DefaultPriors.
type PriorSettings struct {
	K            int        // truncation level
	EpsilonRange [2]float64 // numerical floor/ceiling for probabilities
	M0           []float64  // mean-prior location
	V0           *mat.SymDense
	Nu1          float64 // reserved degrees of freedom of the hierarchical mean-scale prior
	Nu2          float64 // inverse-Wishart degrees of freedom
	Psi2         *mat.SymDense
	TauK0        [2]float64 // reserved shared-truncation prior; accepted but not consumed by any update
	TauAlpha     [2]float64 // Gamma(shape, rate) prior on concentration parameters
	TauRho       [2]float64
	TauVarphi    [2]float64
	PointMassRho    [2]float64 // prior mass of rho at exactly 0 and exactly 1
	PointMassVarphi [2]float64
	MergeStep      bool
	MergePar       float64
	SharedAlpha    bool
	TruncationType string
}

//DefaultPriors will build the documented default hyperparameters from the
//summary statistics of the data: the mean prior sits at the data mean with
//100x the data covariance, and the covariance prior is centered on the data
//covariance with p+2 degrees of freedom.
func DefaultPriors(d *DataSet) *PriorSettings {
	cov := d.SampleCovariance()
	return &PriorSettings{
		K:               10,
		EpsilonRange:    [2]float64{1e-10, 1},
		M0:              d.ColMeans(),
		V0:              ScaledSym(cov, 100),
		Nu1:             float64(d.P) + 2,
		Nu2:             float64(d.P) + 2,
		Psi2:            cov,
		TauK0:           [2]float64{4, 4},
		TauAlpha:        [2]float64{1, 1},
		TauRho:          [2]float64{0.5, 0.5},
		TauVarphi:       [2]float64{0.5, 0.5},
		PointMassRho:    [2]float64{0, 0},
		PointMassVarphi: [2]float64{0, 0},
		MergeStep:       true,
		MergePar:        0.1,
		SharedAlpha:     true,
		TruncationType:  TruncationFixed,
	}
}

//Validate will reject settings the sampler cannot run with
func (ps *PriorSettings) Validate(p int) error {
	if ps.K < 2 {
		return errors.Errorf("truncation level K must be at least 2, got %d", ps.K)
	}
	if len(ps.M0) != p {
		return errors.Errorf("m0 has dimension %d, want %d", len(ps.M0), p)
	}
	if ps.V0 == nil || ps.V0.SymmetricDim() != p {
		return errors.New("V0 must be a p x p symmetric matrix")
	}
	if ps.Psi2 == nil || ps.Psi2.SymmetricDim() != p {
		return errors.New("Psi2 must be a p x p symmetric matrix")
	}
	if ps.Nu2 <= float64(p)-1 {
		return errors.Errorf("nu2 must exceed p-1, got %v", ps.Nu2)
	}
	if ps.EpsilonRange[0] <= 0 || ps.EpsilonRange[0] >= ps.EpsilonRange[1] {
		return errors.Errorf("bad epsilon range %v", ps.EpsilonRange)
	}
	if ps.TauAlpha[0] <= 0 || ps.TauAlpha[1] <= 0 {
		return errors.Errorf("tau_alpha must be positive, got %v", ps.TauAlpha)
	}
	if ps.TauRho[0] <= 0 || ps.TauRho[1] <= 0 || ps.TauVarphi[0] <= 0 || ps.TauVarphi[1] <= 0 {
		return errors.New("beta hyperparameters for rho and varphi must be positive")
	}
	for _, pm := range [][2]float64{ps.PointMassRho, ps.PointMassVarphi} {
		if pm[0] < 0 || pm[1] < 0 || pm[0]+pm[1] >= 1 {
			return errors.Errorf("point masses must be nonnegative and sum below 1, got %v", pm)
		}
	}
	if ps.MergeStep && ps.MergePar <= 0 {
		return errors.Errorf("merge_par must be positive, got %v", ps.MergePar)
	}
	if ps.TruncationType != TruncationFixed && ps.TruncationType != TruncationAdaptive {
		return errors.Errorf("unknown truncation_type %q", ps.TruncationType)
	}
	return nil
}
