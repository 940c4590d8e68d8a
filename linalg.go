package cremid

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmat"
	"gonum.org/v1/gonum/stat/distmv"
)

//ErrNonPositiveDefinite indicates a matrix that could not be factorized even
//after diagonal regularization. Callers treat a single failure as recoverable
//and redraw; repeated failures escalate to a fatal chain error.
var ErrNonPositiveDefinite = errors.New("matrix is not positive definite")

//maxJitterRetries bounds the escalating-jitter loop in SafeCholesky
const maxJitterRetries = 6

//StrictCholesky will factorize m or fail with ErrNonPositiveDefinite,
//without attempting any repair
func StrictCholesky(m *mat.SymDense) (*mat.Cholesky, error) {
	var ch mat.Cholesky
	if ok := ch.Factorize(m); !ok {
		return nil, ErrNonPositiveDefinite
	}
	return &ch, nil
}

//SafeCholesky will factorize m, adding escalating diagonal jitter when the
//bare factorization fails. The jitter starts at 1e-10 times the mean
//diagonal and grows tenfold per retry; m itself is never modified.
func SafeCholesky(m *mat.SymDense) (*mat.Cholesky, error) {
	var ch mat.Cholesky
	if ok := ch.Factorize(m); ok {
		return &ch, nil
	}
	p := m.SymmetricDim()
	diag := 0.
	for i := 0; i < p; i++ {
		diag += m.At(i, i)
	}
	diag /= float64(p)
	if diag <= 0 {
		diag = 1
	}
	jit := CopySym(m)
	eps := 1e-10 * diag
	for r := 0; r < maxJitterRetries; r++ {
		for i := 0; i < p; i++ {
			jit.SetSym(i, i, m.At(i, i)+eps)
		}
		if ok := ch.Factorize(jit); ok {
			return &ch, nil
		}
		eps *= 10
	}
	return nil, errors.Wrapf(ErrNonPositiveDefinite, "after %d jitter retries", maxJitterRetries)
}

//MVNLogDensity will evaluate the multivariate-normal log density of x using
//a precomputed Cholesky factor of the covariance
func MVNLogDensity(x, mean []float64, chol *mat.Cholesky) float64 {
	return distmv.NewNormalChol(mean, chol, nil).LogProb(x)
}

//SampleMVN will draw from N(mean, Sigma) given the Cholesky factor of Sigma
func SampleMVN(mean []float64, chol *mat.Cholesky, rng *rand.Rand) []float64 {
	return distmv.NewNormalChol(mean, chol, rng).Rand(nil)
}

//SampleInverseWishart will draw a covariance matrix from IW(psi, nu) by
//sampling the precision from a Wishart with the inverted scale. The draw is
//almost surely positive definite; a failed factorization of psi is returned
//for the caller to regularize and retry.
func SampleInverseWishart(psi *mat.SymDense, nu float64, rng *rand.Rand) (*mat.SymDense, error) {
	p := psi.SymmetricDim()
	psiChol, err := SafeCholesky(psi)
	if err != nil {
		return nil, errors.Wrap(err, "inverse-Wishart scale")
	}
	psiInv := mat.NewSymDense(p, nil)
	if err := psiChol.InverseTo(psiInv); err != nil {
		return nil, errors.Wrap(err, "inverting inverse-Wishart scale")
	}
	w, ok := distmat.NewWishart(psiInv, nu, rng)
	if !ok {
		return nil, errors.Errorf("wishart degrees of freedom %v too small for dimension %d", nu, p)
	}
	var precChol mat.Cholesky
	w.RandCholTo(&precChol)
	sigma := mat.NewSymDense(p, nil)
	if err := precChol.InverseTo(sigma); err != nil {
		return nil, errors.Wrap(err, "inverting Wishart draw")
	}
	return sigma, nil
}

//SampleNIW will draw a (mean, covariance) pair from the prior: the
//covariance from IW(psi, nu) and the mean from N(m0, v0)
func SampleNIW(m0 []float64, v0, psi *mat.SymDense, nu float64, rng *rand.Rand) ([]float64, *mat.SymDense, error) {
	sigma, err := SampleInverseWishart(psi, nu, rng)
	if err != nil {
		return nil, nil, err
	}
	v0Chol, err := SafeCholesky(v0)
	if err != nil {
		return nil, nil, errors.Wrap(err, "mean-prior scale")
	}
	mu := SampleMVN(m0, v0Chol, rng)
	return mu, sigma, nil
}

//QuadForm will evaluate d' M^-1 d given the Cholesky factor of M. A failed
//solve yields NaN so callers discard the value instead of mistaking it for
//a zero distance.
func QuadForm(d []float64, chol *mat.Cholesky) float64 {
	v := mat.NewVecDense(len(d), d)
	var sol mat.VecDense
	if err := chol.SolveVecTo(&sol, v); err != nil {
		return math.NaN()
	}
	return mat.Dot(v, &sol)
}
