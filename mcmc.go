package cremid

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

//MCMCSettings holds the burn-in/save/thin schedule of one chain
type MCMCSettings struct {
	NBurn    int
	NSave    int
	NSkip    int
	NDisplay int
	Seed     uint64
	Workers  int
}

//DefaultMCMCSettings will return the documented default schedule
func DefaultMCMCSettings() MCMCSettings {
	return MCMCSettings{
		NBurn:    5000,
		NSave:    1000,
		NSkip:    1,
		NDisplay: 1000,
		Seed:     1,
		Workers:  1,
	}
}

//Sampler drives the Gibbs sweep over the full latent state. One sweep runs
//LabelSampler, ComponentSampler, WeightSampler, ConcentrationSampler and the
//conditional MergeStep strictly in that order; each step conditions on the
//one before it, so steps of the same sweep never overlap.
type Sampler struct {
	Data   *DataSet
	Prior  *PriorSettings
	Sched  MCMCSettings
	Logger *slog.Logger

	state   *MixtureState
	labels  *LabelSampler
	comps   *ComponentSampler
	weights *WeightSampler
	conc    *ConcentrationSampler
	merge   *MergeStep
	rng     *rand.Rand
}

//InitSampler will set up all of the attributes of the MCMC run. initLabels
//may be nil, in which case a k-means warm start seeds the labels.
func InitSampler(data *DataSet, prior *PriorSettings, sched MCMCSettings, initLabels []int, logger *slog.Logger) (*Sampler, error) {
	if data == nil {
		return nil, errors.New("nil data")
	}
	if prior == nil {
		prior = DefaultPriors(data)
	}
	if err := prior.Validate(data.P); err != nil {
		return nil, errors.Wrap(err, "prior settings")
	}
	if sched.NSave < 1 || sched.NSkip < 1 || sched.NBurn < 0 {
		return nil, errors.Errorf("bad schedule: nburn=%d nsave=%d nskip=%d", sched.NBurn, sched.NSave, sched.NSkip)
	}
	if sched.Workers < 1 {
		sched.Workers = 1
	}
	s := &Sampler{
		Data:   data,
		Prior:  prior,
		Sched:  sched,
		Logger: logger,
		rng:    rand.New(rand.NewSource(sched.Seed)),
	}
	s.labels = &LabelSampler{Data: data, Workers: sched.Workers, Logger: logger}
	s.comps = &ComponentSampler{Data: data, Prior: prior}
	s.weights = &WeightSampler{Data: data, Prior: prior, Logger: logger}
	s.conc = &ConcentrationSampler{Data: data, Prior: prior}
	if prior.MergeStep {
		s.merge = &MergeStep{Threshold: prior.MergePar, Sampler: s.comps, Logger: logger}
	}
	if err := s.initState(initLabels); err != nil {
		return nil, err
	}
	return s, nil
}

//initState draws the starting latent state: varphi and rho from their Beta
//priors, R from Bernoulli(varphi) with both pools kept nonempty, labels from
//the warm start, then one component and weight pass to condition everything
//on the starting labels.
func (s *Sampler) initState(initLabels []int) error {
	k := s.Prior.K
	state := &MixtureState{
		Varphi: distuv.Beta{Alpha: s.Prior.TauVarphi[0], Beta: s.Prior.TauVarphi[1], Src: s.rng}.Rand(),
		Rho:    distuv.Beta{Alpha: s.Prior.TauRho[0], Beta: s.Prior.TauRho[1], Src: s.rng}.Rand(),
		Alpha0: s.Prior.TauAlpha[0] / s.Prior.TauAlpha[1],
		AlphaJ: make([]float64, s.Data.J),
	}
	for j := range state.AlphaJ {
		state.AlphaJ[j] = state.Alpha0
	}
	state.Components = make([]*Component, k)
	for c := 0; c < k; c++ {
		state.Components[c] = &Component{
			Mean:   copyFloats(s.Prior.M0),
			Shared: s.rng.Float64() < state.Varphi,
		}
	}
	// both pools must resolve even at initialization
	state.Components[0].Shared = true
	state.Components[k-1].Shared = false
	state.Resolve()
	if initLabels != nil {
		if len(initLabels) != s.Data.N {
			return errors.Errorf("initial labels have length %d, want %d", len(initLabels), s.Data.N)
		}
		for _, z := range initLabels {
			if z < 0 || z >= k {
				return errors.Errorf("initial label %d outside 0..%d", z, k-1)
			}
		}
		state.Labels = copyInts(initLabels)
	} else {
		state.Labels = WarmStartLabels(s.Data, k, s.Logger)
	}
	state.RefreshOccupancy()
	if err := s.comps.Sweep(state, s.rng); err != nil {
		return errors.Wrap(err, "initializing component parameters")
	}
	s.state = state
	if err := s.weights.Sweep(state, s.rng); err != nil {
		return errors.Wrap(err, "initializing weights")
	}
	return nil
}

//State exposes the current latent state, mainly for tests and diagnostics
func (s *Sampler) State() *MixtureState {
	return s.state
}

//Run will execute burn-in plus nsave*nskip sweeps and return the chain of
//retained draws. Saved snapshots are handed to a collector goroutine over a
//buffered channel so emission never stalls the sweep loop. Cancellation is
//honored only at sweep boundaries.
func (s *Sampler) Run(ctx context.Context) (*Chain, error) {
	total := s.Sched.NBurn + s.Sched.NSave*s.Sched.NSkip
	chain := &Chain{Data: s.Data}
	emit := make(chan *MixtureState, s.Sched.NSave)
	done := make(chan struct{})
	go func() {
		for st := range emit {
			chain.States = append(chain.States, st)
		}
		close(done)
	}()
	var runErr error
	for i := 1; i <= total; i++ {
		if ctx != nil {
			select {
			case <-ctx.Done():
				runErr = ctx.Err()
			default:
			}
			if runErr != nil {
				break
			}
		}
		if err := s.sweep(i); err != nil {
			s.dumpState(i, err)
			runErr = errors.Wrapf(err, "sweep %d", i)
			break
		}
		if i > s.Sched.NBurn && (i-s.Sched.NBurn)%s.Sched.NSkip == 0 {
			emit <- s.state.Clone()
		}
		if s.Sched.NDisplay > 0 && i%s.Sched.NDisplay == 0 {
			occ := len(s.state.OccupiedSlots())
			if s.Logger != nil {
				s.Logger.Info("sweep", "i", i, "total", total, "occupied", occ,
					"rho", s.state.Rho, "varphi", s.state.Varphi, "alpha0", s.state.Alpha0)
			} else {
				fmt.Println("sweep", i, "of", total, "occupied components:", occ, "rho:", s.state.Rho)
			}
		}
	}
	close(emit)
	<-done
	if runErr != nil {
		return nil, runErr
	}
	return chain, nil
}

//sweep runs one full Gibbs iteration in the fixed conditional order
func (s *Sampler) sweep(i int) error {
	if err := s.labels.Sweep(s.state, i, s.Sched.Seed, s.rng); err != nil {
		return err
	}
	if err := s.comps.Sweep(s.state, s.rng); err != nil {
		return err
	}
	if err := s.weights.Sweep(s.state, s.rng); err != nil {
		return err
	}
	if err := s.conc.Sweep(s.state, s.rng); err != nil {
		return err
	}
	if s.merge != nil {
		if err := s.merge.Sweep(s.state, s.rng); err != nil {
			return err
		}
	}
	return nil
}

//dumpState logs enough of the failing state to diagnose a dead chain
func (s *Sampler) dumpState(sweep int, cause error) {
	if s.Logger == nil {
		return
	}
	s.Logger.Error("chain aborted, dumping state",
		"sweep", sweep,
		"err", cause,
		"rho", s.state.Rho,
		"varphi", s.state.Varphi,
		"alpha0", s.state.Alpha0,
		"k0", s.state.Part.K0,
		"k1", s.state.Part.K1,
		"occupied", len(s.state.OccupiedSlots()),
		"labelFallbacks", s.labels.Fallbacks(),
	)
}
