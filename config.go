// Package cremid fits a Bayesian nonparametric mixture to multi-group
// continuous data, expressing each group's density with Gaussian components
// that are either shared across all groups or weighted per group, and runs
// posterior inference by Gibbs sampling.
package cremid

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//Config mirrors the run settings surface in a yaml file. Zero values mean
//"keep the default"; matrix-valued priors always come from the data.
type Config struct {
	K               int       `yaml:"k"`
	EpsilonRange    []float64 `yaml:"epsilon_range"`
	Nu1             float64   `yaml:"nu_1"`
	Nu2             float64   `yaml:"nu_2"`
	TauK0           []float64 `yaml:"tau_k0"`
	TauAlpha        []float64 `yaml:"tau_alpha"`
	TauRho          []float64 `yaml:"tau_rho"`
	TauVarphi       []float64 `yaml:"tau_varphi"`
	PointMassRho    []float64 `yaml:"point_masses_rho"`
	PointMassVarphi []float64 `yaml:"point_masses_varphi"`
	MergeStep       *bool     `yaml:"merge_step"` // pointer distinguishes "unset" from an explicit false
	MergePar        float64   `yaml:"merge_par"`
	SharedAlpha     *bool     `yaml:"shared_alpha"`
	TruncationType  string    `yaml:"truncation_type"`

	NBurn    int    `yaml:"nburn"`
	NSave    int    `yaml:"nsave"`
	NSkip    int    `yaml:"nskip"`
	NDisplay int    `yaml:"ndisplay"`
	Seed     uint64 `yaml:"seed"`
	Workers  int    `yaml:"workers"`
}

//LoadConfig will read a yaml settings file
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

//Apply will overlay the non-zero config fields onto defaulted settings
func (c *Config) Apply(prior *PriorSettings, sched *MCMCSettings) {
	if c.K > 0 {
		prior.K = c.K
	}
	if len(c.EpsilonRange) == 2 {
		prior.EpsilonRange = [2]float64{c.EpsilonRange[0], c.EpsilonRange[1]}
	}
	if c.Nu1 > 0 {
		prior.Nu1 = c.Nu1
	}
	if c.Nu2 > 0 {
		prior.Nu2 = c.Nu2
	}
	if len(c.TauK0) == 2 {
		prior.TauK0 = [2]float64{c.TauK0[0], c.TauK0[1]}
	}
	if len(c.TauAlpha) == 2 {
		prior.TauAlpha = [2]float64{c.TauAlpha[0], c.TauAlpha[1]}
	}
	if len(c.TauRho) == 2 {
		prior.TauRho = [2]float64{c.TauRho[0], c.TauRho[1]}
	}
	if len(c.TauVarphi) == 2 {
		prior.TauVarphi = [2]float64{c.TauVarphi[0], c.TauVarphi[1]}
	}
	if len(c.PointMassRho) == 2 {
		prior.PointMassRho = [2]float64{c.PointMassRho[0], c.PointMassRho[1]}
	}
	if len(c.PointMassVarphi) == 2 {
		prior.PointMassVarphi = [2]float64{c.PointMassVarphi[0], c.PointMassVarphi[1]}
	}
	if c.MergeStep != nil {
		prior.MergeStep = *c.MergeStep
	}
	if c.MergePar > 0 {
		prior.MergePar = c.MergePar
	}
	if c.SharedAlpha != nil {
		prior.SharedAlpha = *c.SharedAlpha
	}
	if c.TruncationType != "" {
		prior.TruncationType = c.TruncationType
	}
	if c.NBurn > 0 {
		sched.NBurn = c.NBurn
	}
	if c.NSave > 0 {
		sched.NSave = c.NSave
	}
	if c.NSkip > 0 {
		sched.NSkip = c.NSkip
	}
	if c.NDisplay > 0 {
		sched.NDisplay = c.NDisplay
	}
	if c.Seed != 0 {
		sched.Seed = c.Seed
	}
	if c.Workers > 0 {
		sched.Workers = c.Workers
	}
}
