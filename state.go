package cremid

import (
	"gonum.org/v1/gonum/mat"
)

//Component is one slot in the fixed-size mixture arena. Slots are never
//created or destroyed during a run; an unoccupied slot keeps a fresh prior
//draw so the truncated representation can reseed it later.
type Component struct {
	Mean      []float64
	Cov       *mat.SymDense
	Chol      *mat.Cholesky // factor of Cov, refreshed whenever Cov changes
	Shared    bool          // the sharing indicator R_k
	Occupancy int
}

//Role is the resolved weight-pool position of one component for the current
//sweep: a position in the shared vector w0 or in every group vector wj.
type Role struct {
	Shared bool
	Index  int
}

//Partition is the shared/specific split implied by the current R vector. It
//is resolved fresh each sweep rather than mutated in place, so pool indices
//can never go stale when K0 and K1 change.
type Partition struct {
	K0            int
	K1            int
	Roles         []Role
	SharedSlots   []int // component index per shared-pool position
	SpecificSlots []int // component index per specific-pool position
}

//ResolvePartition will derive the pool layout from the sharing indicators
func ResolvePartition(comps []*Component) *Partition {
	part := &Partition{Roles: make([]Role, len(comps))}
	for k, c := range comps {
		if c.Shared {
			part.Roles[k] = Role{Shared: true, Index: part.K0}
			part.SharedSlots = append(part.SharedSlots, k)
			part.K0++
		} else {
			part.Roles[k] = Role{Shared: false, Index: part.K1}
			part.SpecificSlots = append(part.SpecificSlots, k)
			part.K1++
		}
	}
	return part
}

//MixtureState is the full latent state of one MCMC sweep
type MixtureState struct {
	Components []*Component
	Labels     []int // 0-based component slot per observation
	W0         []float64   // weights over the shared pool, length K0
	WJ         [][]float64 // per-group weights over the specific pool, each length K1
	Rho        float64
	Varphi     float64
	Alpha0     float64
	AlphaJ     []float64
	Part       *Partition
}

//K will return the truncation level
func (s *MixtureState) K() int {
	return len(s.Components)
}

//Resolve will rebuild the partition from the current sharing indicators
func (s *MixtureState) Resolve() {
	s.Part = ResolvePartition(s.Components)
}

//RefreshOccupancy will recount label assignments per slot
func (s *MixtureState) RefreshOccupancy() {
	for _, c := range s.Components {
		c.Occupancy = 0
	}
	for _, z := range s.Labels {
		s.Components[z].Occupancy++
	}
}

//OccupiedSlots will return the indices of slots with at least one observation
func (s *MixtureState) OccupiedSlots() []int {
	var occ []int
	for k, c := range s.Components {
		if c.Occupancy > 0 {
			occ = append(occ, k)
		}
	}
	return occ
}

//PoolCounts will return the number of observations sitting in shared and in
//group-specific components
func (s *MixtureState) PoolCounts() (nShared, nSpecific int) {
	for _, z := range s.Labels {
		if s.Components[z].Shared {
			nShared++
		} else {
			nSpecific++
		}
	}
	return
}

//Clone will deep-copy the state for an emitted chain snapshot
func (s *MixtureState) Clone() *MixtureState {
	out := &MixtureState{
		Labels: copyInts(s.Labels),
		W0:     copyFloats(s.W0),
		Rho:    s.Rho,
		Varphi: s.Varphi,
		Alpha0: s.Alpha0,
		AlphaJ: copyFloats(s.AlphaJ),
	}
	out.Components = make([]*Component, len(s.Components))
	for k, c := range s.Components {
		out.Components[k] = &Component{
			Mean:      copyFloats(c.Mean),
			Cov:       CopySym(c.Cov),
			Shared:    c.Shared,
			Occupancy: c.Occupancy,
		}
	}
	out.WJ = make([][]float64, len(s.WJ))
	for j := range s.WJ {
		out.WJ[j] = copyFloats(s.WJ[j])
	}
	out.Resolve()
	return out
}

//Chain is the append-only sequence of saved posterior draws, together with
//the data they were fitted to
type Chain struct {
	States []*MixtureState
	Data   *DataSet
}
