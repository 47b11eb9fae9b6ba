package ncx

import "github.com/pyncx/ncx/internal/dynamo"

// Trajectory reads a simulation result in terms of the exchanger model.
type Trajectory struct {
	*dynamo.Result
}

func NewTrajectory(r *dynamo.Result) Trajectory {
	return Trajectory{Result: r}
}

func (tr Trajectory) Occupancy(i int) Occupancy { return OccupancyOf(tr.States[i]) }
func (tr Trajectory) F4(i int) float64          { return tr.Occupancy(i).F4() }
func (tr Trajectory) Current(i int) float64     { return tr.Outputs[i] }
func (tr Trajectory) Na(i int) float64          { return tr.Controls[i][InputNa] }
func (tr Trajectory) Ca(i int) float64          { return tr.Controls[i][InputCa] }

// Fractions returns the F1..F4 series, F4 recomputed per step.
func (tr Trajectory) Fractions() [4][]float64 {
	var out [4][]float64
	for k := range out {
		out[k] = make([]float64, tr.Len())
	}
	for i := 0; i < tr.Len(); i++ {
		all := tr.Occupancy(i).All()
		for k := range all {
			out[k][i] = all[k]
		}
	}
	return out
}

// Final returns the last recorded occupancy, or the zero value for an
// empty run.
func (tr Trajectory) Final() Occupancy {
	if tr.Len() == 0 {
		return Occupancy{}
	}
	return tr.Occupancy(tr.Len() - 1)
}
