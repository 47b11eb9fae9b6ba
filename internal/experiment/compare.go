package experiment

import (
	"context"
	"fmt"
	"math"

	"github.com/pyncx/ncx/internal/dynamo"
	"github.com/pyncx/ncx/internal/ncx"
)

// Comparison summarises one integrator against the configured one.
type Comparison struct {
	Integrator string
	Final      ncx.Occupancy
	// MaxDeviation is the largest |F_i| difference to the reference over
	// the whole run.
	MaxDeviation float64
	Steps        int
}

// Compare reruns the protocol with each named integrator and measures how
// far it strays from the configured integrator. Runs stop at the first
// guard failure.
func (e *Experiment) Compare(ctx context.Context, names []string) ([]Comparison, error) {
	ref, err := e.Simulate(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Comparison, 0, len(names))
	for _, name := range names {
		integ, err := e.registry.GetIntegrator(name)
		if err != nil {
			return out, err
		}
		sim := dynamo.New(e.model, integ, e.schedule)
		sim.SetLogger(e.logger)
		res, err := sim.Run(ctx, e.cfg.Initial().State(), e.schedule.Seed.Control(), e.cfg.SimConfig())
		if err != nil {
			return out, fmt.Errorf("%s: %w", name, err)
		}

		c := Comparison{Integrator: name, Steps: res.StepsTaken}
		for i := 0; i < res.Len() && i < ref.Len(); i++ {
			a, b := ncx.OccupancyOf(res.States[i]).All(), ncx.OccupancyOf(ref.States[i]).All()
			for k := range a {
				c.MaxDeviation = math.Max(c.MaxDeviation, math.Abs(a[k]-b[k]))
			}
		}
		c.Final = ncx.NewTrajectory(res).Final()
		e.logger.Debug("integrator compared", "integrator", name, "max_dev", c.MaxDeviation)
		out = append(out, c)
	}
	return out, nil
}
