package experiment

import (
	"fmt"
	"sort"

	"github.com/pyncx/ncx/internal/dynamo"
	"github.com/pyncx/ncx/internal/integrators"
	"github.com/pyncx/ncx/internal/metrics"
	"github.com/pyncx/ncx/internal/ncx"
)

type Registry struct {
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["heun"] = func() dynamo.Integrator { return integrators.NewHeun() }
	r.integrators["midpoint"] = func() dynamo.Integrator { return integrators.NewMidpoint() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }

	return r
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics are attached to every simulation of the model.
func (r *Registry) DefaultMetrics(model *ncx.Model) []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewOccupancy(model),
		metrics.NewConservation(model),
		metrics.NewPeakCurrent(model),
		metrics.NewMeanCurrent(model),
		metrics.NewCharge(model),
	}
}
