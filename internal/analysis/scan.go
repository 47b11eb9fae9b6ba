package analysis

import (
	"fmt"

	"github.com/pyncx/ncx/internal/dynamo"
)

// ScanPoint is the state reached after settling with one parameter value.
type ScanPoint struct {
	Param  float64
	State  dynamo.State
	Output float64
}

// ParamScan sets paramName to each value in turn, integrates from x0 under
// the fixed input u for the given duration and records where the system
// ends up. The parameter is restored to its previous value afterwards.
func ParamScan(
	dyn dynamo.System,
	integ dynamo.Integrator,
	paramName string,
	values []float64,
	x0 dynamo.State,
	u dynamo.Control,
	dt, duration float64,
) ([]ScanPoint, error) {
	tunable, ok := dyn.(dynamo.Configurable)
	if !ok {
		return nil, fmt.Errorf("system has no tunable parameters: %w", dynamo.ErrParameterBounds)
	}
	orig, ok := tunable.GetParams()[paramName]
	if !ok {
		return nil, fmt.Errorf("unknown parameter %q: %w", paramName, dynamo.ErrParameterBounds)
	}
	defer tunable.SetParam(paramName, orig)

	out, _ := dyn.(dynamo.Output)
	steps := int(duration / dt)
	results := make([]ScanPoint, 0, len(values))

	for _, v := range values {
		if err := tunable.SetParam(paramName, v); err != nil {
			return results, err
		}
		x := x0.Clone()
		t := 0.0
		for i := 0; i < steps; i++ {
			t += dt
			x = integ.Step(dyn, x, u, t, dt)
		}
		if !x.IsValid() {
			return results, &dynamo.SimulationError{Step: steps, Time: t, State: x, Wrapped: dynamo.ErrInvalidState}
		}

		p := ScanPoint{Param: v, State: x}
		if out != nil {
			p.Output = out.Output(x, u)
		}
		results = append(results, p)
	}
	return results, nil
}
