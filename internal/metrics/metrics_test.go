package metrics

import (
	"math"
	"testing"

	"github.com/pyncx/ncx/internal/dynamo"
	"github.com/pyncx/ncx/internal/ncx"
)

func TestOccupancyMetric(t *testing.T) {
	m := NewOccupancy(ncx.New(ncx.DefaultRates()))

	m.Observe(dynamo.State{0.7, 0.2, 0.01}, nil, 0.1)
	m.Observe(dynamo.State{0.5, 0.4, 0.3}, nil, 0.2) // F4 = -0.2
	m.Observe(dynamo.State{0.5, 0.2, 0.1}, nil, 0.3)

	if got := m.Value(); math.Abs(got-2.0/3.0) > 1e-12 {
		t.Errorf("Value() = %v, want 2/3", got)
	}
	if m.Violations() != 1 || m.FirstViolation() != 0.2 {
		t.Errorf("violations=%d first=%v", m.Violations(), m.FirstViolation())
	}
	if math.Abs(m.Min()-(-0.2)) > 1e-12 || m.Max() != 0.7 {
		t.Errorf("min=%v max=%v", m.Min(), m.Max())
	}

	m.Reset()
	if m.Value() != 1 || !math.IsNaN(m.FirstViolation()) {
		t.Error("reset did not clear state")
	}
}

func TestConservationMetric(t *testing.T) {
	m := NewConservation(ncx.New(ncx.DefaultRates()))
	m.Observe(dynamo.State{0.7, 0.2, 0.01}, nil, 0)
	if got := m.Value(); got > 1e-15 {
		t.Errorf("complement state should conserve exactly, drift %g", got)
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("reset did not clear drift")
	}
}

func TestCurrentMetrics(t *testing.T) {
	model := ncx.New(ncx.DefaultRates())
	peak := NewPeakCurrent(model)
	mean := NewMeanCurrent(model)
	charge := NewCharge(model)

	f3n := ncx.DefaultRates().Hill(100)
	steps := []struct {
		x dynamo.State
		u dynamo.Control
		t float64
	}{
		{dynamo.State{0.1, 0.2, 0.3}, dynamo.Control{0, 2}, 0.5},
		{dynamo.State{0.1, 0.6, 0.1}, dynamo.Control{100, 2}, 1.0},
		{dynamo.State{0.1, 0.4, 0.1}, dynamo.Control{100, 0}, 1.5},
	}
	for _, s := range steps {
		for _, m := range []dynamo.Metric{peak, mean, charge} {
			m.Observe(s.x, s.u, s.t)
		}
	}

	if math.Abs(peak.Value()-0.6*f3n) > 1e-15 || peak.Time() != 1.0 {
		t.Errorf("peak = %v at %v", peak.Value(), peak.Time())
	}
	if want := (0.6 + 0.4) * f3n / 3; math.Abs(mean.Value()-want) > 1e-15 {
		t.Errorf("mean = %v, want %v", mean.Value(), want)
	}
	if want := (0.6 + 0.4) * f3n * 0.5; math.Abs(charge.Value()-want) > 1e-15 {
		t.Errorf("charge = %v, want %v", charge.Value(), want)
	}

	for _, m := range []dynamo.Metric{peak, mean, charge} {
		m.Reset()
		if m.Value() != 0 {
			t.Errorf("%s not reset", m.Name())
		}
	}
}
