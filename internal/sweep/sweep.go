// Package sweep computes steady-state exchanger currents over a grid of
// calcium concentrations for several inactivation rates.
//
// Each sample solves a 3x3 linear system directly; nothing is integrated.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/pyncx/ncx/internal/dynamo"
	"github.com/pyncx/ncx/internal/ncx"
)

var ErrSingular = errors.New("sweep: singular steady-state system")

// SingularError identifies the sample whose system could not be solved.
type SingularError struct {
	Kinact float64
	LogCa  float64
	Err    error
}

func (e *SingularError) Error() string {
	return fmt.Sprintf("kinact=%g logci=%.6f: %v", e.Kinact, e.LogCa, e.Err)
}

func (e *SingularError) Unwrap() error { return e.Err }

type Config struct {
	Na      float64   `yaml:"na" json:"na"`
	Kinacts []float64 `yaml:"kinacts" json:"kinacts"`
	Samples int       `yaml:"samples" json:"samples"`
	// Sample i sits at logci = -(Offset - i/Divisor).
	Divisor float64 `yaml:"divisor" json:"divisor"`
	Offset  float64 `yaml:"offset" json:"offset"`
	// Scale converts 10^logci into the concentration unit of the rates.
	Scale float64 `yaml:"scale" json:"scale"`
	// SkipSingular drops unsolvable samples instead of failing the sweep.
	SkipSingular bool `yaml:"skip_singular" json:"skip_singular"`
}

func DefaultConfig() Config {
	return Config{
		Na:      40,
		Kinacts: []float64{0, 0.03, 0.1, 0.3, 1.0},
		Samples: 1000,
		Divisor: 300,
		Offset:  8,
		Scale:   1e6,
	}
}

func (c Config) Validate() error {
	if c.Samples <= 0 {
		return fmt.Errorf("samples must be positive, got %d: %w", c.Samples, dynamo.ErrParameterBounds)
	}
	if c.Divisor == 0 || math.IsNaN(c.Divisor) {
		return fmt.Errorf("divisor must be non-zero: %w", dynamo.ErrParameterBounds)
	}
	if !(c.Scale > 0) {
		return fmt.Errorf("scale must be positive, got %g: %w", c.Scale, dynamo.ErrParameterBounds)
	}
	if c.Na < 0 {
		return fmt.Errorf("na must be non-negative, got %g: %w", c.Na, dynamo.ErrParameterBounds)
	}
	for _, k := range c.Kinacts {
		if k < 0 || math.IsNaN(k) {
			return fmt.Errorf("kinact %g: %w", k, dynamo.ErrParameterBounds)
		}
	}
	return nil
}

// LogCa returns the log10 calcium level of sample i (1-based).
func (c Config) LogCa(i int) float64 {
	return -(c.Offset - float64(i)/c.Divisor)
}

// Ca returns the linear calcium concentration of sample i.
func (c Config) Ca(i int) float64 {
	return math.Pow(10, c.LogCa(i)) * c.Scale
}

type Point struct {
	LogCa   float64 `json:"logci"`
	Kinact  float64 `json:"kinact"`
	Current float64 `json:"current"`
}

// Curve holds the samples of one inactivation rate in ascending logci.
type Curve struct {
	Kinact float64 `json:"kinact"`
	Points []Point `json:"points"`
}

func (c Curve) LogCa() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.LogCa
	}
	return out
}

func (c Curve) Currents() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.Current
	}
	return out
}

// System assembles A and b for one sample.
func System(r ncx.Rates, ni, ci, kinact float64) (*mat.Dense, *mat.VecDense) {
	f3n := r.Hill(ni)
	k1 := r.Kcoff1
	k2 := ci * r.Kcon1
	k3 := r.K43
	k4 := f3n * kinact * r.InactGain
	k5 := ci * r.Kcon2
	k6 := r.Kcoff2
	k7 := f3n * kinact
	k8 := r.K14

	a := mat.NewDense(3, 3, []float64{
		-(k1 + k8 + k7), k2 - k7, -k7,
		k1, -(k2 + k3), k4,
		-k6, k3 - k6, -(k4 + k5 + k6),
	})
	b := mat.NewVecDense(3, []float64{-k7, 0, -k6})
	return a, b
}

// SteadyState solves one sample and returns the occupancies and the
// normalised current (1 - sum(x)) * f3n.
func SteadyState(r ncx.Rates, ni, ci, kinact float64) ([3]float64, float64, error) {
	var x [3]float64
	a, b := System(r, ni, ci, kinact)

	var lu mat.LU
	lu.Factorize(a)
	if cond := lu.Cond(); math.IsInf(cond, 1) || math.IsNaN(cond) || cond > mat.ConditionTolerance {
		return x, 0, fmt.Errorf("condition number %g: %w", cond, ErrSingular)
	}

	var sol mat.VecDense
	if err := lu.SolveVecTo(&sol, false, b); err != nil {
		return x, 0, fmt.Errorf("%v: %w", err, ErrSingular)
	}
	for i := range x {
		x[i] = sol.AtVec(i)
	}
	current := (1 - (x[0] + x[1] + x[2])) * r.Hill(ni)
	return x, current, nil
}

type Solver struct {
	rates  ncx.Rates
	cfg    Config
	logger *slog.Logger
}

func New(rates ncx.Rates, cfg Config, logger *slog.Logger) *Solver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Solver{rates: rates, cfg: cfg, logger: logger}
}

func (s *Solver) Config() Config { return s.cfg }

// Curve computes all samples for one inactivation rate.
func (s *Solver) Curve(ctx context.Context, kinact float64) (Curve, error) {
	curve := Curve{Kinact: kinact, Points: make([]Point, 0, s.cfg.Samples)}
	for i := 1; i <= s.cfg.Samples; i++ {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return curve, fmt.Errorf("kinact=%g: %w", kinact, dynamo.ErrContextCanceled)
			}
		}
		logci := s.cfg.LogCa(i)
		_, current, err := SteadyState(s.rates, s.cfg.Na, s.cfg.Ca(i), kinact)
		if err != nil {
			serr := &SingularError{Kinact: kinact, LogCa: logci, Err: err}
			if !s.cfg.SkipSingular {
				return curve, serr
			}
			s.logger.Warn("skipping singular sample", "kinact", kinact, "logci", logci, "err", err)
			continue
		}
		curve.Points = append(curve.Points, Point{LogCa: logci, Kinact: kinact, Current: current})
	}
	s.logger.Debug("sweep curve done", "kinact", kinact, "points", len(curve.Points))
	return curve, nil
}

// Run computes one curve per configured kinact. Curves are solved
// concurrently and returned in configuration order.
func (s *Solver) Run(ctx context.Context) ([]Curve, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.rates.Validate(); err != nil {
		return nil, err
	}

	curves := make([]Curve, len(s.cfg.Kinacts))
	g, ctx := errgroup.WithContext(ctx)
	for i, k := range s.cfg.Kinacts {
		g.Go(func() error {
			c, err := s.Curve(ctx, k)
			if err != nil {
				return err
			}
			curves[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return curves, nil
}
