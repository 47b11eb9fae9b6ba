package ncx

import (
	"fmt"
	"math"

	"github.com/pyncx/ncx/internal/dynamo"
)

// Rates holds the kinetic constants of the exchanger model. It is a value
// type; a Model keeps its own copy.
type Rates struct {
	Kcon1  float64 `yaml:"kcon1" json:"kcon1"`   // Ca2+ binding, F4 -> F1
	Kcoff1 float64 `yaml:"kcoff1" json:"kcoff1"` // F1 unbinding
	Kcon2  float64 `yaml:"kcon2" json:"kcon2"`   // Ca2+ binding, F3 -> F2
	Kcoff2 float64 `yaml:"kcoff2" json:"kcoff2"` // F2 -> F3
	Kinact float64 `yaml:"kinact" json:"kinact"` // Na+ dependent inactivation

	K14 float64 `yaml:"k14" json:"k14"` // F1 loss to F4
	K12 float64 `yaml:"k12" json:"k12"` // F1 -> F2
	K43 float64 `yaml:"k43" json:"k43"` // F4 -> F3

	// InactGain scales inactivation out of F3 relative to F2.
	InactGain float64 `yaml:"inact_gain" json:"inact_gain"`

	HillK float64 `yaml:"hill_k" json:"hill_k"`
	HillN float64 `yaml:"hill_n" json:"hill_n"`
}

func DefaultRates() Rates {
	return Rates{
		Kcon1:     0.1,
		Kcoff1:    0.05,
		Kcon2:     20,
		Kcoff2:    0.3,
		Kinact:    0.2,
		K14:       0.3,
		K12:       0.15,
		K43:       0.1,
		InactGain: 25,
		HillK:     17,
		HillN:     2.5,
	}
}

// Hill returns the Na+ activation x^n / (x^n + K^n).
func (r Rates) Hill(ni float64) float64 {
	xn := math.Pow(ni, r.HillN)
	return xn / (xn + math.Pow(r.HillK, r.HillN))
}

// WithKinact returns a copy with a different inactivation rate.
func (r Rates) WithKinact(k float64) Rates {
	r.Kinact = k
	return r
}

func (r Rates) Validate() error {
	fields := map[string]float64{
		"kcon1": r.Kcon1, "kcoff1": r.Kcoff1, "kcon2": r.Kcon2, "kcoff2": r.Kcoff2,
		"kinact": r.Kinact, "k14": r.K14, "k12": r.K12, "k43": r.K43,
		"inact_gain": r.InactGain, "hill_n": r.HillN,
	}
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("rate %s = %v: %w", name, v, dynamo.ErrParameterBounds)
		}
	}
	if !(r.HillK > 0) {
		return fmt.Errorf("hill_k = %v must be positive: %w", r.HillK, dynamo.ErrParameterBounds)
	}
	return nil
}
