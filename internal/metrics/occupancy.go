package metrics

import (
	"math"

	"github.com/pyncx/ncx/internal/dynamo"
)

// Occupancy reports the fraction of steps whose expanded state stayed
// inside [0, 1], and tracks the extremes seen.
type Occupancy struct {
	name       string
	sys        dynamo.Expander
	violations int
	samples    int
	min, max   float64
	firstBad   float64
}

func NewOccupancy(sys dynamo.Expander) *Occupancy {
	o := &Occupancy{name: "occupancy", sys: sys}
	o.Reset()
	return o
}

func (o *Occupancy) Name() string {
	return o.name
}

func (o *Occupancy) Observe(x dynamo.State, u dynamo.Control, t float64) {
	o.samples++
	bad := false
	for _, f := range o.sys.Expand(x) {
		o.min = math.Min(o.min, f)
		o.max = math.Max(o.max, f)
		if f < 0 || f > 1 {
			bad = true
		}
	}
	if bad {
		if o.violations == 0 {
			o.firstBad = t
		}
		o.violations++
	}
}

func (o *Occupancy) Value() float64 {
	if o.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(o.violations)/float64(o.samples)
}

func (o *Occupancy) Reset() {
	o.violations = 0
	o.samples = 0
	o.min = math.Inf(1)
	o.max = math.Inf(-1)
	o.firstBad = math.NaN()
}

func (o *Occupancy) Violations() int { return o.violations }
func (o *Occupancy) Min() float64    { return o.min }
func (o *Occupancy) Max() float64    { return o.max }

// FirstViolation is the time of the first out-of-range step, NaN if none.
func (o *Occupancy) FirstViolation() float64 { return o.firstBad }
