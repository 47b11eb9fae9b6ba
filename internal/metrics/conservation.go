package metrics

import (
	"math"

	"github.com/pyncx/ncx/internal/dynamo"
)

// Conservation is the largest |sum - 1| over the expanded state.
type Conservation struct {
	sys   dynamo.Expander
	worst float64
}

func NewConservation(sys dynamo.Expander) *Conservation {
	return &Conservation{sys: sys}
}

func (c *Conservation) Name() string { return "conservation" }

func (c *Conservation) Observe(x dynamo.State, u dynamo.Control, t float64) {
	c.worst = math.Max(c.worst, math.Abs(c.sys.Expand(x).Sum()-1))
}

func (c *Conservation) Value() float64 { return c.worst }
func (c *Conservation) Reset()         { c.worst = 0 }
