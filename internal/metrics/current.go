package metrics

import "github.com/pyncx/ncx/internal/dynamo"

type PeakCurrent struct {
	sys  dynamo.Output
	peak float64
	at   float64
	seen bool
}

func NewPeakCurrent(sys dynamo.Output) *PeakCurrent {
	return &PeakCurrent{sys: sys}
}

func (p *PeakCurrent) Name() string { return "peak_current" }

func (p *PeakCurrent) Observe(x dynamo.State, u dynamo.Control, t float64) {
	i := p.sys.Output(x, u)
	if !p.seen || i > p.peak {
		p.peak, p.at, p.seen = i, t, true
	}
}

func (p *PeakCurrent) Value() float64 { return p.peak }
func (p *PeakCurrent) Time() float64  { return p.at }

func (p *PeakCurrent) Reset() {
	p.peak, p.at, p.seen = 0, 0, false
}

type MeanCurrent struct {
	sys     dynamo.Output
	sum     float64
	samples int
}

func NewMeanCurrent(sys dynamo.Output) *MeanCurrent {
	return &MeanCurrent{sys: sys}
}

func (m *MeanCurrent) Name() string { return "mean_current" }

func (m *MeanCurrent) Observe(x dynamo.State, u dynamo.Control, t float64) {
	m.sum += m.sys.Output(x, u)
	m.samples++
}

func (m *MeanCurrent) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanCurrent) Reset() {
	m.sum = 0
	m.samples = 0
}

// Charge integrates the current over time: each observation contributes
// its current times the time elapsed since the previous one, starting at
// t = 0.
type Charge struct {
	sys   dynamo.Output
	total float64
	lastT float64
}

func NewCharge(sys dynamo.Output) *Charge {
	return &Charge{sys: sys}
}

func (c *Charge) Name() string { return "charge" }

func (c *Charge) Observe(x dynamo.State, u dynamo.Control, t float64) {
	c.total += c.sys.Output(x, u) * (t - c.lastT)
	c.lastT = t
}

func (c *Charge) Value() float64 { return c.total }

func (c *Charge) Reset() {
	c.total = 0
	c.lastT = 0
}
