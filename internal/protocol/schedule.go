package protocol

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/pyncx/ncx/internal/dynamo"
)

var (
	ErrInvalidWindow = errors.New("protocol: invalid window")
	ErrOverlap       = errors.New("protocol: overlapping windows")
)

// DefaultChi is the Ca2+ level applied by the calcium windows of the
// default protocol.
const DefaultChi = 2.0

// Stimulus is the instantaneous drive pair.
type Stimulus struct {
	Na float64 `yaml:"na" json:"na"`
	Ca float64 `yaml:"ca" json:"ca"`
}

func (s Stimulus) Control() dynamo.Control {
	return dynamo.Control{s.Na, s.Ca}
}

func FromControl(u dynamo.Control) Stimulus {
	return Stimulus{Na: u[0], Ca: u[1]}
}

func (s Stimulus) String() string {
	return fmt.Sprintf("(na=%g, ca=%g)", s.Na, s.Ca)
}

// Window applies (Na, Ca) for Lo < t < Hi. Both bounds are exclusive.
type Window struct {
	Lo float64 `yaml:"lo" json:"lo"`
	Hi float64 `yaml:"hi" json:"hi"`
	Na float64 `yaml:"na" json:"na"`
	Ca float64 `yaml:"ca" json:"ca"`
}

func (w Window) Contains(t float64) bool {
	return t > w.Lo && t < w.Hi
}

func (w Window) Stimulus() Stimulus {
	return Stimulus{Na: w.Na, Ca: w.Ca}
}

type Schedule struct {
	Windows []Window `yaml:"windows" json:"windows"`
	// HoldNa keeps the previous Na+ level outside all windows instead of
	// resetting it to zero.
	HoldNa bool `yaml:"hold_na" json:"hold_na"`
	// Seed is the stimulus in effect before the first step.
	Seed Stimulus `yaml:"seed" json:"seed"`
}

// Default returns the fourteen-window protocol with calcium level chi.
func Default(chi float64) Schedule {
	return Schedule{
		Windows: []Window{
			{30, 60, 100, chi},
			{60, 90, 0, 0},
			{90, 130, 100, 0},
			{130, 160, 100, chi},
			{160, 190, 100, 0},
			{190, 220, 100, chi},
			{220, 250, 100, 0},
			{250, 280, 0, chi},
			{280, 310, 100, 0},
			{310, 340, 0, 0},
			{340, 370, 100, 0},
			{370, 400, 0, 0},
			{400, 430, 100, chi},
			{430, 460, 0, 0},
		},
		Seed: Stimulus{Na: 0, Ca: chi},
	}
}

// Eval returns the stimulus at time t given the one in effect before it.
// Windows are tested in order and the last match wins.
func (s Schedule) Eval(t float64, prev Stimulus) Stimulus {
	next := prev
	if !s.HoldNa {
		next.Na = 0
	}
	for _, w := range s.Windows {
		if w.Contains(t) {
			next = w.Stimulus()
		}
	}
	return next
}

// Next implements dynamo.Drive.
func (s Schedule) Next(t float64, prev dynamo.Control) dynamo.Control {
	return s.Eval(t, FromControl(prev)).Control()
}

// Active returns the index of the window that decides the stimulus at t,
// or -1 when t falls in a gap.
func (s Schedule) Active(t float64) int {
	idx := -1
	for i, w := range s.Windows {
		if w.Contains(t) {
			idx = i
		}
	}
	return idx
}

// End is the largest upper bound of any window.
func (s Schedule) End() float64 {
	end := 0.0
	for _, w := range s.Windows {
		end = math.Max(end, w.Hi)
	}
	return end
}

func (s Schedule) Validate() error {
	for i, w := range s.Windows {
		if math.IsNaN(w.Lo) || math.IsNaN(w.Hi) || w.Lo >= w.Hi {
			return fmt.Errorf("window %d (%g, %g): %w", i, w.Lo, w.Hi, ErrInvalidWindow)
		}
		if w.Na < 0 || w.Ca < 0 || math.IsNaN(w.Na) || math.IsNaN(w.Ca) {
			return fmt.Errorf("window %d has negative or NaN level %v: %w", i, w.Stimulus(), ErrInvalidWindow)
		}
	}

	sorted := make([]Window, len(s.Windows))
	copy(sorted, s.Windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Lo < sorted[j].Lo })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Lo < sorted[i-1].Hi {
			return fmt.Errorf("(%g, %g) and (%g, %g): %w",
				sorted[i-1].Lo, sorted[i-1].Hi, sorted[i].Lo, sorted[i].Hi, ErrOverlap)
		}
	}
	return nil
}

// Levels returns the distinct stimuli the schedule can produce, seed first,
// in order of first appearance.
func (s Schedule) Levels() []Stimulus {
	seen := make(map[Stimulus]bool)
	var out []Stimulus
	add := func(st Stimulus) {
		if !seen[st] {
			seen[st] = true
			out = append(out, st)
		}
	}
	add(s.Seed)
	for _, w := range s.Windows {
		add(w.Stimulus())
		if !s.HoldNa {
			add(Stimulus{Na: 0, Ca: w.Ca})
		}
	}
	return out
}
