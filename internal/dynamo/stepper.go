package dynamo

// Sample is the outcome of a single step.
type Sample struct {
	Step   int
	Time   float64
	State  State
	Input  Control
	Output float64
}

// Stepper advances a driven system one step at a time. It owns the clock,
// the state and the current input; nothing is kept outside of it.
type Stepper struct {
	dyn   System
	integ Integrator
	drive Drive

	x    State
	u    Control
	t    float64
	dt   float64
	step int

	x0 State
	u0 Control
}

func NewStepper(dyn System, integ Integrator, drive Drive, x0 State, u0 Control, dt float64) *Stepper {
	s := &Stepper{
		dyn:   dyn,
		integ: integ,
		drive: drive,
		dt:    dt,
		x0:    x0.Clone(),
		u0:    u0.Clone(),
	}
	s.Reset()
	return s
}

// Step performs one update: t += dt, u = drive(t, u), x = integ(x, u).
func (s *Stepper) Step() Sample {
	s.t += s.dt
	if s.drive != nil {
		s.u = s.drive.Next(s.t, s.u)
	}
	s.x = s.integ.Step(s.dyn, s.x, s.u, s.t, s.dt)
	s.step++

	out := 0.0
	if o, ok := s.dyn.(Output); ok {
		out = o.Output(s.x, s.u)
	}
	return Sample{Step: s.step, Time: s.t, State: s.x, Input: s.u, Output: out}
}

func (s *Stepper) Reset() {
	s.x = s.x0.Clone()
	s.u = s.u0.Clone()
	s.t = 0
	s.step = 0
}

func (s *Stepper) Time() float64     { return s.t }
func (s *Stepper) State() State      { return s.x }
func (s *Stepper) Input() Control    { return s.u }
func (s *Stepper) Steps() int        { return s.step }
func (s *Stepper) System() System    { return s.dyn }
func (s *Stepper) Timestep() float64 { return s.dt }
