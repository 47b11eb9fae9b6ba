// Package dynamo provides core simulation primitives for driven ODE systems.
//
// The package defines the fundamental interfaces and types for fixed-step
// numerical simulation of ordinary differential equations:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepping scheme
//   - [Drive]: time-dependent input protocol
//   - [Stepper]: advances one step at a time, threading t, x and u
//   - [Simulator]: runs a fixed number of steps and records a [Result]
//
// # Example
//
//	model := ncx.New(ncx.DefaultRates())
//	sim := dynamo.New(model, integrators.NewEuler(), protocol.Default(2))
//	result, err := sim.Run(ctx, x0, u0, dynamo.DefaultConfig())
//
// # Step ordering
//
// Each step first advances the clock by dt, then asks the drive for the
// input at the new time, then integrates from the previous state. The
// clock is accumulated by repeated addition so that window boundaries are
// hit exactly where a hand-written loop would hit them.
//
// # Thread Safety
//
// Simulator and Stepper instances are NOT thread-safe.
package dynamo
