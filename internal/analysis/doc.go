// Package analysis provides diagnostics for the exchanger model.
//
//   - [Analyze]: eigenvalues of the linear system at every stimulus level
//     and the largest explicit Euler step that stays stable
//   - [EulerLimit]: the stability bound for a single set of eigenvalues
//   - [ParamScan]: integrate to a settled state for each value of a model
//     parameter under a fixed stimulus
//
// # Step size
//
// With the stimulus held fixed the model is linear, dx/dt = J x + c, so
// explicit Euler is stable exactly when |1 + dt*lambda| < 1 for every
// eigenvalue of J:
//
//	report, _ := analysis.Analyze(model, schedule.Levels(), 0.003)
//	if !report.Stable {
//	    // reduce dt below report.DtMax
//	}
package analysis
