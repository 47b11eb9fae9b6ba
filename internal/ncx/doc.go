// Package ncx implements the four-state kinetic model of the Na+/Ca2+
// exchanger.
//
// The protein population is split into occupancy fractions F1..F4 that
// always sum to one. Only F1, F2 and F3 are integrated; F4 is the
// complement and is recomputed from the other three whenever it is needed,
// so it never accumulates drift of its own.
//
// [Model] implements [dynamo.System] with the input u = (ni, ci): the Na+
// dependent activation drive and the Ca2+ concentration drive. The
// exchanger current is F2 times the Hill-type Na+ activation
//
//	f3n = ni^2.5 / (ni^2.5 + 17^2.5)
//
// # Example
//
//	m := ncx.New(ncx.DefaultRates())
//	dx := m.Derive(ncx.DefaultOccupancy().State(), dynamo.Control{100, 2}, 0)
package ncx
