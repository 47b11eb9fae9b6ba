// Package protocol defines the stimulus schedule that drives the exchanger
// model: an ordered list of time windows, each setting the Na+ and Ca2+
// drive levels while the clock is strictly inside it.
//
// Between windows the Ca2+ level is held at whatever was last set, and the
// Na+ level drops back to zero unless [Schedule.HoldNa] is set. The
// previous stimulus is passed in explicitly, so a Schedule is a plain value
// with no memory of its own.
package protocol
