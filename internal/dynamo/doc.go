// Package dynamo provides the core primitives for simulating and
// fitting the glucose/insulin minimal model:
//
//   - [State]: vector representing the system state at one instant
//   - [Config]: immutable bundle of parameters, initial state, span,
//     step size and input signals for one run
//   - [UpdateRule] / [SlopeRule]: discrete-step and derivative rules
//   - [Trajectory]: time-indexed result table of a run
//   - [Diagnostics]: solver/optimizer termination report
//
// A Config is built fresh per run or fit trial and never mutated, so
// trials stay independent of each other.
package dynamo
