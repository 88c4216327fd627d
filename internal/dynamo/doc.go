// Package dynamo provides the core primitives shared by the spin solvers.
//
// The package defines the fundamental interfaces and types for advancing
// ordinary differential equations (ODEs) one step at a time:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Jacobian]: optional analytic partial derivatives of a [System]
//   - [Integrator], [AdaptiveIntegrator]: numerical steppers
//   - [Tolerance]: scalar relative and per-component absolute error bounds
//   - [Config]: step-size control settings for a single trajectory
//
// # Optional capabilities
//
// A [System] may also implement [Jacobian] (used by implicit solvers instead
// of finite differences), [Normalizer] (applied after every accepted step) and
// [Breakpointer] (times the driver must stop at exactly).
//
// # Thread Safety
//
// Integrators keep scratch buffers and are NOT safe for concurrent use. Give
// every worker its own instance; [ParallelFor] runs such workers with a bound
// on concurrency.
package dynamo
