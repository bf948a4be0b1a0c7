// Package analysis defines the failure kinds shared by the suspension solvers.
//
// Every solver in this module returns a plain (value, error) pair. The error, when
// present, wraps exactly one of the sentinel kinds below so callers can branch with
// [errors.Is]:
//
//   - [ErrBadGeometry]: a linkage cannot reach the requested attitude
//   - [ErrDegenerateLinkage]: colinear pickups or zero-length members
//   - [ErrTireLiftOff]: a tire left the ground at equilibrium
//   - [ErrDidNotConverge]: an iterative solve hit its cap
//   - [ErrInvalidInputs]: NaN/Inf or out-of-range parameters
//   - [ErrFileFormat]: an unknown version or truncated file
//
// # Batches
//
// Sweeps and optimizations never stop on these errors. A sweep stores NaN for the
// failed point and an optimizer assigns the maximum penalty fitness.
package analysis
