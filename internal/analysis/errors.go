package analysis

import (
	"errors"
	"fmt"
	"math"
)

// Failure kinds for suspension analyses.
var (
	// ErrBadGeometry indicates a sphere or circle intersection has no real solution.
	ErrBadGeometry = errors.New("analysis: bad geometry (linkage cannot reach attitude)")

	// ErrDegenerateLinkage indicates colinear pickups or a zero-length member.
	ErrDegenerateLinkage = errors.New("analysis: degenerate linkage")

	// ErrTireLiftOff indicates a tire normal load went negative and was clamped.
	ErrTireLiftOff = errors.New("analysis: tire lifted off the ground")

	// ErrDidNotConverge indicates an iterative solve exceeded its iteration cap.
	ErrDidNotConverge = errors.New("analysis: did not converge")

	// ErrInvalidInputs indicates NaN/Inf inputs or out-of-range parameters.
	ErrInvalidInputs = errors.New("analysis: invalid inputs")

	// ErrFileFormat indicates an unknown file version or a truncated file.
	ErrFileFormat = errors.New("analysis: file format")
)

// Error attaches the failing operation and corner to a failure kind.
type Error struct {
	Op     string
	Corner string
	Err    error
}

func (e *Error) Error() string {
	if e.Corner == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Corner, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns an *Error for op/corner, or nil when err is nil.
func Wrap(op, corner string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Corner: corner, Err: err}
}

// IsFinite reports whether every value is neither NaN nor Inf.
func IsFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Kind returns the sentinel kind wrapped by err, or nil if none matches.
func Kind(err error) error {
	for _, kind := range []error{
		ErrBadGeometry, ErrDegenerateLinkage, ErrTireLiftOff,
		ErrDidNotConverge, ErrInvalidInputs, ErrFileFormat,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
