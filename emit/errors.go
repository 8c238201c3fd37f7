package emit

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every failure the builders report. Callers
// match them with errors.Is; the wrapped message carries the specifics.
//
// Failures returned by the Emitter or SignatureEncoder collaborators pass
// through unwrapped so backend error types stay matchable.
var (
	// ErrUsage reports an invalid argument: a nil or foreign type, an empty
	// name, a malformed flag combination, an out-of-range position.
	ErrUsage = errors.New("invalid argument")

	// ErrState reports an operation issued in the wrong lifecycle phase,
	// such as mutating a created type or re-defining generic parameters.
	ErrState = errors.New("invalid state")

	// ErrFormat reports a malformed compound type descriptor.
	ErrFormat = errors.New("malformed type descriptor")

	// ErrResolution reports a name or member that could not be resolved,
	// such as a missing parameterless base constructor.
	ErrResolution = errors.New("unresolved reference")
)

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

func stateErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrState, fmt.Sprintf(format, args...))
}

func formatErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

func resolutionErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrResolution, fmt.Sprintf(format, args...))
}
