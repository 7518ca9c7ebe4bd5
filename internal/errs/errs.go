// Package errs defines the error kinds of the region engine.
package errs

import "fmt"

// ConfigurationError — malformed or unsupported shape descriptor.
// Fatal to the region's geometry until the document is corrected.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "region configuration: " + e.Reason
}

// GeometryError — invalid state inside the boolean combiner. Should not
// occur for valid input; indicates a broken data-model invariant.
type GeometryError struct {
	Reason string
}

func (e *GeometryError) Error() string {
	return "region geometry: " + e.Reason
}

// HandlerError — a behavior handler failed during event dispatch. Contained
// at the dispatch boundary; never propagates to the triggering operation.
type HandlerError struct {
	Behavior string
	Err      error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("behavior %s: %v", e.Behavior, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// PlacementError — no valid position inside the target region was found
// within the allotted randomized attempts.
type PlacementError struct {
	Region   string
	Entity   string
	Attempts int
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("cannot place %s inside region %s after %d attempts", e.Entity, e.Region, e.Attempts)
}
