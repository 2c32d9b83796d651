package planner

import "errors"

// Error categories surfaced by the planner core. Callers classify with
// errors.Is; anything else wrapping these came out of a specific component
// and carries the detail in its message.
var (
	// ErrInvalidParameter marks malformed input: a degenerate bounding box,
	// a non-positive cell area, a worker count below one, or a CRS mismatch
	// between grid and layers. Surfaced before any work starts.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNoInputData marks an empty grid or an empty layer set at the start
	// of an overlap computation. Non-fatal: the result alongside it is an
	// empty, usable collection.
	ErrNoInputData = errors.New("no input data")

	// ErrGeometryOperation marks a failed clip, intersection or area
	// computation. Contained to one partition/layer unit of work.
	ErrGeometryOperation = errors.New("geometry operation failed")
)

// GeometryError reports one invalid feature geometry inside a layer.
type GeometryError struct {
	Ref          int    `json:"ref"`
	ErrorMessage string `json:"errorMessage"`
}
