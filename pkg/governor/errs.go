package governor

import "errors"

var (
	// ErrNoTimeSource indicates New was called without a time source.
	ErrNoTimeSource = errors.New("governor: nil time source")

	// ErrNoActuator indicates New was called without an actuator.
	ErrNoActuator = errors.New("governor: nil actuator")

	// ErrNoUnits indicates the actuator's domain has no managed units.
	ErrNoUnits = errors.New("governor: domain has no units")

	// ErrStarted indicates Start was called on an already running policy.
	ErrStarted = errors.New("governor: policy already started")
)
