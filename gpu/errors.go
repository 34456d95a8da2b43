package gpu

import "errors"

var (
	// ErrOutOfMemory is returned when an allocation exceeds the device budget.
	ErrOutOfMemory = errors.New("gpu: out of memory")
	// ErrInvalidSize is returned for zero-sized or oversized resources.
	ErrInvalidSize = errors.New("gpu: invalid size")
	// ErrIncompatibleBinding is returned when a bind group does not match
	// the layout a pipeline expects at that slot.
	ErrIncompatibleBinding = errors.New("gpu: incompatible binding")
	// ErrUnknownEntryPoint is returned by compilation when a module does not
	// export the requested entry point.
	ErrUnknownEntryPoint = errors.New("gpu: unknown entry point")
	// ErrDestroyed is returned when a destroyed resource is used.
	ErrDestroyed = errors.New("gpu: resource destroyed")
	// ErrHazard is returned when a render target is also sampled by the draw.
	ErrHazard = errors.New("gpu: read-write hazard")
)
