package ran

import "errors"

var (
	// ErrUnknownDestination is returned by Node.Send when the destination is
	// not in the directory.
	ErrUnknownDestination = errors.New("unknown destination")

	// ErrTransformFailure marks a message that a transform could not seal or
	// open. Such messages are logged and discarded.
	ErrTransformFailure = errors.New("transform failure")

	// ErrInvalidBandProfile is returned when a band profile is out of range.
	ErrInvalidBandProfile = errors.New("invalid band profile")

	// ErrUnknownBand is returned when a band name cannot be parsed.
	ErrUnknownBand = errors.New("unknown band")

	// ErrDuplicateNode is returned when two nodes share a name.
	ErrDuplicateNode = errors.New("duplicate node")
)
