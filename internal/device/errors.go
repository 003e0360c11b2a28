package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrNodeNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNodeNotFound is returned when no node exists for a prefix and id.
	ErrNodeNotFound = errors.New("device: not found")

	// ErrNodeExists is returned when adding a node with an id already in use.
	ErrNodeExists = errors.New("device: already exists")

	// ErrUnknownPrefix is returned for a prefix outside lights, sensors,
	// groups and config.
	ErrUnknownPrefix = errors.New("device: unknown prefix")

	// ErrUnknownType is returned when no template exists for a node type.
	ErrUnknownType = errors.New("device: unknown type")

	// ErrItemNotFound is returned when a path does not resolve to an item of
	// the node.
	ErrItemNotFound = errors.New("device: item not found")

	// ErrInvalidValue is returned when an item rejects a value.
	ErrInvalidValue = errors.New("device: invalid value")

	// ErrReadOnly is returned when writing an item that clients may not set.
	ErrReadOnly = errors.New("device: item not modifiable")

	// ErrInvalidName is returned when a node name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")
)
