package resource

import "errors"

// Errors returned by the resource package.
//
// Value writes never return errors; they report acceptance with a bool.
var (
	// ErrUnknownDescriptor is returned by AddItem when no descriptor matches
	// the requested (suffix, type) pair. This is a programming error.
	ErrUnknownDescriptor = errors.New("resource: unknown descriptor")

	// ErrUnknownDataType is returned when a data type name cannot be parsed.
	ErrUnknownDataType = errors.New("resource: unknown data type")
)
