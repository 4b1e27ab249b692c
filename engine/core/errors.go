package core

import (
	"errors"
	"fmt"
)

var (
	// ErrIO is returned when the bytes of an asset cannot be read.
	ErrIO = errors.New("asset unreadable")
	// ErrDecode is returned when an asset is malformed or of an unsupported format.
	ErrDecode = errors.New("asset malformed or unsupported")
	// ErrDeviceInit is returned when the graphics device rejects an upload.
	ErrDeviceInit = errors.New("device rejected upload")
	// ErrMisuse is returned (or panicked) when a caller violates a usage contract.
	ErrMisuse = errors.New("misuse")

	ErrUnknown = errors.New("unknown")
)

// ResourceError carries the asset identity and the operation that failed
// alongside one of the sentinel errors above.
type ResourceError struct {
	// Resource is the printable identity of the asset (kind:path).
	Resource string
	// Op is the operation that failed, e.g. "read", "decode", "upload".
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError wraps cause under the given class so that both
// errors.Is(err, class) and errors.Is(err, cause) hold.
func NewResourceError(resource, op string, class, cause error) *ResourceError {
	var err error
	switch {
	case cause == nil:
		err = class
	case errors.Is(cause, class):
		err = cause
	default:
		err = fmt.Errorf("%w: %w", class, cause)
	}
	return &ResourceError{
		Resource: resource,
		Op:       op,
		Err:      err,
	}
}

// Misusef builds an ErrMisuse with a formatted explanation.
func Misusef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMisuse, fmt.Sprintf(format, args...))
}
