// Package syncerr defines the error kinds shared by the sync engine.
//
// Errors are wrapped with fmt.Errorf("%w: ...") and classified with errors.Is.
package syncerr

import "errors"

var (
	// ErrInvalidInput marks a missing or malformed required parameter.
	ErrInvalidInput = errors.New("invalid input")
	// ErrOutOfRange marks a value outside an accepted bound.
	ErrOutOfRange = errors.New("out of range")
	// ErrTransport marks a failed call to a remote system.
	ErrTransport = errors.New("transport failure")
	// ErrPartialResolution marks a bulk id or tag lookup that only partly succeeded.
	ErrPartialResolution = errors.New("partial resolution failure")
)
