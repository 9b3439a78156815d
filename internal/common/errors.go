// -----------------------------------------------------------------------
// Error kinds - stable failure categories used across services and HTTP
// -----------------------------------------------------------------------

package common

import "errors"

// Error kinds. Services wrap these with fmt.Errorf("%w: ...") so that
// handlers can map any error chain to a stable problem type via errors.Is.
var (
	ErrNotFound         = errors.New("not-found")
	ErrInvalidID        = errors.New("invalid-id")
	ErrValidationFailed = errors.New("validation-failed")
	ErrConflict         = errors.New("conflict")
)
