package common

import (
	"crypto/rand"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// NewID generates a new entity identifier: a lexicographically sortable
// 128-bit ULID rendered as a 26-character Crockford base-32 string.
func NewID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// ValidateID checks that s is a well-formed identifier.
// Malformed input yields ErrInvalidID.
func ValidateID(s string) error {
	if _, err := ulid.ParseStrict(s); err != nil {
		return fmt.Errorf("%w: %q is not a valid identifier", ErrInvalidID, s)
	}
	return nil
}
