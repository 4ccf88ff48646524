/*
Package randx provides functions for generating and validating unique document identifiers.

Document identities are store-generated UUID v4 strings, matching the backing
store's "identity assigned on insert" contract.
*/
package randx

import (
	"github.com/google/uuid"
)

// DocID generates a standard UUID v4 string to serve as a unique document identifier.
func DocID() string {
	return uuid.New().String()
}

// IsValidDocID checks whether the given string parses as a UUID.
// Handlers use this to reject malformed identities before touching the store.
func IsValidDocID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
