package observability

import "github.com/google/uuid"

// prefixedID returns a generator producing "prefix_<uuid>" identifiers, the
// same shape used elsewhere in this module for entity IDs.
func prefixedID(prefix string) func() string {
	return func() string {
		return prefix + uuid.NewString()
	}
}
