package memsim

import (
	cerrors "github.com/cockroachdb/errors"
)

// CheckCapacity verifies that the provided capacity can describe a usable
// address space. The name is included in the returned error for context.
func CheckCapacity(capacity int, name string) error {
	if capacity <= 0 {
		return cerrors.Wrapf(InvalidCapacityError, "%s is %d", name, capacity)
	}
	return nil
}
