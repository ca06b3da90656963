package memsim

import "github.com/pkg/errors"

// InvalidCapacityError is the error returned from CheckCapacity when an arena
// is configured with a capacity that cannot describe a usable address space
var InvalidCapacityError error = errors.New("capacity must be a positive number of bytes")
