package arena

import "github.com/pkg/errors"

// ErrDuplicateProcess is the error returned from Arena.Request when the requested
// process id already occupies a block
var ErrDuplicateProcess error = errors.New("process already occupies a block")

// ErrInsufficientSpace is the error returned from Arena.Request when no free block
// is large enough to satisfy the request under the chosen strategy
var ErrInsufficientSpace error = errors.New("no free block is large enough for the request")

// ErrUnknownStrategy is the error returned from ParseStrategy when the strategy
// token is not one of F, B, or W
var ErrUnknownStrategy error = errors.New("unknown placement strategy")

// ErrProcessNotFound is the error returned from Arena.Release when no occupied
// block belongs to the requested process id
var ErrProcessNotFound error = errors.New("process does not occupy a block")
