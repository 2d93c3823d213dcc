package repository

import "errors"

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation (SQL, NoSQL, etc.)
// from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrStaleStatus is returned when a round status update loses a race with
// another transition.
var ErrStaleStatus = errors.New("round status changed")
