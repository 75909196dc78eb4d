package repository

import "errors"

// ErrNotFound is returned when an operation targets a row that does not
// exist or belongs to another user.
var ErrNotFound = errors.New("not found")
