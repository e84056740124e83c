package repository

import "errors"

// ErrNotFound is returned by update operations that matched no row
var ErrNotFound = errors.New("record not found")
