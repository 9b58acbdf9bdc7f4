package repository

import "errors"

// ErrNotFound is returned when a record, or its paired owner/account entry,
// is not present in the store.
var ErrNotFound = errors.New("record not found")

// ErrAccountBound is returned when a technician account already has a binding.
var ErrAccountBound = errors.New("account already bound")
