package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID is matched by every DuplicateIDError.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("not found")
)

// DuplicateIDError reports an insert whose id is already held by a store.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate id %q", e.ID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// NotFoundError reports a lookup or removal of an id the store does not hold.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("id %q not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
