package repository

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when a create hits an id that is already stored.
	ErrAlreadyExists = errors.New("record already exists")
)
