package store

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrNotLoaded       = errors.New("table not loaded")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrMalformedColumn = errors.New("malformed column value")
)
