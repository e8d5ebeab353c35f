package domain

import "errors"

var (
	ErrValidation = errors.New("validation failed")
	ErrInternal   = errors.New("internal error")
	ErrNotFound   = errors.New("not found")
	// ErrForbidden covers upstream 401/403: the record exists but may not be read.
	ErrForbidden = errors.New("forbidden")
)
