package forms

import "errors"

var (
	ErrNotFound        = errors.New("form not found")
	ErrInvalidInput    = errors.New("invalid form input")
	ErrReorderMismatch = errors.New("reorder list does not match existing items")
)
