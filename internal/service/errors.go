package service

import "errors"

var (
	ErrNotFound         = errors.New("notification not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("notification store unavailable")
)
