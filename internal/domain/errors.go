package domain

import "errors"

var (
	// ErrMissingCounter is returned when varnishstat output lacks an expected counter.
	ErrMissingCounter = errors.New("counter not found")
)
