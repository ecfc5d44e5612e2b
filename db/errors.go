package db

import "errors"

// Sentinel errors for database operations
var (
	// ErrMissingParam indicates that a required connect parameter is absent
	ErrMissingParam = errors.New("missing connection parameter")

	// ErrUnsupportedDriver indicates a Dovecot SQL driver this job cannot speak
	ErrUnsupportedDriver = errors.New("unsupported sql driver")
)
