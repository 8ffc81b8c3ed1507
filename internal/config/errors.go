package config

import "errors"

// Sentinel errors returned by Load and Validate.
var (
	// ErrInvalidConfig indicates the configuration failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrFileNotFound indicates an explicitly named build file is missing.
	ErrFileNotFound = errors.New("build file not found")

	// ErrUnknownTarget indicates a target list references an unknown name.
	ErrUnknownTarget = errors.New("unknown target")

	// ErrTargetCycle indicates target aliases reference each other.
	ErrTargetCycle = errors.New("target alias cycle")
)
