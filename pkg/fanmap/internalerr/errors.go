package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrMissingData     = errors.New("dataset missing")
	ErrMissingArtifact = errors.New("model artifact missing")
	ErrBundleMismatch  = errors.New("artifacts belong to different training runs")
	ErrSchemaMismatch  = errors.New("schema mismatch")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidConfig   = errors.New("invalid configuration")
)
