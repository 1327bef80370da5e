package memory

import "errors"

// Sentinel errors for store operations.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidID       = errors.New("invalid session id")
	ErrLoadFailed      = errors.New("load failed")
	ErrSaveFailed      = errors.New("save failed")
	ErrDeleteFailed    = errors.New("delete failed")
)
