package domain

import "errors"

var (
	ErrValidation       = errors.New("validation failed")
	ErrInsufficientData = errors.New("insufficient data")
	ErrLimitExceeded    = errors.New("risk limit exceeded")
	ErrNotFound         = errors.New("not found")
	ErrOutOfRange       = errors.New("index out of range")
	ErrProcessing       = errors.New("processing failed")
	ErrContextDone      = errors.New("context cancelled")
)
