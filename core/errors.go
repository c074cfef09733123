package core

import "errors"

// Common errors
var (
	ErrUnknownMotor  = errors.New("unknown motor")
	ErrTimeout       = errors.New("homing timed out")
	ErrInvalidAxis   = errors.New("axis index out of range")
	ErrInvalidConfig = errors.New("invalid machine configuration")
)
