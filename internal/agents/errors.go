package agents

import "errors"

var (
	ErrPartialRange  = errors.New("start and end must be given together")
	ErrInvalidTime   = errors.New("invalid datetime")
	ErrInvertedRange = errors.New("start must not be after end")
)
