package model

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrDegenerateRange  = errors.New("degenerate wear range")
	ErrUnknownCondition = errors.New("unknown condition")
)
