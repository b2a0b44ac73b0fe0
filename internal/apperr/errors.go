package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrEmptyPrompt = errors.New("prompt is empty")
)
