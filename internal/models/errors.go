package models

import (
	"errors"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrUnsupportedModel = errors.New("unsupported model")

	ErrProviderCall    = errors.New("provider call failed")
	ErrMalformedOutput = errors.New("malformed model output")
)
