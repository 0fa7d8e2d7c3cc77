package service

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is wrapped by errors caused by a bad request
var ErrInvalidInput = errors.New("invalid input")

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
