package wallet

import "errors"

// ErrInvalidInput is returned when a request fails validation before any
// chain interaction. Rejections here must make zero chain calls.
var ErrInvalidInput = errors.New("invalid input")
