package monitor

import "errors"

// ErrInvalidInput marks caller mistakes (bad URL, unknown mode). They map
// to 400 at the HTTP boundary and are never retried.
var ErrInvalidInput = errors.New("invalid input")
