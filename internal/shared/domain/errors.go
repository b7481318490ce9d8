package domain

import "errors"

// ErrPersistence marks failures of the backing store (unavailable, timed out,
// constraint the domain did not anticipate). Callers treat it as retryable.
var ErrPersistence = errors.New("persistence failure")
