package markov

import "errors"

var (
	// ErrStorage wraps failures to open, read, or write the underlying storage.
	ErrStorage = errors.New("model storage error")
	// ErrDecode is returned when a serialized model is malformed, truncated, or
	// breaks a model invariant.
	ErrDecode = errors.New("model decode error")
	// ErrModelNotFound is returned by the Store when no model has the requested name.
	ErrModelNotFound = errors.New("model not found")
	// ErrEmptySeed is returned when generation is asked to continue an empty seed.
	ErrEmptySeed = errors.New("seed text contains no words")
	// ErrInvalidAmount is returned when a negative number of words is requested.
	ErrInvalidAmount = errors.New("amount must not be negative")
)
