package summarize

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrInvalidWindow is returned when the window size is <= 0
	ErrInvalidWindow = errors.New("window must be greater than 0")

	// ErrEmptySession is returned when a session has no blocks to summarize
	ErrEmptySession = errors.New("session has no blocks")
)
