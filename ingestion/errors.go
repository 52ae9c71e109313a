package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a block store is not provided.
	ErrStoreRequired = errors.New("block store required")

	// ErrMalformedLine is returned for an input line that is not a JSON object.
	ErrMalformedLine = errors.New("malformed line")
)
