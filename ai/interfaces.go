package ai

import (
	"context"
	"errors"
)

// ErrEmptySummary is returned by a Summarizer whose model answered without
// summary text. Retrying the same transcript will not help.
var ErrEmptySummary = errors.New("model returned an empty summary")

// Summarizer condenses a run of conversation blocks into a short summary.
// Implementations must be thread-safe for concurrent use.
type Summarizer interface {
	// Summarize returns a summary of transcript, which holds the content
	// of consecutive blocks separated by blank lines.
	// Returns an error if summary generation fails or yields no text.
	Summarize(ctx context.Context, transcript string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Summarizer returns the summary generation service.
	// The returned Summarizer is safe for concurrent use.
	Summarizer() Summarizer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
