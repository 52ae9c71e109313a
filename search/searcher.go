package search

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/poiesic/chatvault/core"
)

// Score weights.
const (
	verbatimBoost = 0.3
	summaryWeight = 1.2
)

// Source is the subset of the controller the searcher reads from.
type Source interface {
	All(ctx context.Context) ([]*core.Block, error)
	GetBySession(ctx context.Context, sessionURL string) ([]*core.Block, error)
	AllMeta(ctx context.Context) ([]*core.MetaSummary, error)
	GetMetaBySession(ctx context.Context, sessionURL string) ([]*core.MetaSummary, error)
}

// Result is one ranked match. Exactly one of Block and Meta is set.
type Result struct {
	Block *core.Block       `json:"block,omitempty"`
	Meta  *core.MetaSummary `json:"meta,omitempty"`
	Score float32           `json:"score"`
}

// SessionURL returns the session of the matched record.
func (r *Result) SessionURL() string {
	if r.Meta != nil {
		return r.Meta.SessionURL
	}
	return r.Block.SessionURL
}

// Searcher provides keyword search over blocks and meta summaries.
type Searcher struct {
	source Source
	logger *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(source Source, opts ...Option) (*Searcher, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}

	s := &Searcher{
		source: source,
		logger: slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search finds records matching query. An empty sessionURL searches every
// session. Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) Search(ctx context.Context, query, sessionURL string, maxHits int) ([]*Result, error) {
	return s.SearchWithMonitor(ctx, query, sessionURL, maxHits, nil)
}

// SearchWithMonitor searches like Search and reports each stage to monitor.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query, sessionURL string, maxHits int, monitor SearchMonitor) ([]*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	words := uniqueWords(tokenizeAndFilter(query))
	if len(words) == 0 {
		return nil, ErrEmptyQuery
	}
	monitor.Start(query, words)

	blocks, metas, err := s.candidates(ctx, sessionURL)
	if err != nil {
		s.logger.Error("error retrieving records", "session", sessionURL, "err", err)
		return nil, err
	}
	monitor.AfterRetrieval(len(blocks), len(metas))

	results := make([]*Result, 0)
	for _, block := range blocks {
		if score := score(block.Content, words, 1.0); score > 0 {
			monitor.BlockHit(block, score)
			results = append(results, &Result{Block: block, Score: score})
		}
	}
	for _, meta := range metas {
		if score := score(meta.Summary, words, summaryWeight); score > 0 {
			monitor.MetaHit(meta, score)
			results = append(results, &Result{Meta: meta, Score: score})
		}
	}

	slices.SortStableFunc(results, compareResults)
	if maxHits > 0 && len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	s.logger.Debug("search complete", "query", query, "blocks", len(blocks), "metas", len(metas), "hits", len(results))
	return results, nil
}

func (s *Searcher) candidates(ctx context.Context, sessionURL string) ([]*core.Block, []*core.MetaSummary, error) {
	if sessionURL == "" {
		blocks, err := s.source.All(ctx)
		if err != nil {
			return nil, nil, err
		}
		metas, err := s.source.AllMeta(ctx)
		return blocks, metas, err
	}

	blocks, err := s.source.GetBySession(ctx, sessionURL)
	if err != nil {
		return nil, nil, err
	}
	metas, err := s.source.GetMetaBySession(ctx, sessionURL)
	return blocks, metas, err
}

func score(document string, words []string, weight float32) float32 {
	share, all := coverage(document, words)
	if share == 0 {
		return 0
	}
	score := share * weight
	if all {
		score += verbatimBoost
	}
	return score
}

// compareResults orders by score descending; ties put summaries first and
// then follow record order.
func compareResults(a, b *Result) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	switch {
	case a.Meta != nil && b.Meta != nil:
		return core.CompareMetaSummaries(a.Meta, b.Meta)
	case a.Meta != nil:
		return -1
	case b.Meta != nil:
		return 1
	}
	return core.CompareBlocks(a.Block, b.Block)
}
