// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package summarize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/chatvault/ai"
	"github.com/poiesic/chatvault/core"
	"github.com/poiesic/chatvault/storage"
)

// Store is the subset of the controller the generator needs.
type Store interface {
	GetBySession(ctx context.Context, sessionURL string) ([]*core.Block, error)
	GetMeta(ctx context.Context, id string) (*core.MetaSummary, error)
	SaveMeta(ctx context.Context, raw any) (*core.MetaSummary, error)
}

// Config holds configuration for summary generation.
type Config struct {
	// Window is the number of consecutive blocks covered by one summary
	Window int

	// Overwrite regenerates windows that already have a summary
	Overwrite bool

	// ReportInterval is how often to report progress (number of windows)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per summary
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Window:         8,
		ReportInterval: 1,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Generator turns the blocks of a session into meta summaries.
type Generator struct {
	store      Store
	summarizer ai.Summarizer
	config     *Config
	progress   io.Writer
	logger     *slog.Logger
	now        func() time.Time
}

// NewGenerator creates a new generator.
// progress: where to write progress output (typically os.Stderr); nil disables it
func NewGenerator(store Store, summarizer ai.Summarizer, config *Config, progress io.Writer) *Generator {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Generator{
		store:      store,
		summarizer: summarizer,
		config:     config,
		progress:   progress,
		logger:     slog.Default().With("component", "summarize"),
		now:        time.Now,
	}
}

// Run summarizes every window of the session and returns the meta summaries
// in chunk order. Windows that already have a summary are kept as they are
// unless Overwrite is set.
func (g *Generator) Run(ctx context.Context, sessionURL string) ([]*core.MetaSummary, error) {
	report, err := g.Summarize(ctx, sessionURL)
	if report == nil {
		return nil, err
	}
	return report.Summaries, err
}

// Summarize is Run with a report of what happened to each window. After a
// failure the report covers the windows handled before it.
func (g *Generator) Summarize(ctx context.Context, sessionURL string) (*Report, error) {
	if g.config.Window <= 0 {
		return nil, ErrInvalidWindow
	}

	blocks, err := g.store.GetBySession(ctx, sessionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySession, sessionURL)
	}

	windows := Windows(blocks, g.config.Window)
	tracker := newProgress(g.progress, sessionURL, len(windows), g.config.ReportInterval)

	for _, window := range windows {
		meta, outcome, err := g.summarizeWindow(ctx, sessionURL, window)
		if err != nil {
			return tracker.stop(), err
		}
		tracker.record(outcome, meta)
	}
	report := tracker.finish()

	g.logger.Info("summarized session", "session", sessionURL, "blocks", len(blocks),
		"windows", report.Windows, "created", report.Created, "kept", report.Kept,
		"skipped", report.Skipped, "elapsed", report.Elapsed.Round(time.Millisecond))
	return report, nil
}

func (g *Generator) summarizeWindow(ctx context.Context, sessionURL string, window []*core.Block) (*core.MetaSummary, Outcome, error) {
	ids := make([]string, len(window))
	for i, b := range window {
		ids[i] = b.ID
	}
	id := core.DeriveMetaSummaryID(sessionURL, ids)

	if !g.config.Overwrite {
		existing, err := g.store.GetMeta(ctx, id)
		if err == nil {
			g.logger.Debug("keeping existing summary", "id", id)
			return existing, Kept, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, 0, err
		}
	}

	transcript := Transcript(window)
	if transcript == "" {
		g.logger.Warn("skipping window without content", "session", sessionURL, "first", ids[0])
		return nil, Skipped, nil
	}

	var summary string
	err := RetryWithBackoff(ctx, g.logger, func() error {
		var err error
		summary, err = g.summarizer.Summarize(ctx, transcript)
		if err == nil && strings.TrimSpace(summary) == "" {
			err = ai.ErrEmptySummary
		}
		if errors.Is(err, ai.ErrEmptySummary) {
			return Permanent(err)
		}
		return err
	}, g.config.MaxRetries, g.config.RetryDelay)
	if err != nil {
		return nil, 0, fmt.Errorf("summarize window starting at %s: %w", ids[0], err)
	}

	meta, err := g.store.SaveMeta(ctx, &core.MetaSummary{
		ID:         id,
		SessionURL: sessionURL,
		ChunkIDs:   ids,
		ChunkRange: [2]int{window[0].StartOrdinal, window[len(window)-1].StartOrdinal},
		Summary:    summary,
		Timestamp:  g.now().UnixMilli(),
	})
	if err != nil {
		return nil, 0, err
	}
	return meta, Created, nil
}

// Windows splits blocks into runs of at most size consecutive blocks.
func Windows(blocks []*core.Block, size int) [][]*core.Block {
	var windows [][]*core.Block
	for start := 0; start < len(blocks); start += size {
		end := min(start+size, len(blocks))
		windows = append(windows, blocks[start:end])
	}
	return windows
}

// Transcript joins the non-empty content of blocks with blank lines.
func Transcript(blocks []*core.Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if content := strings.TrimSpace(b.Content); content != "" {
			parts = append(parts, content)
		}
	}
	return strings.Join(parts, "\n\n")
}
