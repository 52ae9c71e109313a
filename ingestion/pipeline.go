package ingestion

import (
	"bufio"
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/chatvault/core"
)

// maxLineSize bounds a single JSONL line; captured blocks can be long.
const maxLineSize = 16 * 1024 * 1024

// BlockStore is the subset of the controller the pipeline writes to.
type BlockStore interface {
	Save(ctx context.Context, raw any) (*core.Block, error)
}

// Pipeline saves batches of raw blocks concurrently.
type Pipeline struct {
	store  BlockStore
	pool   *ants.Pool
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent saves.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ingestion")
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(store BlockStore, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:  store,
		pool:   pool,
		logger: slog.Default().With("component", "ingestion"),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	return p, nil
}

// LineError records why one input item was not saved.
// Line is 1-based for JSONL input and the item index plus one otherwise.
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e LineError) Unwrap() error {
	return e.Err
}

// Result summarizes an ingestion run.
type Result struct {
	Saved    int
	Sessions map[string]int // Blocks saved per session
	Failed   []LineError
}

// Ingest saves every item and waits for all of them. Items missing an ID get
// one derived from their session and ordinal. A failing item is recorded in
// the result and does not stop the others; only a cancelled ctx or a pool
// failure returns an error.
func (p *Pipeline) Ingest(ctx context.Context, items []map[string]any) (*Result, error) {
	lines := make([]int, len(items))
	for i := range items {
		lines[i] = i + 1
	}
	return p.ingest(ctx, items, lines, nil)
}

// IngestJSONL reads one JSON object per line from r and saves them like
// Ingest. Blank lines are skipped; lines that are not JSON objects are
// recorded as failures.
func (p *Pipeline) IngestJSONL(ctx context.Context, r io.Reader) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var items []map[string]any
	var lines []int
	var failed []LineError
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		var item map[string]any
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		if err := dec.Decode(&item); err != nil {
			failed = append(failed, LineError{Line: line, Err: fmt.Errorf("%w: %v", ErrMalformedLine, err)})
			continue
		}
		if item == nil {
			failed = append(failed, LineError{Line: line, Err: fmt.Errorf("%w: not a JSON object", ErrMalformedLine)})
			continue
		}
		if offset := dec.InputOffset(); offset != int64(len(text)) {
			failed = append(failed, LineError{Line: line, Err: fmt.Errorf("%w: unexpected data after object at offset %d", ErrMalformedLine, offset)})
			continue
		}
		items = append(items, item)
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	return p.ingest(ctx, items, lines, failed)
}

func (p *Pipeline) ingest(ctx context.Context, items []map[string]any, lines []int, failed []LineError) (*Result, error) {
	result := &Result{Sessions: make(map[string]int), Failed: failed}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return result, err
		}

		line := lines[i]
		fields := core.WithDerivedBlockID(item)
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			block, err := p.store.Save(ctx, fields)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, LineError{Line: line, Err: err})
				return
			}
			result.Saved++
			result.Sessions[block.SessionURL]++
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return result, fmt.Errorf("submit line %d: %w", line, err)
		}
	}
	wg.Wait()

	slices.SortFunc(result.Failed, func(a, b LineError) int {
		return cmp.Compare(a.Line, b.Line)
	})
	p.logger.Info("ingestion complete", "saved", result.Saved, "failed", len(result.Failed), "sessions", len(result.Sessions))
	for _, f := range result.Failed {
		p.logger.Debug("block rejected", "line", f.Line, "err", f.Err)
	}
	return result, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
