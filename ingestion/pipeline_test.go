package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/chatvault"
	"github.com/poiesic/chatvault/core"
	badgerstore "github.com/poiesic/chatvault/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T) *chatvault.Controller {
	t.Helper()
	c, err := chatvault.Open(chatvault.WithOpener(badgerstore.MemoryOpener(nil)))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewPipeline(t *testing.T) {
	_, err := NewPipeline(nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	p, err := NewPipeline(newTestController(t), WithPoolSize(0), WithLogger(nil))
	require.NoError(t, err)
	defer p.Release()
	assert.Equal(t, 1, p.pool.Cap())
}

func TestIngestJSONL(t *testing.T) {
	c := newTestController(t)
	p, err := NewPipeline(c, WithPoolSize(4))
	require.NoError(t, err)
	defer p.Release()

	input := strings.Join([]string{
		`{"id":"b1","sessionUrl":"s1","startOrdinal":0,"messageCount":2,"timestamp":1700000000000,"content":"User: hi"}`,
		``,
		`{"sessionUrl":"s1","startOrdinal":1,"messageCount":3,"timestamp":1700000000001}`,
		`not json`,
		`{"id":"b3","startOrdinal":2}`,
		`null`,
		`{"id":"b4","sessionUrl":"s2","startOrdinal":0,"timestamp":5}`,
	}, "\n")

	result, err := p.IngestJSONL(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Saved)
	assert.Equal(t, map[string]int{"s1": 2, "s2": 1}, result.Sessions)
	require.Len(t, result.Failed, 3)
	assert.Equal(t, 4, result.Failed[0].Line)
	assert.ErrorIs(t, result.Failed[0], ErrMalformedLine)
	assert.Equal(t, 5, result.Failed[1].Line)
	assert.ErrorIs(t, result.Failed[1], core.ErrEmptySessionURL)
	assert.Equal(t, 6, result.Failed[2].Line)
	assert.ErrorIs(t, result.Failed[2], ErrMalformedLine)

	derived, err := c.Get(context.Background(), core.DeriveBlockID("s1", 1))
	require.NoError(t, err)
	assert.Equal(t, 3, derived.MessageCount)
	assert.Equal(t, int64(1700000000001), derived.Timestamp)

	blocks, err := c.GetBySession(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "User: hi", blocks[0].Content)
}

func TestIngestJSONL_TrailingDataIsMalformed(t *testing.T) {
	c := newTestController(t)
	p, err := NewPipeline(c)
	require.NoError(t, err)
	defer p.Release()

	input := strings.Join([]string{
		`{"id":"b1","sessionUrl":"s1","startOrdinal":0} junk`,
		`{"id":"b2","sessionUrl":"s1","startOrdinal":1}{"id":"b3","sessionUrl":"s1","startOrdinal":2}`,
		`{"id":"b4","sessionUrl":"s1","startOrdinal":3} }`,
		`  {"id":"b5","sessionUrl":"s1","startOrdinal":4}  `,
	}, "\n")

	result, err := p.IngestJSONL(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Saved)
	require.Len(t, result.Failed, 3)
	for i, failure := range result.Failed {
		assert.Equal(t, i+1, failure.Line)
		assert.ErrorIs(t, failure, ErrMalformedLine)
	}

	_, err = c.Get(context.Background(), "b1")
	assert.ErrorIs(t, err, chatvault.ErrNotFound)
	_, err = c.Get(context.Background(), "b5")
	assert.NoError(t, err)
}

func TestIngest_ReimportOverwrites(t *testing.T) {
	c := newTestController(t)
	p, err := NewPipeline(c)
	require.NoError(t, err)
	defer p.Release()
	ctx := context.Background()

	items := make([]map[string]any, 20)
	for i := range items {
		items[i] = map[string]any{"sessionUrl": "s1", "startOrdinal": i, "timestamp": 1}
	}

	for run := 0; run < 2; run++ {
		result, err := p.Ingest(ctx, items)
		require.NoError(t, err)
		assert.Equal(t, 20, result.Saved)
		assert.Empty(t, result.Failed)
	}

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, count, "derived ids make re-imports idempotent")
}

// failingStore rejects every other save.
type failingStore struct {
	mu    sync.Mutex
	calls int
}

func (s *failingStore) Save(ctx context.Context, raw any) (*core.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls%2 == 0 {
		return nil, errors.New("write rejected")
	}
	return core.NormalizeBlock(raw)
}

func TestIngest_CollectsStoreErrors(t *testing.T) {
	store := &failingStore{}
	p, err := NewPipeline(store, WithPoolSize(2))
	require.NoError(t, err)
	defer p.Release()

	items := make([]map[string]any, 10)
	for i := range items {
		items[i] = map[string]any{"id": fmt.Sprintf("b%d", i), "sessionUrl": "s1", "startOrdinal": i}
	}

	result, err := p.Ingest(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Saved)
	assert.Len(t, result.Failed, 5)
	for i := 1; i < len(result.Failed); i++ {
		assert.Less(t, result.Failed[i-1].Line, result.Failed[i].Line)
	}
}

func TestIngest_CancelledContext(t *testing.T) {
	p, err := NewPipeline(&failingStore{})
	require.NoError(t, err)
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Ingest(ctx, []map[string]any{{"id": "b1", "sessionUrl": "s1", "startOrdinal": 0}})
	assert.ErrorIs(t, err, context.Canceled)
}
