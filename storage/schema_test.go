package storage

import (
	"testing"

	"github.com/poiesic/chatvault/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLayout() []StoreSpec {
	return Layout("blocks", "meta_summaries")
}

func changeNames(changes []Change) []string {
	names := make([]string, len(changes))
	for i, c := range changes {
		names[i] = c.String()
	}
	return names
}

func TestPlanMigration(t *testing.T) {
	tests := []struct {
		name     string
		existing int
		target   int
		want     []string
	}{
		{
			name:     "fresh database at version 1",
			existing: 0,
			target:   1,
			want: []string{
				"create-store blocks",
				"create-index blocks.sessionUrl",
				"create-index blocks.startOrdinal",
				"create-index blocks.timestamp",
			},
		},
		{
			name:     "fresh database at version 2",
			existing: 0,
			target:   2,
			want: []string{
				"create-store blocks",
				"create-index blocks.sessionUrl",
				"create-index blocks.startOrdinal",
				"create-index blocks.timestamp",
				"create-store meta_summaries",
				"create-index meta_summaries.sessionUrl",
				"create-index meta_summaries.timestamp",
			},
		},
		{
			name:     "upgrade from 1 to 2 plans the full layout",
			existing: 1,
			target:   2,
			want: []string{
				"create-store blocks",
				"create-index blocks.sessionUrl",
				"create-index blocks.startOrdinal",
				"create-index blocks.timestamp",
				"create-store meta_summaries",
				"create-index meta_summaries.sessionUrl",
				"create-index meta_summaries.timestamp",
			},
		},
		{
			name:     "already current",
			existing: 2,
			target:   2,
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes, err := PlanMigration(tt.existing, tt.target, testLayout())
			require.NoError(t, err)
			assert.Equal(t, tt.want, changeNames(changes))
		})
	}
}

func TestPlanMigration_Errors(t *testing.T) {
	_, err := PlanMigration(3, 2, testLayout())
	assert.ErrorIs(t, err, ErrVersionDowngrade)

	_, err = PlanMigration(0, 0, testLayout())
	assert.Error(t, err)
}

func TestStoreSpec_IndexBackfillKey(t *testing.T) {
	spec := Blocks.Store("blocks", 1)
	require.Len(t, spec.Indexes, 3)

	value := MarshalBlock(&core.Block{ID: "b1", SessionURL: "s1", StartOrdinal: 4, Timestamp: 10})
	for _, idx := range spec.Indexes {
		key, err := idx.KeyOf(value)
		require.NoError(t, err)
		switch idx.Name {
		case IndexSessionURL:
			assert.Equal(t, StringKey("s1"), key)
		case IndexStartOrdinal:
			assert.Equal(t, IntKey(4), key)
		case IndexTimestamp:
			assert.Equal(t, IntKey(10), key)
		}
	}

	meta := MetaSummaries.Store("meta", 1)
	for _, idx := range meta.Indexes {
		assert.Equal(t, 2, idx.Since, "meta indexes arrive with schema version 2")
	}
}

func TestIntKeyOrdering(t *testing.T) {
	values := []int64{-1 << 40, -5, -1, 0, 1, 7, 1 << 40}
	for i := 1; i < len(values); i++ {
		assert.Less(t, string(IntKey(values[i-1])), string(IntKey(values[i])))
	}
}
