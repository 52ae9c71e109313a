package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSummarizer_Default(t *testing.T) {
	summarizer := NewMockSummarizer()
	summarizer.Words = 3

	got, err := summarizer.Summarize(context.Background(), "User: how do I reverse a list")
	require.NoError(t, err)
	assert.Equal(t, "User: how do", got)
	assert.Equal(t, 1, summarizer.CallCount())
}

func TestMockSummarizer_CustomAndReset(t *testing.T) {
	boom := errors.New("model offline")
	summarizer := NewMockSummarizer()
	summarizer.SummarizeFunc = func(context.Context, string) (string, error) {
		return "", boom
	}

	_, err := summarizer.Summarize(context.Background(), "anything")
	assert.ErrorIs(t, err, boom)

	summarizer.Reset()
	assert.Zero(t, summarizer.CallCount())
	got, err := summarizer.Summarize(context.Background(), "short")
	require.NoError(t, err)
	assert.Equal(t, "short", got)
}

func TestMockProvider(t *testing.T) {
	provider := NewMockProvider()
	defer provider.Close()

	concrete, ok := provider.(*MockProvider)
	require.True(t, ok)
	assert.Same(t, concrete.GetMockSummarizer(), provider.Summarizer())

	custom := NewMockSummarizer()
	assert.Same(t, custom, NewMockProviderWithSummarizer(custom).Summarizer())
}
