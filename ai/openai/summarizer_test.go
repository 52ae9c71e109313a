package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/chatvault/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel replays canned responses in order.
type fakeModel struct {
	responses []string
	err       error
	calls     int
	messages  []llms.MessageContent
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.responses) {
		return &llms.ContentResponse{}, nil
	}
	text := f.responses[f.calls]
	f.calls++
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name      string
		responses []string
		want      string
		wantErr   error
		calls     int
	}{
		{
			name:      "plain json",
			responses: []string{`{"summary":"The user said hello."}`},
			want:      "The user said hello.",
			calls:     1,
		},
		{
			name:      "fenced json",
			responses: []string{"```json\n{\"summary\": \"  fenced  \"}\n```"},
			want:      "fenced",
			calls:     1,
		},
		{
			name:      "missing opening quote is repaired",
			responses: []string{`{summary": "repaired"}`},
			want:      "repaired",
			calls:     1,
		},
		{
			name:      "retries malformed output",
			responses: []string{`not json`, `{"summary":"second try"}`},
			want:      "second try",
			calls:     2,
		},
		{
			name:      "empty summary",
			responses: []string{`{"summary":"   "}`},
			wantErr:   ErrEmptySummary,
			calls:     1,
		},
		{
			name:    "no choices",
			wantErr: ErrEmptySummary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakeModel{responses: tt.responses}
			s := newSummarizerWithModel(model, 50)

			got, err := s.Summarize(context.Background(), "User: hi\n\n\n\nAssistant: hello")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, tt.calls, model.calls)
		})
	}
}

func TestSummarize_GiveUpAfterRetries(t *testing.T) {
	model := &fakeModel{responses: []string{"x", "y", "z", `{"summary":"too late"}`}}
	s := newSummarizerWithModel(model, 50)

	_, err := s.Summarize(context.Background(), "text")
	assert.Error(t, err)
	assert.Equal(t, maxParseAttempts, model.calls)
}

func TestSummarize_ModelError(t *testing.T) {
	boom := errors.New("connection refused")
	s := newSummarizerWithModel(&fakeModel{err: boom}, 50)

	_, err := s.Summarize(context.Background(), "text")
	assert.ErrorIs(t, err, boom)
}

func TestSummarize_PromptContents(t *testing.T) {
	model := &fakeModel{responses: []string{`{"summary":"ok"}`}}
	s := newSummarizerWithModel(model, 42)

	_, err := s.Summarize(context.Background(), "  User: hi\n\n\n\nAssistant: hello  ")
	require.NoError(t, err)
	require.Len(t, model.messages, 2)

	system := model.messages[0].Parts[0].(llms.TextContent).Text
	assert.Contains(t, system, "at most 42 words")

	human := model.messages[1].Parts[0].(llms.TextContent).Text
	assert.Equal(t, "User: hi\n\nAssistant: hello", human)
}

func TestRepairSummaryJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid", `{"summary": "x"}`, `{"summary": "x"}`},
		{"missing opening quote", `{summary": "x"}`, `{"summary": "x"}`},
		{"missing quote after whitespace", "{\n  summary\": \"x\"}", "{\n  \"summary\": \"x\"}"},
		{"surrounding prose", `Here you go: {"summary": "x"} Hope it helps!`, `{"summary": "x"}`},
		{"trailing comma", `{"summary": "x",}`, `{"summary": "x"}`},
		{"comma inside string kept", `{"summary": "a, }b"}`, `{"summary": "a, }b"}`},
		{"quoted key text untouched", `{"summary": "{word\": x"}`, `{"summary": "{word\": x"}`},
		{"no object", `not json`, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairSummaryJSON(tt.input))
		})
	}
}

func TestNewSummarizer_InvalidConfig(t *testing.T) {
	_, err := NewSummarizer(&ai.Config{Host: "http://localhost:11434", MaxWords: 10})
	assert.Error(t, err)
}
