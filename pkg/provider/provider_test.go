package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/fyrsmithlabs/labcheck/pkg/analysis"
)

// stubModel scripts a langchaingo model for tests.
type stubModel struct {
	response string
	err      error
	delay    time.Duration
}

func (s *stubModel) GenerateContent(ctx context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: s.response}},
	}, nil
}

func (s *stubModel) Call(ctx context.Context, _ string, _ ...llms.CallOption) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestParseName(t *testing.T) {
	for _, ok := range []string{"openai", "Anthropic", " googleai "} {
		_, err := ParseName(ok)
		assert.NoError(t, err, ok)
	}
	_, err := ParseName("azure")
	assert.Error(t, err)
}

func TestPromptBuild(t *testing.T) {
	p := Prompt{Categories: []analysis.Category{analysis.Performance}, MaxFindings: 5}
	text := p.Build()
	assert.Contains(t, text, "PERFORMANCE")
	assert.NotContains(t, text, "BUILDER_MAPPING")
	assert.Contains(t, text, "at most 5")
	assert.Contains(t, text, "JSON array")

	// Empty prompt config enables everything.
	all := Prompt{}.Build()
	for _, c := range analysis.Categories() {
		assert.Contains(t, all, string(c))
	}
}

func TestSubmitParsesResponse(t *testing.T) {
	response := "```json\n" + `[
  {"category": "performance", "severity": "warn", "title": "Stimulus in loop",
   "explanation": "move it out", "start_line": 2, "end_line": 2},
  {"category": "nonsense", "severity": "warn", "title": "skipped"},
  {"category": "best_practice", "severity": "bogus", "title": "also skipped"},
  {"category": "builder_mapping", "severity": "info", "title": "Use a TrialHandler", "start_line": 1}
]` + "\n```"

	c := &client{name: OpenAI, model: &stubModel{response: response}}
	findings, err := c.Submit(context.Background(), "for i in range(2):\n    pass", Prompt{})
	require.NoError(t, err)
	require.Len(t, findings, 2)

	assert.Equal(t, analysis.Performance, findings[0].Category)
	assert.Equal(t, analysis.Warn, findings[0].Severity)
	assert.Equal(t, 2, findings[0].StartLine)
	assert.Equal(t, analysis.RemoteSource("openai"), findings[0].Source)
	assert.True(t, findings[0].Source.IsRemote())

	assert.Equal(t, analysis.BuilderMapping, findings[1].Category)
}

func TestSubmitMalformedResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"prose only", "I cannot analyze this script."},
		{"broken json", "[{\"category\": }"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &client{name: Anthropic, model: &stubModel{response: tt.response}}
			_, err := c.Submit(context.Background(), "x = 1", Prompt{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Equal(t, "MALFORMED_RESPONSE", Kind(err))
		})
	}
}

func TestSubmitTimeout(t *testing.T) {
	c := &client{name: OpenAI, model: &stubModel{response: "[]", delay: time.Second}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	_, err := c.Submit(ctx, "x = 1", Prompt{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, "NETWORK_ERROR", Kind(err))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthorized", errors.New("API returned unexpected status code: 401 Unauthorized"), ErrAuth},
		{"bad key", errors.New("error, status code: 403, message: invalid api key"), ErrAuth},
		{"rate limit", errors.New("status code: 429, message: Rate limit reached"), ErrRateLimited},
		{"quota", errors.New("status code: 429, message: You exceeded your current quota"), ErrQuota},
		{"deadline", context.DeadlineExceeded, ErrNetwork},
		{"connection refused", fmt.Errorf("dial tcp: %w", errors.New("connection refused")), ErrNetwork},
		{"anything else", errors.New("mystery failure"), ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tt.err), tt.want)
		})
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "azure"})
	assert.Error(t, err)
}
