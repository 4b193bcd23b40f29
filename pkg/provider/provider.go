// Package provider adapts external LLM services behind one submission
// interface. Exactly one provider is active per call; selection and
// credentials come from the caller.
//
// Every failure is reported through the package's error taxonomy (ErrAuth,
// ErrRateLimited, ErrNetwork, ErrQuota, ErrMalformedResponse). A single
// attempt is made per submission; retry policy belongs to the caller.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/fyrsmithlabs/labcheck/pkg/analysis"
)

// Name identifies a supported provider.
type Name string

const (
	OpenAI    Name = "openai"
	Anthropic Name = "anthropic"
	GoogleAI  Name = "googleai"
)

// ParseName validates a provider name.
func ParseName(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	switch n {
	case OpenAI, Anthropic, GoogleAI:
		return n, nil
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// Config selects and configures a provider.
type Config struct {
	Provider Name   `koanf:"provider"`
	Model    string `koanf:"model"`
	APIKey   string `koanf:"api_key"`
}

// Submitter sends sanitized source text to a provider and returns normalized
// findings.
type Submitter interface {
	// Name identifies the active provider.
	Name() Name

	// Submit performs a single analysis call. The sanitized text must
	// already have sensitive content redacted. Blocking is bounded by the
	// context deadline.
	Submit(ctx context.Context, sanitized string, prompt Prompt) ([]analysis.Finding, error)
}

// client wraps one langchaingo model behind the Submitter interface.
type client struct {
	name  Name
	model llms.Model
}

// New creates a Submitter for the configured provider.
func New(cfg Config) (Submitter, error) {
	name, err := ParseName(string(cfg.Provider))
	if err != nil {
		return nil, err
	}

	var model llms.Model
	switch name {
	case OpenAI:
		model, err = newOpenAI(cfg)
	case Anthropic:
		model, err = newAnthropic(cfg)
	case GoogleAI:
		model, err = newGoogleAI(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", name, err)
	}

	return &client{name: name, model: model}, nil
}

func (c *client) Name() Name { return c.name }

func (c *client) Submit(ctx context.Context, sanitized string, prompt Prompt) ([]analysis.Finding, error) {
	full := prompt.Build() + "\n\nScript:\n" + sanitized

	response, err := llms.GenerateFromSinglePrompt(ctx, c.model, full,
		llms.WithTemperature(0.2),
		llms.WithMaxTokens(2000),
	)
	if err != nil {
		return nil, classify(err)
	}

	findings, err := parseFindings(response, c.name)
	if err != nil {
		return nil, err
	}
	return findings, nil
}

// wireFinding is the JSON shape the prompt asks providers to emit.
type wireFinding struct {
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
	Excerpt     string `json:"excerpt"`
	Suggestion  string `json:"suggestion"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
}

// parseFindings normalizes a raw model response into findings. Entries with
// unknown categories or severities are skipped; a response with no JSON array
// at all is malformed.
func parseFindings(raw string, name Name) ([]analysis.Finding, error) {
	payload := extractJSONArray(raw)
	if payload == "" {
		return nil, fmt.Errorf("%w: no JSON array in response", ErrMalformedResponse)
	}

	var wire []wireFinding
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	source := analysis.RemoteSource(string(name))
	findings := make([]analysis.Finding, 0, len(wire))
	for _, w := range wire {
		cat, err := analysis.ParseCategory(w.Category)
		if err != nil {
			continue
		}
		sev, err := analysis.ParseSeverity(w.Severity)
		if err != nil {
			continue
		}
		if w.Title == "" {
			continue
		}
		findings = append(findings, analysis.Finding{
			Category:    cat,
			Severity:    sev,
			Title:       w.Title,
			Explanation: w.Explanation,
			Excerpt:     w.Excerpt,
			Suggestion:  w.Suggestion,
			StartLine:   w.StartLine,
			EndLine:     w.EndLine,
			Source:      source,
		})
	}
	return findings, nil
}

// extractJSONArray pulls the outermost JSON array out of a response that may
// be wrapped in markdown fences or prose.
func extractJSONArray(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "["); i >= 0 {
		if j := strings.LastIndex(s, "]"); j > i {
			return s[i : j+1]
		}
	}
	return ""
}
