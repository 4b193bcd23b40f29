package analyzer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/labcheck/pkg/analysis"
	"github.com/fyrsmithlabs/labcheck/pkg/provider"
	"github.com/fyrsmithlabs/labcheck/pkg/script"
)

// fakeSubmitter scripts the provider boundary.
type fakeSubmitter struct {
	findings []analysis.Finding
	err      error
	blockCtx bool // block until the context expires, then fail as network
	calls    int
	lastText string
}

func (f *fakeSubmitter) Name() provider.Name { return provider.OpenAI }

func (f *fakeSubmitter) Submit(ctx context.Context, sanitized string, _ provider.Prompt) ([]analysis.Finding, error) {
	f.calls++
	f.lastText = sanitized
	if f.blockCtx {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %v", provider.ErrNetwork, ctx.Err())
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.findings, nil
}

func newTestAnalyzer(fake *fakeSubmitter) *Analyzer {
	return New(nil, WithSubmitterFactory(func(provider.Config) (provider.Submitter, error) {
		return fake, nil
	}))
}

func remoteConfig() Config {
	cfg := DefaultConfig()
	cfg.Remote.Enabled = true
	cfg.Remote.Provider = provider.OpenAI
	cfg.Remote.APIKey = "sk-test-0000000000"
	cfg.Remote.Timeout = time.Second
	return cfg
}

func TestAnalyzeLocalOnly(t *testing.T) {
	a := New(nil)
	doc := script.Document{Name: "exp.py", Text: "for i in range(100):\n    s = make_stimulus()\n    s.draw()"}

	result, err := a.Analyze(context.Background(), doc, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, analysis.StatusComplete, result.Status)
	require.NotEmpty(t, result.Findings)

	var perf []analysis.Finding
	for _, f := range result.Findings {
		if f.Category == analysis.Performance {
			perf = append(perf, f)
		}
	}
	require.NotEmpty(t, perf)
	assert.Equal(t, 2, perf[0].StartLine)
	assert.Equal(t, analysis.SourceLocal, perf[0].Source)
	assert.True(t, result.Report.SafeToTransmit)
}

func TestAnalyzeBlocksTransmission(t *testing.T) {
	fake := &fakeSubmitter{findings: []analysis.Finding{{
		Category: analysis.Performance, Severity: analysis.Warn,
		Title: "remote", Source: analysis.RemoteSource("openai"),
	}}}
	a := newTestAnalyzer(fake)

	doc := script.Document{Name: "exp.py", Text: "api_key = \"sk-ABCDEF123456\"\nwin = visual.Window()\nwin.close()\ncore.quit()\n"}
	result, err := a.Analyze(context.Background(), doc, remoteConfig())
	require.NoError(t, err)

	assert.Equal(t, analysis.StatusPartialLocalOnly, result.Status)
	assert.False(t, result.Report.SafeToTransmit)
	assert.Zero(t, fake.calls, "provider must never be invoked when transmission is blocked")

	var blocked bool
	for _, f := range result.Findings {
		if f.Category == analysis.Privacy && f.Severity == analysis.Warn {
			blocked = true
		}
		assert.False(t, f.Source.IsRemote())
	}
	assert.True(t, blocked, "expected a privacy notice about the blocked transmission")
}

func TestAnalyzeTransmitOverride(t *testing.T) {
	fake := &fakeSubmitter{}
	a := newTestAnalyzer(fake)

	cfg := remoteConfig()
	cfg.Remote.TransmitOverride = true

	doc := script.Document{Text: "api_key = \"sk-ABCDEF123456\"\nx = 1\n"}
	result, err := a.Analyze(context.Background(), doc, cfg)
	require.NoError(t, err)

	assert.Equal(t, analysis.StatusComplete, result.Status)
	assert.Equal(t, 1, fake.calls)
	assert.True(t, result.Report.Overridden)

	// The provider only ever sees redacted text.
	assert.NotContains(t, fake.lastText, "sk-ABCDEF123456")
	assert.Contains(t, fake.lastText, "<API_KEY>")
}

func TestAnalyzeProviderTimeout(t *testing.T) {
	fake := &fakeSubmitter{blockCtx: true}
	a := newTestAnalyzer(fake)

	cfg := remoteConfig()
	cfg.Remote.Timeout = time.Millisecond

	doc := script.Document{Text: "time.sleep(1)\nstim.draw()\n"}
	result, err := a.Analyze(context.Background(), doc, cfg)
	require.NoError(t, err)

	assert.Equal(t, analysis.StatusPartialLocalOnly, result.Status)
	assert.Equal(t, 1, fake.calls)

	var meta, local bool
	for _, f := range result.Findings {
		if f.Category == analysis.Privacy && f.Title == "Remote analysis unavailable (NETWORK_ERROR)" {
			meta = true
		}
		if f.Category == analysis.Performance {
			local = true
		}
	}
	assert.True(t, meta, "expected a meta finding for the provider failure")
	assert.True(t, local, "local findings must survive a provider failure")
}

func TestAnalyzeRemoteSuccess(t *testing.T) {
	remote := analysis.Finding{
		Category: analysis.BuilderMapping, Severity: analysis.Info,
		Title: "Use a TrialHandler", StartLine: 9, Source: analysis.RemoteSource("openai"),
	}
	fake := &fakeSubmitter{findings: []analysis.Finding{remote}}
	a := newTestAnalyzer(fake)

	doc := script.Document{Text: "time.sleep(1)\n"}
	result, err := a.Analyze(context.Background(), doc, remoteConfig())
	require.NoError(t, err)

	assert.Equal(t, analysis.StatusComplete, result.Status)
	require.NotEmpty(t, result.Findings)

	// Local findings first, remote appended after, internal order preserved.
	assert.Equal(t, analysis.SourceLocal, result.Findings[0].Source)
	last := result.Findings[len(result.Findings)-1]
	assert.Equal(t, remote.Title, last.Title)
	assert.True(t, last.Source.IsRemote())
}

func TestAnalyzeDedup(t *testing.T) {
	t.Run("two local rules on one line", func(t *testing.T) {
		a := New(nil)
		doc := script.Document{Text: "k1 = 'space'\nk2 = 'space'\nresp = event.waitKeys(keyList=['space'])\n"}

		result, err := a.Analyze(context.Background(), doc, DefaultConfig())
		require.NoError(t, err)

		var best []analysis.Finding
		for _, f := range result.Findings {
			if f.Category == analysis.BestPractice {
				best = append(best, f)
			}
		}
		require.Len(t, best, 1, "overlapping findings of one category collapse to the first seen")
		assert.Contains(t, best[0].Title, "repeated")
	})

	t.Run("local shadows remote on same lines", func(t *testing.T) {
		fake := &fakeSubmitter{findings: []analysis.Finding{{
			Category: analysis.Performance, Severity: analysis.Warn,
			Title: "remote duplicate", StartLine: 1, Source: analysis.RemoteSource("openai"),
		}}}
		a := newTestAnalyzer(fake)

		doc := script.Document{Text: "time.sleep(1)\n"}
		result, err := a.Analyze(context.Background(), doc, remoteConfig())
		require.NoError(t, err)

		var perf []analysis.Finding
		for _, f := range result.Findings {
			if f.Category == analysis.Performance {
				perf = append(perf, f)
			}
		}
		require.Len(t, perf, 1)
		assert.Equal(t, analysis.SourceLocal, perf[0].Source)
	})
}

func TestAnalyzeParseDegradation(t *testing.T) {
	a := New(nil)
	doc := script.Document{Name: "broken.py", Text: "win = visual.Window(\ntime.sleep(1)\n"}

	result, err := a.Analyze(context.Background(), doc, DefaultConfig())
	require.NoError(t, err, "invalid syntax must not raise past the detector boundary")

	assert.Equal(t, analysis.StatusPartialLocalOnly, result.Status)

	var parseNote, sleep bool
	for _, f := range result.Findings {
		if f.Title == "Script could not be fully parsed" {
			parseNote = true
		}
		if f.Category == analysis.Performance {
			sleep = true
		}
	}
	assert.True(t, parseNote)
	assert.True(t, sleep, "line-based rules still run on unparseable source")
}

func TestAnalyzeEmptyInput(t *testing.T) {
	a := New(nil)
	for _, text := range []string{"", "   \n\n", "# nothing here\n"} {
		result, err := a.Analyze(context.Background(), script.Document{Text: text}, DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, analysis.StatusFailed, result.Status)
		assert.Empty(t, result.Findings)
	}
}

func TestAnalyzeCategoryFilter(t *testing.T) {
	a := New(nil)
	cfg := DefaultConfig()
	cfg.Categories = []analysis.Category{analysis.Performance}

	doc := script.Document{Text: "a = 'left'\nb = 'left'\nc = 'left'\ntime.sleep(1)\n"}
	result, err := a.Analyze(context.Background(), doc, cfg)
	require.NoError(t, err)

	for _, f := range result.Findings {
		assert.Contains(t, []analysis.Category{analysis.Performance, analysis.Privacy}, f.Category)
	}
}

func TestAnalyzeSequence(t *testing.T) {
	a := New(nil)
	doc := script.Document{Text: "x = 1\ny = 2\n"}

	r1, err := a.Analyze(context.Background(), doc, DefaultConfig())
	require.NoError(t, err)
	r2, err := a.Analyze(context.Background(), doc, DefaultConfig())
	require.NoError(t, err)

	assert.Greater(t, r2.Seq, r1.Seq)
	assert.Equal(t, r2.Seq, a.Seq())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Remote.Provider = "azure" }},
		{"zero timeout", func(c *Config) { c.Remote.Timeout = 0 }},
		{"missing key", func(c *Config) { c.Remote.APIKey = "" }},
		{"anthropic key on openai", func(c *Config) { c.Remote.APIKey = "sk-ant-oops" }},
		{"openai key on anthropic", func(c *Config) {
			c.Remote.Provider = provider.Anthropic
			c.Remote.APIKey = "sk-wrongshape"
		}},
		{"unknown category", func(c *Config) { c.Categories = []analysis.Category{"SPEED"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := remoteConfig()
			tt.mutate(&cfg)

			a := New(nil)
			_, err := a.Analyze(context.Background(), script.Document{Text: "x = 1"}, cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	t.Run("local-only config needs no key", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})
}
