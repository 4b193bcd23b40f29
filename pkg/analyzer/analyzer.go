// Package analyzer orchestrates one analysis request end to end: sanitize,
// detect locally, optionally escalate the sanitized text to a provider, and
// aggregate everything into a single result.
//
// A request is synchronous from the caller's perspective. The provider call
// is the only operation that blocks on the network and it is bounded by the
// configured timeout. Each request owns its document, report and findings, so
// concurrent analyses need no locking; results carry a monotonically
// increasing sequence number so callers can discard stale ones.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/labcheck/pkg/analysis"
	"github.com/fyrsmithlabs/labcheck/pkg/detect"
	"github.com/fyrsmithlabs/labcheck/pkg/provider"
	"github.com/fyrsmithlabs/labcheck/pkg/sanitize"
	"github.com/fyrsmithlabs/labcheck/pkg/script"
)

// Analyzer runs analysis requests. Safe for concurrent use.
type Analyzer struct {
	logger   *zap.Logger
	detector *detect.Detector
	seq      atomic.Uint64

	// newSubmitter builds the provider client; replaced in tests.
	newSubmitter func(provider.Config) (provider.Submitter, error)
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithDetector replaces the default rule set.
func WithDetector(d *detect.Detector) Option {
	return func(a *Analyzer) { a.detector = d }
}

// WithSubmitterFactory replaces the provider client constructor.
func WithSubmitterFactory(f func(provider.Config) (provider.Submitter, error)) Option {
	return func(a *Analyzer) { a.newSubmitter = f }
}

// New creates an Analyzer. A nil logger disables logging.
func New(logger *zap.Logger, opts ...Option) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Analyzer{
		logger:       logger,
		detector:     detect.New(),
		newSubmitter: provider.New,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Seq returns the sequence number of the most recently started request.
// Callers holding results with a lower sequence know they are stale.
func (a *Analyzer) Seq() uint64 {
	return a.seq.Load()
}

// Analyze runs one request. Only an invalid configuration is returned as an
// error; every other condition degrades the result instead.
func (a *Analyzer) Analyze(ctx context.Context, doc script.Document, cfg Config) (*analysis.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seq := a.seq.Add(1)
	start := time.Now()

	if strings.TrimSpace(doc.Text) == "" {
		a.logger.Warn("nothing to analyze", zap.String("doc", doc.Name), zap.Uint64("seq", seq))
		return &analysis.Result{
			Seq:      seq,
			Status:   analysis.StatusFailed,
			Findings: []analysis.Finding{},
			Report:   sanitize.Report{Risk: sanitize.RiskNone, SafeToTransmit: true},
			Duration: time.Since(start),
		}, nil
	}

	sanCfg := cfg.Sanitize
	sanCfg.Override = cfg.Remote.TransmitOverride
	scanner, err := sanitize.New(sanCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	scan := scanner.Scan(doc.Text)

	// Local detection always runs on the original, unredacted text so line
	// numbers and excerpts match what the author sees.
	tree, parseErr := script.Parse(doc)
	if errors.Is(parseErr, script.ErrEmptySource) {
		return &analysis.Result{
			Seq:      seq,
			Status:   analysis.StatusFailed,
			Findings: []analysis.Finding{},
			Report:   scan.Report,
			Duration: time.Since(start),
		}, nil
	}

	var lines []script.Line
	if tree != nil {
		lines = tree.Lines
	} else {
		lines = script.Lines(doc)
	}

	local := a.detector.Detect(tree, lines)
	if parseErr != nil {
		local = append(local, parseFinding(parseErr))
	}
	local = append(local, privacyFindings(scan.Report)...)
	local = filter(local, cfg)

	remote := a.escalate(ctx, scan, cfg)
	remote.findings = filter(remote.findings, cfg)

	findings, status := aggregate(local, remote)
	if parseErr != nil && status == analysis.StatusComplete {
		status = analysis.StatusPartialLocalOnly
	}

	result := &analysis.Result{
		Seq:      seq,
		Status:   status,
		Findings: findings,
		Report:   scan.Report,
		Duration: time.Since(start),
	}

	a.logger.Info("analysis finished",
		zap.String("doc", doc.Name),
		zap.Uint64("seq", seq),
		zap.String("status", string(status)),
		zap.Int("findings", len(findings)),
		zap.Int("sensitive_spans", scan.Report.Total),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// escalate performs the provider call when it is requested and permitted.
func (a *Analyzer) escalate(ctx context.Context, scan *sanitize.Result, cfg Config) remoteOutcome {
	outcome := remoteOutcome{requested: cfg.Remote.Enabled}
	if !outcome.requested {
		return outcome
	}

	if !scan.Report.SafeToTransmit {
		a.logger.Warn("remote analysis blocked by risk policy",
			zap.Int("sensitive_spans", scan.Report.Total),
			zap.String("risk", string(scan.Report.Risk)),
		)
		outcome.blocked = true
		return outcome
	}

	submitter, err := a.newSubmitter(provider.Config{
		Provider: cfg.Remote.Provider,
		Model:    cfg.Remote.Model,
		APIKey:   cfg.Remote.APIKey,
	})
	if err != nil {
		outcome.err = err
		return outcome
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.Remote.Timeout)
	defer cancel()

	// The provider only ever sees the redacted text.
	findings, err := submitter.Submit(callCtx, scan.Redacted, provider.Prompt{
		Categories: cfg.Categories,
	})
	if err != nil {
		a.logger.Warn("remote analysis failed",
			zap.String("provider", string(cfg.Remote.Provider)),
			zap.String("kind", provider.Kind(err)),
		)
		outcome.err = err
		return outcome
	}

	outcome.findings = findings
	return outcome
}

// filter drops findings from disabled categories. PRIVACY findings always
// pass so policy notices survive any filter.
func filter(findings []analysis.Finding, cfg Config) []analysis.Finding {
	if len(cfg.Categories) == 0 {
		return findings
	}
	kept := findings[:0:0]
	for _, f := range findings {
		if cfg.enabled(f.Category) {
			kept = append(kept, f)
		}
	}
	return kept
}
