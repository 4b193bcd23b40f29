package sanitize

import (
	"fmt"
	"regexp"
)

// Config configures a Scanner.
type Config struct {
	// Override marks the caller as having acknowledged the transmission risk.
	// With Override set, SafeToTransmit is true even when spans are found.
	Override bool `koanf:"override"`

	// Extended enables the gitleaks rule set in addition to the built-in
	// category matchers.
	Extended bool `koanf:"extended"`

	// AllowList contains regex patterns whose matches are never redacted.
	AllowList []string `koanf:"allow_list"`

	// AllowListPath optionally points to a TOML allowlist file.
	AllowListPath string `koanf:"allow_list_path"`
}

// matcher pairs a compiled pattern with its category.
type matcher struct {
	category Category
	pattern  *regexp.Regexp
}

// builtinMatchers returns the category matchers in priority order.
//
// The patterns deliberately cover the assignment as a whole (name, operator
// and quoted value) so the redacted text carries no hint of the value shape.
func builtinMatchers() []matcher {
	return []matcher{
		{APIKey, regexp.MustCompile(`(?i)(?:api[_-]?key|apikey|auth[_-]?token|token)\s*[:=]\s*["'][^"']{12,}["']`)},
		{APIKey, regexp.MustCompile(`\bsk-(?:ant-)?[A-Za-z0-9_\-]{12,}\b`)},
		{APIKey, regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36}\b`)},
		{DBURL, regexp.MustCompile(`(?i)\b(?:mysql|postgres(?:ql)?|mongodb(?:\+srv)?|redis|amqps?)://[^\s"']+`)},
		{DBURL, regexp.MustCompile(`(?i)\bhttps?://[^:\s"']+:[^@\s"']+@[^\s"']+`)},
		{GenericSecret, regexp.MustCompile(`(?i)(?:secret|password|passwd|pwd)\s*[:=]\s*["'][^"']{8,}["']`)},
		{Email, regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)},
		{FilePath, regexp.MustCompile(`(?:/home/|/Users/)[^\s"']+`)},
		{FilePath, regexp.MustCompile(`[A-Za-z]:\\Users\\[^\s"']+`)},
	}
}

// compileAllowList compiles the configured allowlist patterns, including those
// loaded from the optional TOML file.
func (c *Config) compileAllowList() ([]*regexp.Regexp, error) {
	patterns := append([]string(nil), c.AllowList...)

	if c.AllowListPath != "" {
		extra, err := LoadAllowlist(c.AllowListPath)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, extra.Regexes...)
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAllowPattern, p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
