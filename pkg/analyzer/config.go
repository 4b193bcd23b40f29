package analyzer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/labcheck/pkg/analysis"
	"github.com/fyrsmithlabs/labcheck/pkg/provider"
	"github.com/fyrsmithlabs/labcheck/pkg/sanitize"
)

// ErrInvalidConfig indicates a configuration that cannot be analyzed with.
// It is the only fatal condition: it is returned before any analysis runs.
var ErrInvalidConfig = errors.New("invalid analysis configuration")

// RemoteConfig controls the optional provider escalation.
type RemoteConfig struct {
	// Enabled requests remote analysis in addition to local detection.
	Enabled bool `koanf:"enabled"`

	// Provider selects the LLM service.
	Provider provider.Name `koanf:"provider"`

	// Model overrides the provider's default model.
	Model string `koanf:"model"`

	// APIKey authenticates against the provider.
	APIKey string `koanf:"api_key"`

	// Timeout bounds the single provider call.
	Timeout time.Duration `koanf:"timeout"`

	// TransmitOverride acknowledges detected sensitive content and allows
	// transmission of the sanitized text anyway.
	TransmitOverride bool `koanf:"transmit_override"`
}

// Config is the per-call analysis configuration. There is no process-wide
// state: every Analyze call carries its own value.
type Config struct {
	// Categories enables a subset of finding categories. Empty enables all.
	Categories []analysis.Category `koanf:"categories"`

	Remote   RemoteConfig    `koanf:"remote"`
	Sanitize sanitize.Config `koanf:"sanitize"`
}

// DefaultConfig returns a local-only configuration with all categories.
func DefaultConfig() Config {
	return Config{
		Remote: RemoteConfig{
			Provider: provider.OpenAI,
			Timeout:  30 * time.Second,
		},
	}
}

// Validate checks the configuration before any analysis work happens.
func (c Config) Validate() error {
	for _, cat := range c.Categories {
		if _, err := analysis.ParseCategory(string(cat)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	if !c.Remote.Enabled {
		return nil
	}

	name, err := provider.ParseName(string(c.Remote.Provider))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("%w: remote timeout must be positive", ErrInvalidConfig)
	}
	if c.Remote.APIKey == "" {
		return fmt.Errorf("%w: remote analysis requires an API key", ErrInvalidConfig)
	}
	if err := checkKeyFormat(name, c.Remote.APIKey); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// checkKeyFormat is a shape check on provider credentials, catching keys
// pasted into the wrong provider slot before any network call.
func checkKeyFormat(name provider.Name, key string) error {
	switch name {
	case provider.OpenAI:
		if !strings.HasPrefix(key, "sk-") || strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("openai API keys start with sk-")
		}
	case provider.Anthropic:
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("anthropic API keys start with sk-ant-")
		}
	}
	return nil
}

// enabled reports whether a category passed the filter. PRIVACY findings are
// always kept so policy notices cannot be filtered away.
func (c Config) enabled(cat analysis.Category) bool {
	if cat == analysis.Privacy || len(c.Categories) == 0 {
		return true
	}
	for _, e := range c.Categories {
		if e == cat {
			return true
		}
	}
	return false
}
