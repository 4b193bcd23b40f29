// Package config loads labcheck configuration from YAML and environment
// variables.
//
// Precedence, highest to lowest:
//  1. LABCHECK_* environment variables (LABCHECK_REMOTE_PROVIDER etc.)
//  2. YAML config file (~/.config/labcheck/config.yaml by default)
//  3. Hardcoded defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/labcheck/internal/logging"
	"github.com/fyrsmithlabs/labcheck/pkg/analysis"
	"github.com/fyrsmithlabs/labcheck/pkg/analyzer"
	"github.com/fyrsmithlabs/labcheck/pkg/provider"
	"github.com/fyrsmithlabs/labcheck/pkg/sanitize"
)

const maxConfigFileSize = 1024 * 1024

// RemoteConfig mirrors analyzer.RemoteConfig with string-typed fields for
// file and env loading.
type RemoteConfig struct {
	Enabled          bool          `koanf:"enabled"`
	Provider         string        `koanf:"provider"`
	Model            string        `koanf:"model"`
	APIKey           string        `koanf:"api_key"`
	Timeout          time.Duration `koanf:"timeout"`
	TransmitOverride bool          `koanf:"transmit_override"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// Config is the complete labcheck configuration.
type Config struct {
	Categories []string        `koanf:"categories"`
	Remote     RemoteConfig    `koanf:"remote"`
	Sanitize   sanitize.Config `koanf:"sanitize"`
	Logging    logging.Config  `koanf:"logging"`
	Server     ServerConfig    `koanf:"server"`
}

// Default returns the built-in defaults: local-only analysis, console
// logging, server on localhost:9290.
func Default() *Config {
	return &Config{
		Remote: RemoteConfig{
			Provider: string(provider.OpenAI),
			Timeout:  30 * time.Second,
		},
		Logging: logging.DefaultConfig(),
		Server:  ServerConfig{Host: "localhost", Port: 9290},
	}
}

// Load reads configuration from the YAML file at configPath (or the default
// location when empty), then applies LABCHECK_* environment overrides.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "labcheck", "config.yaml")
	}

	if content, err := readConfigFile(configPath); err != nil {
		return nil, err
	} else if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("LABCHECK_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// readConfigFile reads the config file if it exists. The file may hold API
// keys, so group/world access is rejected, as is anything over 1MB.
func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return nil, fmt.Errorf("config file %s must not be group or world accessible (chmod 600)", path)
	}

	return os.ReadFile(path)
}

// envTransform maps LABCHECK_REMOTE_API_KEY style variables onto config
// paths like remote.api_key.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "LABCHECK_"))
	for _, section := range []string{"remote", "sanitize", "logging", "server"} {
		if strings.HasPrefix(s, section+"_") {
			return section + "." + strings.TrimPrefix(s, section+"_")
		}
	}
	return s
}

// providerKeyEnv names the conventional API key variable per provider.
var providerKeyEnv = map[provider.Name]string{
	provider.OpenAI:    "OPENAI_API_KEY",
	provider.Anthropic: "ANTHROPIC_API_KEY",
	provider.GoogleAI:  "GOOGLE_API_KEY",
}

// ToAnalyzer converts the loaded configuration into a per-call analysis
// configuration. When no API key is configured, the provider's conventional
// environment variable is consulted.
func (c *Config) ToAnalyzer() (analyzer.Config, error) {
	out := analyzer.Config{
		Remote: analyzer.RemoteConfig{
			Enabled:          c.Remote.Enabled,
			Provider:         provider.Name(c.Remote.Provider),
			Model:            c.Remote.Model,
			APIKey:           c.Remote.APIKey,
			Timeout:          c.Remote.Timeout,
			TransmitOverride: c.Remote.TransmitOverride,
		},
		Sanitize: c.Sanitize,
	}

	for _, name := range c.Categories {
		cat, err := analysis.ParseCategory(name)
		if err != nil {
			return analyzer.Config{}, fmt.Errorf("%w: %v", analyzer.ErrInvalidConfig, err)
		}
		out.Categories = append(out.Categories, cat)
	}

	if out.Remote.APIKey == "" {
		if envVar, ok := providerKeyEnv[out.Remote.Provider]; ok {
			out.Remote.APIKey = os.Getenv(envVar)
		}
	}

	return out, nil
}
