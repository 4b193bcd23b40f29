package sanitize

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
)

var (
	// ErrInvalidAllowPattern indicates an allowlist regex failed to compile.
	ErrInvalidAllowPattern = errors.New("invalid allowlist pattern")

	// ErrInvalidAllowlistFile indicates an allowlist TOML file could not be parsed.
	ErrInvalidAllowlistFile = errors.New("invalid allowlist file")
)

// Allowlist holds content regex patterns that are never treated as sensitive.
type Allowlist struct {
	Regexes []string
}

// LoadAllowlist loads an allowlist TOML file:
//
//	[allowlist]
//	regexes = ["EXAMPLE_KEY_.*", "test@example\\.org"]
//
// A missing file yields an empty allowlist; an unreadable or invalid file is
// an error.
func LoadAllowlist(path string) (*Allowlist, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &Allowlist{}, nil
		}
		return nil, err
	}

	var config struct {
		Allowlist struct {
			Regexes []string
		}
	}
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAllowlistFile, path, err)
	}

	for _, pattern := range config.Allowlist.Regexes {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("%w: %q in %s: %v", ErrInvalidAllowPattern, pattern, path, err)
		}
	}

	return &Allowlist{Regexes: config.Allowlist.Regexes}, nil
}
