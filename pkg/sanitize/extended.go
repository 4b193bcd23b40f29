package sanitize

import (
	"fmt"
	"strings"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// extendedDetector wraps the gitleaks detector to widen coverage beyond the
// built-in category matchers. Gitleaks rule IDs are folded into the same
// category taxonomy so downstream consumers see one Span shape.
type extendedDetector struct {
	detector *detect.Detector
}

func newExtendedDetector() (*extendedDetector, error) {
	d, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("creating gitleaks detector: %w", err)
	}
	return &extendedDetector{detector: d}, nil
}

// collect converts gitleaks findings into redaction candidates. Secrets are
// located by searching for the matched value so offsets line up with the
// input text regardless of how gitleaks indexes lines; the value itself never
// leaves this function.
func (e *extendedDetector) collect(text string) []candidate {
	findings := e.detector.DetectString(text)

	var candidates []candidate
	seen := make(map[candidate]struct{})
	for _, f := range findings {
		secret := f.Secret
		if secret == "" {
			secret = f.Match
		}
		if secret == "" {
			continue
		}

		cat := categoryForRule(f.RuleID)
		for from := 0; ; {
			i := strings.Index(text[from:], secret)
			if i < 0 {
				break
			}
			c := candidate{
				start:    from + i,
				end:      from + i + len(secret),
				category: cat,
			}
			if _, dup := seen[c]; !dup {
				seen[c] = struct{}{}
				candidates = append(candidates, c)
			}
			from = c.end
		}
	}
	return candidates
}

// categoryForRule maps a gitleaks rule ID onto the span taxonomy.
func categoryForRule(ruleID string) Category {
	id := strings.ToLower(ruleID)
	switch {
	case strings.Contains(id, "connection") || strings.Contains(id, "-url") || strings.Contains(id, "uri"):
		return DBURL
	case strings.Contains(id, "key") || strings.Contains(id, "token") ||
		strings.Contains(id, "pat") || strings.Contains(id, "api"):
		return APIKey
	default:
		return GenericSecret
	}
}
