package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Failure taxonomy. Every provider error is folded into exactly one of these
// before it crosses the package boundary; raw provider payloads never leak.
var (
	// ErrAuth indicates rejected or missing credentials.
	ErrAuth = errors.New("provider authentication failed")

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("provider rate limit exceeded")

	// ErrNetwork indicates the provider could not be reached in time.
	ErrNetwork = errors.New("provider network error")

	// ErrQuota indicates the account is out of quota or billing headroom.
	ErrQuota = errors.New("provider quota exceeded")

	// ErrMalformedResponse indicates the provider answered with something
	// that cannot be parsed into findings.
	ErrMalformedResponse = errors.New("provider returned a malformed response")
)

// Kind returns the short machine name of a taxonomy error, or "unknown".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "AUTH_ERROR"
	case errors.Is(err, ErrRateLimited):
		return "RATE_LIMIT"
	case errors.Is(err, ErrQuota):
		return "QUOTA_EXCEEDED"
	case errors.Is(err, ErrMalformedResponse):
		return "MALFORMED_RESPONSE"
	case errors.Is(err, ErrNetwork):
		return "NETWORK_ERROR"
	}
	return "unknown"
}

// classify maps a transport or SDK error onto the taxonomy. Unrecognized
// errors count as network errors, which keeps the caller's degradation path
// uniform.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "invalid api key") || strings.Contains(msg, "api key not valid"):
		return fmt.Errorf("%w: %v", ErrAuth, err)
	case strings.Contains(msg, "quota") || strings.Contains(msg, "billing"):
		return fmt.Errorf("%w: %v", ErrQuota, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests"):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	default:
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
}
