// Error taxonomy for the orchestration layer.
//
// Only Request surfaces these; Enhance converts every failure into the
// deterministic fallback result.

package enhancer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoProviderConfigured is returned when no backend has a credential and
// the caller named none explicitly.
var ErrNoProviderConfigured = errors.New("no provider configured")

// ErrDisabled is returned by Request when the enhancement feature is
// globally disabled.
var ErrDisabled = errors.New("enhancement disabled")

// AllProvidersError is raised when the fallback chain is exhausted, carrying
// the last backend error.
type AllProvidersError struct {
	Attempts int
	LastErr  error
}

func (e *AllProvidersError) Error() string {
	if e.LastErr == nil {
		return fmt.Sprintf("all providers failed after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("all providers failed after %d attempts, last error: %v", e.Attempts, e.LastErr)
}

func (e *AllProvidersError) Unwrap() error {
	return e.LastErr
}

// authErrorPatterns are the textual signals treated as a credential rejection.
var authErrorPatterns = []string{
	"unauthorized",
	"forbidden",
	"invalid api key",
	"incorrect api key",
	"invalid x-api-key",
	"authentication",
	"permission denied",
}

// authStatusCodes are matched as standalone numbers so unrelated digit runs
// in an error message (byte counts, latencies) cannot abort the chain.
var authStatusCodes = []string{"401", "403"}

// isAuthError classifies a backend failure as a credential rejection based
// on the status/class hints carried in the error text.
func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range authErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	for _, code := range authStatusCodes {
		if containsStandaloneNumber(msg, code) {
			return true
		}
	}
	return false
}

// containsStandaloneNumber reports whether code occurs in msg with no
// adjacent digit on either side.
func containsStandaloneNumber(msg, code string) bool {
	for from := 0; ; {
		i := strings.Index(msg[from:], code)
		if i < 0 {
			return false
		}
		i += from
		end := i + len(code)
		if (i == 0 || !isDigit(msg[i-1])) && (end == len(msg) || !isDigit(msg[end])) {
			return true
		}
		from = i + 1
	}
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
