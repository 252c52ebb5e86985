package llm

import "strings"

// retryablePatterns groups transient error substrings by category, matched
// case-insensitively against err.Error(). The Gemini SDK does not expose
// sentinel errors for these failures, so string matching is the only
// classification available.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "resource exhausted", "429"}, // rate limiting
	{"500", "502", "503", "504", "unavailable", "overloaded"},     // transient server errors
	{"connection reset", "timeout", "deadline exceeded", "temporary"}, // network errors
}

// retryableError reports whether err is transient and worth retrying.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, pattern := range group {
			if strings.Contains(msg, pattern) {
				return true
			}
		}
	}
	return false
}
