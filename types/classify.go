package types

import "strings"

// Classification is an HTTP-style status plus a user-safe message derived
// from a raw error.
type Classification struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Category ordering matters: a message containing both "quota" and "429"
// must land on 429 deterministically, and "unauthorized" must be matched
// before the network category. Network and parse failures deliberately get
// a generic user-facing message (vendor detail suppressed); configuration,
// quota, and auth failures pass the original message through because those
// are actionable by an administrator.

// Classify maps a raw error to an HTTP status code and a user-facing
// message by case-insensitive substring matching, first match wins.
func Classify(err error) Classification {
	msg := "unknown server error"
	if err != nil {
		msg = err.Error()
	}
	lower := strings.ToLower(msg)

	// Provider not configured (no key, disabled).
	if strings.Contains(lower, "not configured") || strings.Contains(lower, "must provide") {
		return Classification{Status: 503, Message: msg}
	}

	// Prompt template missing: an administrator configuration fault,
	// classified 503 rather than 404.
	if strings.Contains(lower, "prompt template") && strings.Contains(lower, "not found") {
		return Classification{Status: 503, Message: msg}
	}

	// Quota / rate limit.
	if containsAny(lower, "quota", "rate limit", "429", "too many requests") {
		return Classification{Status: 429, Message: msg}
	}

	// Invalid key / no access / no credits.
	if containsAny(lower,
		"key not valid", "invalid api key", "invalid_api_key",
		"permission", "credits", "unauthorized", "403", "401") {
		return Classification{Status: 403, Message: msg}
	}

	// Timeout / network.
	if containsAny(lower, "timeout", "connection refused", "econnrefused", "etimedout", "enetunreach", "network is unreachable", "no such host") {
		return Classification{Status: 502, Message: "Could not reach the AI service. Check the network connection."}
	}

	// Upstream returned an unparseable body.
	if containsAny(lower, "failed to parse", "json", "unexpected token", "invalid character") {
		return Classification{Status: 502, Message: "The AI service returned an invalid response. Try again."}
	}

	if err == nil || err.Error() == "" {
		return Classification{Status: 500, Message: "unknown server error"}
	}
	return Classification{Status: 500, Message: msg}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
