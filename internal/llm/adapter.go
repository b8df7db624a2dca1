package llm

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// stopReasons maps provider finish reasons to the normalized set.
var stopReasons = map[string]string{
	// Anthropic
	"end_turn":      StopEnd,
	"stop_sequence": StopEnd,
	"max_tokens":    StopMaxTokens,
	"refusal":       StopRefused,

	// OpenAI-compatible
	"stop":           StopEnd,
	"length":         StopMaxTokens,
	"content_filter": StopRefused,

	// Gemini
	"STOP":               StopEnd,
	"MAX_TOKENS":         StopMaxTokens,
	"SAFETY":             StopRefused,
	"RECITATION":         StopRefused,
	"BLOCKLIST":          StopRefused,
	"PROHIBITED_CONTENT": StopRefused,
	"SPII":               StopRefused,
}

func normalizeStop(raw string) string {
	if r, ok := stopReasons[raw]; ok {
		return r
	}
	return StopEnd
}

// backendError classifies a failed call by its HTTP status. Deadline
// errors become ErrTimeout whatever the status.
func backendError(err error, status int, retryAfter string) error {
	if te := mapContextError(err); te != nil {
		return te
	}
	if status == http.StatusTooManyRequests {
		return &ErrRateLimit{RetryAfter: parseRetryAfter(retryAfter, time.Now()), Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}

// parseRetryAfter reads a Retry-After header in seconds or HTTP-date form.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

// resolveModel maps a friendly model name to a provider model ID. Unknown
// names pass through as direct model IDs.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
