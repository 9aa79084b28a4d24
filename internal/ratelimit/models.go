// Package ratelimit caps request rates per client on the discovery API.
package ratelimit

import (
	"strings"
	"time"
)

// Limit is a request budget per window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of one check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until the window frees up,
// never less than one.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Round(time.Second) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// ExceededResponse is the 429 body.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// sanitizeKeySegment keeps caller-supplied identifiers from forging extra
// key segments.
func sanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// UserKey is the bucket key of a signed-in user.
func UserKey(userID string) string {
	return "user:" + sanitizeKeySegment(userID)
}

// IPKey is the bucket key of an anonymous client.
func IPKey(ip string) string {
	return "ip:" + sanitizeKeySegment(ip)
}
