package oracle

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"
)

// Kind buckets provider failures into the cases the controller handles
// differently. Quota exhaustion is terminal for the session, rate limits
// are transient, everything else falls back to deterministic behavior.
type Kind string

const (
	KindQuotaExhausted Kind = "quota_exhausted"
	KindRateLimited    Kind = "rate_limited"
	KindOther          Kind = "other"
)

// Error is a classified provider failure.
type Error struct {
	Kind       Kind
	Provider   Provider
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("oracle %s: %s (HTTP %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("oracle %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// quotaMarkers identify billing/quota exhaustion in provider error codes
// and messages. A 429 carrying one of these is permanent, not transient.
var quotaMarkers = []string{
	"insufficient_quota",
	"exceeded your current quota",
	"quota",
	"billing",
}

var rateLimitMarkers = []string{
	"rate limit",
	"rate_limit",
	"too many requests",
	"resource_exhausted",
	"429",
}

// Classify wraps err into an *Error with the failure kind the controller
// dispatches on. Typed provider errors carry status codes and headers;
// anything else is classified by message text.
func Classify(err error, provider Provider) *Error {
	if err == nil {
		return nil
	}

	var oerr *Error
	if errors.As(err, &oerr) {
		return oerr
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		var headers http.Header
		if apiErr.Response != nil {
			headers = apiErr.Response.Header
		}
		return classifyStatus(provider, apiErr.StatusCode, apiErr.Code+" "+apiErr.Message, headers, err)
	}

	var gerr genai.APIError
	if errors.As(err, &gerr) {
		return classifyStatus(provider, gerr.Code, gerr.Status+" "+gerr.Message, nil, err)
	}

	return classifyMessage(provider, err.Error(), err)
}

// classifyStatus maps an HTTP status plus error text to a failure kind.
// The text decides whether a 429 means exhausted quota or a momentary
// rate limit.
func classifyStatus(provider Provider, status int, text string, headers http.Header, err error) *Error {
	e := &Error{Provider: provider, StatusCode: status, Err: err}
	lower := strings.ToLower(text)

	switch {
	case status == http.StatusTooManyRequests && containsAny(lower, quotaMarkers):
		e.Kind = KindQuotaExhausted
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.RetryAfter = ParseRetryAfter(headers)
	default:
		e.Kind = KindOther
	}
	return e
}

// classifyMessage is the fallback for errors without a status code, such
// as transport failures or SDK-wrapped strings.
func classifyMessage(provider Provider, text string, err error) *Error {
	e := &Error{Provider: provider, Err: err}
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, quotaMarkers):
		e.Kind = KindQuotaExhausted
	case containsAny(lower, rateLimitMarkers):
		e.Kind = KindRateLimited
	default:
		e.Kind = KindOther
	}
	return e
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// IsQuotaExhausted reports whether err is a classified quota failure.
func IsQuotaExhausted(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindQuotaExhausted
}

// IsRateLimited reports whether err is a classified rate limit failure.
func IsRateLimited(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindRateLimited
}

// ParseRetryAfter extracts a retry delay from rate limit response
// headers. Returns 0 when no usable header is present.
func ParseRetryAfter(headers http.Header) time.Duration {
	if headers == nil {
		return 0
	}

	if ms := headers.Get("retry-after-ms"); ms != "" {
		if n, err := strconv.ParseInt(ms, 10, 64); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}

	if ra := headers.Get("retry-after"); ra != "" {
		if secs, err := strconv.ParseInt(ra, 10, 64); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		if t, err := http.ParseTime(ra); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
		}
	}

	if reset := headers.Get("x-ratelimit-reset-tokens"); reset != "" {
		if d, err := time.ParseDuration(reset); err == nil && d > 0 {
			return d
		}
	}

	return 0
}
