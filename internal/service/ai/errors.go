package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

var (
	// ErrUpstream is matched by every error returned from Ask.
	ErrUpstream     = errors.New("upstream model request failed")
	ErrUnauthorized = errors.New("upstream rejected credentials")
	ErrRateLimited  = errors.New("upstream rate limited")
	ErrUnavailable  = errors.New("upstream unavailable")
	ErrEmptyAnswer  = errors.New("upstream returned an empty answer")
)

// UpstreamError describes a failed provider call. Kind is one of the classification sentinels
// or nil when the failure could not be classified.
type UpstreamError struct {
	Provider  string
	Kind      error
	Err       error
	Transient bool
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	errs := []error{ErrUpstream}
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// classify maps a provider failure to an UpstreamError. Rate limits, 5xx responses, timeouts
// and network errors are transient.
func classify(provider string, err error) *UpstreamError {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue
	}
	out := &UpstreamError{Provider: provider, Err: err}

	if errors.Is(err, context.DeadlineExceeded) {
		out.Kind, out.Transient = ErrUnavailable, true
		return out
	}
	if errors.Is(err, context.Canceled) {
		return out
	}

	status := 0
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if status == 0 && errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		status = apiErrPtr.Code
	}
	if status == 0 {
		status = statusFromMessage(err.Error())
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		out.Kind = ErrUnauthorized
	case status == http.StatusTooManyRequests:
		out.Kind, out.Transient = ErrRateLimited, true
	case status >= 500:
		out.Kind, out.Transient = ErrUnavailable, true
	case status >= 400:
		// other client errors are permanent and left unclassified
	default:
		var netErr net.Error
		if errors.As(err, &netErr) {
			out.Kind, out.Transient = ErrUnavailable, true
		}
	}
	return out
}

// statusFromMessage recovers an HTTP status from SDK error text for providers whose error types
// are not exported through eino.
func statusFromMessage(msg string) int {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "status code: 429"), strings.Contains(lower, "429 too many requests"),
		strings.Contains(lower, "rate limit"), strings.Contains(lower, "resource_exhausted"):
		return http.StatusTooManyRequests
	case strings.Contains(lower, "status code: 401"), strings.Contains(lower, "401 unauthorized"),
		strings.Contains(lower, "invalid api key"), strings.Contains(lower, "invalid x-api-key"),
		strings.Contains(lower, "api_key_invalid"):
		return http.StatusUnauthorized
	case strings.Contains(lower, "status code: 403"), strings.Contains(lower, "403 forbidden"),
		strings.Contains(lower, "permission_denied"):
		return http.StatusForbidden
	}
	for _, code := range []int{500, 502, 503, 504, 529} {
		if strings.Contains(lower, fmt.Sprintf("status code: %d", code)) ||
			strings.Contains(lower, fmt.Sprintf("%d %s", code, strings.ToLower(http.StatusText(code)))) {
			return code
		}
	}
	if strings.Contains(lower, "overloaded") || strings.Contains(lower, "unavailable") {
		return http.StatusServiceUnavailable
	}
	return 0
}
