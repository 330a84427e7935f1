// ABOUTME: Failure kinds of the oEmbed endpoint and their fixed HTTP answers.
// ABOUTME: Malformed URLs and upstream lookup failures stay distinct internally but share a 404.

package oembed

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrForbidden         = errors.New("oembed: site key mismatch")
	ErrUnsupportedFormat = errors.New("oembed: unsupported format")
	ErrNotFound          = errors.New("oembed: url is not a plugin page")
	ErrUpstream          = errors.New("oembed: plugin lookup failed")
)

// Fixed response bodies.
const (
	BodyForbidden      = "Matt Mullenweg is sad."
	BodyNotImplemented = "Only json here, probably #blamenacin"
	BodyNotFound       = "Mike Little is lost, and afraid"
)

// UpstreamError wraps a failed plugin lookup.
type UpstreamError struct {
	Slug string
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("oembed: lookup %q: %v", e.Slug, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.Err}
}

// StatusFor maps an endpoint failure to its status and body. ok is false for
// errors outside the endpoint's taxonomy.
func StatusFor(err error) (status int, body string, ok bool) {
	switch {
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, BodyForbidden, true
	case errors.Is(err, ErrUnsupportedFormat):
		return http.StatusNotImplemented, BodyNotImplemented, true
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUpstream):
		return http.StatusNotFound, BodyNotFound, true
	}
	return 0, "", false
}

// resultLabel names the failure kind for metrics.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUpstream):
		return "upstream_failure"
	}
	return "internal_error"
}
