// ABOUTME: The local oEmbed endpoint for WordPress.org plugin URLs.
// ABOUTME: Authorizes by site key, validates format and url, fetches the plugin, answers with JSON.

package oembed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"

	apierrors "github.com/2389/wpembed/internal/errors"
	"github.com/2389/wpembed/internal/metrics"
	"github.com/2389/wpembed/internal/wporg"
)

// MarkerParam is the query parameter that both routes a request to the
// endpoint and carries the site key.
const MarkerParam = "wpdotorg_oembed"

var pluginURL = regexp.MustCompile(`(?i)^https?://wordpress\.org/extend/plugins/([^/]*)/?$`)

// KeyChecker validates the site key presented by a request.
type KeyChecker interface {
	Matches(ctx context.Context, candidate string) (bool, error)
}

// PluginFetcher retrieves plugin information by slug.
type PluginFetcher interface {
	GetPluginInfo(ctx context.Context, slug string) (*wporg.PluginInfo, error)
}

type Handler struct {
	keys     KeyChecker
	plugins  PluginFetcher
	renderer *Renderer
}

func NewHandler(keys KeyChecker, plugins PluginFetcher) *Handler {
	return &Handler{
		keys:     keys,
		plugins:  plugins,
		renderer: NewRenderer(),
	}
}

// Dispatch sends requests that carry MarkerParam in the query string to
// endpoint and lets every other request through to next.
func Dispatch(endpoint http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !r.URL.Query().Has(MarkerParam) {
				next.ServeHTTP(w, r)
				return
			}
			endpoint.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, err := h.handle(r)
	metrics.RecordOEmbed(resultLabel(err))
	if err != nil {
		writeFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		log.Printf("oembed: write response: %v", err)
	}
}

func (h *Handler) handle(r *http.Request) (*Response, error) {
	ok, err := h.keys.Matches(r.Context(), r.URL.Query().Get(MarkerParam))
	if err != nil {
		return nil, fmt.Errorf("check site key: %w", err)
	}
	if !ok {
		return nil, ErrForbidden
	}

	// FormValue covers both the query string and a POSTed form body.
	target := r.FormValue("url")
	format := r.FormValue("format")

	if format != "" && format != "json" {
		return nil, ErrUnsupportedFormat
	}

	slug, err := ExtractSlug(target)
	if err != nil {
		return nil, err
	}

	info, err := h.plugins.GetPluginInfo(r.Context(), slug)
	if err != nil {
		return nil, &UpstreamError{Slug: slug, Err: err}
	}
	return h.renderer.Render(slug, info), nil
}

// ExtractSlug pulls the plugin slug out of a wordpress.org plugin page URL.
func ExtractSlug(target string) (string, error) {
	if target == "" {
		return "", ErrNotFound
	}
	m := pluginURL.FindStringSubmatch(target)
	if m == nil || m[1] == "" {
		return "", ErrNotFound
	}
	return m[1], nil
}

func writeFailure(w http.ResponseWriter, err error) {
	status, body, ok := StatusFor(err)
	if !ok {
		log.Printf("oembed: %v", err)
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrInternal, "Failed to handle oEmbed request")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
