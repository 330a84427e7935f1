// ABOUTME: Route classification for request logging.
// ABOUTME: Labels a request by the part of the service that handles it.

package logging

import (
	"net/http"
	"strings"

	"github.com/2389/wpembed/internal/oembed"
)

const (
	RouteOEmbed  = "oembed"
	RouteSite    = "site"
	RouteAssets  = "assets"
	RouteHealth  = "health"
	RouteMetrics = "metrics"
	RouteUnknown = "unknown"
)

// RouteFor determines which part of the service handles r.
func RouteFor(r *http.Request) string {
	path := r.URL.Path
	switch {
	case path == "/healthz":
		return RouteHealth
	case path == "/metrics":
		return RouteMetrics
	case strings.HasPrefix(path, "/assets/"):
		return RouteAssets
	case path == "/" || path == "":
		if r.URL.Query().Has(oembed.MarkerParam) {
			return RouteOEmbed
		}
		return RouteSite
	}
	return RouteUnknown
}
