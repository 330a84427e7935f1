// ABOUTME: Static front-end assets for rendering embeds.
// ABOUTME: The stylesheet is compiled into the binary and served under /assets/.

package assets

import (
	_ "embed"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// StylesheetPath is where pages link the embed stylesheet from.
const StylesheetPath = "/assets/wpdotorg-embed.css"

//go:embed wpdotorg-embed.css
var stylesheet []byte

// RegisterRoutes mounts the asset routes.
func RegisterRoutes(r chi.Router) {
	r.Get(StylesheetPath, serveStylesheet)
	r.Head(StylesheetPath, serveStylesheet)
}

func serveStylesheet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Length", strconv.Itoa(len(stylesheet)))
	w.Write(stylesheet)
}
