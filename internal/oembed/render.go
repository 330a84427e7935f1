// ABOUTME: Builds the rich oEmbed response for a WordPress.org plugin.
// ABOUTME: Plain fields are HTML-escaped; author and description markup goes through bluemonday.

package oembed

import (
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/2389/wpembed/internal/wporg"
)

// PluginPageBase prefixes the slug in the rendered link.
const PluginPageBase = "http://wordpress.org/extend/plugins/"

// Response is the oEmbed JSON document. Width and height are strings on the
// wire, as existing consumers expect.
type Response struct {
	Type    string `json:"type"`
	Width   string `json:"width"`
	Height  string `json:"height"`
	Version string `json:"version"`
	Title   string `json:"title"`
	HTML    string `json:"html"`
}

// Renderer turns PluginInfo into a Response.
type Renderer struct {
	policy *bluemonday.Policy
}

func NewRenderer() *Renderer {
	return &Renderer{policy: bluemonday.UGCPolicy()}
}

func (r *Renderer) Render(slug string, info *wporg.PluginInfo) *Response {
	return &Response{
		Type:    "rich",
		Width:   "10",
		Height:  "10",
		Version: "1.0",
		Title:   info.Description,
		HTML:    r.HTML(slug, info),
	}
}

// HTML renders the embed fragment. Optional parts are left out entirely when
// their source field is empty.
func (r *Renderer) HTML(slug string, info *wporg.PluginInfo) string {
	var b strings.Builder

	b.WriteString(`<div class="wpdotorg-embed wpdotorg-embed-plugin">`)
	b.WriteString(`<p><a href="` + PluginPageBase + html.EscapeString(slug) + `" target="_blank"><strong>`)
	b.WriteString(html.EscapeString(info.Name))
	b.WriteString(`</strong></a><br/>`)
	if !empty(info.Author) {
		b.WriteString(`by <span class="wpdotorg-embed-plugin-author">` + r.policy.Sanitize(info.Author) + `</span>`)
	}
	b.WriteString(`</p>`)

	if desc := info.Sections["description"]; !empty(desc) {
		b.WriteString(`<p class="wpdotorg-embed-plugin-description">` + r.policy.Sanitize(desc) + `</p>`)
	}

	if stats := statsItems(info); stats != "" {
		b.WriteString(`<p><strong>Stats:</strong></p><ul class="wpdotorg-embed-stats-list">` + stats + `</ul>`)
	}

	b.WriteString(`</div>`)
	return b.String()
}

func statsItems(info *wporg.PluginInfo) string {
	var b strings.Builder
	if !empty(info.Version) {
		b.WriteString(`<li>Current version: ` + html.EscapeString(info.Version) + `</li>`)
	}
	if info.Rating != 0 {
		rating := strconv.FormatFloat(info.Rating, 'f', -1, 64)
		count := strconv.FormatInt(info.NumRatings, 10)
		b.WriteString(`<li>Rating: ` + rating + ` (` + count + ` ratings)</li>`)
	}
	if info.Downloaded != 0 {
		b.WriteString(`<li>Downloaded ` + strconv.FormatInt(info.Downloaded, 10) + ` times</li>`)
	}
	return b.String()
}

// empty treats "0" as empty, as the API's PHP consumers do.
func empty(s string) bool {
	return s == "" || s == "0"
}
