// ABOUTME: PluginInfo record returned by the plugin-information API.
// ABOUTME: Converts the loosely typed decoded response into a flat Go struct.

package wporg

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PluginInfo is a read-only snapshot of one plugin as reported by WordPress.org.
// Every field is optional; zero values mean the API did not send it.
type PluginInfo struct {
	Name             string            `json:"name,omitempty"`
	Slug             string            `json:"slug,omitempty"`
	Version          string            `json:"version,omitempty"`
	Author           string            `json:"author,omitempty"`
	AuthorProfile    string            `json:"author_profile,omitempty"`
	Requires         string            `json:"requires,omitempty"`
	Tested           string            `json:"tested,omitempty"`
	Rating           float64           `json:"rating,omitempty"`
	NumRatings       int64             `json:"num_ratings,omitempty"`
	Downloaded       int64             `json:"downloaded,omitempty"`
	LastUpdated      string            `json:"last_updated,omitempty"`
	Added            string            `json:"added,omitempty"`
	Homepage         string            `json:"homepage,omitempty"`
	DownloadLink     string            `json:"download_link,omitempty"`
	ShortDescription string            `json:"short_description,omitempty"`
	Description      string            `json:"description,omitempty"`
	Sections         map[string]string `json:"sections,omitempty"`
	Contributors     map[string]string `json:"contributors,omitempty"`
}

// errAPI is returned when the API answers 200 but reports an error payload,
// e.g. for an unknown slug.
var errAPI = errors.New("api reported an error")

func pluginFromValue(v any) (*PluginInfo, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T", v)
	}
	if msg := stringField(m, "error"); msg != "" {
		return nil, fmt.Errorf("%w: %s", errAPI, msg)
	}

	return &PluginInfo{
		Name:             stringField(m, "name"),
		Slug:             stringField(m, "slug"),
		Version:          stringField(m, "version"),
		Author:           stringField(m, "author"),
		AuthorProfile:    stringField(m, "author_profile"),
		Requires:         stringField(m, "requires"),
		Tested:           stringField(m, "tested"),
		Rating:           floatField(m, "rating"),
		NumRatings:       intField(m, "num_ratings"),
		Downloaded:       intField(m, "downloaded"),
		LastUpdated:      stringField(m, "last_updated"),
		Added:            stringField(m, "added"),
		Homepage:         stringField(m, "homepage"),
		DownloadLink:     stringField(m, "download_link"),
		ShortDescription: stringField(m, "short_description"),
		Description:      stringField(m, "description"),
		Sections:         stringMap(m, "sections"),
		Contributors:     stringMap(m, "contributors"),
	}, nil
}

func stringField(m map[string]any, key string) string {
	return toString(m[key])
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "1"
		}
	}
	return ""
}

func floatField(m map[string]any, key string) float64 {
	switch x := m[key].(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f
	}
	return 0
}

func intField(m map[string]any, key string) int64 {
	switch x := m[key].(type) {
	case int64:
		return x
	case float64:
		return int64(x)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			f, _ := strconv.ParseFloat(strings.TrimSpace(x), 64)
			return int64(f)
		}
		return n
	}
	return 0
}

func stringMap(m map[string]any, key string) map[string]string {
	raw, ok := m[key].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = toString(v)
	}
	return out
}
