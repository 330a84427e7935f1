// ABOUTME: Tests for the access log line formatter.
// ABOUTME: Captures output in a buffer and checks the site key never appears.

package logging

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const siteKey = "c0a1ea7f2bd5dafb3ff02965747f31cf"

func TestAccessLog_MasksSiteKey(t *testing.T) {
	var buf bytes.Buffer
	var handlerSaw string
	handler := AccessLog(log.New(&buf, "", 0))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerSaw = r.URL.Query().Get("wpdotorg_oembed")
		w.WriteHeader(http.StatusOK)
	}))

	target := "/?format=json&url=http%3A%2F%2Fwordpress.org%2Fextend%2Fplugins%2Fakismet%2F&wpdotorg_oembed=" + siteKey
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))

	line := buf.String()
	if strings.Contains(line, siteKey) {
		t.Errorf("access log contains the site key: %s", line)
	}
	if !strings.Contains(line, "wpdotorg_oembed="+RedactedKey) {
		t.Errorf("access log should show the masked marker: %s", line)
	}
	if !strings.Contains(line, "akismet") || !strings.Contains(line, "200") {
		t.Errorf("access log lost request details: %s", line)
	}
	if handlerSaw != siteKey {
		t.Errorf("handler saw key %q, want the original %q", handlerSaw, siteKey)
	}
}

func TestAccessLog_LeavesOtherRequestsAlone(t *testing.T) {
	var buf bytes.Buffer
	handler := AccessLog(log.New(&buf, "", 0))(http.NotFoundHandler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/assets/x.css?v=2", nil))

	if !strings.Contains(buf.String(), "/assets/x.css?v=2") {
		t.Errorf("access log = %q, want the original URI", buf.String())
	}
}

func TestRedactURI(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"/?a=1", "/?a=1"},
		{"/?wpdotorg_oembed=" + siteKey, "/?wpdotorg_oembed=" + RedactedKey},
		{"/?wpdotorg_oembed", "/?wpdotorg_oembed=" + RedactedKey},
		{"/?url=x&wpdotorg_oembed=" + siteKey + "&wpdotorg_oembed=again", "/?url=x&wpdotorg_oembed=" + RedactedKey},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, tt.target, nil)
		if got := RedactURI(r); got != tt.want {
			t.Errorf("RedactURI(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}
