// ABOUTME: Tests for HTTP request logging middleware.
// ABOUTME: Verifies body buffering limits, route classification and what ends up in the log.

package logging

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/2389/wpembed/internal/store"
)

type fakeLogger struct {
	entries chan *store.RequestLog
	err     error
}

func newFakeLogger() *fakeLogger {
	return &fakeLogger{entries: make(chan *store.RequestLog, 8)}
}

func (f *fakeLogger) LogRequest(entry *store.RequestLog) error {
	f.entries <- entry
	return f.err
}

func (f *fakeLogger) next(t *testing.T) *store.RequestLog {
	t.Helper()
	select {
	case e := <-f.entries:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no request log written")
		return nil
	}
}

func (f *fakeLogger) assertNone(t *testing.T) {
	t.Helper()
	select {
	case e := <-f.entries:
		t.Fatalf("unexpected request log for %s", e.Path)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestResponseWriter_BuffersResponseBody(t *testing.T) {
	tests := []struct {
		name           string
		responseBody   string
		expectedCapped bool
	}{
		{"small response", "Hello, World!", false},
		{"response at limit", strings.Repeat("x", maxBodySize), false},
		{"response exceeds limit", strings.Repeat("x", maxBodySize+1000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			wrapped := &responseWriter{
				ResponseWriter: rr,
				statusCode:     200,
				body:           &bytes.Buffer{},
			}

			n, err := wrapped.Write([]byte(tt.responseBody))
			if err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if n != len(tt.responseBody) {
				t.Errorf("Write() returned %d, want %d", n, len(tt.responseBody))
			}
			if rr.Body.Len() != len(tt.responseBody) {
				t.Errorf("underlying writer got %d bytes, want %d", rr.Body.Len(), len(tt.responseBody))
			}

			buffered := wrapped.body.String()
			if len(buffered) > maxBodySize {
				t.Errorf("Buffered body size %d exceeds maxBodySize %d", len(buffered), maxBodySize)
			}
			if tt.expectedCapped && len(buffered) != maxBodySize {
				t.Errorf("Expected buffered body to be capped at %d, got %d", maxBodySize, len(buffered))
			}
		})
	}
}

func TestResponseWriter_CapturesStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		explicit bool
		code     int
	}{
		{"explicit status", true, http.StatusForbidden},
		{"implicit status", false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := &responseWriter{
				ResponseWriter: httptest.NewRecorder(),
				statusCode:     200,
				body:           &bytes.Buffer{},
			}

			if tt.explicit {
				wrapped.WriteHeader(tt.code)
			}
			wrapped.Write([]byte("body"))

			if wrapped.statusCode != tt.code {
				t.Errorf("statusCode = %d, want %d", wrapped.statusCode, tt.code)
			}
		})
	}
}

func TestResponseWriter_Hijack(t *testing.T) {
	wrapped := &responseWriter{
		ResponseWriter: httptest.NewRecorder(),
		statusCode:     200,
		body:           &bytes.Buffer{},
	}

	// httptest.ResponseRecorder doesn't implement Hijacker
	_, _, err := wrapped.Hijack()
	if err != http.ErrNotSupported {
		t.Errorf("Hijack() error = %v, want %v", err, http.ErrNotSupported)
	}
}

func TestMiddleware_LogsOEmbedRequestWithoutQuery(t *testing.T) {
	logger := newFakeLogger()
	handler := NewRequestLogs(logger).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("Matt Mullenweg is sad."))
	}))

	req := httptest.NewRequest(http.MethodGet, "/?wpdotorg_oembed=1&key=secret&url=x", nil)
	req.Header.Set("User-Agent", "embed-consumer/1.0")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	entry := logger.next(t)
	if entry.Route != RouteOEmbed {
		t.Errorf("Route = %q, want %q", entry.Route, RouteOEmbed)
	}
	if entry.Path != "/" {
		t.Errorf("Path = %q, want /", entry.Path)
	}
	if entry.Method != http.MethodGet {
		t.Errorf("Method = %q, want GET", entry.Method)
	}
	if entry.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want %d", entry.StatusCode, http.StatusForbidden)
	}
	if entry.ResponseBody != "Matt Mullenweg is sad." {
		t.Errorf("ResponseBody = %q", entry.ResponseBody)
	}
	if entry.UserAgent != "embed-consumer/1.0" {
		t.Errorf("UserAgent = %q", entry.UserAgent)
	}
	if entry.RequestID == "" || entry.RequestID != rr.Header().Get(RequestIDHeader) {
		t.Errorf("RequestID = %q, header = %q", entry.RequestID, rr.Header().Get(RequestIDHeader))
	}
}

func TestMiddleware_SkipsHealthAndMetrics(t *testing.T) {
	logger := newFakeLogger()
	handler := NewRequestLogs(logger).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/healthz", "/metrics"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want %d", path, rr.Code, http.StatusOK)
		}
		if id := rr.Header().Get(RequestIDHeader); id != "" {
			t.Errorf("%s: request ID %q set on an unlogged route", path, id)
		}
	}
	logger.assertNone(t)
}

func TestMiddleware_LoggerErrorDoesNotAffectResponse(t *testing.T) {
	logger := newFakeLogger()
	logger.err = errors.New("disk full")
	handler := NewRequestLogs(logger).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Errorf("response = %d %q, want 200 \"ok\"", rr.Code, rr.Body.String())
	}
	if route := logger.next(t).Route; route != RouteSite {
		t.Errorf("Route = %q, want %q", route, RouteSite)
	}
}

func TestMiddleware_RequestBodySizeLimit(t *testing.T) {
	logger := newFakeLogger()
	var handlerRead int
	handler := NewRequestLogs(logger).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		handlerRead = len(body)
		w.WriteHeader(http.StatusOK)
	}))

	largeBody := strings.NewReader(strings.Repeat("x", maxBodySize+1000))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", largeBody))

	if rr.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", rr.Code, http.StatusOK)
	}
	if handlerRead != maxBodySize+1000 {
		t.Errorf("handler read %d bytes, want the whole body (%d)", handlerRead, maxBodySize+1000)
	}
	if n := len(logger.next(t).RequestBody); n != maxBodySize {
		t.Errorf("logged request body = %d bytes, want %d", n, maxBodySize)
	}
}

func TestMiddleware_RestoresRequestBody(t *testing.T) {
	logger := newFakeLogger()
	originalBody := "url=https%3A%2F%2Fwordpress.org%2Fextend%2Fplugins%2Fakismet%2F"
	var handlerReadBody string

	handler := NewRequestLogs(logger).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		handlerReadBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/?wpdotorg_oembed=1", strings.NewReader(originalBody))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if handlerReadBody != originalBody {
		t.Errorf("Handler read body = %q, want %q", handlerReadBody, originalBody)
	}
	if logged := logger.next(t).RequestBody; logged != originalBody {
		t.Errorf("logged body = %q, want %q", logged, originalBody)
	}
}

// slowLogger holds each write until released.
type slowLogger struct {
	release chan struct{}
	mu      sync.Mutex
	done    int
}

func (s *slowLogger) LogRequest(entry *store.RequestLog) error {
	<-s.release
	s.mu.Lock()
	s.done++
	s.mu.Unlock()
	return nil
}

func TestRequestLogs_WaitDrainsPendingWrites(t *testing.T) {
	slow := &slowLogger{release: make(chan struct{})}
	logs := NewRequestLogs(slow)
	handler := logs.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	waited := make(chan struct{})
	go func() {
		logs.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait() returned while writes were pending")
	case <-time.After(50 * time.Millisecond):
	}

	close(slow.release)
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return after writes finished")
	}

	slow.mu.Lock()
	defer slow.mu.Unlock()
	if slow.done != 3 {
		t.Errorf("finished writes = %d, want 3", slow.done)
	}
}

func TestRouteFor(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"/", RouteSite},
		{"/?foo=bar", RouteSite},
		{"/?wpdotorg_oembed", RouteOEmbed},
		{"/?wpdotorg_oembed=&url=x", RouteOEmbed},
		{"/assets/wpdotorg-embed.css", RouteAssets},
		{"/healthz", RouteHealth},
		{"/metrics", RouteMetrics},
		{"/wp-admin/", RouteUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if got := RouteFor(r); got != tt.want {
				t.Errorf("RouteFor(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}
