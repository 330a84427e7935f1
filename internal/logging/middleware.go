// ABOUTME: HTTP request logging middleware.
// ABOUTME: Captures route, status, duration and bodies, and persists them as request logs.

package logging

import (
	"bufio"
	"bytes"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/wpembed/internal/middleware"
	"github.com/2389/wpembed/internal/store"
)

const maxBodySize = 10 * 1024 // 10KB limit for body capture

// RequestIDHeader carries the generated request ID back to the caller.
const RequestIDHeader = "X-Request-Id"

// RequestLogger persists request logs.
type RequestLogger interface {
	LogRequest(entry *store.RequestLog) error
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
	body       *bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	if rw.body.Len() < maxBodySize {
		toCopy := len(b)
		if rw.body.Len()+toCopy > maxBodySize {
			toCopy = maxBodySize - rw.body.Len()
		}
		rw.body.Write(b[:toCopy])
	}
	return rw.ResponseWriter.Write(b)
}

// Hijack implements http.Hijacker
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}

// RequestLogs persists request logs in the background.
type RequestLogs struct {
	logger  RequestLogger
	pending sync.WaitGroup
}

func NewRequestLogs(logger RequestLogger) *RequestLogs {
	return &RequestLogs{logger: logger}
}

// Wait blocks until every write started so far has finished. Call it after
// the server stops taking requests and before closing the store.
func (l *RequestLogs) Wait() {
	l.pending.Wait()
}

// Middleware logs every request except health checks and metrics scrapes.
// Only the path is stored, never the query string, so site keys stay out of the log.
func (l *RequestLogs) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := RouteFor(r)
		if route == RouteHealth || route == RouteMetrics {
			next.ServeHTTP(w, r)
			return
		}

		requestID := uuid.NewString()
		w.Header().Set(RequestIDHeader, requestID)

		var requestBody string
		if r.Body != nil {
			bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
			if err == nil {
				requestBody = string(bodyBytes)
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(bodyBytes), r.Body))
			}
		}

		start := time.Now()
		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}

		next.ServeHTTP(wrapped, r)

		entry := &store.RequestLog{
			RequestID:    requestID,
			Route:        route,
			Method:       r.Method,
			Path:         r.URL.Path,
			StatusCode:   wrapped.statusCode,
			DurationMs:   int(time.Since(start).Milliseconds()),
			IPAddress:    middleware.ClientIP(r),
			UserAgent:    r.Header.Get("User-Agent"),
			RequestBody:  requestBody,
			ResponseBody: wrapped.body.String(),
		}

		l.pending.Add(1)
		go func() {
			defer l.pending.Done()
			if err := l.logger.LogRequest(entry); err != nil {
				log.Printf("request log: %v", err)
			}
		}()
	})
}
