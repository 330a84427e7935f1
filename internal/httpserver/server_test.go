// ABOUTME: Tests for the HTTP server wrapper.
// ABOUTME: Serves on an ephemeral port and checks that shutdown is clean.

package httpserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/wpembed/internal/wporg"
)

func TestNew_Timeouts(t *testing.T) {
	srv := New(":9000", http.NotFoundHandler(), 0)
	assert.Equal(t, ":9000", srv.Addr())
	assert.Equal(t, 5*time.Second, srv.inner.ReadHeaderTimeout)
	assert.Equal(t, wporg.MinTimeout+5*time.Second, srv.inner.WriteTimeout)

	srv = New(":9000", http.NotFoundHandler(), 30*time.Second)
	assert.Equal(t, 35*time.Second, srv.inner.WriteTimeout)
}

func TestServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(ln.Addr().String(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	}), 0)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err, "Serve should return nil after Shutdown")
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}
