// ABOUTME: Shutdown tuning for the HTTP server.
// ABOUTME: Shared by the serve command and tests.

package httpserver

import "time"

// ShutdownTimeout controls how long to wait for graceful shutdowns.
var ShutdownTimeout = 10 * time.Second
