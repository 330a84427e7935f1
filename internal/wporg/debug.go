// ABOUTME: Diagnostic logging for outbound WordPress.org calls.
// ABOUTME: A single static verbosity level: silent, calls only, or calls and raw responses.

package wporg

import (
	"fmt"
	"log"
)

// DebugLevel selects how much of the outbound traffic is logged.
type DebugLevel int

const (
	DebugNone      DebugLevel = 0 // silent
	DebugCalls     DebugLevel = 1 // outbound calls
	DebugResponses DebugLevel = 2 // outbound calls and raw responses
)

// ParseDebugLevel accepts 0, 1 or 2; anything else is an error.
func ParseDebugLevel(n int) (DebugLevel, error) {
	switch l := DebugLevel(n); l {
	case DebugNone, DebugCalls, DebugResponses:
		return l, nil
	}
	return DebugNone, fmt.Errorf("invalid debug level %d (want 0, 1 or 2)", n)
}

func (c *Client) logf(level DebugLevel, format string, args ...any) {
	if c.debug < level {
		return
	}
	c.logger.Printf("[WPDOE%d]: %s", level, fmt.Sprintf(format, args...))
}

var defaultLogger = log.Default()
