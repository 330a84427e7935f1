// ABOUTME: Tests for Prometheus instrumentation helpers.
// ABOUTME: Verifies counters move and the exposition handler serves them.

package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordOEmbed_IncrementsByResult(t *testing.T) {
	before := testutil.ToFloat64(global().oembedRequests.WithLabelValues("forbidden"))
	RecordOEmbed("forbidden")
	RecordOEmbed("forbidden")
	after := testutil.ToFloat64(global().oembedRequests.WithLabelValues("forbidden"))

	assert.Equal(t, before+2, after)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	RecordOEmbed("ok")
	ObserveLookup("ok", 25*time.Millisecond)

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "wpembed_oembed_requests_total")
	assert.Contains(t, body, "wpembed_wporg_lookup_duration_seconds")
}
