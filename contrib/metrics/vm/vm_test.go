package vm

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polarisdb/polaris/types"
)

// newTestCollector builds a collector on a private set so tests do not
// collide on the globally registered metrics namespace.
func newTestCollector(prefix string) *Collector {
	return New(WithPrefix(prefix), WithMetricsSet(metrics.NewSet()))
}

func TestCollectorImplementsInterface(t *testing.T) {
	var _ types.MetricsCollector = newTestCollector("t0")
}

func TestCollectorCounters(t *testing.T) {
	c := newTestCollector("t1")

	c.IncRoutingLookupTotal()
	c.IncRoutingLookupTotal()
	c.IncRoutingLookupMiss()
	c.IncRangeGone()
	c.IncRefreshTotal()
	c.IncRefreshError()
	c.ObserveRefreshDuration(0.25)
	c.IncSessionTokenMerge()
	c.IncSessionTokenParseError()
	c.IncSessionValidationFailure()

	var buf bytes.Buffer
	c.WritePrometheus(&buf)
	out := buf.String()

	assert.Contains(t, out, `t1_routing_lookups_total 2`)
	assert.Contains(t, out, `t1_routing_lookup_misses_total 1`)
	assert.Contains(t, out, `t1_routing_range_gone_total 1`)
	assert.Contains(t, out, `t1_routing_refresh_total 1`)
	assert.Contains(t, out, `t1_routing_refresh_errors_total 1`)
	assert.Contains(t, out, `t1_routing_refresh_duration_seconds`)
	assert.Contains(t, out, `t1_session_token_merges_total 1`)
	assert.Contains(t, out, `t1_session_token_parse_errors_total 1`)
	assert.Contains(t, out, `t1_session_validation_failures_total 1`)
}

func TestCollectorRoutingMapRangesGauge(t *testing.T) {
	c := newTestCollector("t2")

	c.SetRoutingMapRanges(7)

	var buf bytes.Buffer
	c.WritePrometheus(&buf)
	assert.Contains(t, buf.String(), `t2_routing_map_ranges 7`)

	// The gauge tracks the latest installed map, not a running total.
	c.SetRoutingMapRanges(3)

	buf.Reset()
	c.WritePrometheus(&buf)
	assert.Contains(t, buf.String(), `t2_routing_map_ranges 3`)
}

func TestCollectorHandler(t *testing.T) {
	c := newTestCollector("t3")
	c.IncRoutingLookupTotal()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	c.Handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "t3_routing_lookups_total 1")
}

func TestCollectorUsesProvidedSet(t *testing.T) {
	set := metrics.NewSet()
	c := New(WithPrefix("t4"), WithMetricsSet(set))

	assert.Same(t, set, c.Set())

	c.IncRefreshTotal()

	var buf bytes.Buffer
	set.WritePrometheus(&buf)
	assert.Contains(t, buf.String(), "t4_routing_refresh_total 1")
}
