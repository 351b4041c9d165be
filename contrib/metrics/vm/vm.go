package vm

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"

	"github.com/polarisdb/polaris/types"
)

// Option configures a Collector.
type Option func(*Collector)

// WithPrefix sets the metric name prefix.
//
// Default: "polaris"
//
// Parameters:
//   - prefix: The prefix to use for all metric names
//
// Returns:
//   - Option: A configuration option
func WithPrefix(prefix string) Option {
	return func(c *Collector) {
		c.prefix = prefix
	}
}

// WithMetricsSet sets the metrics set to use.
//
// If provided, the collector will register metrics with this set instead of
// creating a new one. The caller is responsible for exposing this set
// (e.g., via metrics.WritePrometheus or a custom handler).
//
// Parameters:
//   - set: The metrics set to use
//
// Returns:
//   - Option: A configuration option
func WithMetricsSet(set *metrics.Set) Option {
	return func(c *Collector) {
		c.set = set
	}
}

// Collector implements types.MetricsCollector using VictoriaMetrics.
//
// All metrics are pre-created at initialization time for optimal performance.
// Thread-safe for concurrent use.
type Collector struct {
	set    *metrics.Set
	prefix string

	// Routing lookup metrics
	routingLookups      *metrics.Counter
	routingLookupMisses *metrics.Counter
	routingRangeGone    *metrics.Counter

	// Routing map refresh metrics
	refreshTotal     *metrics.Counter
	refreshErrors    *metrics.Counter
	refreshDuration  *metrics.Histogram
	routingMapRanges atomic.Int64

	// Session token metrics
	sessionMerges      *metrics.Counter
	sessionParseErrors *metrics.Counter
	sessionRegressions *metrics.Counter
}

// Compile-time assertion that Collector implements types.MetricsCollector.
var _ types.MetricsCollector = (*Collector)(nil)

// New creates a new VictoriaMetrics-based metrics collector.
//
// The collector creates its own metrics.Set and registers it globally.
// All metrics are pre-created at initialization for optimal performance.
//
// Parameters:
//   - opts: Configuration options (e.g., WithPrefix)
//
// Returns:
//   - *Collector: A new metrics collector ready for use
//
// Example:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//	client, _ := polaris.NewClient(fetcher,
//	    polaris.WithMetrics(collector),
//	)
func New(opts ...Option) *Collector {
	c := &Collector{
		prefix: "polaris",
	}

	for _, opt := range opts {
		opt(c)
	}

	// If no set is provided, create a new one and register it globally.
	// If a set is provided, we assume the caller manages it.
	if c.set == nil {
		c.set = metrics.NewSet()
		metrics.RegisterSet(c.set)
	}

	c.initMetrics()

	return c
}

// initMetrics pre-creates all metrics with the configured prefix.
func (c *Collector) initMetrics() {
	p := c.prefix

	// Routing lookup metrics
	c.routingLookups = c.set.NewCounter(fmt.Sprintf(`%s_routing_lookups_total`, p))
	c.routingLookupMisses = c.set.NewCounter(fmt.Sprintf(`%s_routing_lookup_misses_total`, p))
	c.routingRangeGone = c.set.NewCounter(fmt.Sprintf(`%s_routing_range_gone_total`, p))

	// Routing map refresh metrics
	c.refreshTotal = c.set.NewCounter(fmt.Sprintf(`%s_routing_refresh_total`, p))
	c.refreshErrors = c.set.NewCounter(fmt.Sprintf(`%s_routing_refresh_errors_total`, p))
	c.refreshDuration = c.set.NewHistogram(fmt.Sprintf(`%s_routing_refresh_duration_seconds`, p))
	c.set.NewGauge(fmt.Sprintf(`%s_routing_map_ranges`, p), func() float64 {
		return float64(c.routingMapRanges.Load())
	})

	// Session token metrics
	c.sessionMerges = c.set.NewCounter(fmt.Sprintf(`%s_session_token_merges_total`, p))
	c.sessionParseErrors = c.set.NewCounter(fmt.Sprintf(`%s_session_token_parse_errors_total`, p))
	c.sessionRegressions = c.set.NewCounter(fmt.Sprintf(`%s_session_validation_failures_total`, p))
}

// Set returns the underlying metrics set.
func (c *Collector) Set() *metrics.Set {
	return c.set
}

// Handler returns an HTTP handler that exposes metrics in Prometheus format.
//
// Example:
//
//	http.HandleFunc("/metrics", collector.Handler)
func (c *Collector) Handler(w http.ResponseWriter, _ *http.Request) {
	c.set.WritePrometheus(w)
}

// WritePrometheus writes all metrics in Prometheus format to the given writer.
//
// Parameters:
//   - w: The writer to write metrics to
func (c *Collector) WritePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}

// ----------------------
// Routing lookups
// ----------------------

// IncRoutingLookupTotal increments the routing lookup counter.
func (c *Collector) IncRoutingLookupTotal() {
	c.routingLookups.Inc()
}

// IncRoutingLookupMiss increments the routing lookup miss counter.
func (c *Collector) IncRoutingLookupMiss() {
	c.routingLookupMisses.Inc()
}

// IncRangeGone increments the superseded range id counter.
func (c *Collector) IncRangeGone() {
	c.routingRangeGone.Inc()
}

// ----------------------
// Routing map refresh
// ----------------------

// IncRefreshTotal increments the routing map refresh counter.
func (c *Collector) IncRefreshTotal() {
	c.refreshTotal.Inc()
}

// IncRefreshError increments the failed refresh counter.
func (c *Collector) IncRefreshError() {
	c.refreshErrors.Inc()
}

// ObserveRefreshDuration records a routing map refresh duration in seconds.
func (c *Collector) ObserveRefreshDuration(seconds float64) {
	c.refreshDuration.Update(seconds)
}

// SetRoutingMapRanges sets the gauge of ranges in the latest installed map.
func (c *Collector) SetRoutingMapRanges(count int) {
	c.routingMapRanges.Store(int64(count))
}

// ----------------------
// Session tokens
// ----------------------

// IncSessionTokenMerge increments the session token merge counter.
func (c *Collector) IncSessionTokenMerge() {
	c.sessionMerges.Inc()
}

// IncSessionTokenParseError increments the unparsable token counter.
func (c *Collector) IncSessionTokenParseError() {
	c.sessionParseErrors.Inc()
}

// IncSessionValidationFailure increments the progress regression counter.
func (c *Collector) IncSessionValidationFailure() {
	c.sessionRegressions.Inc()
}
