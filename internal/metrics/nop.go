// Package metrics provides internal metrics utilities for polaris.
package metrics

import "github.com/polarisdb/polaris/types"

// NopMetrics is a no-op metrics collector that discards all metrics.
//
// This is used as the default metrics collector when no collector is configured,
// avoiding nil checks throughout the codebase.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements types.MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNopMetrics creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A collector that discards all metrics
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

// ----------------------
// Routing lookups
// ----------------------

// IncRoutingLookupTotal discards the metric.
func (m *NopMetrics) IncRoutingLookupTotal() {}

// IncRoutingLookupMiss discards the metric.
func (m *NopMetrics) IncRoutingLookupMiss() {}

// IncRangeGone discards the metric.
func (m *NopMetrics) IncRangeGone() {}

// ----------------------
// Routing map refresh
// ----------------------

// IncRefreshTotal discards the metric.
func (m *NopMetrics) IncRefreshTotal() {}

// IncRefreshError discards the metric.
func (m *NopMetrics) IncRefreshError() {}

// ObserveRefreshDuration discards the metric.
func (m *NopMetrics) ObserveRefreshDuration(_ float64) {}

// SetRoutingMapRanges discards the metric.
func (m *NopMetrics) SetRoutingMapRanges(_ int) {}

// ----------------------
// Session tokens
// ----------------------

// IncSessionTokenMerge discards the metric.
func (m *NopMetrics) IncSessionTokenMerge() {}

// IncSessionTokenParseError discards the metric.
func (m *NopMetrics) IncSessionTokenParseError() {}

// IncSessionValidationFailure discards the metric.
func (m *NopMetrics) IncSessionValidationFailure() {}
