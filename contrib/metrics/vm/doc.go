// Package vm provides a VictoriaMetrics-based implementation of the MetricsCollector interface.
//
// This package uses github.com/VictoriaMetrics/metrics for lightweight,
// high-performance Prometheus-compatible metrics collection.
//
// # Basic Usage
//
// Create a collector with default prefix "polaris":
//
//	collector := vm.New()
//	client, _ := polaris.NewClient(fetcher,
//	    polaris.WithMetrics(collector),
//	)
//
// # Custom Prefix
//
// Use WithPrefix to customize the metric name prefix:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//
// This produces metrics like:
//   - myapp_routing_lookups_total
//   - myapp_routing_refresh_duration_seconds
//
// # Exposing Metrics
//
// Use the Handler method to expose metrics via HTTP:
//
//	http.HandleFunc("/metrics", collector.Handler)
//	http.ListenAndServe(":8080", nil)
//
// Or use WritePrometheus to write metrics to a custom writer:
//
//	collector.WritePrometheus(w)
//
// # Metrics Provided
//
// Routing lookups:
//   - {prefix}_routing_lookups_total - Counter of routing lookups
//   - {prefix}_routing_lookup_misses_total - Counter of lookups that missed the cached map
//   - {prefix}_routing_range_gone_total - Counter of lookups that hit a superseded range id
//
// Routing map refresh:
//   - {prefix}_routing_refresh_total - Counter of routing map refreshes
//   - {prefix}_routing_refresh_errors_total - Counter of failed refreshes
//   - {prefix}_routing_refresh_duration_seconds - Histogram of refresh latencies
//   - {prefix}_routing_map_ranges - Gauge of ranges in the latest installed map
//
// Session tokens:
//   - {prefix}_session_token_merges_total - Counter of session token merges
//   - {prefix}_session_token_parse_errors_total - Counter of unparsable tokens
//   - {prefix}_session_validation_failures_total - Counter of detected progress regressions
//
// # Performance Notes
//
// This implementation pre-creates all metrics at initialization time
// using the NewXXX pattern (instead of GetOrCreateXXX) for optimal
// performance in hot paths, as recommended by the VictoriaMetrics
// documentation.
//
// The metrics are registered with a dedicated Set that is registered
// globally, allowing standard Prometheus scraping.
package vm
