package types

// MetricsCollector defines methods for collecting operational metrics from
// the routing and session layers.
//
// Implementations must be thread-safe as methods may be called concurrently
// from any goroutine holding a routing map or session container.
//
// Example usage with VictoriaMetrics (via contrib/metrics/vm):
//
//	import vmmetrics "github.com/polarisdb/polaris/contrib/metrics/vm"
//
//	collector := vmmetrics.New(vmmetrics.WithPrefix("myapp"))
//	client := polaris.NewClient(fetcher, polaris.WithMetrics(collector))
//
//	// Expose metrics via HTTP
//	http.HandleFunc("/metrics", collector.Handler)
type MetricsCollector interface {
	// ----------------------
	// Routing lookups
	// ----------------------

	// IncRoutingLookupTotal increments the routing lookup counter.
	IncRoutingLookupTotal()

	// IncRoutingLookupMiss increments the counter of lookups that missed the
	// cached routing map and required a refresh.
	IncRoutingLookupMiss()

	// IncRangeGone increments the counter of lookups that hit a superseded
	// (split or merged away) range id.
	IncRangeGone()

	// ----------------------
	// Routing map refresh
	// ----------------------

	// IncRefreshTotal increments the routing map refresh counter.
	IncRefreshTotal()

	// IncRefreshError increments the counter of failed refresh attempts.
	IncRefreshError()

	// ObserveRefreshDuration records a routing map refresh duration in seconds.
	ObserveRefreshDuration(seconds float64)

	// SetRoutingMapRanges sets the gauge of partition key ranges in the most
	// recently installed routing map.
	SetRoutingMapRanges(count int)

	// ----------------------
	// Session tokens
	// ----------------------

	// IncSessionTokenMerge increments the session token merge counter.
	IncSessionTokenMerge()

	// IncSessionTokenParseError increments the counter of session token
	// strings that failed to parse.
	IncSessionTokenParseError()

	// IncSessionValidationFailure increments the counter of session
	// validations that detected a progress regression.
	IncSessionValidationFailure()
}
