package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/polarisdb/polaris/routing"
	"github.com/polarisdb/polaris/types"
)

// MockFetcher is an in-memory implementation of routing.Fetcher (and
// routing.SpanFetcher) with programmable listings for testing.
//
// Listings are registered per collection via SetListing; FetchSpan serves
// the subset of the registered listing covering the requested span.
type MockFetcher[T any] struct {
	mu sync.RWMutex

	uniqueIDs map[string]string
	listings  map[string][]routing.RangeInfo[T]
	errs      map[string]error

	fetchAllCalls  atomic.Int64
	fetchSpanCalls atomic.Int64

	// Hooks for custom behavior
	OnFetchAll  func(ctx context.Context, collectionRID string) (string, []routing.RangeInfo[T], error)
	OnFetchSpan func(ctx context.Context, collectionRID string, span types.Range) (string, []routing.RangeInfo[T], error)
}

// Compile-time assertions for the fetcher interfaces.
var (
	_ routing.Fetcher[string]     = (*MockFetcher[string])(nil)
	_ routing.SpanFetcher[string] = (*MockFetcher[string])(nil)
)

// NewMockFetcher creates a new mock fetcher with no registered listings.
func NewMockFetcher[T any]() *MockFetcher[T] {
	return &MockFetcher[T]{
		uniqueIDs: make(map[string]string),
		listings:  make(map[string][]routing.RangeInfo[T]),
		errs:      make(map[string]error),
	}
}

// SetListing registers the listing returned for a collection.
func (m *MockFetcher[T]) SetListing(collectionRID, uniqueID string, pairs []routing.RangeInfo[T]) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.uniqueIDs[collectionRID] = uniqueID
	m.listings[collectionRID] = pairs
	delete(m.errs, collectionRID)
}

// SetError makes fetches for a collection fail with the given error.
func (m *MockFetcher[T]) SetError(collectionRID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errs[collectionRID] = err
}

// FetchAll returns the registered listing for a collection.
func (m *MockFetcher[T]) FetchAll(ctx context.Context, collectionRID string) (string, []routing.RangeInfo[T], error) {
	m.fetchAllCalls.Add(1)

	if m.OnFetchAll != nil {
		return m.OnFetchAll(ctx, collectionRID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err, ok := m.errs[collectionRID]; ok {
		return "", nil, err
	}

	return m.uniqueIDs[collectionRID], m.listings[collectionRID], nil
}

// FetchSpan returns the subset of the registered listing intersecting span.
func (m *MockFetcher[T]) FetchSpan(ctx context.Context, collectionRID string, span types.Range) (string, []routing.RangeInfo[T], error) {
	m.fetchSpanCalls.Add(1)

	if m.OnFetchSpan != nil {
		return m.OnFetchSpan(ctx, collectionRID, span)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err, ok := m.errs[collectionRID]; ok {
		return "", nil, err
	}

	var subset []routing.RangeInfo[T]
	for _, pair := range m.listings[collectionRID] {
		if pair.Range.Span().Intersects(span) {
			subset = append(subset, pair)
		}
	}

	return m.uniqueIDs[collectionRID], subset, nil
}

// FetchAllCalls returns how many times FetchAll was invoked.
func (m *MockFetcher[T]) FetchAllCalls() int64 {
	return m.fetchAllCalls.Load()
}

// FetchSpanCalls returns how many times FetchSpan was invoked.
func (m *MockFetcher[T]) FetchSpanCalls() int64 {
	return m.fetchSpanCalls.Load()
}

// TestMetricsCollector is a test implementation of types.MetricsCollector
// that tracks method calls for assertion in tests.
//
// All counters are atomic; read them after the operations under test
// complete.
type TestMetricsCollector struct {
	RoutingLookups      atomic.Int64
	RoutingLookupMisses atomic.Int64
	RangeGone           atomic.Int64

	RefreshTotal  atomic.Int64
	RefreshErrors atomic.Int64

	SessionMerges       atomic.Int64
	SessionParseErrors  atomic.Int64
	SessionRegressions  atomic.Int64
	LastRoutingMapSize  atomic.Int64
	RefreshObservations atomic.Int64
}

// Compile-time assertion that TestMetricsCollector implements types.MetricsCollector.
var _ types.MetricsCollector = (*TestMetricsCollector)(nil)

// NewTestMetricsCollector creates a new test metrics collector.
func NewTestMetricsCollector() *TestMetricsCollector {
	return &TestMetricsCollector{}
}

// IncRoutingLookupTotal records the call.
func (c *TestMetricsCollector) IncRoutingLookupTotal() { c.RoutingLookups.Add(1) }

// IncRoutingLookupMiss records the call.
func (c *TestMetricsCollector) IncRoutingLookupMiss() { c.RoutingLookupMisses.Add(1) }

// IncRangeGone records the call.
func (c *TestMetricsCollector) IncRangeGone() { c.RangeGone.Add(1) }

// IncRefreshTotal records the call.
func (c *TestMetricsCollector) IncRefreshTotal() { c.RefreshTotal.Add(1) }

// IncRefreshError records the call.
func (c *TestMetricsCollector) IncRefreshError() { c.RefreshErrors.Add(1) }

// ObserveRefreshDuration records the call.
func (c *TestMetricsCollector) ObserveRefreshDuration(_ float64) { c.RefreshObservations.Add(1) }

// SetRoutingMapRanges records the latest map size.
func (c *TestMetricsCollector) SetRoutingMapRanges(count int) {
	c.LastRoutingMapSize.Store(int64(count))
}

// IncSessionTokenMerge records the call.
func (c *TestMetricsCollector) IncSessionTokenMerge() { c.SessionMerges.Add(1) }

// IncSessionTokenParseError records the call.
func (c *TestMetricsCollector) IncSessionTokenParseError() { c.SessionParseErrors.Add(1) }

// IncSessionValidationFailure records the call.
func (c *TestMetricsCollector) IncSessionValidationFailure() { c.SessionRegressions.Add(1) }
