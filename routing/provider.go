package routing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/polarisdb/polaris/internal/logging"
	"github.com/polarisdb/polaris/internal/metrics"
	"github.com/polarisdb/polaris/types"
)

// Fetcher retrieves partition range listings from the metadata service.
//
// The provider performs no network I/O of its own; implementations own the
// transport, authentication, and retry policy for metadata fetches.
//
// Implementations MUST be safe for concurrent use from multiple goroutines.
type Fetcher[T any] interface {
	// FetchAll returns the full partition range listing for a collection,
	// along with the unique id of the collection generation it belongs to.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - collectionRID: The collection's resource id
	//
	// Returns:
	//   - string: The collection generation's unique id
	//   - []RangeInfo[T]: The full (range, metadata) listing
	//   - error: nil on success
	FetchAll(ctx context.Context, collectionRID string) (string, []RangeInfo[T], error)
}

// SpanFetcher is an optional interface for fetchers that can list only the
// ranges covering a sub-interval of the key space.
//
// Fetchers implementing it let the provider apply partition splits and
// merges incrementally via Combine instead of reloading the whole map.
type SpanFetcher[T any] interface {
	// FetchSpan returns a fresher listing for the given span of the key
	// space, along with the collection generation's unique id.
	FetchSpan(ctx context.Context, collectionRID string, span types.Range) (string, []RangeInfo[T], error)
}

// ProviderOption configures a Provider.
type ProviderOption func(*providerConfig)

type providerConfig struct {
	logger  types.Logger
	metrics types.MetricsCollector
}

// WithProviderLogger sets the structured logger for the provider.
//
// Parameters:
//   - logger: The logger implementation
//
// Returns:
//   - ProviderOption: Configuration option
func WithProviderLogger(logger types.Logger) ProviderOption {
	return func(c *providerConfig) {
		c.logger = logger
	}
}

// WithProviderMetrics sets the metrics collector for the provider.
//
// Parameters:
//   - collector: The metrics collector implementation
//
// Returns:
//   - ProviderOption: Configuration option
func WithProviderMetrics(collector types.MetricsCollector) ProviderOption {
	return func(c *providerConfig) {
		c.metrics = collector
	}
}

// Provider caches one current CollectionRoutingMap per collection and keeps
// it fresh through a caller-supplied Fetcher.
//
// The cached maps are immutable; Provider only swaps which instance is
// current. Concurrent refreshes for the same collection are deduplicated, so
// a thundering herd of misses results in a single metadata fetch.
//
// Provider is safe for concurrent use from multiple goroutines.
type Provider[T any] struct {
	fetcher Fetcher[T]
	logger  types.Logger
	metrics types.MetricsCollector

	group singleflight.Group

	mu   sync.RWMutex
	maps map[string]*CollectionRoutingMap[T]
}

// NewProvider creates a routing map provider backed by the given fetcher.
//
// Parameters:
//   - fetcher: The metadata fetcher (must not be nil)
//   - opts: Optional configuration options
//
// Returns:
//   - *Provider[T]: A new provider
//   - error: Error if fetcher is nil
func NewProvider[T any](fetcher Fetcher[T], opts ...ProviderOption) (*Provider[T], error) {
	if fetcher == nil {
		return nil, errors.New("polaris/routing: fetcher cannot be nil")
	}

	config := providerConfig{
		logger:  logging.NewNopLogger(),
		metrics: metrics.NewNopMetrics(),
	}
	for _, opt := range opts {
		opt(&config)
	}

	return &Provider[T]{
		fetcher: fetcher,
		logger:  config.logger,
		metrics: config.metrics,
		maps:    make(map[string]*CollectionRoutingMap[T]),
	}, nil
}

// CurrentMap returns the cached routing map for a collection without
// triggering a fetch.
//
// Returns:
//   - *CollectionRoutingMap[T]: The current map
//   - bool: false if no map is cached
func (p *Provider[T]) CurrentMap(collectionRID string) (*CollectionRoutingMap[T], bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m, ok := p.maps[collectionRID]

	return m, ok
}

// ResolveMap returns the current routing map for a collection, fetching the
// full listing on a cache miss. Concurrent misses share one fetch.
//
// Parameters:
//   - ctx: Context for the metadata fetch on a miss
//   - collectionRID: The collection's resource id
//
// Returns:
//   - *CollectionRoutingMap[T]: The current map
//   - error: nil, or the fetch/construction error
func (p *Provider[T]) ResolveMap(ctx context.Context, collectionRID string) (*CollectionRoutingMap[T], error) {
	if m, ok := p.CurrentMap(collectionRID); ok {
		return m, nil
	}

	p.metrics.IncRoutingLookupMiss()

	return p.Refresh(ctx, collectionRID)
}

// Refresh fetches the full partition range listing for a collection,
// installs a new routing map, and returns it. Concurrent calls for the same
// collection share a single fetch.
//
// Parameters:
//   - ctx: Context for the metadata fetch
//   - collectionRID: The collection's resource id
//
// Returns:
//   - *CollectionRoutingMap[T]: The freshly installed map
//   - error: nil, or the fetch/construction error
func (p *Provider[T]) Refresh(ctx context.Context, collectionRID string) (*CollectionRoutingMap[T], error) {
	v, err, _ := p.group.Do(collectionRID, func() (any, error) {
		return p.refresh(ctx, collectionRID)
	})
	if err != nil {
		return nil, err
	}

	return v.(*CollectionRoutingMap[T]), nil
}

func (p *Provider[T]) refresh(ctx context.Context, collectionRID string) (*CollectionRoutingMap[T], error) {
	activityID := uuid.NewString()
	start := time.Now()
	p.metrics.IncRefreshTotal()

	uniqueID, pairs, err := p.fetcher.FetchAll(ctx, collectionRID)
	if err != nil {
		p.metrics.IncRefreshError()
		p.logger.Warn("routing map fetch failed",
			"collection", collectionRID,
			"activity", activityID,
			"error", err,
		)

		return nil, err
	}

	m, err := NewCollectionRoutingMap(pairs, uniqueID)
	if err != nil {
		p.metrics.IncRefreshError()
		p.logger.Error("fetched range listing is not a valid routing map",
			"collection", collectionRID,
			"activity", activityID,
			"error", err,
		)

		return nil, err
	}

	p.install(collectionRID, m)
	p.metrics.ObserveRefreshDuration(time.Since(start).Seconds())
	p.logger.Debug("routing map refreshed",
		"collection", collectionRID,
		"activity", activityID,
		"generation", uniqueID,
		"ranges", len(m.orderedRanges),
	)

	return m, nil
}

// RefreshSpan refreshes only the ranges covering a sub-interval of the key
// space, typically after a split or merge signal for that span.
//
// When the fetcher implements SpanFetcher and a map for the same collection
// generation is cached, the partial listing is combined into a new map; a
// failed combination or a generation change falls back to a full Refresh.
// Fetchers without span support always take the full path.
//
// Parameters:
//   - ctx: Context for the metadata fetch
//   - collectionRID: The collection's resource id
//   - span: The sub-interval to refresh
//
// Returns:
//   - *CollectionRoutingMap[T]: The freshly installed map
//   - error: nil, or the fetch/combination error after fallback
func (p *Provider[T]) RefreshSpan(ctx context.Context, collectionRID string, span types.Range) (*CollectionRoutingMap[T], error) {
	spanFetcher, ok := p.fetcher.(SpanFetcher[T])
	if !ok {
		return p.Refresh(ctx, collectionRID)
	}

	current, ok := p.CurrentMap(collectionRID)
	if !ok {
		return p.Refresh(ctx, collectionRID)
	}

	uniqueID, pairs, err := spanFetcher.FetchSpan(ctx, collectionRID, span)
	if err != nil {
		return nil, err
	}

	if uniqueID != current.CollectionUniqueID() {
		// The collection was recreated; the cached generation is stale.
		p.logger.Info("collection generation changed, reloading routing map",
			"collection", collectionRID,
			"old_generation", current.CollectionUniqueID(),
			"new_generation", uniqueID,
		)
		p.Invalidate(collectionRID)

		return p.Refresh(ctx, collectionRID)
	}

	combined, err := current.Combine(pairs)
	if err != nil {
		p.logger.Warn("partial routing update could not be combined, reloading",
			"collection", collectionRID,
			"error", err,
		)

		return p.Refresh(ctx, collectionRID)
	}

	p.install(collectionRID, combined)

	return combined, nil
}

// RangeByKey resolves the partition key range containing an effective
// partition key, fetching the routing map on a cache miss.
//
// Parameters:
//   - ctx: Context for the metadata fetch on a miss
//   - collectionRID: The collection's resource id
//   - effectiveKey: The serialized, totally-ordered partition key
//
// Returns:
//   - types.PartitionKeyRange: The range containing the key
//   - error: nil, a types.ErrKeyOutOfRange wrap, or a fetch error
func (p *Provider[T]) RangeByKey(ctx context.Context, collectionRID, effectiveKey string) (types.PartitionKeyRange, error) {
	p.metrics.IncRoutingLookupTotal()

	m, err := p.ResolveMap(ctx, collectionRID)
	if err != nil {
		return types.PartitionKeyRange{}, err
	}

	return m.RangeByKey(effectiveKey)
}

// RangeByID resolves a partition key range by id, refreshing the routing map
// once when the id is unknown to the cached map.
//
// A gone id is reported as *types.RangeGoneError without a refresh attempt
// for the same id; an id still unknown after one refresh is reported as
// *types.NotFoundError carrying the id and the refresh episode's activity id.
//
// Parameters:
//   - ctx: Context for the metadata fetch
//   - collectionRID: The collection's resource id
//   - rangeID: The partition key range id
//
// Returns:
//   - types.PartitionKeyRange: The range
//   - error: nil, *types.RangeGoneError, *types.NotFoundError, or a fetch error
func (p *Provider[T]) RangeByID(ctx context.Context, collectionRID, rangeID string) (types.PartitionKeyRange, error) {
	p.metrics.IncRoutingLookupTotal()

	m, err := p.ResolveMap(ctx, collectionRID)
	if err != nil {
		return types.PartitionKeyRange{}, err
	}

	if r, ok := m.TryRangeByID(rangeID); ok {
		return r, nil
	}
	if m.IsGone(rangeID) {
		p.metrics.IncRangeGone()

		return types.PartitionKeyRange{}, &types.RangeGoneError{RangeID: rangeID, CollectionRID: collectionRID}
	}

	// Unknown id: the cached map may predate a topology change. Refresh once.
	p.metrics.IncRoutingLookupMiss()
	activityID := uuid.NewString()

	m, err = p.Refresh(ctx, collectionRID)
	if err != nil {
		return types.PartitionKeyRange{}, err
	}

	if r, ok := m.TryRangeByID(rangeID); ok {
		return r, nil
	}
	if m.IsGone(rangeID) {
		p.metrics.IncRangeGone()

		return types.PartitionKeyRange{}, &types.RangeGoneError{RangeID: rangeID, CollectionRID: collectionRID}
	}

	return types.PartitionKeyRange{}, &types.NotFoundError{ResourceAddress: rangeID, ActivityID: activityID}
}

// Invalidate drops the cached routing map for a collection, forcing the next
// lookup to fetch a fresh listing.
func (p *Provider[T]) Invalidate(collectionRID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.maps, collectionRID)
}

func (p *Provider[T]) install(collectionRID string, m *CollectionRoutingMap[T]) {
	p.mu.Lock()
	p.maps[collectionRID] = m
	p.mu.Unlock()

	p.metrics.SetRoutingMapRanges(len(m.orderedRanges))
}
