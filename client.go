package polaris

import (
	"context"
	"errors"

	"github.com/polarisdb/polaris/routing"
	"github.com/polarisdb/polaris/session"
	"github.com/polarisdb/polaris/types"
)

// Client ties the session container and the routing map provider together
// behind one request-preparation surface.
//
// The type parameter T is the caller-owned per-partition metadata stored in
// routing maps (replica addresses, connection handles, and so on); polaris
// stores and returns it without interpreting it.
//
// Client is safe for concurrent use from multiple goroutines.
type Client[T any] struct {
	provider *routing.Provider[T]
	sessions *session.Container
	config   *ClientConfig
}

// NewClient creates a polaris client backed by the given metadata fetcher.
//
// Parameters:
//   - fetcher: The partition metadata fetcher (must not be nil)
//   - opts: Optional configuration options
//
// Returns:
//   - *Client[T]: A new client
//   - error: Error if the fetcher is nil or an option is invalid
func NewClient[T any](fetcher routing.Fetcher[T], opts ...Option) (*Client[T], error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	if err := config.RegionNames.Validate(); err != nil {
		return nil, err
	}

	provider, err := routing.NewProvider(fetcher,
		routing.WithProviderLogger(config.Logger),
		routing.WithProviderMetrics(config.Metrics),
	)
	if err != nil {
		return nil, err
	}

	return &Client[T]{
		provider: provider,
		sessions: session.NewContainer(),
		config:   config,
	}, nil
}

// refreshContext bounds a context for operations that may trigger a routing
// map fetch.
func (c *Client[T]) refreshContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.RefreshTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.config.RefreshTimeout)
}

// ResolveRange returns the partition key range that should receive a request
// for the given effective partition key, fetching routing metadata on a
// cache miss.
//
// Parameters:
//   - ctx: Context for a metadata fetch on a miss
//   - collectionRID: The collection's resource id
//   - effectiveKey: The serialized, totally-ordered partition key
//
// Returns:
//   - types.PartitionKeyRange: The target range
//   - error: nil, a types.ErrKeyOutOfRange wrap, or a fetch error
func (c *Client[T]) ResolveRange(ctx context.Context, collectionRID, effectiveKey string) (types.PartitionKeyRange, error) {
	ctx, cancel := c.refreshContext(ctx)
	defer cancel()

	return c.provider.RangeByKey(ctx, collectionRID, effectiveKey)
}

// RangeByID resolves a partition key range by id, refreshing the routing map
// once when the id is unknown. Gone ids are reported as *types.RangeGoneError
// so the caller re-routes by key instead of retrying the id.
//
// Parameters:
//   - ctx: Context for a metadata fetch
//   - collectionRID: The collection's resource id
//   - rangeID: The partition key range id
//
// Returns:
//   - types.PartitionKeyRange: The range
//   - error: nil, *types.RangeGoneError, *types.NotFoundError, or a fetch error
func (c *Client[T]) RangeByID(ctx context.Context, collectionRID, rangeID string) (types.PartitionKeyRange, error) {
	ctx, cancel := c.refreshContext(ctx)
	defer cancel()

	return c.provider.RangeByID(ctx, collectionRID, rangeID)
}

// OverlappingRanges returns every partition key range intersecting any of
// the query intervals, in ascending key order without duplicates.
//
// Parameters:
//   - ctx: Context for a metadata fetch on a miss
//   - collectionRID: The collection's resource id
//   - queries: The query intervals
//
// Returns:
//   - []types.PartitionKeyRange: The intersecting ranges
//   - error: nil, or a fetch error
func (c *Client[T]) OverlappingRanges(ctx context.Context, collectionRID string, queries ...types.Range) ([]types.PartitionKeyRange, error) {
	ctx, cancel := c.refreshContext(ctx)
	defer cancel()

	m, err := c.provider.ResolveMap(ctx, collectionRID)
	if err != nil {
		return nil, err
	}

	return m.OverlappingRangesAll(queries), nil
}

// PartitionInfo returns the caller-supplied metadata for a still-current
// range id.
//
// Parameters:
//   - ctx: Context for a metadata fetch on a miss
//   - collectionRID: The collection's resource id
//   - rangeID: The partition key range id
//
// Returns:
//   - T: The metadata (zero value when not found)
//   - bool: false for unknown or gone ids
//   - error: nil, or a fetch error
func (c *Client[T]) PartitionInfo(ctx context.Context, collectionRID, rangeID string) (T, bool, error) {
	ctx, cancel := c.refreshContext(ctx)
	defer cancel()

	m, err := c.provider.ResolveMap(ctx, collectionRID)
	if err != nil {
		var zero T
		return zero, false, err
	}

	info, ok := m.InfoByID(rangeID)

	return info, ok, nil
}

// SessionTokenForRange returns the wire form of the freshest session token
// recorded for a partition key range, for attaching to an outgoing request.
//
// Returns:
//   - string: The token in wire form
//   - bool: false when no token is recorded for that range
func (c *Client[T]) SessionTokenForRange(collectionRID, rangeID string) (string, bool) {
	token, ok := c.sessions.Resolve(collectionRID, rangeID)
	if !ok {
		return "", false
	}

	return token.String(), true
}

// RecordSessionToken merges a server-returned session token into the
// client's bookkeeping for the given partition key range.
//
// Parameters:
//   - collectionRID: The collection's resource id
//   - rangeID: The partition key range the response came from
//   - tokenText: The wire-format token from the response
//
// Returns:
//   - error: A types.ErrMalformedSessionToken wrap on unparsable input, or a
//     *types.SessionConsistencyError if the merge detects a protocol violation
func (c *Client[T]) RecordSessionToken(collectionRID, rangeID, tokenText string) error {
	err := c.sessions.Set(collectionRID, rangeID, tokenText)
	switch {
	case err == nil:
		c.config.Metrics.IncSessionTokenMerge()

		return nil
	case errors.Is(err, types.ErrMalformedSessionToken):
		c.config.Metrics.IncSessionTokenParseError()
		c.config.Logger.Warn("discarding malformed session token",
			"collection", collectionRID,
			"range", rangeID,
		)

		return err
	default:
		c.config.Logger.Error("session token merge failed",
			"collection", collectionRID,
			"range", rangeID,
			"error", err,
		)

		return err
	}
}

// CombinedSessionToken renders all tokens recorded for a collection as one
// header value of the form "rangeID:token,rangeID:token".
func (c *Client[T]) CombinedSessionToken(collectionRID string) string {
	return c.sessions.Combined(collectionRID)
}

// ApplyCombinedSessionToken merges a combined header value (for example one
// echoed by the server or shared by another client) into the bookkeeping.
func (c *Client[T]) ApplyCombinedSessionToken(collectionRID, combined string) error {
	return c.sessions.ApplyCombined(collectionRID, combined)
}

// ValidateSessionProgress checks whether a replica's token satisfies the
// consistency bound recorded for a partition key range: every dimension the
// recorded baseline cares about must be at least as advanced in the
// candidate.
//
// A missing baseline trivially validates. A region-set mismatch at equal
// version is an unrecoverable *types.SessionConsistencyError.
//
// Parameters:
//   - collectionRID: The collection's resource id
//   - rangeID: The partition key range the candidate belongs to
//   - candidateText: The replica's token in wire form
//
// Returns:
//   - bool: true if the candidate is at least as advanced as the baseline
//   - error: nil, a types.ErrMalformedSessionToken wrap, or a
//     *types.SessionConsistencyError
func (c *Client[T]) ValidateSessionProgress(collectionRID, rangeID, candidateText string) (bool, error) {
	candidate, err := session.Parse(candidateText)
	if err != nil {
		c.config.Metrics.IncSessionTokenParseError()

		return false, err
	}

	baseline, ok := c.sessions.Resolve(collectionRID, rangeID)
	if !ok {
		return true, nil
	}

	valid, err := baseline.IsValid(candidate)
	if err != nil {
		return false, err
	}
	if !valid {
		c.config.Metrics.IncSessionValidationFailure()
	}

	return valid, nil
}

// InvalidateCollection drops the cached routing map and all session state
// for a collection. Called when its topology generation changes.
func (c *Client[T]) InvalidateCollection(collectionRID string) {
	c.provider.Invalidate(collectionRID)
	c.sessions.Clear(collectionRID)
}

// WatchTopology consumes updates from a topology watcher, invalidating the
// affected collection on every generation change. It returns once the
// watcher's channel is closed or the context is cancelled.
//
// Run it in its own goroutine:
//
//	go client.WatchTopology(ctx, watcher)
//
// Parameters:
//   - ctx: Context controlling the watch lifetime
//   - watcher: The topology watcher to consume
func (c *Client[T]) WatchTopology(ctx context.Context, watcher TopologyWatcher) {
	for update := range watcher.Watch(ctx) {
		c.config.Logger.Info("collection topology changed, invalidating",
			"collection", update.CollectionRID,
			"generation", update.CollectionUniqueID,
			"reason", update.Reason,
		)
		c.InvalidateCollection(update.CollectionRID)
	}
}

// RegionName returns the configured display name for a region id, falling
// back to the numeric form.
func (c *Client[T]) RegionName(id types.RegionID) string {
	return c.config.RegionNames.Name(id)
}
