package polaris

import "context"

// TopologyUpdate notifies that a collection's partition topology generation
// changed: the collection was recreated, or a region failover rewired its
// partitions. Cached routing maps and session state for the collection are
// stale once this arrives.
type TopologyUpdate struct {
	// CollectionRID identifies the affected collection.
	CollectionRID string

	// CollectionUniqueID is the new generation's unique id.
	CollectionUniqueID string

	// Reason is a human-readable explanation, e.g. "region failover".
	Reason string
}

// TopologyWatcher observes partition topology generation changes.
//
// Implementations MUST be safe for concurrent use. Watch should be called
// once per instance; subsequent calls return the same channel. The channel
// is closed when Close is called or the context is cancelled.
type TopologyWatcher interface {
	// Watch returns a channel that receives topology updates.
	//
	// Parameters:
	//   - ctx: Context for cancellation (only used on first call)
	//
	// Returns:
	//   - <-chan TopologyUpdate: Channel of topology changes
	Watch(ctx context.Context) <-chan TopologyUpdate

	// Close stops the watcher and releases resources.
	// Safe to call multiple times.
	Close() error
}

// TopologyOperator publishes topology generation changes.
//
// This interface is typically used by operations tools and tests to signal
// that a collection's topology changed.
type TopologyOperator interface {
	// SetGeneration records a new generation for a collection and notifies
	// all watchers.
	//
	// Parameters:
	//   - collectionRID: The affected collection
	//   - uniqueID: The new generation's unique id
	//   - reason: Human-readable explanation
	//
	// Returns:
	//   - error: nil on success
	SetGeneration(collectionRID, uniqueID, reason string) error
}
