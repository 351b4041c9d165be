package topology

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/polarisdb/polaris"
)

// NATS monitors a NATS KV bucket for collection generation configuration.
//
// It watches a configurable key and emits TopologyUpdate events whenever a
// collection's generation unique id changes, letting clients invalidate
// cached routing maps and session state before they stumble over stale
// range ids.
//
// Watch() should be called once per instance. Subsequent calls return the
// same channel. The channel is closed when Close() is called or the context
// is cancelled.
type NATS struct {
	kv     jetstream.KeyValue
	config WatcherConfig

	// Last observed generation per collection rid.
	generations map[string]string
	mu          sync.RWMutex

	// Lifecycle
	updates      chan polaris.TopologyUpdate
	done         chan struct{}
	closed       bool
	watchStarted bool
	closeOnce    sync.Once
}

var _ polaris.TopologyWatcher = (*NATS)(nil)

// NewNATS creates a new NATS KV topology watcher.
//
// The watcher will begin monitoring the KV bucket for generation
// configuration when Watch() is called.
//
// Parameters:
//   - kv: A NATS JetStream KeyValue store
//   - opts: Optional configuration options
//
// Returns:
//   - *NATS: A new watcher instance
//   - error: Error if kv is nil
//
// Example:
//
//	nc, _ := nats.Connect("nats://localhost:4222")
//	js, _ := jetstream.New(nc)
//	kv, _ := js.KeyValue(ctx, "polaris-config")
//
//	watcher, _ := topology.NewNATS(kv,
//	    topology.WithKey("topology.generations"),
//	    topology.WithPollInterval(10*time.Second),
//	)
func NewNATS(kv jetstream.KeyValue, opts ...WatcherOption) (*NATS, error) {
	if kv == nil {
		return nil, errors.New("polaris/topology: KeyValue store is nil")
	}

	config := DefaultWatcherConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &NATS{
		kv:          kv,
		config:      config,
		generations: make(map[string]string),
		updates:     make(chan polaris.TopologyUpdate, 10),
		done:        make(chan struct{}),
	}, nil
}

// Watch returns a channel that receives topology updates.
//
// The watcher spawns a background goroutine that monitors the NATS KV key.
// When a collection's generation changes, it emits a TopologyUpdate event
// for that collection.
//
// The channel is closed when Close() is called or the context is cancelled.
// Multiple calls to Watch return the same channel; only the first call's
// context controls the watch lifecycle.
//
// Parameters:
//   - ctx: Context for cancellation (only used on first call)
//
// Returns:
//   - <-chan polaris.TopologyUpdate: Channel of topology changes
func (n *NATS) Watch(ctx context.Context) <-chan polaris.TopologyUpdate {
	n.mu.Lock()
	if n.watchStarted {
		n.mu.Unlock()

		return n.updates
	}
	n.watchStarted = true
	n.mu.Unlock()

	go n.watchLoop(ctx)

	return n.updates
}

// Close stops the watcher and releases resources.
//
// This method is safe to call multiple times.
func (n *NATS) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}

	n.closed = true
	close(n.done)

	return nil
}

// Generation returns the last observed generation unique id for a collection.
//
// This returns the cached value from the last processed KV entry; it does
// not perform a live KV fetch.
//
// Returns:
//   - string: The generation unique id
//   - bool: false if the collection has not been observed
func (n *NATS) Generation(collectionRID string) (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	uniqueID, ok := n.generations[collectionRID]

	return uniqueID, ok
}

// Config returns the watcher configuration.
//
// This method is primarily useful for testing to verify configuration options.
//
// Returns:
//   - WatcherConfig: The current watcher configuration
func (n *NATS) Config() WatcherConfig {
	return n.config
}

// watchLoop is the main watch loop that monitors the NATS KV key.
func (n *NATS) watchLoop(ctx context.Context) {
	defer n.closeOnce.Do(func() { close(n.updates) })

	// Initial fetch
	n.fetchAndEmit(ctx)

	// Start watching
	watcher, err := n.kv.Watch(ctx, n.config.Key)
	if err != nil {
		// Fall back to polling if watch fails
		n.pollLoop(ctx)
		return
	}
	defer func() { _ = watcher.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.done:
			return
		case entry, ok := <-watcher.Updates():
			if !ok {
				// Watcher channel closed, fall back to polling
				n.pollLoop(ctx)
				return
			}
			if entry == nil {
				// Initial nil entry, skip
				continue
			}
			n.processEntry(entry)
		}
	}
}

// pollLoop is a fallback polling loop when watch fails.
func (n *NATS) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(n.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.done:
			return
		case <-ticker.C:
			n.fetchAndEmit(ctx)
		}
	}
}

// fetchAndEmit fetches the current KV value and emits updates if changed.
func (n *NATS) fetchAndEmit(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, n.config.InitialFetchTimeout)
	defer cancel()

	entry, err := n.kv.Get(fetchCtx, n.config.Key)
	if err != nil {
		// Key doesn't exist yet - nothing to compare against
		return
	}

	n.processEntry(entry)
}

// processEntry parses a KV entry and emits updates for changed generations.
func (n *NATS) processEntry(entry jetstream.KeyValueEntry) {
	// A deleted or purged key carries no generation information; keep the
	// last observed state rather than treating every collection as changed.
	if entry.Operation() == jetstream.KeyValueDelete || entry.Operation() == jetstream.KeyValuePurge {
		return
	}

	var config GenerationConfig
	if err := json.Unmarshal(entry.Value(), &config); err != nil {
		// Invalid JSON - ignore the entry
		return
	}

	for _, gen := range config.Collections {
		n.updateGeneration(gen.RID, gen.UniqueID, config.Reason)
	}
}

// updateGeneration records a collection's generation and emits an update if
// it changed. The very first observation of a collection is recorded without
// an event: there is nothing cached to invalidate yet.
func (n *NATS) updateGeneration(collectionRID, uniqueID, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	previous, seen := n.generations[collectionRID]
	if seen && previous == uniqueID {
		return
	}
	n.generations[collectionRID] = uniqueID

	if !seen {
		return
	}

	// Emit update (non-blocking)
	select {
	case n.updates <- polaris.TopologyUpdate{
		CollectionRID:      collectionRID,
		CollectionUniqueID: uniqueID,
		Reason:             reason,
	}:
	default:
		// Channel full, skip update
	}
}
