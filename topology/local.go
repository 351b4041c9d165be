package topology

import (
	"context"
	"sync"

	"github.com/polarisdb/polaris"
)

// Local provides an in-memory topology watcher and operator for testing.
//
// Unlike NATS, this implementation allows programmatic control of collection
// generations, making it ideal for unit tests and demos. It implements both
// TopologyWatcher (for observing) and TopologyOperator (for publishing).
type Local struct {
	generations map[string]string
	mu          sync.RWMutex

	updates       chan polaris.TopologyUpdate
	done          chan struct{}
	closed        bool
	watchStarted  bool
	updatesClosed bool
}

var (
	_ polaris.TopologyWatcher  = (*Local)(nil)
	_ polaris.TopologyOperator = (*Local)(nil)
)

// NewLocal creates a new in-memory topology watcher/operator.
//
// Returns:
//   - *Local: A new local topology instance
func NewLocal() *Local {
	return &Local{
		generations: make(map[string]string),
		updates:     make(chan polaris.TopologyUpdate, 10),
		done:        make(chan struct{}),
	}
}

// Watch returns a channel that receives topology updates.
//
// Updates are emitted when SetGeneration is called. The channel is closed
// when Close() is called or the context is cancelled.
//
// Multiple calls to Watch return the same channel; only the first call's
// context controls the watch lifecycle.
//
// Parameters:
//   - ctx: Context for cancellation (only used on first call)
//
// Returns:
//   - <-chan polaris.TopologyUpdate: Channel of topology changes
func (l *Local) Watch(ctx context.Context) <-chan polaris.TopologyUpdate {
	l.mu.Lock()
	if !l.watchStarted {
		l.watchStarted = true
		go l.waitForClose(ctx)
	}
	l.mu.Unlock()

	return l.updates
}

// SetGeneration records a new generation for a collection.
//
// A TopologyUpdate is emitted when the generation actually changes relative
// to a previously recorded one; the first recording for a collection is
// silent since watchers have nothing cached to invalidate.
//
// Parameters:
//   - collectionRID: The affected collection
//   - uniqueID: The new generation's unique id
//   - reason: Human-readable explanation
//
// Returns:
//   - error: Always nil for the local implementation
func (l *Local) SetGeneration(collectionRID, uniqueID, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || l.updatesClosed {
		return nil
	}

	previous, seen := l.generations[collectionRID]
	if seen && previous == uniqueID {
		return nil
	}
	l.generations[collectionRID] = uniqueID

	if !seen {
		return nil
	}

	// Emit update (non-blocking)
	select {
	case l.updates <- polaris.TopologyUpdate{
		CollectionRID:      collectionRID,
		CollectionUniqueID: uniqueID,
		Reason:             reason,
	}:
	default:
		// Channel full, skip update
	}

	return nil
}

// Generation returns the last recorded generation unique id for a collection.
//
// Returns:
//   - string: The generation unique id
//   - bool: false if the collection has not been recorded
func (l *Local) Generation(collectionRID string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	uniqueID, ok := l.generations[collectionRID]

	return uniqueID, ok
}

// Close stops the watcher and releases resources.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	close(l.done)

	return nil
}

// waitForClose waits for context cancellation or close signal.
func (l *Local) waitForClose(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-l.done:
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.updatesClosed {
		l.updatesClosed = true
		close(l.updates)
	}
}
