package topology

import "time"

// GenerationConfig is the generation configuration stored in NATS KV.
//
// This is the JSON structure the control plane (or an operations tool) PUTs
// to the KV store when a collection's partition topology changes.
type GenerationConfig struct {
	// Collections lists the current generation of each collection.
	Collections []CollectionGeneration `json:"collections"`

	// Reason is a human-readable explanation for the latest change.
	// Example: "partition split", "region failover", "collection recreated"
	Reason string `json:"reason,omitempty"`
}

// CollectionGeneration names one collection's current generation.
type CollectionGeneration struct {
	// RID is the collection's resource id.
	RID string `json:"rid"`

	// UniqueID is the collection generation's unique id.
	UniqueID string `json:"uniqueId"`
}

// WatcherConfig holds configuration for topology watchers.
type WatcherConfig struct {
	// Key is the NATS KV key to watch for generation configuration.
	// Default: "polaris.topology.generations"
	Key string

	// PollInterval is the fallback polling interval if watch fails.
	// Default: 5 seconds
	PollInterval time.Duration

	// InitialFetchTimeout is the timeout for the initial KV fetch.
	// Default: 10 seconds
	InitialFetchTimeout time.Duration
}

// DefaultWatcherConfig returns a WatcherConfig with sensible defaults.
//
// Returns:
//   - WatcherConfig: Default configuration
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Key:                 "polaris.topology.generations",
		PollInterval:        5 * time.Second,
		InitialFetchTimeout: 10 * time.Second,
	}
}

// WatcherOption configures a topology watcher.
type WatcherOption func(*WatcherConfig)

// WithKey sets the NATS KV key to watch.
//
// Parameters:
//   - key: The key name (e.g., "storage.topology.generations")
//
// Returns:
//   - WatcherOption: Configuration option
func WithKey(key string) WatcherOption {
	return func(c *WatcherConfig) {
		c.Key = key
	}
}

// WithPollInterval sets the fallback polling interval.
//
// Parameters:
//   - d: Interval between polls when KV watch is unavailable
//
// Returns:
//   - WatcherOption: Configuration option
func WithPollInterval(d time.Duration) WatcherOption {
	return func(c *WatcherConfig) {
		c.PollInterval = d
	}
}

// WithInitialFetchTimeout sets the timeout for the initial KV fetch.
//
// Parameters:
//   - d: Timeout for the first fetch after Watch is called
//
// Returns:
//   - WatcherOption: Configuration option
func WithInitialFetchTimeout(d time.Duration) WatcherOption {
	return func(c *WatcherConfig) {
		c.InitialFetchTimeout = d
	}
}
