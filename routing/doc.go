// Package routing implements the collection routing map: an immutable,
// versioned index over a collection's partition key ranges, plus the cached
// provider that keeps one current map per collection.
//
// A CollectionRoutingMap answers, for an effective partition key or a
// partition key range id, which server-side partition should receive a
// request, along with opaque caller-owned metadata about it. Maps are never
// mutated in place: partial updates are combined into a new instance while
// existing readers keep querying the old one, so any number of goroutines
// may share a map without synchronization.
//
// Provider is the caching layer on top: it holds the current map per
// collection, dedupes concurrent refreshes, and applies partial listings via
// Combine with fallback to a full reload. All network I/O lives behind the
// caller-supplied Fetcher; the map itself performs none.
package routing
