// Package types provides shared types and error definitions for the polaris library.
//
// This is a leaf package with zero polaris imports to prevent import cycles.
// All packages in polaris can safely import this package.
//
// # Types
//
// RegionID identifies a replication region within a partition's topology:
//
//	var region types.RegionID = 3
//
// PartitionKeyRange describes one server-side partition as a half-open
// interval [MinInclusive, MaxExclusive) over the effective-partition-key
// order. Range is the query-side counterpart used for overlap lookups.
//
// # Errors
//
// Sentinel errors are provided for the error taxonomy of the routing and
// session layers:
//
//   - ErrMalformedSessionToken: a session token string could not be parsed (recoverable)
//   - ErrMalformedRoutingMap: a range listing could not form or combine into a valid map (recoverable)
//   - ErrKeyOutOfRange: an effective key outside the declared key universe (caller contract violation)
//   - ErrNotFound: the requested resource is unknown (recoverable, refresh and retry once)
//   - ErrRangeGone: the requested range id was split or merged away (recoverable, refresh required)
//   - ErrSessionTokenInconsistent: tokens of equal version disagree on region sets (unrecoverable)
//
// Structured error types (NotFoundError, RangeGoneError,
// SessionConsistencyError) wrap these sentinels and carry request context;
// use errors.Is/As to classify them.
package types
