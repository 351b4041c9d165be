// Package polaris provides the client-side session-consistency and
// partition-routing core for a horizontally-partitioned, multi-region
// database.
//
// Polaris keeps two pieces of bookkeeping that let a client route requests
// correctly without a server round trip on every call: a vector session
// token proving which writes the client has already observed per region, and
// a collection routing map locating the server-side partition for any
// partition key.
//
// # Key Features
//
//   - Vector Session Tokens: Per-region logical clocks with strict merge and
//     validity rules that never silently relax a consistency guarantee
//   - Immutable Routing Maps: Lock-free concurrent reads; partition splits
//     and merges combine into new map instances, never mutating old ones
//   - Cached Map Provider: One current map per collection with deduplicated
//     refreshes through a caller-supplied metadata fetcher
//   - Session Container: Freshest token per partition key range, with the
//     combined per-collection header form
//   - Topology Watching: NATS JetStream KV watcher for collection generation
//     changes, with an in-memory equivalent for tests
//
// # Basic Usage
//
//	client, err := polaris.NewClient(fetcher,
//	    polaris.WithLogger(logger),
//	    polaris.WithMetrics(collector),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Route a request by its effective partition key.
//	pkRange, err := client.ResolveRange(ctx, collectionRID, effectiveKey)
//
//	// Attach the session token for that partition, if any.
//	if token, ok := client.SessionTokenForRange(collectionRID, pkRange.ID); ok {
//	    req.Header.Set("x-session-token", token)
//	}
//
//	// After the response, record the server-returned token.
//	err = client.RecordSessionToken(collectionRID, pkRange.ID, resp.SessionToken)
//
// # Error Handling
//
// Polaris distinguishes recoverable routing conditions from unrecoverable
// protocol violations:
//
//   - types.ErrMalformedSessionToken, types.ErrMalformedRoutingMap:
//     recoverable; treat the token as absent or reload the map
//   - *types.NotFoundError (types.ErrNotFound): recoverable; refresh routing
//     metadata and retry the request once
//   - *types.RangeGoneError (types.ErrRangeGone): recoverable, but the same
//     id will never resolve again; refresh and re-route by key
//   - *types.SessionConsistencyError (types.ErrSessionTokenInconsistent):
//     unrecoverable; a server/client protocol violation that must propagate
//
// Classify with the standard errors package:
//
//	var gone *types.RangeGoneError
//	if errors.As(err, &gone) {
//	    client.InvalidateCollection(collectionRID)
//	}
//
// # Concurrency
//
// Session tokens and routing maps are immutable values: any number of
// goroutines may hold and query the same instance without synchronization.
// The session container and the routing provider are the only mutable
// holders and are safe for concurrent use.
package polaris
