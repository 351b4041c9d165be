// Package topology provides partition-topology change monitoring for routing
// map and session invalidation.
//
// Polaris uses a NATS Key-Value store to broadcast collection generation
// changes to all connected clients. When a collection is recreated or a
// region failover rewires its partitions, operations (or the control plane)
// publish the new generation and every client invalidates its cached routing
// map and session state for that collection instead of waiting to stumble
// over stale range ids.
//
// # Overview
//
// The topology package provides implementations of the
// [polaris.TopologyWatcher] and [polaris.TopologyOperator] interfaces:
//   - [polaris.TopologyWatcher]: Monitors external signals and emits
//     [polaris.TopologyUpdate] events when a collection generation changes.
//   - [polaris.TopologyOperator]: Allows publishing generation changes
//     programmatically.
//
// # NATS Topology
//
// [NATS] watches a NATS KV key for the generation configuration:
//
//	nc, _ := nats.Connect("nats://localhost:4222")
//	js, _ := jetstream.New(nc)
//	kv, _ := js.KeyValue(ctx, "polaris-config")
//
//	watcher, _ := topology.NewNATS(kv,
//	    topology.WithKey("topology.generations"), // custom key
//	)
//
//	go client.WatchTopology(ctx, watcher)
//
// # Local Topology
//
// [Local] is the in-memory watcher/operator for unit tests and demos:
//
//	local := topology.NewLocal()
//	go client.WatchTopology(ctx, local)
//	_ = local.SetGeneration("col1", "gen-2", "partition split")
package topology
