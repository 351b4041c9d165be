package integration_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polarisdb/polaris"
	"github.com/polarisdb/polaris/routing"
	"github.com/polarisdb/polaris/test/testutil"
	"github.com/polarisdb/polaris/topology"
	"github.com/polarisdb/polaris/types"
)

// TestTopologyInvalidationEndToEnd exercises the full invalidation path: a
// control plane publishes a generation change to NATS KV, the watcher picks
// it up, and the client drops its cached routing map and session state.
func TestTopologyInvalidationEndToEnd(t *testing.T) {
	js := testutil.StartEmbeddedNATS(t)
	kv := testutil.CreateTopologyKV(t, js)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	publish := func(uniqueID, reason string) {
		data, err := json.Marshal(topology.GenerationConfig{
			Collections: []topology.CollectionGeneration{{RID: "orders", UniqueID: uniqueID}},
			Reason:      reason,
		})
		require.NoError(t, err)

		_, err = kv.Put(ctx, "polaris.topology.generations", data)
		require.NoError(t, err)
	}

	publish("gen-1", "initial")

	watcher, err := topology.NewNATS(kv)
	require.NoError(t, err)
	defer watcher.Close()

	fetcher := testutil.NewMockFetcher[string]()
	fetcher.SetListing("orders", "gen-1", []routing.RangeInfo[string]{
		{Range: types.PartitionKeyRange{ID: "0", MinInclusive: "", MaxExclusive: "80"}, Info: "replica-a"},
		{Range: types.PartitionKeyRange{ID: "1", MinInclusive: "80", MaxExclusive: "FF"}, Info: "replica-b"},
	})

	client, err := polaris.NewClient[string](fetcher)
	require.NoError(t, err)

	go client.WatchTopology(ctx, watcher)

	require.Eventually(t, func() bool {
		gen, ok := watcher.Generation("orders")
		return ok && gen == "gen-1"
	}, 5*time.Second, 10*time.Millisecond, "watcher should observe the initial generation")

	// Warm the client: one routing fetch, one recorded session token.
	r, err := client.ResolveRange(ctx, "orders", "42")
	require.NoError(t, err)
	assert.Equal(t, "0", r.ID)
	require.NoError(t, client.RecordSessionToken("orders", r.ID, "1#100#1=90"))
	assert.Equal(t, int64(1), fetcher.FetchAllCalls())

	// The collection is dropped and recreated with a new topology.
	fetcher.SetListing("orders", "gen-2", []routing.RangeInfo[string]{
		{Range: types.PartitionKeyRange{ID: "5", MinInclusive: "", MaxExclusive: "FF"}, Info: "replica-c"},
	})
	publish("gen-2", "collection recreated")

	require.Eventually(t, func() bool {
		_, ok := client.SessionTokenForRange("orders", "0")
		return !ok
	}, 5*time.Second, 10*time.Millisecond, "session state should be dropped on generation change")

	// The next lookup fetches the new generation.
	r, err = client.ResolveRange(ctx, "orders", "42")
	require.NoError(t, err)
	assert.Equal(t, "5", r.ID)
	assert.Equal(t, int64(2), fetcher.FetchAllCalls())
}
