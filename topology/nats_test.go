package topology_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polarisdb/polaris/test/testutil"
	"github.com/polarisdb/polaris/topology"
)

const testKey = "polaris.topology.generations"

func setupWatcherKV(t *testing.T) jetstream.KeyValue {
	t.Helper()

	return testutil.CreateTopologyKV(t, testutil.StartEmbeddedNATS(t))
}

func putGenerations(t *testing.T, kv jetstream.KeyValue, reason string, gens ...topology.CollectionGeneration) {
	t.Helper()

	data, err := json.Marshal(topology.GenerationConfig{
		Collections: gens,
		Reason:      reason,
	})
	require.NoError(t, err)

	_, err = kv.Put(context.Background(), testKey, data)
	require.NoError(t, err)
}

func TestNewNATSNilKV(t *testing.T) {
	_, err := topology.NewNATS(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KeyValue store is nil")
}

func TestDefaultWatcherConfig(t *testing.T) {
	config := topology.DefaultWatcherConfig()

	assert.Equal(t, "polaris.topology.generations", config.Key)
	assert.Equal(t, 5*time.Second, config.PollInterval)
	assert.Equal(t, 10*time.Second, config.InitialFetchTimeout)
}

func TestNATSWatcherOptions(t *testing.T) {
	kv := setupWatcherKV(t)

	watcher, err := topology.NewNATS(kv,
		topology.WithKey("custom.key"),
		topology.WithPollInterval(time.Second),
		topology.WithInitialFetchTimeout(2*time.Second),
	)
	require.NoError(t, err)
	defer watcher.Close()

	config := watcher.Config()
	assert.Equal(t, "custom.key", config.Key)
	assert.Equal(t, time.Second, config.PollInterval)
	assert.Equal(t, 2*time.Second, config.InitialFetchTimeout)
}

func TestNATSWatcherEmitsOnGenerationChange(t *testing.T) {
	kv := setupWatcherKV(t)

	// The initial state exists before the watcher starts; observing it must
	// not produce an event.
	putGenerations(t, kv, "initial", topology.CollectionGeneration{RID: "col1", UniqueID: "gen-1"})

	watcher, err := topology.NewNATS(kv)
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := watcher.Watch(ctx)

	require.Eventually(t, func() bool {
		gen, ok := watcher.Generation("col1")
		return ok && gen == "gen-1"
	}, 5*time.Second, 10*time.Millisecond, "watcher should observe the initial state")

	select {
	case update := <-updates:
		t.Fatalf("unexpected update for first observation: %+v", update)
	case <-time.After(200 * time.Millisecond):
	}

	putGenerations(t, kv, "collection recreated", topology.CollectionGeneration{RID: "col1", UniqueID: "gen-2"})

	select {
	case update := <-updates:
		assert.Equal(t, "col1", update.CollectionRID)
		assert.Equal(t, "gen-2", update.CollectionUniqueID)
		assert.Equal(t, "collection recreated", update.Reason)
	case <-time.After(5 * time.Second):
		t.Fatal("expected an update for the generation change")
	}

	gen, ok := watcher.Generation("col1")
	require.True(t, ok)
	assert.Equal(t, "gen-2", gen)
}

func TestNATSWatcherEmitsPerChangedCollection(t *testing.T) {
	kv := setupWatcherKV(t)

	putGenerations(t, kv, "initial",
		topology.CollectionGeneration{RID: "col1", UniqueID: "gen-1"},
		topology.CollectionGeneration{RID: "col2", UniqueID: "gen-1"},
	)

	watcher, err := topology.NewNATS(kv)
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := watcher.Watch(ctx)

	require.Eventually(t, func() bool {
		_, ok := watcher.Generation("col2")
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	// Only col2 changes; col1 keeps its generation and stays quiet.
	putGenerations(t, kv, "partition split",
		topology.CollectionGeneration{RID: "col1", UniqueID: "gen-1"},
		topology.CollectionGeneration{RID: "col2", UniqueID: "gen-2"},
	)

	select {
	case update := <-updates:
		assert.Equal(t, "col2", update.CollectionRID)
		assert.Equal(t, "gen-2", update.CollectionUniqueID)
	case <-time.After(5 * time.Second):
		t.Fatal("expected an update for col2")
	}

	select {
	case update := <-updates:
		t.Fatalf("unexpected extra update: %+v", update)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNATSWatcherIgnoresInvalidJSON(t *testing.T) {
	kv := setupWatcherKV(t)

	putGenerations(t, kv, "initial", topology.CollectionGeneration{RID: "col1", UniqueID: "gen-1"})

	watcher, err := topology.NewNATS(kv)
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := watcher.Watch(ctx)

	require.Eventually(t, func() bool {
		_, ok := watcher.Generation("col1")
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	_, err = kv.Put(ctx, testKey, []byte("{not json"))
	require.NoError(t, err)

	select {
	case update := <-updates:
		t.Fatalf("unexpected update for invalid JSON: %+v", update)
	case <-time.After(200 * time.Millisecond):
	}

	// The watcher keeps working after the bad entry.
	putGenerations(t, kv, "recovered", topology.CollectionGeneration{RID: "col1", UniqueID: "gen-2"})

	select {
	case update := <-updates:
		assert.Equal(t, "gen-2", update.CollectionUniqueID)
	case <-time.After(5 * time.Second):
		t.Fatal("expected an update after recovery")
	}
}

func TestNATSWatcherIgnoresDelete(t *testing.T) {
	kv := setupWatcherKV(t)

	putGenerations(t, kv, "initial", topology.CollectionGeneration{RID: "col1", UniqueID: "gen-1"})

	watcher, err := topology.NewNATS(kv)
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := watcher.Watch(ctx)

	require.Eventually(t, func() bool {
		_, ok := watcher.Generation("col1")
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, kv.Delete(ctx, testKey))

	select {
	case update := <-updates:
		t.Fatalf("unexpected update for key deletion: %+v", update)
	case <-time.After(200 * time.Millisecond):
	}

	gen, ok := watcher.Generation("col1")
	require.True(t, ok)
	assert.Equal(t, "gen-1", gen, "last observed state survives a deletion")
}

func TestNATSWatcherClose(t *testing.T) {
	kv := setupWatcherKV(t)

	watcher, err := topology.NewNATS(kv)
	require.NoError(t, err)

	updates := watcher.Watch(context.Background())

	require.NoError(t, watcher.Close())
	require.NoError(t, watcher.Close(), "close is idempotent")

	select {
	case _, ok := <-updates:
		assert.False(t, ok, "channel should be closed")
	case <-time.After(5 * time.Second):
		t.Fatal("channel was not closed")
	}
}

func TestNATSWatchReturnsSameChannel(t *testing.T) {
	kv := setupWatcherKV(t)

	watcher, err := topology.NewNATS(kv)
	require.NoError(t, err)
	defer watcher.Close()

	ctx := context.Background()
	first := watcher.Watch(ctx)
	second := watcher.Watch(ctx)

	assert.Equal(t, first, second)
}
