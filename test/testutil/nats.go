package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
)

// TopologyBucket is the KV bucket name the topology tests publish collection
// generation configuration to, matching the bucket operators provision for
// polaris deployments.
const TopologyBucket = "polaris-config"

// StartEmbeddedNATS runs an in-process NATS server with JetStream enabled
// and returns a JetStream context bound to it, for exercising the topology
// watcher without an external broker.
//
// The server listens on a random loopback port and keeps JetStream state
// under t.TempDir(); the client connection and the server are torn down via
// t.Cleanup when the test finishes.
//
// Parameters:
//   - t: The testing context
//
// Returns:
//   - jetstream.JetStream: A JetStream context ready for use
func StartEmbeddedNATS(t *testing.T) jetstream.JetStream {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      -1, // random available port
		JetStream: true,
		StoreDir:  t.TempDir(),
	})
	require.NoError(t, err, "failed to create embedded NATS server")

	ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second), "embedded NATS server not ready")

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err, "failed to connect to embedded NATS server")

	js, err := jetstream.New(nc)
	require.NoError(t, err, "failed to create JetStream context")

	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
	})

	return js
}

// CreateTopologyKV creates the KV bucket the topology watcher reads
// generation configuration from.
//
// Parameters:
//   - t: The testing context
//   - js: The JetStream context, typically from StartEmbeddedNATS
//
// Returns:
//   - jetstream.KeyValue: The created bucket
func CreateTopologyKV(t *testing.T, js jetstream.JetStream) jetstream.KeyValue {
	t.Helper()

	kv, err := js.CreateKeyValue(context.Background(), jetstream.KeyValueConfig{
		Bucket:      TopologyBucket,
		Description: "polaris collection generation configuration",
	})
	require.NoError(t, err, "failed to create topology KV bucket")

	return kv
}
