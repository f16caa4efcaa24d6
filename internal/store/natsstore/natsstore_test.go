package natsstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuku/respool/internal/store"
	"github.com/yuku/respool/internal/store/natsstore"
	"github.com/yuku/respool/internal/store/storetest"
)

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()

	srv, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	})
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	require.Eventually(t, func() bool {
		return srv.JetStreamEnabled()
	}, 5*time.Second, 50*time.Millisecond, "embedded NATS server not ready for JetStream")

	t.Cleanup(srv.Shutdown)
	return srv
}

func newStore(t *testing.T, url string) *natsstore.Store {
	t.Helper()
	ctx := context.Background()

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	s, err := natsstore.New(ctx, js, "respool_test")
	require.NoError(t, err)
	return s
}

func TestStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS test in short mode")
	}

	srv := runJetStreamServer(t)

	storetest.Run(t, func(t *testing.T) store.Store {
		return newStore(t, srv.ClientURL())
	})
}

func TestStore_ReinsertAfterDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS test in short mode")
	}

	ctx := context.Background()
	srv := runJetStreamServer(t)
	s := newStore(t, srv.ClientURL())
	r := storetest.NewRecord(storetest.NewGroup(t))

	// Given a record that was deleted
	first, err := s.Insert(ctx, r)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, r.GroupKey, r.ID))

	// When the same id is inserted again
	second, err := s.Insert(ctx, r)

	// Then the tombstone does not block it
	require.NoError(t, err)
	assert.Greater(t, second.Version, first.Version)
}

func TestConnect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS test in short mode")
	}

	ctx := context.Background()
	srv := runJetStreamServer(t)

	s, err := natsstore.Connect(ctx, srv.ClientURL(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Insert(ctx, storetest.NewRecord(storetest.NewGroup(t)))
	require.NoError(t, err)
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := natsstore.Connect(context.Background(), "nats://127.0.0.1:1", "")
	require.Error(t, err)
}
