package signal_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuku/respool/internal/signal"
)

type countingWaker struct {
	calls atomic.Int32
}

func (w *countingWaker) Signal() {
	w.calls.Add(1)
}

func notify(t *testing.T, h *signal.ListenHandler, group string) error {
	t.Helper()
	return h.HandleNotification(context.Background(), &pgconn.Notification{Channel: signal.Channel, Payload: group}, nil)
}

func TestListenHandler_HandleNotification(t *testing.T) {
	t.Parallel()

	t.Run("wakes the registered group only", func(t *testing.T) {
		// Given
		handler := &signal.ListenHandler{}
		first, second := &countingWaker{}, &countingWaker{}
		require.NoError(t, handler.Register("group1", first))
		require.NoError(t, handler.Register("group2", second))

		// When
		require.NoError(t, notify(t, handler, "group1"))
		require.NoError(t, notify(t, handler, "group1"))

		// Then
		assert.EqualValues(t, 2, first.calls.Load(), "group1 should be woken on every notification")
		assert.Zero(t, second.calls.Load(), "group2 should not be woken")
		assert.Zero(t, handler.Dropped())
	})

	t.Run("drops notifications for groups not open here", func(t *testing.T) {
		// Given
		handler := &signal.ListenHandler{}

		// When
		err := notify(t, handler, "elsewhere")

		// Then
		assert.NoError(t, err, "other processes' groups are not an error")
		assert.Equal(t, 1, handler.Dropped())
	})

	t.Run("rejects notifications without group", func(t *testing.T) {
		handler := &signal.ListenHandler{}

		err := notify(t, handler, "")

		assert.Error(t, err)
		assert.Zero(t, handler.Dropped())
	})
}

func TestListenHandler_Register(t *testing.T) {
	t.Parallel()

	// Given
	handler := &signal.ListenHandler{}
	waker := &countingWaker{}
	require.NoError(t, handler.Register("group", waker))

	// Then
	assert.Error(t, handler.Register("group", &countingWaker{}), "registering the same group twice should fail")
	assert.Error(t, handler.Register("other", nil), "a nil waker should be rejected")
	assert.True(t, handler.Unregister("group"))
	assert.False(t, handler.Unregister("group"), "second unregister should report nothing removed")

	require.NoError(t, notify(t, handler, "group"))
	assert.Zero(t, waker.calls.Load(), "an unregistered waker should not be woken")
	assert.Equal(t, 1, handler.Dropped())
	assert.NoError(t, handler.Register("group", waker), "group can be registered again after unregister")
}
