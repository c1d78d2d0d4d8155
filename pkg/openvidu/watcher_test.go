package openvidu

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatcher(t *testing.T) {
	f := newFakeServer(t).withDefaults()
	c := newTestClient(t, f)

	_, err := NewWatcher(nil, WatcherOption{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewWatcher(c, WatcherOption{Spec: "every now and then"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	w, err := NewWatcher(c, WatcherOption{})
	require.NoError(t, err)
	assert.Equal(t, "@every 5s", w.spec)
}

func TestWatcherRunOnce(t *testing.T) {
	f := newFakeServer(t).withDefaults()
	c := newTestClient(t, f)

	var notified int32
	w, err := NewWatcher(c, WatcherOption{OnChange: func(got *Client) {
		assert.Same(t, c, got)
		atomic.AddInt32(&notified, 1)
	}})
	require.NoError(t, err)

	changed, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, int32(0), atomic.LoadInt32(&notified))

	f.handle(http.MethodGet, "sessions", http.StatusOK, sessionsFixture(session2Fixture()))
	changed, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&notified))
	assert.Equal(t, 1, c.SessionCount())
}

func TestWatcherRunOnceError(t *testing.T) {
	f := newFakeServer(t).withDefaults()
	c := newTestClient(t, f)
	w, err := NewWatcher(c, WatcherOption{OnChange: func(*Client) { t.Error("unexpected change") }})
	require.NoError(t, err)

	f.handle(http.MethodGet, "sessions", http.StatusBadGateway, "upstream down")
	_, err = w.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrServerError)
}

func TestWatcherSchedule(t *testing.T) {
	f := newFakeServer(t).withDefaults()
	c := newTestClient(t, f)
	f.handle(http.MethodGet, "sessions", http.StatusOK, sessionsFixture(session2Fixture()))

	changes := make(chan int, 4)
	w, err := NewWatcher(c, WatcherOption{
		Spec:     "@every 1s",
		Timeout:  time.Second,
		OnChange: func(cl *Client) { changes <- cl.SessionCount() },
	})
	require.NoError(t, err)

	w.Start()
	w.Start()
	select {
	case n := <-changes:
		assert.Equal(t, 1, n)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not fetch")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))
	require.NoError(t, w.Stop(ctx))
	assert.GreaterOrEqual(t, f.callCount(http.MethodGet, "sessions"), 2)
}
