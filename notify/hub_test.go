package notify_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localdb/docstore/notify"
)

type recordingLogger struct {
	mu    sync.Mutex
	calls int
}

func (l *recordingLogger) LogNotify(_ context.Context, collection, id string, subscribers int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
}

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func TestSubscribeDocumentGetsInitialSnapshot(t *testing.T) {
	data := map[string]any{"id": "x", "name": "Ada"}
	hub := notify.NewHub("docs", func(id string) (map[string]any, bool) {
		if id == "x" {
			return data, true
		}
		return nil, false
	}, nil)

	ch, cancel := hub.SubscribeDocument("x")
	defer cancel()

	select {
	case snap := <-ch:
		assert.Equal(t, "x", snap.ID)
		assert.Equal(t, "Ada", snap.Data["name"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}
}

func TestPublishNotifiesCollectionAndDocument(t *testing.T) {
	data := map[string]any{"id": "x", "v": float64(1)}
	hub := notify.NewHub("docs", func(id string) (map[string]any, bool) { return data, true }, nil)

	collCh, collCancel := hub.SubscribeCollection()
	defer collCancel()
	docCh, docCancel := hub.SubscribeDocument("x")
	defer docCancel()

	<-docCh // drain initial snapshot

	data["v"] = float64(2)
	hub.Publish("x")

	select {
	case <-collCh:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for collection event")
	}
	select {
	case snap := <-docCh:
		assert.Equal(t, float64(2), snap.Data["v"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for document snapshot")
	}
}

func TestCloseClosesSubscriberChannels(t *testing.T) {
	hub := notify.NewHub("docs", func(string) (map[string]any, bool) { return nil, false }, nil)
	ch, cancel := hub.SubscribeCollection()
	defer cancel()

	hub.Close()

	_, open := <-ch
	assert.False(t, open)
}

func TestSlowSubscriberNeverBlocksPublish(t *testing.T) {
	hub := notify.NewHub("docs", func(string) (map[string]any, bool) { return nil, false }, nil)
	_, cancel := hub.SubscribeCollection()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish("id")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow/idle subscriber")
	}
	require.Equal(t, 1, hub.CollectionSubscriberCount())
}

func TestPublishCallsLogger(t *testing.T) {
	logger := &recordingLogger{}
	hub := notify.NewHub("docs", func(string) (map[string]any, bool) { return nil, false }, logger)

	hub.Publish("x")
	hub.PublishExternal()

	assert.Equal(t, 2, logger.count())
}
