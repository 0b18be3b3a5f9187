package notify

import (
	"context"
	"sync"
)

const defaultSubscriberBuffer = 16

// Snapshot pairs a document id with its current data, or Data == nil if the
// document no longer exists (deleted since the subscriber last looked).
type Snapshot struct {
	ID   string
	Data map[string]any
}

// FetchFunc loads a document's current live data. It returns found == false
// if the document is absent or tombstoned.
type FetchFunc func(id string) (data map[string]any, found bool)

// Hub is the change-notification hub for one collection: one broadcast
// channel of collection-changed events, plus one broadcast channel of
// Snapshots per document id that currently has a subscriber.
type Hub struct {
	collectionName string
	fetch          FetchFunc
	logger         Logger
	collection     *broadcaster[struct{}]

	mu   sync.Mutex
	docs map[string]*broadcaster[Snapshot]
}

// NewHub creates a Hub that uses fetch to load fresh document snapshots
// when publishing or when a document gets its first subscriber. name
// identifies the collection in logged notification events. logger may be
// nil (a no-op logger is used).
func NewHub(name string, fetch FetchFunc, logger Logger) *Hub {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Hub{
		collectionName: name,
		fetch:          fetch,
		logger:         logger,
		collection:     newBroadcaster[struct{}](defaultSubscriberBuffer),
		docs:           map[string]*broadcaster[Snapshot]{},
	}
}

// Publish announces a mutation of id: it always publishes a
// collection-changed event, and additionally pushes a freshly fetched
// Snapshot to id's document subscribers, if any exist.
func (h *Hub) Publish(id string) {
	h.collection.publish(struct{}{})

	h.mu.Lock()
	bus, ok := h.docs[id]
	h.mu.Unlock()

	subscribers := h.collection.subscriberCount()
	if ok {
		subscribers += bus.subscriberCount()
	}
	h.logger.LogNotify(context.Background(), h.collectionName, id, subscribers)

	if !ok {
		return
	}

	data, found := h.fetch(id)
	if !found {
		data = nil
	}
	bus.publish(Snapshot{ID: id, Data: data})
}

// PublishExternal announces a collection-changed event with no known
// document id, used for filesystem-watch-driven notifications where the
// specific changed document isn't known.
func (h *Hub) PublishExternal() {
	h.collection.publish(struct{}{})
	h.logger.LogNotify(context.Background(), h.collectionName, "", h.collection.subscriberCount())
}

// SubscribeCollection registers a subscriber to collection-changed events.
// The returned cancel func must be called to release the subscription.
func (h *Hub) SubscribeCollection() (<-chan struct{}, func()) {
	ch, id := h.collection.subscribe()
	return ch, func() { h.collection.unsubscribe(id) }
}

// CollectionSubscriberCount reports the number of active collection-event
// subscribers.
func (h *Hub) CollectionSubscriberCount() int {
	return h.collection.subscriberCount()
}

// SubscribeDocument registers a subscriber to Snapshot updates for id. The
// first subscriber for an id is immediately pushed the document's current
// snapshot. The returned cancel func must be called to release the
// subscription.
func (h *Hub) SubscribeDocument(id string) (<-chan Snapshot, func()) {
	h.mu.Lock()
	bus, ok := h.docs[id]
	if !ok {
		bus = newBroadcaster[Snapshot](defaultSubscriberBuffer)
		h.docs[id] = bus
	}
	h.mu.Unlock()

	ch, subID := bus.subscribe()
	if bus.subscriberCount() == 1 {
		data, found := h.fetch(id)
		if !found {
			data = nil
		}
		bus.publish(Snapshot{ID: id, Data: data})
	}

	cancel := func() {
		bus.unsubscribe(subID)
		if bus.subscriberCount() == 0 {
			h.mu.Lock()
			if h.docs[id] == bus {
				delete(h.docs, id)
			}
			h.mu.Unlock()
		}
	}
	return ch, cancel
}

// Close tears down every subscription, closing every subscriber channel.
// Close removes every subscriber, so a Publish after Close reaches no one.
func (h *Hub) Close() {
	h.collection.closeAll()
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, bus := range h.docs {
		bus.closeAll()
		delete(h.docs, id)
	}
}
