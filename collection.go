package docstore

import (
	"context"

	"github.com/localdb/docstore/query"
	"github.com/localdb/docstore/secindex"
)

// CollectionRef is a handle to one collection: a directory containing one
// record log and its indexes.
type CollectionRef struct {
	name  string
	store *Store
	state *collectionState
}

// Name returns the collection's name.
func (c *CollectionRef) Name() string { return c.name }

// Add writes data as a new document under a freshly minted id and returns
// that id. Any "id" field already present in data is overwritten.
func (c *CollectionRef) Add(ctx context.Context, data map[string]any) (string, error) {
	id, err := c.store.opts.idStrategy()
	if err != nil {
		return "", err
	}
	if err := c.writeSet(ctx, id, data, false); err != nil {
		return "", err
	}
	return id, nil
}

// Doc returns a reference to the document with the given id. An empty id
// mints a fresh one, for callers that want to choose their document's id
// before the first write.
func (c *CollectionRef) Doc(id string) *DocumentRef {
	if id == "" {
		id, _ = c.store.opts.idStrategy()
	}
	return &DocumentRef{id: id, coll: c}
}

// EnsureIndex registers and, if necessary, (re)builds the named secondary
// or composite index, per the index manager's load-or-build protocol.
func (c *CollectionRef) EnsureIndex(ctx context.Context, meta secindex.Meta) error {
	return translateError(c.state.mgr.EnsureIndex(ctx, meta, c.store.opts.useWorker))
}

// Get runs qd (or an unfiltered full scan if qd is nil) and returns the
// resulting QuerySnapshot.
func (c *CollectionRef) Get(ctx context.Context, qd *query.Descriptor) (*QuerySnapshot, error) {
	d := query.Descriptor{}
	if qd != nil {
		d = *qd
	}
	docs, err := query.Execute(ctx, c.state.mgr, c.state.log, c.name, d, c.store.opts.queryLimit, c.store.opts.useWorker, c.store.opts.logger)
	if err != nil {
		return nil, translateError(err)
	}
	return &QuerySnapshot{Docs: toDocumentSnapshots(docs)}, nil
}

// Snapshots runs qd once, then again on every collection-changed event,
// delivering each result to the returned channel until the returned cancel
// func is called or ctx is done.
func (c *CollectionRef) Snapshots(ctx context.Context, qd *query.Descriptor) (<-chan *QuerySnapshot, func(), error) {
	collCh, cancelSub := c.state.hub.SubscribeCollection()
	out := make(chan *QuerySnapshot)
	stop := make(chan struct{})

	emit := func() {
		snap, err := c.Get(ctx, qd)
		if err != nil {
			return
		}
		select {
		case out <- snap:
		case <-stop:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(out)
		emit()
		for {
			select {
			case _, ok := <-collCh:
				if !ok {
					return
				}
				emit()
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		close(stop)
		cancelSub()
	}
	return out, cancel, nil
}

// writeSet implements the shared set/merge write path: it reads the
// previously indexed values for id (if any), builds the new record
// (merging over the existing one when merge is true), appends it, applies
// the resulting index deltas, and publishes a change notification.
func (c *CollectionRef) writeSet(ctx context.Context, id string, data map[string]any, merge bool) error {
	log := c.state.log

	prevEntry, hadPrev := log.Entry(id)
	var prevIndexed map[string]any
	if hadPrev {
		prevIndexed = prevEntry.Prev
	}

	newData := map[string]any{}
	if merge && hadPrev && !prevEntry.Tombstone {
		if existing, err := log.GetByID(id); err == nil {
			for k, v := range existing {
				newData[k] = v
			}
		}
	}
	for k, v := range data {
		newData[k] = v
	}
	newData["id"] = id
	delete(newData, "_deleted")

	if _, err := log.Append(newData, newData); err != nil {
		return translateError(err)
	}
	if err := c.state.mgr.ApplyChangesOnUpdate(ctx, id, prevIndexed, newData); err != nil {
		return translateError(err)
	}
	c.state.hub.Publish(id)
	return nil
}

// writeDelete implements the delete path: it appends a tombstone record and
// unlinks the document's previously indexed values, but adds no new
// posting.
func (c *CollectionRef) writeDelete(ctx context.Context, id string) error {
	log := c.state.log

	prevEntry, hadPrev := log.Entry(id)
	var prevIndexed map[string]any
	if hadPrev {
		prevIndexed = prevEntry.Prev
	}

	if _, err := log.Append(map[string]any{"id": id, "_deleted": true}, nil); err != nil {
		return translateError(err)
	}
	if err := c.state.mgr.ApplyChangesOnUpdate(ctx, id, prevIndexed, nil); err != nil {
		return translateError(err)
	}
	c.state.hub.Publish(id)
	return nil
}

func toDocumentSnapshots(in []query.Snapshot) []DocumentSnapshot {
	out := make([]DocumentSnapshot, len(in))
	for i, s := range in {
		out[i] = DocumentSnapshot{ID: s.ID, Data: s.Data}
	}
	return out
}
