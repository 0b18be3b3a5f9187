package docstore

import "context"

// DocumentSnapshot is a materialized document: its id and its current
// field data.
type DocumentSnapshot struct {
	ID   string
	Data map[string]any
}

// QuerySnapshot is the materialized result of a collection query.
type QuerySnapshot struct {
	Docs []DocumentSnapshot
}

// DocumentRef is a handle to one document within a collection. It does not
// itself hold the document's data; every operation reads or writes through
// to the collection's record log.
type DocumentRef struct {
	id   string
	coll *CollectionRef
}

// ID returns the document's id.
func (d *DocumentRef) ID() string { return d.id }

// Get loads the document's current snapshot, or ErrNotFound if it does not
// exist or has been deleted.
func (d *DocumentRef) Get(ctx context.Context) (*DocumentSnapshot, error) {
	doc, err := d.coll.state.log.GetByID(d.id)
	if err != nil {
		return nil, translateError(err)
	}
	return &DocumentSnapshot{ID: d.id, Data: doc}, nil
}

// Set writes data as the document's new content. When merge is false this
// is a full replacement; when merge is true, data is overlaid onto the
// document's current content (creating it if absent).
func (d *DocumentRef) Set(ctx context.Context, data map[string]any, merge bool) error {
	return d.coll.writeSet(ctx, d.id, data, merge)
}

// Update merges data onto the document's current content. It returns
// ErrNotFound if the document does not currently exist.
func (d *DocumentRef) Update(ctx context.Context, data map[string]any) error {
	if !d.coll.state.log.ExistsLive(d.id) {
		return ErrNotFound
	}
	return d.coll.writeSet(ctx, d.id, data, true)
}

// Delete tombstones the document. Deleting a document that doesn't exist
// (or is already deleted) is a no-op.
func (d *DocumentRef) Delete(ctx context.Context) error {
	if !d.coll.state.log.ExistsLive(d.id) {
		return nil
	}
	return d.coll.writeDelete(ctx, d.id)
}

// Snapshots delivers the document's current snapshot immediately when this
// is the document's only active subscriber (a later concurrent subscriber
// gets no initial snapshot), then a fresh one on every subsequent write to
// this document through this Store, until the returned cancel func is
// called or ctx is done.
func (d *DocumentRef) Snapshots(ctx context.Context) (<-chan *DocumentSnapshot, func(), error) {
	ch, cancel := d.coll.state.hub.SubscribeDocument(d.id)
	out := make(chan *DocumentSnapshot)
	go func() {
		defer close(out)
		for {
			select {
			case snap, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- &DocumentSnapshot{ID: snap.ID, Data: snap.Data}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, cancel, nil
}
