// Package storetest provides an in-memory store.Backend for tests.
package storetest

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"medirecords/store"
)

// Backend keeps collections in memory. It is safe for concurrent use.
type Backend struct {
	mu          sync.Mutex
	collections map[string]*Collection
	// PingErr is returned by Ping when set.
	PingErr error
}

func NewBackend() *Backend {
	return &Backend{collections: make(map[string]*Collection)}
}

// Dialer returns a store.Dialer that always yields b.
func (b *Backend) Dialer() store.Dialer {
	return func(context.Context) (store.Backend, error) { return b, nil }
}

func (b *Backend) Collection(name string) store.Collection {
	return b.Named(name)
}

// Named returns the concrete collection so tests can inject failures.
func (b *Backend) Named(name string) *Collection {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.collections[name]
	if !ok {
		c = &Collection{docs: make(map[string]store.Document)}
		b.collections[name] = c
	}
	return c
}

func (b *Backend) Ping(context.Context) error  { return b.PingErr }
func (b *Backend) Close(context.Context) error { return nil }

// Collection is an insertion-ordered in-memory document set.
type Collection struct {
	mu    sync.Mutex
	order []string
	docs  map[string]store.Document
	// Err, when set, is returned by every operation.
	Err error
}

func (c *Collection) ListAll(context.Context) ([]store.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil {
		return nil, c.Err
	}
	out := make([]store.Document, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, clone(c.docs[id]))
	}
	return out, nil
}

func (c *Collection) FindByID(_ context.Context, id string) (store.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil {
		return nil, c.Err
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(doc), nil
}

func (c *Collection) Insert(_ context.Context, doc store.Document) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil {
		return "", c.Err
	}
	oid := primitive.NewObjectID()
	stored := clone(doc)
	stored[store.IDField] = oid
	c.docs[oid.Hex()] = stored
	c.order = append(c.order, oid.Hex())
	return oid.Hex(), nil
}

func (c *Collection) UpdateByID(_ context.Context, id string, patch store.Document) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil {
		return 0, c.Err
	}
	doc, ok := c.docs[id]
	if !ok {
		return 0, nil
	}
	for k, v := range patch {
		doc[k] = v
	}
	return 1, nil
}

func (c *Collection) DeleteByID(_ context.Context, id string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil {
		return 0, c.Err
	}
	if _, ok := c.docs[id]; !ok {
		return 0, nil
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return 1, nil
}

// Len reports the number of stored documents.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

func clone(doc store.Document) store.Document {
	out := make(store.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
