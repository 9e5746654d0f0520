package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDField is the key under which every persisted document carries its identifier.
const IDField = "_id"

var (
	ErrNotFound         = errors.New("store: document not found")
	ErrInvalidID        = errors.New("store: invalid document id")
	ErrNotInitialized   = errors.New("store: connection not initialized")
	ErrAlreadyConnected = errors.New("store: already connected")
)

// Document is one schema-less record of a collection.
type Document map[string]any

// ID returns the document identifier as a hex string, or "" when it has none.
func (d Document) ID() string {
	switch v := d[IDField].(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	}
	return ""
}

// Collection is a named set of documents.
//
// UpdateByID and DeleteByID report how many documents matched so callers can
// tell a missing document apart from a store failure.
type Collection interface {
	ListAll(ctx context.Context) ([]Document, error)
	FindByID(ctx context.Context, id string) (Document, error)
	Insert(ctx context.Context, doc Document) (string, error)
	UpdateByID(ctx context.Context, id string, patch Document) (int64, error)
	DeleteByID(ctx context.Context, id string) (int64, error)
}

// Backend is a live connection to a persistent store.
type Backend interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Dialer performs the handshake with a store and returns the live backend.
type Dialer func(ctx context.Context) (Backend, error)

// IsValidID reports whether s is a structurally valid document identifier.
func IsValidID(s string) bool {
	return primitive.IsValidObjectID(s)
}

// NewID returns a fresh identifier in the store's addressing scheme.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
