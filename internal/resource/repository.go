package resource

import (
	"context"
	"errors"
	"time"

	"medirecords/pkg/logger"
	"medirecords/store"
)

// Repository addresses one collection through the shared store gateway.
type Repository struct {
	Gateway    *store.Gateway
	Collection string
	Timeout    time.Duration
}

func NewRepository(gw *store.Gateway, collection string, timeout time.Duration) *Repository {
	return &Repository{Gateway: gw, Collection: collection, Timeout: timeout}
}

func (r *Repository) open(ctx context.Context) (store.Collection, context.Context, context.CancelFunc, error) {
	coll, err := r.Gateway.Collection(r.Collection)
	if err != nil {
		logger.Sugar.Errorf("Store unavailable for %s: %v", r.Collection, err)
		return nil, nil, nil, err
	}
	if r.Timeout <= 0 {
		ctx, cancel := context.WithCancel(ctx)
		return coll, ctx, cancel, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	return coll, ctx, cancel, nil
}

func (r *Repository) ListAll(ctx context.Context) ([]store.Document, error) {
	coll, ctx, cancel, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	docs, err := coll.ListAll(ctx)
	if err != nil {
		logger.Sugar.Errorf("Failed to list %s: %v", r.Collection, err)
	}
	return docs, err
}

func (r *Repository) FindByID(ctx context.Context, id string) (store.Document, error) {
	coll, ctx, cancel, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	doc, err := coll.FindByID(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		logger.Sugar.Errorf("Failed to get %s %s: %v", r.Collection, id, err)
	}
	return doc, err
}

func (r *Repository) Insert(ctx context.Context, doc store.Document) (string, error) {
	coll, ctx, cancel, err := r.open(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	id, err := coll.Insert(ctx, doc)
	if err != nil {
		logger.Sugar.Errorf("Failed to insert into %s: %v", r.Collection, err)
	}
	return id, err
}

func (r *Repository) UpdateByID(ctx context.Context, id string, patch store.Document) (int64, error) {
	coll, ctx, cancel, err := r.open(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	matched, err := coll.UpdateByID(ctx, id, patch)
	if err != nil {
		logger.Sugar.Errorf("Failed to update %s %s: %v", r.Collection, id, err)
	}
	return matched, err
}

func (r *Repository) DeleteByID(ctx context.Context, id string) (int64, error) {
	coll, ctx, cancel, err := r.open(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	deleted, err := coll.DeleteByID(ctx, id)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete %s %s: %v", r.Collection, id, err)
	}
	return deleted, err
}
