package store

import (
	"context"
	"fmt"
	"sync"
)

// Gateway owns the single store connection shared by every request.
// The backend is set once by Connect and only read afterwards.
type Gateway struct {
	mu      sync.RWMutex
	backend Backend
}

func NewGateway() *Gateway {
	return &Gateway{}
}

// Connect dials the store. It may succeed only once per gateway.
func (g *Gateway) Connect(ctx context.Context, dial Dialer) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.backend != nil {
		return ErrAlreadyConnected
	}
	backend, err := dial(ctx)
	if err != nil {
		return fmt.Errorf("store: connect: %w", err)
	}
	g.backend = backend
	return nil
}

// Handle returns the established backend or ErrNotInitialized.
func (g *Gateway) Handle() (Backend, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.backend == nil {
		return nil, ErrNotInitialized
	}
	return g.backend, nil
}

func (g *Gateway) Collection(name string) (Collection, error) {
	backend, err := g.Handle()
	if err != nil {
		return nil, err
	}
	return backend.Collection(name), nil
}

func (g *Gateway) Ping(ctx context.Context) error {
	backend, err := g.Handle()
	if err != nil {
		return err
	}
	return backend.Ping(ctx)
}

func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.backend == nil {
		return nil
	}
	err := g.backend.Close(ctx)
	g.backend = nil
	return err
}
