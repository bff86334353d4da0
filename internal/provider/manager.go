package provider

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Factory constructs a Client bound to a proxy URL.
type Factory func(ctx context.Context, proxyURL string) (Client, error)

const initKey = "client"

// Manager lazily builds one process-wide Client. Concurrent callers share
// a single in-flight initialization. A failed initialization is not
// remembered: the next call after it settles tries again.
type Manager struct {
	factory Factory

	mu     sync.Mutex
	client Client
	gen    uint64 // bumped by Reset so stale initializations are discarded

	group singleflight.Group
}

// NewManager returns a Manager that builds clients with factory.
func NewManager(factory Factory) *Manager {
	return &Manager{factory: factory}
}

// Get returns the client, initializing it if needed. It returns nil when
// initialization fails or ctx ends first. proxyURL only matters for the
// initialization that actually runs.
func (m *Manager) Get(ctx context.Context, proxyURL string) Client {
	m.mu.Lock()
	if m.client != nil {
		c := m.client
		m.mu.Unlock()
		return c
	}
	gen := m.gen
	m.mu.Unlock()

	// The initialization outlives the caller that happened to start it.
	initCtx := context.WithoutCancel(ctx)

	ch := m.group.DoChan(initKey, func() (any, error) {
		slog.InfoContext(initCtx, "initializing provider client", "proxy", proxyURL)

		c, err := m.factory(initCtx, proxyURL)
		if err != nil {
			slog.ErrorContext(initCtx, "provider client initialization failed", "error", err)
			return nil, err
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.gen != gen {
			slog.InfoContext(initCtx, "discarding provider client initialized before reset")
			return c, nil
		}
		m.client = c
		slog.InfoContext(initCtx, "provider client ready")
		return c, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil
		}
		c, _ := res.Val.(Client)
		return c
	case <-ctx.Done():
		return nil
	}
}

// IsAvailable reports whether a client exists. It never initializes.
func (m *Manager) IsAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil
}

// Reset drops the client and any in-flight initialization so the next Get
// builds a fresh one.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.client = nil
	m.gen++
	m.group.Forget(initKey)
}
