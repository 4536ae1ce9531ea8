package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kdimtricp/deepguard/internal/logger"
	"github.com/kdimtricp/deepguard/internal/workflow"
)

// Factory builds a fresh controller for a new visitor.
type Factory func() (*workflow.Controller, error)

// Manager keeps one workflow controller per visitor. Nothing outlives the
// process.
type Manager struct {
	factory Factory

	mu       sync.RWMutex
	sessions map[string]*workflow.Controller
}

func NewManager(factory Factory) *Manager {
	return &Manager{
		factory:  factory,
		sessions: make(map[string]*workflow.Controller),
	}
}

func (m *Manager) Create() (*workflow.Controller, error) {
	c, err := m.factory()
	if err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}

	m.mu.Lock()
	m.sessions[c.ID()] = c
	m.mu.Unlock()

	logger.Debug("session created", "session", c.ID())
	return c, nil
}

func (m *Manager) Get(id string) (*workflow.Controller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, exists := m.sessions[id]
	return c, exists
}

// GetOrCreate returns the controller for id, creating a new one when id is
// unknown. created reports whether a new session was made.
func (m *Manager) GetOrCreate(id string) (c *workflow.Controller, created bool, err error) {
	if id != "" {
		if c, ok := m.Get(id); ok {
			return c, false, nil
		}
	}
	c, err = m.Create()
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func (m *Manager) Remove(id string) {
	m.mu.Lock()
	c, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		c.Close()
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than maxIdle. Sessions with an
// analysis in flight are kept.
func (m *Manager) Sweep(maxIdle time.Duration, now time.Time) int {
	m.mu.Lock()
	var stale []*workflow.Controller
	for id, c := range m.sessions {
		if c.Snapshot().Busy() {
			continue
		}
		if now.Sub(c.LastUpdated()) > maxIdle {
			stale = append(stale, c)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, c := range stale {
		c.Close()
	}
	if len(stale) > 0 {
		logger.Info("idle sessions swept", "count", len(stale))
	}
	return len(stale)
}

// StartJanitor sweeps every interval until ctx is done.
func (m *Manager) StartJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 || maxIdle <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				m.Sweep(maxIdle, now)
			}
		}
	}()
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*workflow.Controller)
	m.mu.Unlock()

	for _, c := range sessions {
		c.Close()
	}
}
