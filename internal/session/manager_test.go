package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kdimtricp/deepguard/internal/media"
	"github.com/kdimtricp/deepguard/internal/models"
	"github.com/kdimtricp/deepguard/internal/storage"
	"github.com/kdimtricp/deepguard/internal/workflow"
)

type gatedClient struct {
	gate chan struct{}
}

func (g gatedClient) Analyze(ctx context.Context, _ *media.Asset) (models.DetectionResult, error) {
	select {
	case <-g.gate:
	case <-ctx.Done():
		return models.DetectionResult{}, ctx.Err()
	}
	return models.NewDetectionResult(false, 1, nil), nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T, store *storage.MemoryStore, client gatedClient, clock *fakeClock) *Manager {
	t.Helper()
	m := NewManager(func() (*workflow.Controller, error) {
		return workflow.New(workflow.Options{
			Policy: media.WebPolicy(),
			Store:  store,
			Client: client,
			Now:    clock.Now,
		})
	})
	t.Cleanup(m.Close)
	return m
}

func TestManagerGetOrCreate(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryStore(), gatedClient{}, &fakeClock{now: time.Now()})

	c, created, err := m.GetOrCreate("")
	if err != nil || !created {
		t.Fatalf("GetOrCreate(\"\") = %v, %v", created, err)
	}
	again, created, err := m.GetOrCreate(c.ID())
	if err != nil || created || again != c {
		t.Fatalf("GetOrCreate(existing) = %v, %v, %v", again == c, created, err)
	}
	other, created, err := m.GetOrCreate("unknown-id")
	if err != nil || !created || other == c {
		t.Fatalf("GetOrCreate(unknown) reused session")
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
}

func TestManagerSessionsAreIndependent(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryStore(), gatedClient{}, &fakeClock{now: time.Now()})

	a, _ := m.Create()
	b, _ := m.Create()
	if err := a.SelectFile(media.File{Name: "a.png", ContentType: "image/png", Data: []byte("a")}); err != nil {
		t.Fatalf("SelectFile: %v", err)
	}
	if b.Snapshot().State != workflow.Idle {
		t.Fatalf("selection leaked into another session")
	}
}

func TestManagerSweep(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	start := clock.Now()
	store := storage.NewMemoryStore()
	client := gatedClient{gate: make(chan struct{})}
	m := newTestManager(t, store, client, clock)

	idle, _ := m.Create()
	if err := idle.SelectFile(media.File{Name: "a.png", ContentType: "image/png", Data: []byte("a")}); err != nil {
		t.Fatalf("SelectFile: %v", err)
	}
	busy, _ := m.Create()
	if err := busy.SelectFile(media.File{Name: "b.png", ContentType: "image/png", Data: []byte("b")}); err != nil {
		t.Fatalf("SelectFile: %v", err)
	}
	if err := busy.StartAnalysis(); err != nil {
		t.Fatalf("StartAnalysis: %v", err)
	}
	fresh, _ := m.Create()

	clock.Advance(50 * time.Minute)
	fresh.Reset()

	if got := m.Sweep(30*time.Minute, start.Add(time.Hour)); got != 1 {
		t.Fatalf("Sweep() = %d, want 1", got)
	}
	if _, ok := m.Get(idle.ID()); ok {
		t.Fatalf("idle session survived sweep")
	}
	if _, ok := m.Get(busy.ID()); !ok {
		t.Fatalf("busy session was swept")
	}
	if _, ok := m.Get(fresh.ID()); !ok {
		t.Fatalf("recently used session was swept")
	}
	if store.Revoked() != 1 {
		t.Fatalf("sweep did not release preview, revoked=%d", store.Revoked())
	}
	close(client.gate)
}

func TestManagerRemoveAndClose(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryStore(), gatedClient{}, &fakeClock{now: time.Now()})

	a, _ := m.Create()
	m.Remove(a.ID())
	if _, ok := m.Get(a.ID()); ok {
		t.Fatalf("removed session still present")
	}
	if err := a.SelectFile(media.File{Name: "a.png", ContentType: "image/png", Data: []byte("a")}); !errors.Is(err, workflow.ErrClosed) {
		t.Fatalf("removed controller still accepts commands: %v", err)
	}

	m.Create()
	m.Close()
	if m.Len() != 0 {
		t.Fatalf("Len() after Close = %d", m.Len())
	}
}

func TestManagerFactoryError(t *testing.T) {
	m := NewManager(func() (*workflow.Controller, error) { return nil, errors.New("boom") })
	if _, _, err := m.GetOrCreate(""); err == nil {
		t.Fatalf("expected factory error")
	}
}
