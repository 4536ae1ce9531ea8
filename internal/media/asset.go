package media

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kdimtricp/deepguard/internal/storage"
)

// Asset is the single active file of a workflow. It owns a preview handle
// that must be released exactly once.
type Asset struct {
	ID          string
	Name        string
	ContentType string
	Category    Category
	Size        int64

	data  []byte
	store storage.PreviewStore

	mu       sync.Mutex
	preview  string
	released bool
}

// NewAsset acquires a preview handle for f from store.
func NewAsset(store storage.PreviewStore, f File, cat Category) (*Asset, error) {
	if store == nil {
		return nil, fmt.Errorf("nil preview store")
	}
	ct := f.DeclaredType()
	handle, err := store.Put(f.Data, ct)
	if err != nil {
		return nil, fmt.Errorf("create preview: %w", err)
	}
	return &Asset{
		ID:          uuid.New().String(),
		Name:        f.Name,
		ContentType: ct,
		Category:    cat,
		Size:        f.Len(),
		data:        f.Data,
		store:       store,
		preview:     handle,
	}, nil
}

// Data returns the owned file bytes. Callers must not modify them.
func (a *Asset) Data() []byte {
	return a.data
}

func (a *Asset) IsImage() bool {
	return a.Category == CategoryImage
}

// Preview returns the preview handle, or "" once released.
func (a *Asset) Preview() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return ""
	}
	return a.preview
}

func (a *Asset) Released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.released
}

// Release revokes the preview handle. Only the first call does anything.
func (a *Asset) Release() error {
	a.mu.Lock()
	if a.released {
		a.mu.Unlock()
		return nil
	}
	a.released = true
	handle := a.preview
	a.mu.Unlock()

	if err := a.store.Revoke(handle); err != nil {
		return fmt.Errorf("revoke preview %s: %w", handle, err)
	}
	return nil
}
