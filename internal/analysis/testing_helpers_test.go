package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/kdimtricp/deepguard/internal/media"
	"github.com/kdimtricp/deepguard/internal/storage"
)

func newTestAsset(t *testing.T, name, contentType string, data []byte) *media.Asset {
	t.Helper()
	f := media.File{Name: name, ContentType: contentType, Data: data}
	cat, ok := f.Category()
	if !ok {
		t.Fatalf("test file %s has no category", name)
	}
	asset, err := media.NewAsset(storage.NewMemoryStore(), f, cat)
	if err != nil {
		t.Fatalf("NewAsset: %v", err)
	}
	return asset
}

// sequence returns the given values in order, then repeats the last one.
func sequence(values ...float64) func() float64 {
	i := 0
	return func() float64 {
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v
	}
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
