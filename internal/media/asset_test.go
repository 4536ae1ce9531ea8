package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kdimtricp/deepguard/internal/storage"
)

func TestAssetReleaseExactlyOnce(t *testing.T) {
	store := storage.NewMemoryStore()
	f := File{Name: "face.jpg", ContentType: "image/jpeg", Data: []byte("jpg")}

	asset, err := NewAsset(store, f, CategoryImage)
	if err != nil {
		t.Fatalf("NewAsset: %v", err)
	}
	if asset.Preview() == "" {
		t.Fatalf("expected a preview handle")
	}
	if store.Live() != 1 {
		t.Fatalf("Live() = %d, want 1", store.Live())
	}

	for i := 0; i < 3; i++ {
		if err := asset.Release(); err != nil {
			t.Fatalf("Release #%d: %v", i, err)
		}
	}
	if store.Revoked() != 1 {
		t.Fatalf("Revoked() = %d, want exactly 1", store.Revoked())
	}
	if asset.Preview() != "" || !asset.Released() {
		t.Fatalf("released asset still exposes preview %q", asset.Preview())
	}
}

func TestNewAssetRequiresStore(t *testing.T) {
	if _, err := NewAsset(nil, File{Name: "a.png", Data: []byte("x")}, CategoryImage); err == nil {
		t.Fatalf("expected error without store")
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("fake mp4"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if f.Name != "clip.mp4" || f.ContentType != "video/mp4" || f.Size != 8 {
		t.Fatalf("ReadFile() = %+v", f)
	}

	sniffed := filepath.Join(dir, "noext")
	png := []byte("\x89PNG\r\n\x1a\n0000")
	if err := os.WriteFile(sniffed, png, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err = ReadFile(sniffed)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if f.ContentType != "image/png" {
		t.Fatalf("sniffed type = %q, want image/png", f.ContentType)
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.png")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := map[int64]string{
		512:             "512 B",
		2048:            "2.00 KB",
		5 * 1024 * 1024: "5.00 MB",
		3 << 30:         "3.00 GB",
	}
	for in, want := range tests {
		if got := FormatFileSize(in); got != want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", in, got, want)
		}
	}
}
