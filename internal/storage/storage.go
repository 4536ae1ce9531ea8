package storage

import (
	"errors"
	"io"
	"time"
)

var ErrNotFound = errors.New("preview not found")

type FileInfo struct {
	Handle      string
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

// PreviewStore hands out revocable references to in-memory media, the way a
// browser hands out object URLs for a selected file.
type PreviewStore interface {
	Put(data []byte, contentType string) (string, error)
	Open(handle string) (io.ReadSeekCloser, FileInfo, error)
	Revoke(handle string) error
}
