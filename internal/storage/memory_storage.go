package storage

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	data []byte
	info FileInfo
}

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	created int
	revoked int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry)}
}

func (s *MemoryStore) Put(data []byte, contentType string) (string, error) {
	if data == nil {
		return "", fmt.Errorf("empty preview data")
	}

	handle := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[handle] = entry{
		data: data,
		info: FileInfo{
			Handle:      handle,
			ContentType: contentType,
			Size:        int64(len(data)),
			CreatedAt:   time.Now(),
		},
	}
	s.created++
	return handle, nil
}

func (s *MemoryStore) Open(handle string) (io.ReadSeekCloser, FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[handle]
	if !ok {
		return nil, FileInfo{}, ErrNotFound
	}
	return nopCloser{bytes.NewReader(e.data)}, e.info, nil
}

func (s *MemoryStore) Revoke(handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[handle]; !ok {
		return ErrNotFound
	}
	delete(s.entries, handle)
	s.revoked++
	return nil
}

// Live returns the number of previews that have not been revoked.
func (s *MemoryStore) Live() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Revoked returns how many previews have been revoked so far.
func (s *MemoryStore) Revoked() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revoked
}

// Created returns how many previews have been handed out so far.
func (s *MemoryStore) Created() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.created
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
