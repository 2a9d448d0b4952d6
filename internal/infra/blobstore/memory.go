package blobstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/yanqian/health-journal/internal/domain/journal"
)

// MemoryStorage keeps clips in memory. Useful for tests and local dev.
type MemoryStorage struct {
	mu      sync.RWMutex
	blobs   map[string]storedBlob
	baseURL string
}

type storedBlob struct {
	data     []byte
	mimeType string
	etag     string
}

// NewMemoryStorage constructs storage; baseURL prefixes returned URLs.
func NewMemoryStorage(baseURL string) *MemoryStorage {
	if baseURL == "" {
		baseURL = "memory://"
	}
	return &MemoryStorage{blobs: make(map[string]storedBlob), baseURL: baseURL}
}

// Put stores the blob and returns metadata.
func (s *MemoryStorage) Put(_ context.Context, key string, data []byte, mimeType string) (journal.StoredObject, error) {
	hash := md5.Sum(data)
	etag := hex.EncodeToString(hash[:])
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = storedBlob{data: append([]byte(nil), data...), mimeType: mimeType, etag: etag}
	return journal.StoredObject{
		Key:      key,
		Size:     int64(len(data)),
		MimeType: mimeType,
		ETag:     etag,
	}, nil
}

// URL returns a stable address for a stored key.
func (s *MemoryStorage) URL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.blobs[key]; !ok {
		return "", fmt.Errorf("blob %q not found", key)
	}
	return strings.TrimSuffix(s.baseURL, "/") + "/" + key, nil
}

// Bytes returns a copy of a stored blob.
func (s *MemoryStorage) Bytes(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), blob.data...), true
}

var _ journal.BlobStore = (*MemoryStorage)(nil)
