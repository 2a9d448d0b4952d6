package logrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/yanqian/health-journal/internal/domain/journal"
)

// MemoryRepository keeps day logs in process memory for tests and local dev.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]journal.Entry
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[uuid.UUID]journal.Entry)}
}

func (r *MemoryRepository) Create(_ context.Context, entry journal.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.Record = entry.Record.Clone()
	r.entries[entry.ID] = entry
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (journal.Entry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return journal.Entry{}, false, nil
	}
	entry.Record = entry.Record.Clone()
	return entry, true, nil
}

func (r *MemoryRepository) List(_ context.Context, filter journal.ListFilter) ([]journal.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]journal.Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		if filter.From != "" && entry.Date < filter.From {
			continue
		}
		if filter.To != "" && entry.Date > filter.To {
			continue
		}
		entry.Record = entry.Record.Clone()
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date == out[j].Date {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Date > out[j].Date
	})
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, entry journal.Entry, expectedVersion int) (journal.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.entries[entry.ID]
	if !ok {
		return journal.Entry{}, journal.ErrEntryNotFound
	}
	if current.Version != expectedVersion {
		return journal.Entry{}, journal.ErrVersionConflict
	}
	entry.Version = current.Version + 1
	entry.CreatedAt = current.CreatedAt
	entry.Record = entry.Record.Clone()
	r.entries[entry.ID] = entry
	return entry, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return journal.ErrEntryNotFound
	}
	delete(r.entries, id)
	return nil
}

var _ journal.Repository = (*MemoryRepository)(nil)
