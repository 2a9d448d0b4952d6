package verdictcache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/health-journal/internal/domain/judge"
)

type cachedVerdict struct {
	verdict   judge.Verdict
	expiresAt time.Time
}

// MemoryStore keeps verdicts in process memory for tests and local dev.
type MemoryStore struct {
	mu       sync.RWMutex
	verdicts map[string]cachedVerdict
	now      func() time.Time
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{verdicts: make(map[string]cachedVerdict), now: time.Now}
}

// GetVerdict implements judge.VerdictCache.
func (s *MemoryStore) GetVerdict(_ context.Context, key string) (judge.Verdict, bool, error) {
	if key == "" {
		return judge.Verdict{}, false, nil
	}
	s.mu.RLock()
	item, ok := s.verdicts[key]
	s.mu.RUnlock()
	if !ok {
		return judge.Verdict{}, false, nil
	}
	if s.hasExpired(item.expiresAt) {
		s.mu.Lock()
		delete(s.verdicts, key)
		s.mu.Unlock()
		return judge.Verdict{}, false, nil
	}
	verdict := item.verdict
	verdict.Issues = append([]string(nil), item.verdict.Issues...)
	return verdict, true, nil
}

// SaveVerdict caches the verdict; a non-positive ttl never expires.
func (s *MemoryStore) SaveVerdict(_ context.Context, key string, verdict judge.Verdict, ttl time.Duration) error {
	if key == "" {
		return nil
	}
	exp := time.Time{}
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	verdict.Issues = append([]string(nil), verdict.Issues...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdicts[key] = cachedVerdict{verdict: verdict, expiresAt: exp}
	return nil
}

func (s *MemoryStore) hasExpired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(s.now())
}

var _ judge.VerdictCache = (*MemoryStore)(nil)
