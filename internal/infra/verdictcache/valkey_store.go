package verdictcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/health-journal/internal/domain/judge"
)

// ValkeyStore persists verdicts in a Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a store; keys are namespaced by prefix.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "judge"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

func (s *ValkeyStore) GetVerdict(ctx context.Context, key string) (judge.Verdict, bool, error) {
	if key == "" {
		return judge.Verdict{}, false, nil
	}
	cmd := s.client.B().Get().Key(s.verdictKey(key)).Build()
	payload, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return judge.Verdict{}, false, nil
		}
		return judge.Verdict{}, false, err
	}
	var verdict judge.Verdict
	if err := json.Unmarshal([]byte(payload), &verdict); err != nil {
		return judge.Verdict{}, false, err
	}
	return verdict, true, nil
}

func (s *ValkeyStore) SaveVerdict(ctx context.Context, key string, verdict judge.Verdict, ttl time.Duration) error {
	if key == "" {
		return nil
	}
	payload, err := json.Marshal(verdict)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.verdictKey(key)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) verdictKey(key string) string {
	return fmt.Sprintf("%s:verdict:%s", s.prefix, key)
}

var _ judge.VerdictCache = (*ValkeyStore)(nil)
