package verdictcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/health-journal/internal/domain/judge"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := store.GetVerdict(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	verdict := judge.Verdict{Overall: 91, Passed: true, Method: judge.MethodLLM, Issues: []string{"minor"}}
	require.NoError(t, store.SaveVerdict(ctx, "k", verdict, 0))

	got, ok, err := store.GetVerdict(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, verdict, got)

	got.Issues[0] = "mutated"
	again, _, _ := store.GetVerdict(ctx, "k")
	require.Equal(t, "minor", again.Issues[0])
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.SaveVerdict(ctx, "k", judge.Verdict{Overall: 50}, time.Minute))
	_, ok, _ := store.GetVerdict(ctx, "k")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = store.GetVerdict(ctx, "k")
	require.False(t, ok)
}
