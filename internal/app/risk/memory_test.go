package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryReputationStore_Flags(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryReputationStore()

	ok, err := s.IsSuspicious(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.FlagSuspicious(ctx, "203.0.113.7", time.Minute))

	ok, err = s.IsSuspicious(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.True(t, ok)

	// unrelated IP stays clean
	ok, err = s.IsSuspicious(ctx, "203.0.113.8")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryReputationStore_FlagExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryReputationStore()

	require.NoError(t, s.FlagSuspicious(ctx, "203.0.113.7", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	ok, err := s.IsSuspicious(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryReputationStore_Attempts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryReputationStore()

	for i := 1; i <= 3; i++ {
		cnt, err := s.RecordAttempt(ctx, "203.0.113.7", "user1", time.Minute)
		require.NoError(t, err)
		require.Equal(t, i, cnt)
	}

	// separate (ip,user) pair counts independently
	cnt, err := s.RecordAttempt(ctx, "203.0.113.7", "user2", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, cnt)

	// the original pair keeps counting from where it left off
	cnt, err = s.RecordAttempt(ctx, "203.0.113.7", "user1", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 4, cnt)
}

func TestMemoryReputationStore_AttemptWindowExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryReputationStore()

	_, err := s.RecordAttempt(ctx, "203.0.113.7", "user1", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	// a fresh attempt after the window restarts the count at 1
	cnt, err := s.RecordAttempt(ctx, "203.0.113.7", "user1", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, cnt)
}
