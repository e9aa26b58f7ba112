package risk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ReputationStore keeps suspicious-IP flags and per-(IP,user) attempt counters.
// Both expire via store-native TTLs so every server instance observes the same
// state and nothing has to survive in process memory.
type ReputationStore interface {
	// FlagSuspicious marks an IP suspicious for the given TTL
	FlagSuspicious(ctx context.Context, ip string, ttl time.Duration) error
	// IsSuspicious reports whether the IP flag is currently set
	IsSuspicious(ctx context.Context, ip string) (bool, error)
	// RecordAttempt bumps the (ip,user) attempt counter, starting the window
	// on first attempt, and returns the new count
	RecordAttempt(ctx context.Context, ip, userID string, window time.Duration) (int, error)
}

// RedisReputationStore interface implementation
var _ ReputationStore = (*RedisReputationStore)(nil)

type RedisReputationStore struct {
	rdb *redis.Client
}

func (s *RedisReputationStore) LoggerComponent() string {
	return "RedisReputationStore"
}

func NewRedisReputationStore(rdb *redis.Client) *RedisReputationStore {
	return &RedisReputationStore{rdb: rdb}
}

func suspiciousKey(ip string) string {
	return "risk:suspicious:" + ip
}

func attemptsKey(ip, userID string) string {
	return "risk:attempts:" + ip + ":" + userID
}

// FlagSuspicious implementation of interface ReputationStore
func (s *RedisReputationStore) FlagSuspicious(ctx context.Context, ip string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, suspiciousKey(ip), 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// IsSuspicious implementation of interface ReputationStore
func (s *RedisReputationStore) IsSuspicious(ctx context.Context, ip string) (bool, error) {
	err := s.rdb.Get(ctx, suspiciousKey(ip)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get: %w", err)
	}
	return true, nil
}

// RecordAttempt implementation of interface ReputationStore
func (s *RedisReputationStore) RecordAttempt(ctx context.Context, ip, userID string, window time.Duration) (int, error) {
	key := attemptsKey(ip, userID)

	cnt, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	if cnt == 1 {
		if err := s.rdb.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("redis expire: %w", err)
		}
	}

	return int(cnt), nil
}
