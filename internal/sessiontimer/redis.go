package sessiontimer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hiredeck/hiredeck-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// RedisStore is the shared Store for multi-instance deployments. Start
// times are stored as Unix timestamps under a key scoped to (invitation,
// client session); SET NX makes the first writer win.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) StartIfAbsent(ctx context.Context, invitationID int64, clientSession string, start time.Time) (time.Time, error) {
	key := config.CacheKey.SessionStartKey(invitationID, clientSession)

	set, err := s.rdb.SetNX(ctx, key, start.Unix(), 0).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("set session start: %w", err)
	}
	if set {
		return start, nil
	}

	val, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("get session start: %w", err)
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid session start in cache: %w", err)
	}
	return time.Unix(unix, 0), nil
}
