package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeedLedger records seeded owners as plain keys next to their sessions.
type SeedLedger struct {
	rdb    *redis.Client
	prefix string
}

func NewSeedLedger(rdb *redis.Client, prefix string) *SeedLedger {
	if prefix == "" {
		prefix = "edulearn"
	}
	return &SeedLedger{rdb: rdb, prefix: prefix}
}

func (l *SeedLedger) key(ownerID string) string {
	return fmt.Sprintf("%s:owner:%s:seeded", l.prefix, ownerID)
}

func (l *SeedLedger) Claim(ctx context.Context, ownerID string) (bool, error) {
	return l.rdb.SetNX(ctx, l.key(ownerID), time.Now().UTC().Format(time.RFC3339), 0).Result()
}

func (l *SeedLedger) Release(ctx context.Context, ownerID string) error {
	return l.rdb.Del(ctx, l.key(ownerID)).Err()
}
