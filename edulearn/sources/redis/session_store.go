package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"edulearn/edulearn/services/chatsession"
	"edulearn/edulearn/utils/logging"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const maxUpdateRetries = 5

// SessionStore keeps each session as a JSON document and indexes the ids of
// an owner in a sorted set scored by creation time.
type SessionStore struct {
	rdb    *redis.Client
	prefix string
}

// NewClient parses url as a redis:// URL, falling back to a plain address.
func NewClient(ctx context.Context, url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		logging.AppLogger.Warn("failed to parse Redis URL, using direct Addr", zap.Error(err))
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logging.ErrorLogger.Warn("failed to connect to Redis", zap.Error(err))
	}
	return rdb
}

func NewSessionStore(rdb *redis.Client, prefix string) *SessionStore {
	if prefix == "" {
		prefix = "edulearn"
	}
	return &SessionStore{rdb: rdb, prefix: prefix}
}

func (s *SessionStore) sessionKey(id string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, id)
}

func (s *SessionStore) ownerKey(ownerID string) string {
	return fmt.Sprintf("%s:owner:%s:sessions", s.prefix, ownerID)
}

func (s *SessionStore) ListByOwner(ctx context.Context, ownerID string) ([]chatsession.SessionRecord, error) {
	ids, err := s.rdb.ZRevRange(ctx, s.ownerKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	recs := []chatsession.SessionRecord{}
	if len(ids) == 0 {
		return recs, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.sessionKey(id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// index entry outlived its document
			continue
		}
		var rec chatsession.SessionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("session %s: %w", ids[i], err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *SessionStore) Create(ctx context.Context, ownerID string, rec chatsession.SessionRecord) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	rec.ID = id.String()
	rec.OwnerID = ownerID
	if rec.Messages == nil {
		rec.Messages = []chatsession.MessageRecord{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(rec.ID), data, 0)
		pipe.ZAdd(ctx, s.ownerKey(ownerID), redis.Z{Score: float64(rec.CreatedAt.UnixMilli()), Member: rec.ID})
		return nil
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Update applies patch with an optimistic WATCH/MULTI transaction.
func (s *SessionStore) Update(ctx context.Context, id string, patch chatsession.Patch) error {
	key := s.sessionKey(id)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("session %s: %w", id, chatsession.ErrNotFound)
		}
		if err != nil {
			return err
		}
		var rec chatsession.SessionRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		patch.Apply(&rec)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}
	for i := 0; i < maxUpdateRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("session %s: too much contention", id)
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	key := s.sessionKey(id)
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	var rec chatsession.SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.ZRem(ctx, s.ownerKey(rec.OwnerID), id)
		return nil
	})
	return err
}
