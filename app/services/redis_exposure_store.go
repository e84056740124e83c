package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dulcemap/dulcemap-api/allocation"
	"github.com/dulcemap/dulcemap-api/utils"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

const (
	redisExposureMaxRetries = 8
	redisExposureScanCount  = 200
)

// RedisExposureStore keeps one JSON document per viewer. Updates use
// WATCH/MULTI so concurrent selections for a viewer never lose a count.
type RedisExposureStore struct {
	rc        *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisExposureStore creates a store. ttl bounds how long an idle viewer is kept; zero keeps forever.
func NewRedisExposureStore(rc *redis.Client, prefix string, ttl time.Duration) *RedisExposureStore {
	return &RedisExposureStore{
		rc:        rc,
		keyPrefix: prefix + utils.ExposureCacheKeyPrefix,
		ttl:       ttl,
	}
}

func (s *RedisExposureStore) key(viewerID string) string {
	return s.keyPrefix + viewerID
}

func decodeExposure(bs []byte) (*allocation.ViewerExposure, error) {
	state := allocation.NewViewerExposure()
	if len(bs) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(bs, state); err != nil {
		return nil, eris.Wrap(err, "failed to decode exposure document")
	}
	if state.Items == nil {
		state.Items = make(map[uint]*allocation.ExposureRecord)
	}
	return state, nil
}

func readExposure(ctx context.Context, cmd redis.Cmdable, key string) (*allocation.ViewerExposure, error) {
	bs, err := cmd.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return allocation.NewViewerExposure(), nil
		}
		return nil, eris.Wrapf(err, "failed to read %s", key)
	}
	return decodeExposure(bs)
}

// Load returns the stored history of a viewer; unknown viewers get an empty one
func (s *RedisExposureStore) Load(ctx context.Context, viewerID string) (*allocation.ViewerExposure, error) {
	return readExposure(ctx, s.rc, s.key(viewerID))
}

// Update runs fn against the current document and writes the result back atomically
func (s *RedisExposureStore) Update(ctx context.Context, viewerID string, fn func(*allocation.ViewerExposure) error) error {
	key := s.key(viewerID)
	txf := func(tx *redis.Tx) error {
		state, err := readExposure(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := fn(state); err != nil {
			return err
		}
		return s.write(ctx, tx, key, state)
	}
	return s.watch(ctx, key, txf)
}

func (s *RedisExposureStore) write(ctx context.Context, tx *redis.Tx, key string, state *allocation.ViewerExposure) error {
	if state.IsEmpty() {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}

	bs, err := json.Marshal(state)
	if err != nil {
		return eris.Wrap(err, "failed to encode exposure document")
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, bs, s.ttl)
		return nil
	})
	return err
}

func (s *RedisExposureStore) watch(ctx context.Context, key string, txf func(*redis.Tx) error) error {
	for i := 0; i < redisExposureMaxRetries; i++ {
		err := s.rc.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return eris.Errorf("exposure update for %s kept conflicting after %d attempts", key, redisExposureMaxRetries)
}

// Prune drops item records older than olderThan from every viewer document.
// Documents left empty are deleted. Idle viewers also expire on their own via the key TTL.
func (s *RedisExposureStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	var removed int64
	iter := s.rc.Scan(ctx, 0, s.keyPrefix+"*", redisExposureScanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		var n int
		txf := func(tx *redis.Tx) error {
			state, err := readExposure(ctx, tx, key)
			if err != nil {
				return err
			}
			n = state.PruneBefore(olderThan)
			if n == 0 && !state.IsEmpty() {
				return nil
			}
			return s.write(ctx, tx, key, state)
		}
		if err := s.watch(ctx, key, txf); err != nil {
			return removed, err
		}
		removed += int64(n)
	}
	if err := iter.Err(); err != nil {
		return removed, eris.Wrap(err, "failed to scan exposure keys")
	}
	return removed, nil
}
