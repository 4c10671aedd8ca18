package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrDiversityContention is returned when optimistic updates keep losing
// to concurrent writers.
var ErrDiversityContention = errors.New("diversity state contention")

// RedisStore shares diversity state across processes. Updates use
// WATCH/MULTI so concurrent writers to one session retry instead of
// clobbering each other.
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	ttl        time.Duration
	maxRetries int
}

// NewRedisStore wraps client. Keys are prefix + session id.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "eikengen:diversity:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, maxRetries: 10}
}

// DialRedis connects and pings.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) key(sessionID string) string { return s.prefix + sessionID }

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*SessionState, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get diversity state: %w", err)
	}
	return decodeState(raw)
}

func (s *RedisStore) Update(ctx context.Context, sessionID string, fn func(*SessionState) (bool, error)) error {
	key := s.key(sessionID)
	txf := func(tx *redis.Tx) error {
		st := NewSessionState()
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("get diversity state: %w", err)
		default:
			if st, err = decodeState(raw); err != nil {
				return err
			}
		}

		commit, err := fn(st)
		if err != nil || !commit {
			return err
		}
		data, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("encode diversity state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	for range s.maxRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			diversityConflicts.Inc()
			continue
		}
		return err
	}
	return fmt.Errorf("session %s: %w", sessionID, ErrDiversityContention)
}

func decodeState(raw []byte) (*SessionState, error) {
	st := NewSessionState()
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("decode diversity state: %w", err)
	}
	return st, nil
}
