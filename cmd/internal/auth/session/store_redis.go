package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "gatekeep:session:"

// RedisStore implements Store on Redis. Each session is one JSON value whose key
// expires with the session, so no sweeper is needed.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed session store. A blank prefix selects "gatekeep:session:".
func NewRedisStore(client *redis.Client, prefix string) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: nil redis client", ErrConfig)
	}
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}, nil
}

type redisRecord struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identity_id"`
	Snapshot   Snapshot  `json:"snapshot"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (s *RedisStore) key(tokenHash string) string { return s.prefix + tokenHash }

// Create stores rec with a TTL matching its remaining window.
func (s *RedisStore) Create(ctx context.Context, rec Record) error {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("redis session: record already expired")
	}

	b, err := json.Marshal(redisRecord{
		ID:         rec.ID,
		IdentityID: rec.IdentityID,
		Snapshot:   rec.Snapshot,
		CreatedAt:  rec.CreatedAt,
		ExpiresAt:  rec.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("redis session: encode: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(rec.TokenHash), b, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis session: set: %w", err)
	}
	if !ok {
		return fmt.Errorf("redis session: token digest collision")
	}
	return nil
}

// Get loads a record by token digest.
func (s *RedisStore) Get(ctx context.Context, tokenHash string) (Record, error) {
	b, err := s.client.Get(ctx, s.key(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrSessionNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("redis session: get: %w", err)
	}

	var rr redisRecord
	if err := json.Unmarshal(b, &rr); err != nil {
		return Record{}, fmt.Errorf("redis session: decode: %w", err)
	}
	return Record{
		ID:         rr.ID,
		TokenHash:  tokenHash,
		IdentityID: rr.IdentityID,
		Snapshot:   rr.Snapshot,
		CreatedAt:  rr.CreatedAt,
		ExpiresAt:  rr.ExpiresAt,
	}, nil
}

// Delete removes a record. Missing keys are not an error.
func (s *RedisStore) Delete(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, s.key(tokenHash)).Err(); err != nil {
		return fmt.Errorf("redis session: del: %w", err)
	}
	return nil
}
