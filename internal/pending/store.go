package pending

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/arvestapp/arvest-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

var ErrCodeNotFound = errors.New("pending action not found")

// Store keeps pending actions keyed by their one-time code with a TTL.
// Expiry is enforced twice: by the store dropping the key and by the
// service checking ExpiresAt, so a laggy store cannot extend a token's
// life.
type Store interface {
	Put(ctx context.Context, p models.PendingAction, ttl time.Duration) error
	Get(ctx context.Context, code string) (models.PendingAction, error)
	// Update rewrites a stored action in place, keeping its remaining TTL.
	Update(ctx context.Context, p models.PendingAction) error
	MarkConsumed(ctx context.Context, code string) error
}

const redisKeyPrefix = "pending_action:"

// RedisStore holds pending actions in Redis; the key TTL is the token
// expiry.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) Put(ctx context.Context, p models.PendingAction, ttl time.Duration) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, redisKeyPrefix+p.Code, raw, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, code string) (models.PendingAction, error) {
	raw, err := s.rdb.Get(ctx, redisKeyPrefix+code).Bytes()
	if err == redis.Nil {
		return models.PendingAction{}, ErrCodeNotFound
	}
	if err != nil {
		return models.PendingAction{}, err
	}
	var p models.PendingAction
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.PendingAction{}, err
	}
	return p, nil
}

func (s *RedisStore) Update(ctx context.Context, p models.PendingAction) error {
	ttl, err := s.rdb.TTL(ctx, redisKeyPrefix+p.Code).Result()
	if err != nil || ttl <= 0 {
		ttl = time.Minute
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, redisKeyPrefix+p.Code, raw, ttl).Err()
}

func (s *RedisStore) MarkConsumed(ctx context.Context, code string) error {
	p, err := s.Get(ctx, code)
	if err != nil {
		return err
	}
	p.Consumed = true
	return s.Update(ctx, p)
}

// MemoryStore backs tests and local development.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]models.PendingAction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]models.PendingAction)}
}

func (s *MemoryStore) Put(_ context.Context, p models.PendingAction, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.Code] = p
	return nil
}

func (s *MemoryStore) Get(_ context.Context, code string) (models.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[code]
	if !ok {
		return models.PendingAction{}, ErrCodeNotFound
	}
	return p, nil
}

func (s *MemoryStore) Update(_ context.Context, p models.PendingAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[p.Code]; !ok {
		return ErrCodeNotFound
	}
	s.items[p.Code] = p
	return nil
}

func (s *MemoryStore) MarkConsumed(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[code]
	if !ok {
		return ErrCodeNotFound
	}
	p.Consumed = true
	s.items[code] = p
	return nil
}
