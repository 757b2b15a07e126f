package verification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Code is a pending one-time code. Only the bcrypt hash is kept.
type Code struct {
	Hash      []byte    `json:"hash"`
	Phone     string    `json:"phone"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store is a TTL-keyed map from user id to their current code. Get returns
// ErrNoCode when nothing is stored. Fail atomically counts a wrong guess
// against the current code and returns the new total; Put resets it.
type Store interface {
	Put(ctx context.Context, userID string, c Code, ttl time.Duration) error
	Get(ctx context.Context, userID string) (*Code, error)
	Fail(ctx context.Context, userID string, ttl time.Duration) (int, error)
	Delete(ctx context.Context, userID string) error
}

// expiryGrace keeps an entry around briefly after it expires so a late
// attempt is told the code expired rather than that none exists.
const expiryGrace = time.Minute

type RedisStore struct{ R *redis.Client }

func key(userID string) string { return "phone_verification:" + userID }

func attemptsKey(userID string) string { return "phone_verification:" + userID + ":attempts" }

func (s *RedisStore) Put(ctx context.Context, userID string, c Code, ttl time.Duration) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = s.R.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key(userID), b, ttl+expiryGrace)
		p.Del(ctx, attemptsKey(userID))
		return nil
	})
	return err
}

func (s *RedisStore) Get(ctx context.Context, userID string) (*Code, error) {
	b, err := s.R.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoCode
	}
	if err != nil {
		return nil, err
	}
	var c Code
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *RedisStore) Fail(ctx context.Context, userID string, ttl time.Duration) (int, error) {
	var incr *redis.IntCmd
	_, err := s.R.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, attemptsKey(userID))
		p.Expire(ctx, attemptsKey(userID), ttl+expiryGrace)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	return s.R.Del(ctx, key(userID), attemptsKey(userID)).Err()
}

// MemoryStore is the single-instance fallback used when no Redis address is
// configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	code     Code
	purgeAt  time.Time
	attempts int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Put(_ context.Context, userID string, c Code, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = memoryEntry{code: c, purgeAt: s.now().Add(ttl + expiryGrace)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return nil, ErrNoCode
	}
	if s.now().After(e.purgeAt) {
		delete(s.entries, userID)
		return nil, ErrNoCode
	}
	c := e.code
	return &c, nil
}

func (s *MemoryStore) Fail(_ context.Context, userID string, _ time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return 0, ErrNoCode
	}
	e.attempts++
	s.entries[userID] = e
	return e.attempts, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}
