package articles

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotStore keeps encoded index snapshots for a bounded time. Expiry is by
// wall clock only; content changes are picked up when the entry expires or is
// deleted.
type SnapshotStore interface {
	// Load returns the stored value, or ok=false when it is missing or expired.
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	Save(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type memoryItem struct {
	data    []byte
	expires time.Time
}

// MemoryStore is an in-process SnapshotStore.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	it, ok := m.items[key]
	m.mu.RUnlock()
	if !ok || !m.now().Before(it.expires) {
		return nil, false, nil
	}
	return it.data, true, nil
}

func (m *MemoryStore) Save(_ context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	m.items[key] = memoryItem{data: data, expires: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// RedisStore shares snapshots between processes through Redis.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore wraps rdb; keys are namespaced with prefix.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (r *RedisStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Save stores data for ttl. A non-positive ttl stores nothing, matching
// MemoryStore where such entries are expired on arrival.
func (r *RedisStore) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, r.prefix+key, data, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.prefix+key).Err()
}
