package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshot is the persisted state of a store, used to show something useful
// before the first notifications-loaded arrives.
type Snapshot struct {
	Scope         Scope                 `json:"scope"`
	Notifications []Notification        `json:"notifications"`
	Pending       []PendingNotification `json:"pending,omitempty"`
	SavedAt       time.Time             `json:"savedAt"`
}

// SnapshotStorage persists snapshots by scope.
type SnapshotStorage interface {
	Save(ctx context.Context, s Snapshot) error
	// Load returns ErrSnapshotNotFound when nothing was saved for scope.
	Load(ctx context.Context, scope Scope) (Snapshot, error)
	Delete(ctx context.Context, scope Scope) error
}

// MemorySnapshotStorage keeps snapshots in process memory.
type MemorySnapshotStorage struct {
	mu    sync.RWMutex
	items map[Scope]Snapshot
}

func NewMemorySnapshotStorage() *MemorySnapshotStorage {
	return &MemorySnapshotStorage{items: make(map[Scope]Snapshot)}
}

func (m *MemorySnapshotStorage) Save(_ context.Context, s Snapshot) error {
	if err := s.Scope.Validate(); err != nil {
		return err
	}
	s.Notifications = slices.Clone(s.Notifications)
	s.Pending = slices.Clone(s.Pending)

	m.mu.Lock()
	m.items[s.Scope] = s
	m.mu.Unlock()
	return nil
}

func (m *MemorySnapshotStorage) Load(_ context.Context, scope Scope) (Snapshot, error) {
	m.mu.RLock()
	s, ok := m.items[scope]
	m.mu.RUnlock()
	if !ok {
		return Snapshot{}, ErrSnapshotNotFound
	}
	s.Notifications = slices.Clone(s.Notifications)
	s.Pending = slices.Clone(s.Pending)
	return s, nil
}

func (m *MemorySnapshotStorage) Delete(_ context.Context, scope Scope) error {
	m.mu.Lock()
	delete(m.items, scope)
	m.mu.Unlock()
	return nil
}

// RedisCmdable is the subset of the go-redis client used for snapshots.
type RedisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisSnapshotStorage stores snapshots as JSON values with a TTL.
type RedisSnapshotStorage struct {
	client RedisCmdable
	prefix string
	ttl    time.Duration
}

// RedisSnapshotOption configures a RedisSnapshotStorage.
type RedisSnapshotOption func(*RedisSnapshotStorage)

// WithKeyPrefix sets the key prefix. Defaults to "tenderbell:snapshot:".
func WithKeyPrefix(prefix string) RedisSnapshotOption {
	return func(r *RedisSnapshotStorage) { r.prefix = prefix }
}

// WithSnapshotTTL sets how long a snapshot lives. Zero keeps it forever.
func WithSnapshotTTL(ttl time.Duration) RedisSnapshotOption {
	return func(r *RedisSnapshotStorage) { r.ttl = ttl }
}

func NewRedisSnapshotStorage(client RedisCmdable, opts ...RedisSnapshotOption) *RedisSnapshotStorage {
	r := &RedisSnapshotStorage{
		client: client,
		prefix: "tenderbell:snapshot:",
		ttl:    7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisSnapshotStorage) key(scope Scope) string {
	return r.prefix + scope.String()
}

func (r *RedisSnapshotStorage) Save(ctx context.Context, s Snapshot) error {
	if err := s.Scope.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("notifications: encode snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.Scope), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("notifications: save snapshot: %w", err)
	}
	return nil
}

func (r *RedisSnapshotStorage) Load(ctx context.Context, scope Scope) (Snapshot, error) {
	data, err := r.client.Get(ctx, r.key(scope)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, ErrSnapshotNotFound
		}
		return Snapshot{}, fmt.Errorf("notifications: load snapshot: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("notifications: decode snapshot: %w", err)
	}
	return s, nil
}

func (r *RedisSnapshotStorage) Delete(ctx context.Context, scope Scope) error {
	if err := r.client.Del(ctx, r.key(scope)).Err(); err != nil {
		return fmt.Errorf("notifications: delete snapshot: %w", err)
	}
	return nil
}
