package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fridge-chef/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

// Store 對話狀態儲存
type Store interface {
	// Load 不存在或已過期時回傳只含問候語的新狀態
	Load(ctx context.Context, userID string) (*State, error)
	Save(ctx context.Context, s *State) error
	Delete(ctx context.Context, userID string) error
}

// MemoryStore 行程內儲存
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	states map[string]memoryEntry
}

type memoryEntry struct {
	state     *State
	expiresAt time.Time
}

// NewMemoryStore 創建行程內儲存；ttl <= 0 表示不過期
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:    ttl,
		now:    time.Now,
		states: make(map[string]memoryEntry),
	}
}

// Load 讀取狀態
func (m *MemoryStore) Load(ctx context.Context, userID string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.states[userID]
	if !ok {
		return NewState(userID), nil
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.states, userID)
		return NewState(userID), nil
	}
	return e.state.Clone(), nil
}

// Save 寫入狀態並更新過期時間
func (m *MemoryStore) Save(ctx context.Context, s *State) error {
	e := memoryEntry{state: s.Clone()}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	m.states[s.UserID] = e
	m.mu.Unlock()
	return nil
}

// Delete 刪除狀態
func (m *MemoryStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	delete(m.states, userID)
	m.mu.Unlock()
	return nil
}

// RedisStore 以 JSON 存在 redis，過期交給 redis TTL
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore 創建 redis 儲存
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Load 讀取狀態
func (r *RedisStore) Load(ctx context.Context, userID string) (*State, error) {
	data, err := r.client.Get(ctx, r.generateKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return NewState(userID), nil
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	var s State
	if err := common.ParseJSONBytes(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return &s, nil
}

// Save 寫入狀態
func (r *RedisStore) Save(ctx context.Context, s *State) error {
	data, err := common.ToJSON(s)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := r.client.Set(ctx, r.generateKey(s.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// Delete 刪除狀態
func (r *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.generateKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

func (r *RedisStore) generateKey(userID string) string {
	return fmt.Sprintf("conversation:%s", userID)
}
