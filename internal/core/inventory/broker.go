package inventory

import (
	"context"
	"fmt"
	"sync"

	"fridge-chef/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Broker 食材變更通知
type Broker interface {
	Publish(ctx context.Context, userID string) error
	// Subscribe 回傳通知通道；ctx 結束時通道關閉
	Subscribe(ctx context.Context, userID string) (<-chan struct{}, error)
}

// ChannelName 使用者的變更頻道
func ChannelName(userID string) string {
	return fmt.Sprintf("inventory:%s", userID)
}

// MemoryBroker 行程內廣播
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewMemoryBroker 創建行程內 broker
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[chan struct{}]struct{})}
}

// Publish 通知所有訂閱者；慢的訂閱者只保留一則待處理通知
func (b *MemoryBroker) Publish(ctx context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[userID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Subscribe 註冊訂閱者
func (b *MemoryBroker) Subscribe(ctx context.Context, userID string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan struct{}]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer b.unsubscribe(userID, ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (b *MemoryBroker) unsubscribe(userID string, ch chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[userID], ch)
	if len(b.subs[userID]) == 0 {
		delete(b.subs, userID)
	}
}

// RedisBroker 透過 redis pub/sub 在多個實例間廣播
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker 創建 redis broker
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

// Publish 發布變更
func (b *RedisBroker) Publish(ctx context.Context, userID string) error {
	if err := b.client.Publish(ctx, ChannelName(userID), "changed").Err(); err != nil {
		return fmt.Errorf("failed to publish inventory change: %w", err)
	}
	return nil
}

// Subscribe 訂閱變更
func (b *RedisBroker) Subscribe(ctx context.Context, userID string) (<-chan struct{}, error) {
	pubsub := b.client.Subscribe(ctx, ChannelName(userID))

	// 等待訂閱確認，避免漏掉緊接著的發布
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe inventory changes: %w", err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer func() {
			if err := pubsub.Close(); err != nil {
				common.LogWarn("Failed to close inventory subscription", zap.Error(err))
			}
		}()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}
