// Package inventory 提供使用者食材快照、變更訂閱與增刪
package inventory

import (
	"context"
	"fmt"
	"strings"

	"fridge-chef/internal/pkg/common"

	"go.uber.org/zap"
)

// Repository 食材持久層
type Repository interface {
	// List 依建立時間排序
	List(ctx context.Context, userID string) ([]common.Ingredient, error)
	Add(ctx context.Context, userID string, ing common.Ingredient) (common.Ingredient, error)
	// Delete 找不到時回傳 common.ErrNotFound
	Delete(ctx context.Context, userID, id string) error
}

// Provider 食材快照提供者
type Provider struct {
	repo   Repository
	cache  *SnapshotCache
	broker Broker
}

// NewProvider 創建提供者；cache 與 broker 可為 nil
func NewProvider(repo Repository, cache *SnapshotCache, broker Broker) *Provider {
	if broker == nil {
		broker = NewMemoryBroker()
	}
	return &Provider{repo: repo, cache: cache, broker: broker}
}

// Snapshot 目前食材，快取優先
func (p *Provider) Snapshot(ctx context.Context, userID string) ([]common.Ingredient, error) {
	var version uint64
	if p.cache != nil {
		if items, ok := p.cache.Get(userID); ok {
			return items, nil
		}
		version = p.cache.Version(userID)
	}

	items, err := p.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	// 讀取期間有變更時不寫回，避免快取舊清單
	if p.cache != nil && !p.cache.SetIfVersion(userID, version, items) {
		common.LogDebug("Skipped caching stale inventory snapshot", zap.String("user_id", userID))
	}
	return items, nil
}

// Subscribe 立即推送一次快照，之後每次變更再推送；ctx 結束時關閉
func (p *Provider) Subscribe(ctx context.Context, userID string) (<-chan []common.Ingredient, error) {
	changes, err := p.broker.Subscribe(ctx, userID)
	if err != nil {
		return nil, err
	}

	first, err := p.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make(chan []common.Ingredient, 1)
	out <- first

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				// 其他實例的變更不會清掉本地快取
				p.Invalidate(userID)
				items, err := p.Snapshot(ctx, userID)
				if err != nil {
					common.LogWarn("Failed to refresh inventory snapshot",
						zap.String("user_id", userID),
						zap.Error(err),
					)
					continue
				}
				select {
				case out <- items:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Add 新增食材；數量預設為 1
func (p *Provider) Add(ctx context.Context, userID string, ing common.Ingredient) (common.Ingredient, error) {
	ing.Name = strings.TrimSpace(ing.Name)
	if ing.Quantity == 0 {
		ing.Quantity = 1
	}
	if err := ing.Validate(); err != nil {
		return common.Ingredient{}, err
	}
	if ing.ID == "" {
		ing.ID = common.GenerateOrderedID()
	}

	saved, err := p.repo.Add(ctx, userID, ing)
	if err != nil {
		return common.Ingredient{}, fmt.Errorf("failed to add ingredient: %w", err)
	}
	p.changed(ctx, userID)
	return saved, nil
}

// Delete 刪除單一食材
func (p *Provider) Delete(ctx context.Context, userID, id string) error {
	if err := p.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	p.changed(ctx, userID)
	return nil
}

// Invalidate 清除快取
func (p *Provider) Invalidate(userID string) {
	if p.cache != nil {
		p.cache.Invalidate(userID)
	}
}

func (p *Provider) changed(ctx context.Context, userID string) {
	p.Invalidate(userID)
	if err := p.broker.Publish(ctx, userID); err != nil {
		common.LogWarn("Failed to publish inventory change",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
