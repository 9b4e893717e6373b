package persistence

import (
	"context"
	"fmt"
	"time"

	"fridge-chef/internal/core/nutrition"
	"fridge-chef/internal/pkg/common"

	"gorm.io/gorm"
)

// MealLogRepository gorm 營養紀錄儲存
type MealLogRepository struct {
	db *gorm.DB
}

var _ nutrition.Repository = (*MealLogRepository)(nil)

// NewMealLogRepository 創建營養紀錄儲存
func NewMealLogRepository(db *gorm.DB) *MealLogRepository {
	return &MealLogRepository{db: db}
}

// Append 新增紀錄並回傳 id
func (r *MealLogRepository) Append(ctx context.Context, userID string, entry common.MealLogEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = common.GenerateOrderedID()
	}

	loggedAt, err := time.Parse(time.RFC3339, entry.Timestamp)
	if err != nil {
		loggedAt = time.Now()
		entry.Timestamp = loggedAt.UTC().Format(time.RFC3339)
	}

	model := mealToModel(userID, entry, loggedAt.UTC())
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return "", fmt.Errorf("failed to append meal log: %w", err)
	}
	return model.ID, nil
}

// ListBetween 列出 [from, to) 區間內的紀錄
func (r *MealLogRepository) ListBetween(ctx context.Context, userID string, from, to time.Time) ([]common.MealLogEntry, error) {
	var models []MealLogModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND logged_at >= ? AND logged_at < ?", userID, from.UTC(), to.UTC()).
		Order("logged_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list meal logs: %w", err)
	}

	entries := make([]common.MealLogEntry, 0, len(models))
	for i := range models {
		entries = append(entries, models[i].toDomain())
	}
	return entries, nil
}
