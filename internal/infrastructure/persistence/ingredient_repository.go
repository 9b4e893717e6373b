package persistence

import (
	"context"
	"fmt"
	"time"

	"fridge-chef/internal/core/inventory"
	"fridge-chef/internal/pkg/common"

	"gorm.io/gorm"
)

// IngredientRepository gorm 食材儲存
type IngredientRepository struct {
	db *gorm.DB
}

var _ inventory.Repository = (*IngredientRepository)(nil)

// NewIngredientRepository 創建食材儲存
func NewIngredientRepository(db *gorm.DB) *IngredientRepository {
	return &IngredientRepository{db: db}
}

// List 依建立時間排序列出食材
func (r *IngredientRepository) List(ctx context.Context, userID string) ([]common.Ingredient, error) {
	var models []IngredientModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}

	items := make([]common.Ingredient, 0, len(models))
	for i := range models {
		items = append(items, models[i].toDomain())
	}
	return items, nil
}

// Add 新增食材
func (r *IngredientRepository) Add(ctx context.Context, userID string, ing common.Ingredient) (common.Ingredient, error) {
	if ing.ID == "" {
		ing.ID = common.GenerateOrderedID()
	}
	if ing.CreatedAt.IsZero() {
		ing.CreatedAt = time.Now().UTC()
	}

	model := ingredientToModel(userID, ing)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return common.Ingredient{}, fmt.Errorf("failed to create ingredient: %w", err)
	}
	return model.toDomain(), nil
}

// Delete 刪除食材，只限該使用者的資料
func (r *IngredientRepository) Delete(ctx context.Context, userID, id string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Delete(&IngredientModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete ingredient: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}
