package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"fridge-chef/internal/infrastructure/config"
	"fridge-chef/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestIngredientRepository(t *testing.T) {
	repo := NewIngredientRepository(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	_, err := repo.Add(ctx, "u1", common.Ingredient{ID: "b", Name: "Milk", Quantity: 1, CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)
	_, err = repo.Add(ctx, "u1", common.Ingredient{ID: "a", Name: "Eggs", Quantity: 6, Protein: 6.3, CreatedAt: base})
	require.NoError(t, err)
	_, err = repo.Add(ctx, "u2", common.Ingredient{Name: "Rice", Quantity: 1})
	require.NoError(t, err)

	items, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Eggs", items[0].Name)
	assert.Equal(t, 6, items[0].Quantity)
	assert.Equal(t, 6.3, items[0].Protein)
	assert.Equal(t, "Milk", items[1].Name)

	require.NoError(t, repo.Delete(ctx, "u1", "a"))
	assert.ErrorIs(t, repo.Delete(ctx, "u1", "a"), common.ErrNotFound)

	// 不可刪除其他使用者的資料
	others, err := repo.List(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.ErrorIs(t, repo.Delete(ctx, "u1", others[0].ID), common.ErrNotFound)

	items, err = repo.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestMealLogRepository(t *testing.T) {
	repo := NewMealLogRepository(openTestDB(t))
	ctx := context.Background()
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	r := common.Recipe{Title: "Omelette", Ingredients: []string{"Eggs", "Milk"}, Steps: []string{"Fry."}, Calories: 300, Protein: 20, Fats: 22, Carbs: 2}

	id, err := repo.Append(ctx, "u1", common.NewMealLogEntry(r, common.CategoryBreakfast, day.Add(8*time.Hour)))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = repo.Append(ctx, "u1", common.NewMealLogEntry(r, common.CategoryDinner, day.Add(26*time.Hour)))
	require.NoError(t, err)

	entries, err := repo.ListBetween(ctx, "u1", day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, "Omelette", entries[0].Name)
	assert.Equal(t, common.CategoryBreakfast, entries[0].Category)
	assert.Equal(t, []string{"Eggs", "Milk"}, entries[0].Ingredients)
	assert.Equal(t, 22.0, entries[0].TotalFat)
	assert.Equal(t, "2024-05-01T08:00:00Z", entries[0].Timestamp)

	none, err := repo.ListBetween(ctx, "u2", day, day.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Empty(t, none)
}
