package persistence

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"fridge-chef/internal/pkg/common"
)

// IngredientModel 食材資料表
type IngredientModel struct {
	ID               string `gorm:"type:varchar(36);primaryKey"`
	UserID           string `gorm:"type:varchar(128);not null;index:idx_ingredient_user_created"`
	Name             string `gorm:"type:varchar(255);not null"`
	ServingSizeGrams float64
	Quantity         int `gorm:"not null;default:1"`
	Calories         float64
	Protein          float64
	TotalFat         float64
	Water            float64
	Sugar            float64
	CreatedAt        time.Time `gorm:"index:idx_ingredient_user_created"`
}

// TableName 資料表名稱
func (IngredientModel) TableName() string { return "ingredients" }

// MealLogModel 營養紀錄資料表
type MealLogModel struct {
	ID          string      `gorm:"type:varchar(36);primaryKey"`
	UserID      string      `gorm:"type:varchar(128);not null;index:idx_meal_user_logged"`
	Name        string      `gorm:"type:varchar(255);not null"`
	Category    string      `gorm:"type:varchar(20);not null"`
	Ingredients StringSlice `gorm:"type:text"`
	Calories    float64
	Protein     float64
	TotalFat    float64
	Carbs       float64
	// LoggedAt 供日期查詢；Timestamp 保留原始 ISO-8601 字串
	LoggedAt  time.Time `gorm:"not null;index:idx_meal_user_logged"`
	Timestamp string    `gorm:"type:varchar(40)"`
}

// TableName 資料表名稱
func (MealLogModel) TableName() string { return "meal_logs" }

// StringSlice 以 JSON 文字儲存的字串陣列
type StringSlice []string

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
}

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func ingredientToModel(userID string, ing common.Ingredient) *IngredientModel {
	return &IngredientModel{
		ID:               ing.ID,
		UserID:           userID,
		Name:             ing.Name,
		ServingSizeGrams: ing.ServingSizeGrams,
		Quantity:         ing.Quantity,
		Calories:         ing.Calories,
		Protein:          ing.Protein,
		TotalFat:         ing.TotalFat,
		Water:            ing.Water,
		Sugar:            ing.Sugar,
		CreatedAt:        ing.CreatedAt,
	}
}

func (m *IngredientModel) toDomain() common.Ingredient {
	return common.Ingredient{
		ID:               m.ID,
		Name:             m.Name,
		ServingSizeGrams: m.ServingSizeGrams,
		Quantity:         m.Quantity,
		Calories:         m.Calories,
		Protein:          m.Protein,
		TotalFat:         m.TotalFat,
		Water:            m.Water,
		Sugar:            m.Sugar,
		CreatedAt:        m.CreatedAt,
	}
}

func mealToModel(userID string, e common.MealLogEntry, loggedAt time.Time) *MealLogModel {
	return &MealLogModel{
		ID:          e.ID,
		UserID:      userID,
		Name:        e.Name,
		Category:    string(e.Category),
		Ingredients: StringSlice(e.Ingredients),
		Calories:    e.Calories,
		Protein:     e.Protein,
		TotalFat:    e.TotalFat,
		Carbs:       e.Carbs,
		LoggedAt:    loggedAt,
		Timestamp:   e.Timestamp,
	}
}

func (m *MealLogModel) toDomain() common.MealLogEntry {
	ingredients := []string(m.Ingredients)
	if ingredients == nil {
		ingredients = []string{}
	}
	return common.MealLogEntry{
		ID:          m.ID,
		Name:        m.Name,
		Category:    common.MealCategory(m.Category),
		Ingredients: ingredients,
		Calories:    m.Calories,
		Protein:     m.Protein,
		TotalFat:    m.TotalFat,
		Carbs:       m.Carbs,
		Timestamp:   m.Timestamp,
	}
}
