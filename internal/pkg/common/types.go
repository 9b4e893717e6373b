package common

import (
	"fmt"
	"strings"
	"time"
)

// Ingredient 冰箱裡的食材
type Ingredient struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ServingSizeGrams float64   `json:"serving_size_grams"`
	Quantity         int       `json:"quantity"`
	Calories         float64   `json:"calories"`
	Protein          float64   `json:"protein"`
	TotalFat         float64   `json:"total_fat"`
	Water            float64   `json:"water"`
	Sugar            float64   `json:"sugar"`
	CreatedAt        time.Time `json:"created_at"`
}

// Validate 檢查食材欄位：名稱必填、數量大於零、營養素不可為負
func (i Ingredient) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return NewValidationError("ingredient name is required")
	}
	if i.Quantity <= 0 {
		return NewValidationError("ingredient quantity must be greater than zero")
	}
	for field, v := range map[string]float64{
		"serving_size_grams": i.ServingSizeGrams,
		"calories":           i.Calories,
		"protein":            i.Protein,
		"total_fat":          i.TotalFat,
		"water":              i.Water,
		"sugar":              i.Sugar,
	} {
		if v < 0 {
			return NewValidationError(fmt.Sprintf("%s must not be negative", field))
		}
	}
	return nil
}

// Recipe 由模型輸出解析出的食譜
type Recipe struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
	Calories    int      `json:"calories"`
	Protein     float64  `json:"protein"`
	Fats        float64  `json:"fats"`
	Carbs       float64  `json:"carbs"`
	VideoLink   string   `json:"video_link,omitempty"`
}

// Valid 標題、食材、步驟皆不可為空
func (r Recipe) Valid() bool {
	return strings.TrimSpace(r.Title) != "" && len(r.Ingredients) > 0 && len(r.Steps) > 0
}

// MealCategory 餐別
type MealCategory string

const (
	CategoryBreakfast MealCategory = "Breakfast"
	CategoryLunch     MealCategory = "Lunch"
	CategoryDinner    MealCategory = "Dinner"
	CategorySnack     MealCategory = "Snack"
)

// MealCategories 依顯示順序排列的餐別
var MealCategories = []MealCategory{CategoryBreakfast, CategoryLunch, CategoryDinner, CategorySnack}

// ParseMealCategory 不分大小寫解析餐別
func ParseMealCategory(s string) (MealCategory, bool) {
	for _, c := range MealCategories {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, true
		}
	}
	return "", false
}

// MealLogEntry 營養紀錄
type MealLogEntry struct {
	ID          string       `json:"id,omitempty"`
	Name        string       `json:"name"`
	Category    MealCategory `json:"category"`
	Ingredients []string     `json:"ingredients"`
	Calories    float64      `json:"calories"`
	Protein     float64      `json:"protein"`
	TotalFat    float64      `json:"total_fat"`
	Carbs       float64      `json:"carbs"`
	Timestamp   string       `json:"timestamp"`
}

// NewMealLogEntry 由食譜與餐別建立營養紀錄，時間為 ISO-8601 (UTC)
func NewMealLogEntry(r Recipe, category MealCategory, at time.Time) MealLogEntry {
	ingredients := make([]string, len(r.Ingredients))
	copy(ingredients, r.Ingredients)
	return MealLogEntry{
		Name:        r.Title,
		Category:    category,
		Ingredients: ingredients,
		Calories:    float64(r.Calories),
		Protein:     r.Protein,
		TotalFat:    r.Fats,
		Carbs:       r.Carbs,
		Timestamp:   at.UTC().Format(time.RFC3339),
	}
}

// IngredientNames 取出食材名稱
func IngredientNames(ingredients []Ingredient) []string {
	names := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		names = append(names, ing.Name)
	}
	return names
}
