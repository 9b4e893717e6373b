// Package nutrition 營養紀錄的寫入、查詢與每日彙總
package nutrition

import (
	"context"
	"fmt"
	"time"

	"fridge-chef/internal/pkg/common"
)

// Repository 營養紀錄持久層
type Repository interface {
	Append(ctx context.Context, userID string, entry common.MealLogEntry) (string, error)
	// ListBetween 回傳 [from, to) 區間內的紀錄，依時間排序
	ListBetween(ctx context.Context, userID string, from, to time.Time) ([]common.MealLogEntry, error)
}

// Totals 營養總計
type Totals struct {
	Meals    int     `json:"meals"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	TotalFat float64 `json:"total_fat"`
	Carbs    float64 `json:"carbs"`
}

func (t *Totals) add(e common.MealLogEntry) {
	t.Meals++
	t.Calories += e.Calories
	t.Protein += e.Protein
	t.TotalFat += e.TotalFat
	t.Carbs += e.Carbs
}

// DailySummary 單日彙總
type DailySummary struct {
	Date       string                         `json:"date"`
	Total      Totals                         `json:"total"`
	ByCategory map[common.MealCategory]Totals `json:"by_category"`
}

// Service 營養紀錄服務
type Service struct {
	repo Repository
}

// NewService 創建營養紀錄服務
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Append 寫入一筆紀錄
func (s *Service) Append(ctx context.Context, userID string, entry common.MealLogEntry) (string, error) {
	if _, ok := common.ParseMealCategory(string(entry.Category)); !ok {
		return "", common.NewValidationError(fmt.Sprintf("unknown meal category %q", entry.Category))
	}
	return s.repo.Append(ctx, userID, entry)
}

// List 列出某日的紀錄，以 day 所在時區計算
func (s *Service) List(ctx context.Context, userID string, day time.Time) ([]common.MealLogEntry, error) {
	from, to := DayBounds(day)
	return s.repo.ListBetween(ctx, userID, from, to)
}

// Summary 某日的總計與各餐別小計
func (s *Service) Summary(ctx context.Context, userID string, day time.Time) (DailySummary, error) {
	entries, err := s.List(ctx, userID, day)
	if err != nil {
		return DailySummary{}, err
	}
	sum := Summarize(entries)
	sum.Date = day.Format(DateLayout)
	return sum, nil
}

// DateLayout 查詢參數的日期格式
const DateLayout = "2006-01-02"

// ParseDay 解析 YYYY-MM-DD；空字串為今天
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if s == "" {
		return time.Now().In(loc), nil
	}
	day, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, common.NewValidationError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s))
	}
	return day, nil
}

// DayBounds 當日起訖 [00:00, 隔日 00:00)
func DayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return from, from.AddDate(0, 0, 1)
}

// Summarize 彙總紀錄；所有餐別都會出現在結果中
func Summarize(entries []common.MealLogEntry) DailySummary {
	sum := DailySummary{ByCategory: make(map[common.MealCategory]Totals, len(common.MealCategories))}
	for _, c := range common.MealCategories {
		sum.ByCategory[c] = Totals{}
	}

	for _, e := range entries {
		sum.Total.add(e)
		t := sum.ByCategory[e.Category]
		t.add(e)
		sum.ByCategory[e.Category] = t
	}
	return sum
}
