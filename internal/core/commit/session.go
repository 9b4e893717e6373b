// Package commit 將選定的食譜寫入營養紀錄並移除用掉的食材
package commit

import (
	"errors"

	"fridge-chef/internal/pkg/common"
)

// State 提交流程狀態
type State string

const (
	StateIdle                     State = "idle"
	StateCategorySelectionPending State = "category_selection_pending"
	StateCommitting               State = "committing"
	StateSucceeded                State = "succeeded"
	StatePartiallyFailed          State = "partially_failed"
	StateFailed                   State = "failed"
)

// 前置條件錯誤；發生時不會呼叫任何外部儲存
var (
	ErrNoUser     = errors.New("no authenticated user")
	ErrNoRecipe   = errors.New("no recipe selected")
	ErrNoCategory = errors.New("no meal category selected")
	ErrNotPending = errors.New("no recipe is waiting for confirmation")
)

// IsPrecondition 是否為前置條件錯誤
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNoUser) ||
		errors.Is(err, ErrNoRecipe) ||
		errors.Is(err, ErrNoCategory) ||
		errors.Is(err, ErrNotPending) ||
		common.IsValidationError(err)
}

// Session 使用者目前的選取狀態，隨對話一起保存
type Session struct {
	State    State               `json:"state"`
	Recipe   *common.Recipe      `json:"recipe,omitempty"`
	Category common.MealCategory `json:"category,omitempty"`
}

// NewSession 閒置狀態
func NewSession() Session {
	return Session{State: StateIdle}
}

// Select 選擇要製作的食譜，餐別預設為早餐
func (s *Session) Select(r common.Recipe) {
	s.State = StateCategorySelectionPending
	s.Recipe = &r
	s.Category = common.CategoryBreakfast
}

// SetCategory 變更待確認的餐別
func (s *Session) SetCategory(c common.MealCategory) error {
	if s.State != StateCategorySelectionPending {
		return ErrNotPending
	}
	if _, ok := common.ParseMealCategory(string(c)); !ok {
		return common.NewValidationError("unknown meal category " + string(c))
	}
	s.Category = c
	return nil
}

// Cancel 放棄選取
func (s *Session) Cancel() {
	*s = NewSession()
}

// Pending 是否等待確認
func (s Session) Pending() bool {
	return s.State == StateCategorySelectionPending
}

// check 確認前的檢查；失敗時維持原狀態
func (s Session) check(userID string) error {
	if s.State != StateCategorySelectionPending {
		return ErrNotPending
	}
	if userID == "" {
		return ErrNoUser
	}
	if s.Recipe == nil || !s.Recipe.Valid() {
		return ErrNoRecipe
	}
	if s.Category == "" {
		return ErrNoCategory
	}
	if _, ok := common.ParseMealCategory(string(s.Category)); !ok {
		return ErrNoCategory
	}
	return nil
}
