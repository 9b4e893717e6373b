// Package conversation 保存使用者的對話紀錄、候選食譜與選取狀態
package conversation

import (
	"errors"
	"time"

	"fridge-chef/internal/core/commit"
	"fridge-chef/internal/pkg/common"
)

// Greeting 重置後的唯一一則訊息
const Greeting = "Hi! I'm your kitchen assistant. Ask me what you can cook with what's in your fridge."

// ErrRecipeIndex 候選食譜索引無效
var ErrRecipeIndex = errors.New("recipe index out of range")

// Message 對話訊息，附加的食譜一經附上即不再變更
type Message struct {
	ID              string          `json:"id"`
	Text            string          `json:"text"`
	IsUser          bool            `json:"is_user"`
	AttachedRecipes []common.Recipe `json:"attached_recipes,omitempty"`
	// Reveal 內容以打字效果逐字顯示
	Reveal    bool      `json:"reveal,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// State 單一使用者的對話狀態
type State struct {
	UserID   string    `json:"user_id"`
	Messages []Message `json:"messages"`
	// LiveMessageID 目前候選食譜所屬的訊息；空字串表示沒有候選
	LiveMessageID string `json:"live_message_id,omitempty"`
	// Expanded 展開的候選索引，-1 表示全部收合
	Expanded  int            `json:"expanded"`
	Selection commit.Session `json:"selection"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewState 只含問候語的新狀態
func NewState(userID string) *State {
	s := &State{UserID: userID}
	s.Reset()
	return s
}

// Reset 清空對話，只留問候語
func (s *State) Reset() {
	s.Messages = nil
	s.clearCandidates()
	s.append(Message{Text: Greeting})
}

// AppendUser 新增使用者訊息；先前的候選食譜隨即失效
func (s *State) AppendUser(text string) Message {
	s.clearCandidates()
	return s.append(Message{Text: text, IsUser: true})
}

// AppendAssistant 新增助理訊息
func (s *State) AppendAssistant(text string, reveal bool) Message {
	return s.append(Message{Text: text, Reveal: reveal})
}

// AppendRecipes 新增附帶候選食譜的助理訊息，成為唯一的有效候選
func (s *State) AppendRecipes(text string, recipes []common.Recipe) Message {
	attached := make([]common.Recipe, len(recipes))
	copy(attached, recipes)

	s.clearCandidates()
	m := s.append(Message{Text: text, AttachedRecipes: attached})
	s.LiveMessageID = m.ID
	return m
}

// Candidates 目前可選取的食譜
func (s *State) Candidates() []common.Recipe {
	if s.LiveMessageID == "" {
		return nil
	}
	if m, ok := s.Message(s.LiveMessageID); ok {
		return m.AttachedRecipes
	}
	return nil
}

// Candidate 取得候選食譜
func (s *State) Candidate(index int) (common.Recipe, error) {
	c := s.Candidates()
	if index < 0 || index >= len(c) {
		return common.Recipe{}, ErrRecipeIndex
	}
	return c[index], nil
}

// ToggleExpand 展開或收合候選；同時只展開一張
func (s *State) ToggleExpand(index int) error {
	if _, err := s.Candidate(index); err != nil {
		return err
	}
	if s.Expanded == index {
		s.Expanded = -1
	} else {
		s.Expanded = index
	}
	return nil
}

// ClearCandidates 提交成功後清除候選
func (s *State) ClearCandidates() {
	s.clearCandidates()
}

// Message 依 id 查找訊息
func (s *State) Message(id string) (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].ID == id {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

func (s *State) clearCandidates() {
	s.LiveMessageID = ""
	s.Expanded = -1
	s.Selection = commit.NewSession()
}

func (s *State) append(m Message) Message {
	m.ID = common.GenerateOrderedID()
	m.CreatedAt = time.Now().UTC()
	s.Messages = append(s.Messages, m)
	s.UpdatedAt = m.CreatedAt
	return m
}

// Clone 深拷貝，供儲存層隔離呼叫端
func (s *State) Clone() *State {
	c := *s
	c.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		if m.AttachedRecipes != nil {
			m.AttachedRecipes = append([]common.Recipe(nil), m.AttachedRecipes...)
		}
		c.Messages[i] = m
	}
	if s.Selection.Recipe != nil {
		r := *s.Selection.Recipe
		c.Selection.Recipe = &r
	}
	return &c
}
