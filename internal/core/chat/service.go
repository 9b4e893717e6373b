// Package chat 串接意圖分類、食譜生成、對話狀態與提交流程
package chat

import (
	"context"
	"fmt"
	"strings"

	"fridge-chef/internal/core/ai/provider"
	"fridge-chef/internal/core/commit"
	"fridge-chef/internal/core/conversation"
	"fridge-chef/internal/core/intent"
	"fridge-chef/internal/core/recipe"
	"fridge-chef/internal/pkg/common"
	"fridge-chef/internal/pkg/metrics"

	"go.uber.org/zap"
)

// 固定回覆
const (
	EmptyFridgeMessage    = "Your fridge is empty! Add some ingredients first so I can suggest recipes."
	RecipesFoundMessage   = "Here are some recipes you can make with your ingredients:"
	NoRecipesMessage      = "Sorry, I couldn't generate specific recipes right now. Please try again."
	GatewayErrorMessage   = "Sorry, something went wrong while contacting the assistant. Please try again."
	InventoryErrorMessage = "Sorry, I couldn't read your fridge right now. Please try again."
	fridgeListingFormat   = "Here's what you have in your fridge: %s."
)

// Snapshotter 食材快照來源
type Snapshotter interface {
	Snapshot(ctx context.Context, userID string) ([]common.Ingredient, error)
}

// Committer 提交流程
type Committer interface {
	Confirm(ctx context.Context, userID string, s *commit.Session) (commit.Outcome, error)
}

// Service 聊天服務
type Service struct {
	model     provider.Completer
	inventory Snapshotter
	store     conversation.Store
	committer Committer
	metrics   *metrics.Metrics
	locks     *userLocks
}

// NewService 創建聊天服務
func NewService(model provider.Completer, inventory Snapshotter, store conversation.Store, committer Committer, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.Nop()
	}
	return &Service{
		model:     model,
		inventory: inventory,
		store:     store,
		committer: committer,
		metrics:   m,
		locks:     newUserLocks(),
	}
}

// SendResult 一次送出的結果
type SendResult struct {
	Intent  string               `json:"intent"`
	Message conversation.Message `json:"message"`
	Reply   conversation.Message `json:"reply"`
	State   *conversation.State  `json:"state"`
}

// reply 分支產生的助理回覆
type reply struct {
	text    string
	recipes []common.Recipe
	reveal  bool
}

// Send 送出使用者訊息。模型呼叫期間不持有鎖，重疊的請求依完成順序附加回覆
func (s *Service) Send(ctx context.Context, userID, text string) (*SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, common.NewValidationError("message text is required")
	}

	var userMsg conversation.Message
	if err := s.mutate(ctx, userID, func(st *conversation.State) error {
		userMsg = st.AppendUser(text)
		return nil
	}); err != nil {
		return nil, err
	}

	kind := intent.Classify(text)
	s.metrics.Intents.WithLabelValues(kind.String()).Inc()
	common.LogDebug("Message classified",
		zap.String("user_id", userID),
		zap.String("intent", kind.String()),
	)

	var r reply
	switch kind {
	case intent.FridgeQuery:
		r = s.fridgeQuery(ctx, userID)
	case intent.RecipeRequest:
		r = s.recipeRequest(ctx, userID)
	default:
		r = s.general(ctx, userID, text)
	}

	result := &SendResult{Intent: kind.String(), Message: userMsg}
	if err := s.mutate(ctx, userID, func(st *conversation.State) error {
		if len(r.recipes) > 0 {
			result.Reply = st.AppendRecipes(r.text, r.recipes)
		} else {
			result.Reply = st.AppendAssistant(r.text, r.reveal)
		}
		result.State = st.Clone()
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) fridgeQuery(ctx context.Context, userID string) reply {
	items, err := s.inventory.Snapshot(ctx, userID)
	if err != nil {
		common.LogWarn("Failed to load inventory", zap.String("user_id", userID), zap.Error(err))
		return reply{text: InventoryErrorMessage}
	}
	names := common.JoinNames(common.IngredientNames(items))
	if names == "" {
		return reply{text: EmptyFridgeMessage}
	}
	return reply{text: fmt.Sprintf(fridgeListingFormat, names)}
}

func (s *Service) recipeRequest(ctx context.Context, userID string) reply {
	items, err := s.inventory.Snapshot(ctx, userID)
	if err != nil {
		common.LogWarn("Failed to load inventory", zap.String("user_id", userID), zap.Error(err))
		return reply{text: InventoryErrorMessage}
	}

	prompt, err := recipe.BuildRecipePrompt(items)
	if err != nil {
		// 空冰箱不呼叫模型
		return reply{text: EmptyFridgeMessage}
	}

	raw, err := s.model.Complete(ctx, prompt)
	if err != nil {
		common.LogError("Recipe generation failed", zap.String("user_id", userID), zap.Error(err))
		return reply{text: GatewayErrorMessage}
	}

	recipes := recipe.ParseRecipes(raw)
	s.metrics.RecipesParsed.Observe(float64(len(recipes)))
	if len(recipes) == 0 {
		common.LogWarn("No valid recipes in model output",
			zap.String("user_id", userID),
			zap.Int("raw_length", len(raw)),
		)
		return reply{text: NoRecipesMessage}
	}
	return reply{text: RecipesFoundMessage, recipes: recipes}
}

func (s *Service) general(ctx context.Context, userID, text string) reply {
	items, err := s.inventory.Snapshot(ctx, userID)
	if err != nil {
		// 背景資訊可省略
		common.LogWarn("Failed to load inventory for context", zap.String("user_id", userID), zap.Error(err))
		items = nil
	}

	answer, err := s.model.Complete(ctx, recipe.BuildGeneralPrompt(items, text))
	if err != nil {
		common.LogError("General chat failed", zap.String("user_id", userID), zap.Error(err))
		return reply{text: GatewayErrorMessage}
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return reply{text: GatewayErrorMessage}
	}
	return reply{text: answer, reveal: true}
}

// State 目前對話狀態
func (s *Service) State(ctx context.Context, userID string) (*conversation.State, error) {
	return s.store.Load(ctx, userID)
}

// Reset 重置為只含問候語
func (s *Service) Reset(ctx context.Context, userID string) (*conversation.State, error) {
	var out *conversation.State
	err := s.mutate(ctx, userID, func(st *conversation.State) error {
		st.Reset()
		out = st.Clone()
		return nil
	})
	return out, err
}

// ToggleExpand 展開或收合候選食譜
func (s *Service) ToggleExpand(ctx context.Context, userID string, index int) (*conversation.State, error) {
	return s.update(ctx, userID, func(st *conversation.State) error {
		return st.ToggleExpand(index)
	})
}

// SelectRecipe 選擇候選食譜，進入等待選擇餐別
func (s *Service) SelectRecipe(ctx context.Context, userID string, index int) (*conversation.State, error) {
	return s.update(ctx, userID, func(st *conversation.State) error {
		r, err := st.Candidate(index)
		if err != nil {
			return err
		}
		st.Selection.Select(r)
		return nil
	})
}

// SetCategory 變更餐別
func (s *Service) SetCategory(ctx context.Context, userID, category string) (*conversation.State, error) {
	c, ok := common.ParseMealCategory(category)
	if !ok {
		return nil, common.NewValidationError(fmt.Sprintf("unknown meal category %q", category))
	}
	return s.update(ctx, userID, func(st *conversation.State) error {
		return st.Selection.SetCategory(c)
	})
}

// CancelSelection 取消選取
func (s *Service) CancelSelection(ctx context.Context, userID string) (*conversation.State, error) {
	return s.update(ctx, userID, func(st *conversation.State) error {
		st.Selection.Cancel()
		return nil
	})
}

// ConfirmResult 提交結果
type ConfirmResult struct {
	Outcome commit.Outcome      `json:"outcome"`
	State   *conversation.State `json:"state"`
}

// Confirm 以指定餐別提交（空字串沿用目前餐別）。
// 前置條件錯誤不改變狀態；失敗時保留候選食譜以便重試
func (s *Service) Confirm(ctx context.Context, userID, category string) (*ConfirmResult, error) {
	if userID == "" {
		return nil, commit.ErrNoUser
	}

	var c common.MealCategory
	if category != "" {
		parsed, ok := common.ParseMealCategory(category)
		if !ok {
			return nil, common.NewValidationError(fmt.Sprintf("unknown meal category %q", category))
		}
		c = parsed
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	st, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 在副本上操作，前置條件失敗時不寫回
	session := st.Selection
	if c != "" {
		if err := session.SetCategory(c); err != nil {
			return nil, err
		}
	}

	out, err := s.committer.Confirm(ctx, userID, &session)
	if err != nil {
		return nil, err
	}
	st.Selection = session

	switch out.Status {
	case commit.StateSucceeded:
		st.ClearCandidates()
		st.AppendAssistant(out.Message, false)
	case commit.StatePartiallyFailed:
		st.ClearCandidates()
		st.AppendAssistant(out.Message+" "+out.Warning, false)
	}

	if err := s.store.Save(ctx, st); err != nil {
		return nil, err
	}
	return &ConfirmResult{Outcome: out, State: st.Clone()}, nil
}

// MessageText 取得訊息全文，供逐字顯示
func (s *Service) MessageText(ctx context.Context, userID, messageID string) (string, error) {
	st, err := s.store.Load(ctx, userID)
	if err != nil {
		return "", err
	}
	m, ok := st.Message(messageID)
	if !ok {
		return "", common.ErrNotFound
	}
	return m.Text, nil
}

// mutate 在使用者鎖內讀取、修改並儲存狀態
func (s *Service) mutate(ctx context.Context, userID string, fn func(*conversation.State) error) error {
	unlock := s.locks.lock(userID)
	defer unlock()

	st, err := s.store.Load(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}
	if err := fn(st); err != nil {
		return err
	}
	if err := s.store.Save(ctx, st); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// update 同 mutate，並回傳修改後的狀態
func (s *Service) update(ctx context.Context, userID string, fn func(*conversation.State) error) (*conversation.State, error) {
	var out *conversation.State
	err := s.mutate(ctx, userID, func(st *conversation.State) error {
		if err := fn(st); err != nil {
			return err
		}
		out = st.Clone()
		return nil
	})
	return out, err
}
