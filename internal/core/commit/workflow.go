package commit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"fridge-chef/internal/pkg/common"
	"fridge-chef/internal/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LogStore 營養紀錄寫入
type LogStore interface {
	Append(ctx context.Context, userID string, entry common.MealLogEntry) (string, error)
}

// InventoryStore 食材讀取與刪除
type InventoryStore interface {
	Snapshot(ctx context.Context, userID string) ([]common.Ingredient, error)
	Delete(ctx context.Context, userID, id string) error
}

// Outcome 單次提交的彙整結果
type Outcome struct {
	Status     State               `json:"status"`
	Recipe     string              `json:"recipe"`
	Category   common.MealCategory `json:"category"`
	LogID      string              `json:"log_id,omitempty"`
	Message    string              `json:"message"`
	Warning    string              `json:"warning,omitempty"`
	RemovedIDs []string            `json:"removed_ids"`
	FailedIDs  []string            `json:"failed_ids,omitempty"`
}

const (
	failedMessage  = "Sorry, I couldn't log this meal. Please try again."
	partialWarning = "Your meal was logged, but some ingredients could not be removed from your fridge."
)

// Workflow 提交流程
type Workflow struct {
	log         LogStore
	inventory   InventoryStore
	concurrency int
	metrics     *metrics.Metrics
	now         func() time.Time
}

// Option 流程選項
type Option func(*Workflow)

// WithConcurrency 同時進行的刪除數
func WithConcurrency(n int) Option {
	return func(w *Workflow) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithMetrics 設定指標
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workflow) {
		if m != nil {
			w.metrics = m
		}
	}
}

// WithClock 設定時間來源
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// NewWorkflow 創建提交流程
func NewWorkflow(log LogStore, inventory InventoryStore, opts ...Option) *Workflow {
	w := &Workflow{
		log:         log,
		inventory:   inventory,
		concurrency: 4,
		metrics:     metrics.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Confirm 確認提交。前置條件不符時回傳錯誤且 session 不變；
// 否則回傳結果並將 session 重置為閒置
func (w *Workflow) Confirm(ctx context.Context, userID string, s *Session) (Outcome, error) {
	if err := s.check(userID); err != nil {
		return Outcome{}, err
	}

	recipe := *s.Recipe
	category := s.Category
	s.State = StateCommitting

	out := w.commit(ctx, userID, recipe, category)
	s.State = out.Status
	w.metrics.Commits.WithLabelValues(string(out.Status)).Inc()

	common.LogInfo("Recipe committed",
		zap.String("user_id", userID),
		zap.String("recipe", recipe.Title),
		zap.String("category", string(category)),
		zap.String("status", string(out.Status)),
		zap.Int("removed", len(out.RemovedIDs)),
		zap.Int("failed", len(out.FailedIDs)),
	)

	// 終止狀態一律回到閒置
	s.Cancel()
	return out, nil
}

func (w *Workflow) commit(ctx context.Context, userID string, recipe common.Recipe, category common.MealCategory) Outcome {
	out := Outcome{
		Recipe:     recipe.Title,
		Category:   category,
		RemovedIDs: []string{},
	}

	entry := common.NewMealLogEntry(recipe, category, w.now())
	logID, err := w.log.Append(ctx, userID, entry)
	if err != nil {
		common.LogError("Failed to append meal log",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		out.Status = StateFailed
		out.Message = failedMessage
		return out
	}
	out.LogID = logID

	removed, failed, err := w.removeIngredients(ctx, userID, recipe.Ingredients)
	out.RemovedIDs = removed
	out.FailedIDs = failed

	out.Message = fmt.Sprintf("%s has been logged as %s.", recipe.Title, category)
	if err != nil || len(failed) > 0 {
		out.Status = StatePartiallyFailed
		out.Warning = partialWarning
		return out
	}
	out.Status = StateSucceeded
	return out
}

// removeIngredients 盡力刪除；單筆失敗不影響其他刪除
func (w *Workflow) removeIngredients(ctx context.Context, userID string, names []string) ([]string, []string, error) {
	inventory, err := w.inventory.Snapshot(ctx, userID)
	if err != nil {
		common.LogWarn("Failed to read inventory for removal",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return []string{}, nil, err
	}

	ids := MatchIngredients(names, inventory)
	if len(ids) == 0 {
		return []string{}, nil, nil
	}

	var (
		mu      sync.Mutex
		removed = make([]string, 0, len(ids))
		failed  []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			err := w.inventory.Delete(gctx, userID, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, id)
				w.metrics.IngredientDrops.WithLabelValues("error").Inc()
				common.LogWarn("Failed to remove ingredient",
					zap.String("user_id", userID),
					zap.String("ingredient_id", id),
					zap.Error(err),
				)
				return nil
			}
			removed = append(removed, id)
			w.metrics.IngredientDrops.WithLabelValues("ok").Inc()
			return nil
		})
	}
	_ = g.Wait()

	return sortLike(ids, removed), sortLike(ids, failed), nil
}

// MatchIngredients 以正規化名稱互相包含判斷，回傳去重且保持庫存順序的 id
func MatchIngredients(recipeIngredients []string, inventory []common.Ingredient) []string {
	wanted := make([]string, 0, len(recipeIngredients))
	for _, name := range recipeIngredients {
		if n := Normalize(name); n != "" {
			wanted = append(wanted, n)
		}
	}

	ids := make([]string, 0)
	seen := make(map[string]struct{}, len(inventory))
	for _, ing := range inventory {
		have := Normalize(ing.Name)
		if have == "" || ing.ID == "" {
			continue
		}
		if _, dup := seen[ing.ID]; dup {
			continue
		}
		for _, want := range wanted {
			if strings.Contains(have, want) || strings.Contains(want, have) {
				seen[ing.ID] = struct{}{}
				ids = append(ids, ing.ID)
				break
			}
		}
	}
	return ids
}

// Normalize 小寫並去除所有非字母數字
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sortLike 依 order 的順序排列 subset
func sortLike(order, subset []string) []string {
	if subset == nil {
		return nil
	}
	in := make(map[string]struct{}, len(subset))
	for _, id := range subset {
		in[id] = struct{}{}
	}
	out := make([]string, 0, len(subset))
	for _, id := range order {
		if _, ok := in[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
