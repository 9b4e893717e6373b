package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"fridge-chef/internal/api/handlers"
	"fridge-chef/internal/api/middleware"
	chatService "fridge-chef/internal/core/chat"
	"fridge-chef/internal/core/commit"
	"fridge-chef/internal/core/conversation"
	"fridge-chef/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Service 聊天處理器所需的服務
type Service interface {
	State(ctx context.Context, userID string) (*conversation.State, error)
	Send(ctx context.Context, userID, text string) (*chatService.SendResult, error)
	Reset(ctx context.Context, userID string) (*conversation.State, error)
	ToggleExpand(ctx context.Context, userID string, index int) (*conversation.State, error)
	SelectRecipe(ctx context.Context, userID string, index int) (*conversation.State, error)
	SetCategory(ctx context.Context, userID, category string) (*conversation.State, error)
	CancelSelection(ctx context.Context, userID string) (*conversation.State, error)
	Confirm(ctx context.Context, userID, category string) (*chatService.ConfirmResult, error)
	MessageText(ctx context.Context, userID, messageID string) (string, error)
}

// SendMessageRequest 送出訊息
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// SelectionRequest 變更餐別
type SelectionRequest struct {
	Category string `json:"category" binding:"required"`
}

// ConfirmRequest 提交選取；category 可省略
type ConfirmRequest struct {
	Category string `json:"category,omitempty"`
}

// Handler 聊天處理器
type Handler struct {
	chat           Service
	revealInterval time.Duration
	debug          bool
}

// NewHandler 創建聊天處理器
func NewHandler(svc Service, revealInterval time.Duration, debug bool) *Handler {
	return &Handler{
		chat:           svc,
		revealInterval: revealInterval,
		debug:          debug,
	}
}

// Register 註冊聊天路由
func (h *Handler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/chat")
	g.GET("", h.GetState)
	g.POST("/messages", h.SendMessage)
	g.POST("/reset", h.Reset)
	g.GET("/messages/:id/reveal", h.Reveal)
	g.POST("/recipes/:index/expand", h.ToggleExpand)
	g.POST("/recipes/:index/select", h.SelectRecipe)
	g.PUT("/selection", h.SetCategory)
	g.POST("/selection/confirm", h.Confirm)
	g.DELETE("/selection", h.CancelSelection)
}

// GetState 取得對話狀態
func (h *Handler) GetState(c *gin.Context) {
	st, err := h.chat.State(c.Request.Context(), middleware.UserID(c))
	h.respond(c, st, err)
}

// SendMessage 送出使用者訊息並回傳助理回覆
func (h *Handler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, err, h.debug)
		return
	}

	userID := middleware.UserID(c)
	start := time.Now()
	result, err := h.chat.Send(c.Request.Context(), userID, req.Text)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	common.LogInfo("訊息處理完成",
		zap.String("user_id", userID),
		zap.String("intent", result.Intent),
		zap.Int("recipes", len(result.Reply.AttachedRecipes)),
		zap.Duration("duration", time.Since(start)),
	)
	c.JSON(http.StatusOK, result)
}

// Reset 重置對話
func (h *Handler) Reset(c *gin.Context) {
	st, err := h.chat.Reset(c.Request.Context(), middleware.UserID(c))
	h.respond(c, st, err)
}

// Reveal 以 SSE 逐字推送訊息內容
func (h *Handler) Reveal(c *gin.Context) {
	ctx := c.Request.Context()
	text, err := h.chat.MessageText(ctx, middleware.UserID(c), c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	handlers.PrepareStream(c)

	// 客戶端斷線時 ctx 取消，Reveal 隨即關閉 channel
	for frame := range conversation.Reveal(ctx, text, h.revealInterval) {
		c.SSEvent("reveal", frame)
		c.Writer.Flush()
	}
	if ctx.Err() == nil {
		c.SSEvent("done", text)
		c.Writer.Flush()
	}
}

// ToggleExpand 展開或收合候選食譜
func (h *Handler) ToggleExpand(c *gin.Context) {
	index, err := handlers.IndexParam(c, "index")
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	st, err := h.chat.ToggleExpand(c.Request.Context(), middleware.UserID(c), index)
	h.respond(c, st, err)
}

// SelectRecipe 選擇候選食譜
func (h *Handler) SelectRecipe(c *gin.Context) {
	index, err := handlers.IndexParam(c, "index")
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	st, err := h.chat.SelectRecipe(c.Request.Context(), middleware.UserID(c), index)
	h.respond(c, st, err)
}

// SetCategory 變更待提交的餐別
func (h *Handler) SetCategory(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, err, h.debug)
		return
	}
	st, err := h.chat.SetCategory(c.Request.Context(), middleware.UserID(c), req.Category)
	h.respond(c, st, err)
}

// CancelSelection 取消選取
func (h *Handler) CancelSelection(c *gin.Context) {
	st, err := h.chat.CancelSelection(c.Request.Context(), middleware.UserID(c))
	h.respond(c, st, err)
}

// Confirm 提交選取的食譜。failed 回 502，其餘結果回 200
func (h *Handler) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			handlers.BadRequest(c, err, h.debug)
			return
		}
	}

	userID := middleware.UserID(c)
	result, err := h.chat.Confirm(c.Request.Context(), userID, req.Category)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	common.LogInfo("食譜提交完成",
		zap.String("user_id", userID),
		zap.String("status", string(result.Outcome.Status)),
		zap.String("category", string(result.Outcome.Category)),
		zap.Int("removed", len(result.Outcome.RemovedIDs)),
		zap.Int("failed", len(result.Outcome.FailedIDs)),
	)

	status := http.StatusOK
	if result.Outcome.Status == commit.StateFailed {
		status = http.StatusBadGateway
	}
	c.JSON(status, result)
}

func (h *Handler) respond(c *gin.Context, st *conversation.State, err error) {
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, st)
}
