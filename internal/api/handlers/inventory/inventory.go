package inventory

import (
	"context"
	"net/http"

	"fridge-chef/internal/api/handlers"
	"fridge-chef/internal/api/middleware"
	"fridge-chef/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Service 食材服務
type Service interface {
	Snapshot(ctx context.Context, userID string) ([]common.Ingredient, error)
	Subscribe(ctx context.Context, userID string) (<-chan []common.Ingredient, error)
	Add(ctx context.Context, userID string, ing common.Ingredient) (common.Ingredient, error)
	Delete(ctx context.Context, userID, id string) error
}

// AddIngredientRequest 新增食材；quantity 省略時為 1
type AddIngredientRequest struct {
	Name             string  `json:"name" binding:"required"`
	ServingSizeGrams float64 `json:"serving_size_grams"`
	Quantity         int     `json:"quantity"`
	Calories         float64 `json:"calories"`
	Protein          float64 `json:"protein"`
	TotalFat         float64 `json:"total_fat"`
	Water            float64 `json:"water"`
	Sugar            float64 `json:"sugar"`
}

// ListResponse 食材清單
type ListResponse struct {
	Ingredients []common.Ingredient `json:"ingredients"`
}

// Handler 食材處理器
type Handler struct {
	inventory Service
	debug     bool
}

// NewHandler 創建食材處理器
func NewHandler(svc Service, debug bool) *Handler {
	return &Handler{inventory: svc, debug: debug}
}

// Register 註冊食材路由
func (h *Handler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/inventory")
	g.GET("", h.List)
	g.GET("/stream", h.Stream)
	g.POST("", h.Add)
	g.DELETE("/:id", h.Delete)
}

// List 列出目前食材
func (h *Handler) List(c *gin.Context) {
	items, err := h.inventory.Snapshot(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	if items == nil {
		items = []common.Ingredient{}
	}
	c.JSON(http.StatusOK, ListResponse{Ingredients: items})
}

// Stream 以 SSE 推送食材快照，先送目前內容，之後每次變更再送
func (h *Handler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	updates, err := h.inventory.Subscribe(ctx, userID)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	handlers.PrepareStream(c)

	for items := range updates {
		if items == nil {
			items = []common.Ingredient{}
		}
		c.SSEvent("inventory", ListResponse{Ingredients: items})
		c.Writer.Flush()
	}
	common.LogDebug("Inventory stream closed", zap.String("user_id", userID))
}

// Add 新增食材
func (h *Handler) Add(c *gin.Context) {
	var req AddIngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, err, h.debug)
		return
	}

	userID := middleware.UserID(c)
	ing, err := h.inventory.Add(c.Request.Context(), userID, common.Ingredient{
		Name:             req.Name,
		ServingSizeGrams: req.ServingSizeGrams,
		Quantity:         req.Quantity,
		Calories:         req.Calories,
		Protein:          req.Protein,
		TotalFat:         req.TotalFat,
		Water:            req.Water,
		Sugar:            req.Sugar,
	})
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	common.LogInfo("新增食材",
		zap.String("user_id", userID),
		zap.String("ingredient_id", ing.ID),
		zap.String("name", ing.Name),
	)
	c.JSON(http.StatusCreated, ing)
}

// Delete 刪除食材
func (h *Handler) Delete(c *gin.Context) {
	if err := h.inventory.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.Status(http.StatusNoContent)
}
