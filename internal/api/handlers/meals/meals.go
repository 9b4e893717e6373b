package meals

import (
	"context"
	"net/http"
	"time"
	_ "time/tzdata" // 查詢可帶 IANA 時區

	"fridge-chef/internal/api/handlers"
	"fridge-chef/internal/api/middleware"
	"fridge-chef/internal/core/nutrition"
	"fridge-chef/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// Service 營養紀錄查詢
type Service interface {
	List(ctx context.Context, userID string, day time.Time) ([]common.MealLogEntry, error)
	Summary(ctx context.Context, userID string, day time.Time) (nutrition.DailySummary, error)
}

// ListResponse 某日紀錄
type ListResponse struct {
	Date    string                `json:"date"`
	Entries []common.MealLogEntry `json:"entries"`
}

// Handler 營養紀錄處理器
type Handler struct {
	meals Service
	debug bool
}

// NewHandler 創建營養紀錄處理器
func NewHandler(svc Service, debug bool) *Handler {
	return &Handler{meals: svc, debug: debug}
}

// Register 註冊營養紀錄路由
func (h *Handler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/meals")
	g.GET("", h.List)
	g.GET("/summary", h.Summary)
}

// List 列出某日紀錄（?date=YYYY-MM-DD&tz=Asia/Taipei）
func (h *Handler) List(c *gin.Context) {
	day, err := parseQueryDay(c)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	entries, err := h.meals.List(c.Request.Context(), middleware.UserID(c), day)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	if entries == nil {
		entries = []common.MealLogEntry{}
	}
	c.JSON(http.StatusOK, ListResponse{Date: day.Format(nutrition.DateLayout), Entries: entries})
}

// Summary 某日營養總計
func (h *Handler) Summary(c *gin.Context) {
	day, err := parseQueryDay(c)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	sum, err := h.meals.Summary(c.Request.Context(), middleware.UserID(c), day)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// parseQueryDay 預設為 UTC 今天
func parseQueryDay(c *gin.Context) (time.Time, error) {
	loc := time.UTC
	if tz := c.Query("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, common.NewValidationError("unknown time zone " + tz)
		}
		loc = l
	}
	return nutrition.ParseDay(c.Query("date"), loc)
}
