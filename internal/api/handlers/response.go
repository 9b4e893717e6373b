// Package handlers 提供各 HTTP 處理器共用的錯誤轉換
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"fridge-chef/internal/core/commit"
	"fridge-chef/internal/core/conversation"
	"fridge-chef/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Classify 將核心錯誤對應為 CustomError
func Classify(err error) *common.CustomError {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return common.ErrPayloadTooLarge.Wrap(err)
	case commit.IsPrecondition(err) && !common.IsValidationError(err):
		return common.ErrUnprocessable.Wrap(err)
	case errors.Is(err, conversation.ErrRecipeIndex):
		return common.ErrUnprocessable.Wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return common.ErrGatewayTimeout.Wrap(err)
	default:
		return common.AsCustomError(err)
	}
}

// RespondError 以統一格式回應錯誤；debug 時附上原始錯誤
func RespondError(c *gin.Context, err error, debug bool) {
	ce := Classify(err)

	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.String("code", ce.Code),
		zap.Error(err),
	}
	if ce.Status >= http.StatusInternalServerError {
		common.LogError("Request failed", fields...)
	} else {
		common.LogWarn("Request rejected", fields...)
	}

	resp := common.ErrorResponse{Code: ce.Code, Message: ce.Message}
	if common.IsValidationError(err) {
		// 驗證訊息可直接給使用者
		resp.Message = err.Error()
	}
	if debug && ce.Err != nil {
		resp.Details = ce.Err.Error()
	}
	c.AbortWithStatusJSON(ce.Status, resp)
}

// BadRequest 回應請求格式錯誤
func BadRequest(c *gin.Context, err error, debug bool) {
	RespondError(c, common.ErrInvalidRequest.Wrap(err), debug)
}

// IndexParam 解析路徑上的非負整數參數
func IndexParam(c *gin.Context, name string) (int, error) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n < 0 {
		return 0, common.NewValidationError(name + " must be a non-negative integer")
	}
	return n, nil
}

// PrepareStream 設定 SSE 標頭並解除 server 的寫入期限，長連線不受 write_timeout 截斷
func PrepareStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		common.LogDebug("Write deadline not cleared for stream",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
}
