package provider

import (
	"context"
	"time"
)

// Completer 模型閘道：輸入 prompt，回傳模型原始文字
type Completer interface {
	// Complete 呼叫模型；網路或配額錯誤直接回傳，不重試
	Complete(ctx context.Context, prompt string) (string, error)
}

// Provider 定義 AI 提供者介面
type Provider interface {
	Completer

	// Name 提供者名稱（用於日誌與指標）
	Name() string

	// GetModel 獲取當前使用的模型名稱
	GetModel() string

	// Close 關閉提供者連接
	Close() error
}

// Config 定義 AI 提供者配置
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// CompleterFunc 讓一般函式滿足 Completer
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete 實作 Completer
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
