package service

import (
	"context"
	"fmt"
	"time"

	"fridge-chef/internal/core/ai/gemini"
	"fridge-chef/internal/core/ai/openrouter"
	"fridge-chef/internal/core/ai/provider"
	"fridge-chef/internal/core/ai/queue"
	"fridge-chef/internal/infrastructure/config"
	"fridge-chef/internal/pkg/common"
	"fridge-chef/internal/pkg/metrics"
)

// Service AI 服務：隊列 + 逾時 + 日誌 + 指標。失敗不自動重試
type Service struct {
	provider provider.Provider
	queue    *queue.Manager
	timeout  time.Duration
	metrics  *metrics.Metrics
}

var _ provider.Completer = (*Service)(nil)

// NewProvider 依設定建立模型提供者
func NewProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch cfg.AI.Provider {
	case "openrouter":
		return openrouter.NewClient(provider.Config{
			APIKey:      cfg.OpenRouter.APIKey,
			BaseURL:     cfg.OpenRouter.BaseURL,
			Model:       cfg.OpenRouter.Model,
			MaxTokens:   cfg.OpenRouter.MaxTokens,
			Temperature: cfg.OpenRouter.Temperature,
			Timeout:     cfg.AI.Timeout,
		}), nil
	case "gemini":
		return gemini.NewClient(ctx, provider.Config{
			APIKey:      cfg.Gemini.APIKey,
			BaseURL:     cfg.Gemini.BaseURL,
			Model:       cfg.Gemini.Model,
			MaxTokens:   cfg.Gemini.MaxTokens,
			Temperature: cfg.Gemini.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}

// NewService 創建 AI 服務並啟動隊列
func NewService(p provider.Provider, workers, maxQueueSize int, timeout time.Duration, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.Nop()
	}
	q := queue.NewManager(p, workers, maxQueueSize)
	q.Start()
	return &Service{
		provider: p,
		queue:    q,
		timeout:  timeout,
		metrics:  m,
	}
}

// Complete 統一對外方法
func (s *Service) Complete(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	content, err := s.queue.Complete(ctx, prompt)
	duration := time.Since(start)

	name := s.provider.Name()
	common.LogAICall(name, duration, err)
	s.metrics.ModelDuration.WithLabelValues(name).Observe(duration.Seconds())
	if err != nil {
		s.metrics.ModelRequests.WithLabelValues(name, "error").Inc()
		return "", common.ErrAIServiceError.Wrap(err)
	}
	s.metrics.ModelRequests.WithLabelValues(name, "ok").Inc()
	return content, nil
}

// QueueStatus 隊列狀態（健康檢查用）
func (s *Service) QueueStatus() *queue.Status {
	return s.queue.GetQueueStatus()
}

// Model 當前模型
func (s *Service) Model() string {
	return s.provider.GetModel()
}

// Close 關閉隊列與提供者
func (s *Service) Close() error {
	s.queue.Close()
	return s.provider.Close()
}
