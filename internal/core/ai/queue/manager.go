package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"fridge-chef/internal/core/ai/provider"
	"fridge-chef/internal/pkg/common"

	"go.uber.org/zap"
)

// Request 隊列請求
type Request struct {
	Context context.Context
	Prompt  string
	Result  chan Result
}

// Result 處理結果
type Result struct {
	Content string
	Error   error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int   `json:"queue_length"`
	ProcessedCount int64 `json:"processed_count"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
}

// Manager 隊列管理器：以固定數量 worker 呼叫模型，限制同時進行的請求數
type Manager struct {
	completer provider.Completer
	workers   int
	maxSize   int
	queue     chan *Request
	done      chan struct{}
	processed int64
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// NewManager 創建新的隊列管理器
func NewManager(completer provider.Completer, workers, maxSize int) *Manager {
	if workers <= 0 {
		workers = 1
	}
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Manager{
		completer: completer,
		workers:   workers,
		maxSize:   maxSize,
		queue:     make(chan *Request, maxSize),
		done:      make(chan struct{}),
	}
}

// Start 啟動 worker
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		for i := 0; i < m.workers; i++ {
			m.wg.Add(1)
			go m.worker(i)
		}
		common.LogInfo("AI 請求隊列已啟動",
			zap.Int("workers", m.workers),
			zap.Int("max_queue_size", m.maxSize),
		)
	})
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case req := <-m.queue:
			if err := req.Context.Err(); err != nil {
				req.Result <- Result{Error: err}
				continue
			}
			content, err := m.completer.Complete(req.Context, req.Prompt)
			req.Result <- Result{Content: content, Error: err}
			atomic.AddInt64(&m.processed, 1)
			common.LogDebug("AI request processed",
				zap.Int("worker", id),
				zap.Bool("success", err == nil),
			)
		}
	}
}

// Enqueue 將請求加入隊列；隊列已滿時立即失敗
func (m *Manager) Enqueue(ctx context.Context, prompt string) (<-chan Result, error) {
	select {
	case <-m.done:
		return nil, common.ErrQueueClosed
	default:
	}

	req := &Request{
		Context: ctx,
		Prompt:  prompt,
		Result:  make(chan Result, 1),
	}

	select {
	case m.queue <- req:
		common.LogDebug("Request enqueued",
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.maxSize),
		)
		return req.Result, nil
	default:
		common.LogWarn("AI 請求隊列已滿",
			zap.Int("max_queue_size", m.maxSize),
		)
		return nil, common.ErrQueueFull
	}
}

// Complete 排隊後等待結果，滿足 provider.Completer
func (m *Manager) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := m.Enqueue(ctx, prompt)
	if err != nil {
		return "", err
	}
	select {
	case r := <-result:
		return r.Content, r.Error
	case <-ctx.Done():
		return "", ctx.Err()
	case <-m.done:
		return "", common.ErrQueueClosed
	}
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: atomic.LoadInt64(&m.processed),
		MaxQueueSize:   m.maxSize,
		Workers:        m.workers,
	}
}

// Close 關閉隊列管理器並等待 worker 結束
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
}
