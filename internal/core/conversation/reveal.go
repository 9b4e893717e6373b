package conversation

import (
	"context"
	"time"
)

// Reveal 逐字送出越來越長的前綴，最後一則必為完整內容。
// ctx 取消時立即停止並關閉通道；不會改動原文。
func Reveal(ctx context.Context, text string, interval time.Duration) <-chan string {
	out := make(chan string)
	runes := []rune(text)

	go func() {
		defer close(out)

		if interval <= 0 || len(runes) == 0 {
			select {
			case out <- text:
			case <-ctx.Done():
			}
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for i := 1; i <= len(runes); i++ {
			select {
			case out <- string(runes[:i]):
			case <-ctx.Done():
				return
			}
			if i == len(runes) {
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
