package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// initialBackoff は接続リトライの初回待機時間。
	initialBackoff = 500 * time.Millisecond
	// maxBackoff は接続リトライの最大待機時間。
	maxBackoff = 8 * time.Second
)

// Pinger はDB疎通確認を抽象化するインターフェース。*sql.DBが満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CalculateBackoff は失敗回数に基づいて指数バックオフの待機時間を計算する。
// 初回500ミリ秒、2倍ずつ増加、最大8秒。
func CalculateBackoff(failures int) time.Duration {
	delay := initialBackoff
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// PingWithRetry はDBに接続できるまで最大maxAttempts回Pingを試行する。
// コンテナ起動直後などDBの準備ができていない場合に使用する。
func PingWithRetry(ctx context.Context, db Pinger, maxAttempts int) error {
	return pingWithRetry(ctx, db, maxAttempts, CalculateBackoff)
}

func pingWithRetry(ctx context.Context, db Pinger, maxAttempts int, backoff func(int) time.Duration) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		delay := backoff(attempt - 1)
		slog.Warn("database not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("database connection cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("failed to connect to database after %d attempts: %w", maxAttempts, err)
}
