// Package cleanup は不要データの自動削除ジョブを提供する。
// 保持期間（デフォルト30日）を超過した通知と、有効期限切れのセッションを
// 定期バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/skillswap/internal/metrics"
)

// DefaultRetentionDays は通知のデフォルト保持日数。
const DefaultRetentionDays = 30

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// target は1種類の削除対象。
type target struct {
	name  string
	query string
	args  func(j *CleanupJob) []interface{}
}

var targets = []target{
	{
		name:  "notifications",
		query: `DELETE FROM notifications WHERE created_at < now() - $1::interval`,
		args: func(j *CleanupJob) []interface{} {
			return []interface{}{fmt.Sprintf("%d days", j.RetentionDays)}
		},
	},
	{
		name:  "sessions",
		query: `DELETE FROM sessions WHERE expires_at < now()`,
		args:  func(*CleanupJob) []interface{} { return nil },
	},
}

// CleanupJob は保持期間を超過したデータの自動削除ジョブ。
// 冪等な削除処理のみを行うため、何度実行しても結果は変わらない。
type CleanupJob struct {
	db            Executor
	logger        *slog.Logger
	metrics       metrics.MetricsCollector
	RetentionDays int // 通知の保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewCleanupJob(db Executor, logger *slog.Logger, collector metrics.MetricsCollector) *CleanupJob {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &CleanupJob{
		db:            db,
		logger:        logger,
		metrics:       collector,
		RetentionDays: DefaultRetentionDays,
	}
}

// Run は古い通知と期限切れセッションを削除する。
// いずれかの削除に失敗した場合は残りを実行せずにエラーを返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	var total int64
	for _, t := range targets {
		deleted, err := j.delete(ctx, t)
		if err != nil {
			return err
		}
		total += deleted
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", total),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

func (j *CleanupJob) delete(ctx context.Context, t target) (int64, error) {
	result, err := j.db.ExecContext(ctx, t.query, t.args(j)...)
	if err != nil {
		j.logger.Error("クリーンアップジョブの実行に失敗しました",
			slog.String("target", t.name),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("%sのクリーンアップに失敗: %w", t.name, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("target", t.name),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	j.metrics.RecordCleanupDeleted(t.name, deleted)
	j.logger.Info("クリーンアップ対象を削除しました",
		slog.String("target", t.name),
		slog.Int64("deleted_count", deleted),
	)
	return deleted, nil
}

// Loop は起動直後に1回、以降はintervalごとにRunを実行する。
// ctxがキャンセルされると実行中のRunの完了を待って戻る。
// Runのエラーはログに記録し、ループは継続する。
func (j *CleanupJob) Loop(ctx context.Context, interval time.Duration) {
	j.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップワーカーを停止しました")
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *CleanupJob) runOnce(ctx context.Context) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("cleanup job failed", slog.String("error", err.Error()))
	}
}
