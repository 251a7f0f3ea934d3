package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/skillswap/internal/repository"
)

// PromoteResult はスタッフ昇格の結果。
type PromoteResult struct {
	Promoted []string
	NotFound []string
}

// PromoteStaff は指定したユーザー名のユーザーをスタッフに昇格する。
// 管理画面の利用者を作るためのCLI用の操作で、実行者の権限は検証しない。
// 存在しないユーザー名は警告を記録して残りの処理を続ける。
func PromoteStaff(ctx context.Context, users repository.UserRepository, usernames []string) (*PromoteResult, error) {
	result := &PromoteResult{Promoted: []string{}, NotFound: []string{}}
	for _, username := range usernames {
		err := users.SetStaff(ctx, username, true)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			slog.Warn("user not found", slog.String("username", username))
			result.NotFound = append(result.NotFound, username)
		case err != nil:
			return result, fmt.Errorf("failed to promote %q: %w", username, err)
		default:
			slog.Info("user promoted to staff", slog.String("username", username))
			result.Promoted = append(result.Promoted, username)
		}
	}
	return result, nil
}
