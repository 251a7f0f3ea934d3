package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はクリーンアップを定期実行するワーカーモードを示す。
	CommandWorker Command = "worker"
	// CommandCleanup はクリーンアップを1回だけ実行して終了することを示す。cronからの起動用。
	CommandCleanup Command = "cleanup"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandPromote は指定ユーザーをスタッフに昇格することを示す。
	CommandPromote Command = "promote"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch c := Command(args[0]); c {
	case CommandServe, CommandWorker, CommandCleanup, CommandMigrate, CommandPromote, CommandHealthcheck:
		return c
	default:
		return CommandServe
	}
}

// MigrateAction はmigrateサブコマンドの操作を表す。
type MigrateAction string

const (
	MigrateUp      MigrateAction = "up"
	MigrateDown    MigrateAction = "down"
	MigrateVersion MigrateAction = "version"
)

// ParseMigrateArgs はmigrate以降の引数を解析する。
//
//	migrate            -> up
//	migrate down [N]   -> N件（既定1件）ロールバック
//	migrate version    -> 現在のバージョンを表示
func ParseMigrateArgs(args []string) (MigrateAction, int, error) {
	if len(args) == 0 {
		return MigrateUp, 0, nil
	}

	switch MigrateAction(args[0]) {
	case MigrateUp:
		return MigrateUp, 0, nil
	case MigrateVersion:
		return MigrateVersion, 0, nil
	case MigrateDown:
		if len(args) < 2 {
			return MigrateDown, 1, nil
		}
		steps, err := strconv.Atoi(args[1])
		if err != nil || steps < 1 {
			return "", 0, fmt.Errorf("invalid rollback steps: %q", args[1])
		}
		return MigrateDown, steps, nil
	default:
		return "", 0, fmt.Errorf("unknown migrate action: %q", args[0])
	}
}

// ParsePromoteArgs はpromote以降の引数からユーザー名を取り出す。
// 空白のみの引数と重複（大文字小文字を区別しない）は除く。
func ParsePromoteArgs(args []string) ([]string, error) {
	seen := make(map[string]bool, len(args))
	usernames := make([]string, 0, len(args))
	for _, arg := range args {
		name := strings.TrimSpace(arg)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		usernames = append(usernames, name)
	}
	if len(usernames) == 0 {
		return nil, errors.New("usage: promote <username>...")
	}
	return usernames, nil
}
