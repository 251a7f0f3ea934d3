package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hitoshi/skillswap/internal/admin"
	"github.com/hitoshi/skillswap/internal/auth"
	"github.com/hitoshi/skillswap/internal/config"
	"github.com/hitoshi/skillswap/internal/database"
	"github.com/hitoshi/skillswap/internal/handler"
	"github.com/hitoshi/skillswap/internal/logger"
	"github.com/hitoshi/skillswap/internal/meeting"
	"github.com/hitoshi/skillswap/internal/message"
	"github.com/hitoshi/skillswap/internal/metrics"
	"github.com/hitoshi/skillswap/internal/middleware"
	"github.com/hitoshi/skillswap/internal/notification"
	"github.com/hitoshi/skillswap/internal/report"
	"github.com/hitoshi/skillswap/internal/repository"
	"github.com/hitoshi/skillswap/internal/review"
	"github.com/hitoshi/skillswap/internal/security"
	"github.com/hitoshi/skillswap/internal/skill"
	"github.com/hitoshi/skillswap/internal/skillrequest"
	"github.com/hitoshi/skillswap/internal/user"
	"github.com/hitoshi/skillswap/internal/worker/cleanup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベルを設定値に合わせる
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		slog.Warn("invalid log level, falling back to info",
			slog.String("log_level", cfg.LogLevel),
		)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandCleanup:
		return runCleanup(cfg)
	case CommandMigrate:
		return runMigrate(cfg, args[1:])
	case CommandPromote:
		return runPromote(cfg, args[1:])
	default:
		return runServe(cfg)
	}
}

// newMetrics はPrometheusレジストリとコレクターを生成する。
func newMetrics() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// buildRouterDeps はリポジトリとサービスを組み立て、ルーターの依存関係を返す。
func buildRouterDeps(cfg *config.Config, db *sql.DB, collector metrics.MetricsCollector) *handler.RouterDeps {
	// 1. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	skillRepo := repository.NewPostgresSkillRepo(db)
	requestRepo := repository.NewPostgresSkillRequestRepo(db)
	reviewRepo := repository.NewPostgresReviewRepo(db)
	messageRepo := repository.NewPostgresMessageRepo(db)
	meetingRepo := repository.NewPostgresMeetingRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)
	reportRepo := repository.NewPostgresReportRepo(db)
	statsRepo := repository.NewPostgresStatsRepo(db)

	// 2. セキュリティサービスの初期化
	sanitizer := security.NewContentSanitizer()

	// 3. ドメインサービスの初期化
	authService := auth.NewService(userRepo, sessionRepo, auth.ServiceConfig{
		SessionMaxAge: cfg.SessionMaxAge,
		BcryptCost:    cfg.BcryptCost,
	})
	notificationService := notification.NewService(notificationRepo, statsRepo, collector)

	userService := user.NewService(userRepo, profileRepo, sessionRepo, skillRepo, reviewRepo, sanitizer)
	skillService := skill.NewService(skillRepo, requestRepo, reviewRepo, sanitizer)
	requestService := skillrequest.NewService(requestRepo, skillRepo, userRepo, notificationService, collector)
	reviewService := review.NewService(reviewRepo, skillRepo, userRepo, notificationService, sanitizer)
	messageService := message.NewService(messageRepo, userRepo, notificationService, sanitizer)
	meetingService := meeting.NewService(meetingRepo, userRepo, skillRepo, notificationService, sanitizer)
	reportService := report.NewService(reportRepo, userRepo, sanitizer)
	adminService := admin.NewService(admin.Repositories{
		Users:    userRepo,
		Skills:   skillRepo,
		Requests: requestRepo,
		Reviews:  reviewRepo,
		Meetings: meetingRepo,
		Reports:  reportRepo,
		Stats:    statsRepo,
	}, sanitizer, collector)

	return &handler.RouterDeps{
		ActorResolver:      authService,
		CORSAllowedOrigins: middleware.ParseAllowedOrigins(cfg.CORSAllowedOrigin),
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
			MaxAge:       cfg.SessionMaxAge,
		},
		HSTS: cfg.CookieSecure,
		RateLimiter: middleware.NewRateLimiter(
			middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitWrite),
		),
		Logger:  slog.Default(),
		Metrics: collector,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		UserService:         userService,
		SkillService:        skillService,
		SkillRequestService: requestService,
		ReviewService:       reviewService,
		MessageService:      messageService,
		MeetingService:      meetingService,
		NotificationService: notificationService,
		ReportService:       reportService,
		AdminService:        adminService,
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. メトリクスと依存関係の構築
	reg, collector := newMetrics()
	deps := buildRouterDeps(cfg, db, collector)
	deps.HealthChecker = db
	deps.MetricsHandler = metrics.Handler(reg)
	defer deps.RateLimiter.Stop()

	router := handler.NewRouter(deps)

	// 3. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、クリーンアップジョブを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. クリーンアップジョブの初期化
	cleanupJob := newCleanupJob(cfg, db)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Int("notification_retention_days", cfg.NotificationRetentionDays),
	)

	// クリーンアップをメインgoroutineで実行（ブロッキング）
	cleanupJob.Loop(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runCleanup はクリーンアップジョブを1回だけ実行して終了する。
func runCleanup(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := newCleanupJob(cfg, db).Run(context.Background()); err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	return nil
}

// newCleanupJob は設定の保持期間を反映したクリーンアップジョブを生成する。
func newCleanupJob(cfg *config.Config, db *sql.DB) *cleanup.CleanupJob {
	_, collector := newMetrics()
	job := cleanup.NewCleanupJob(db, slog.Default(), collector)
	job.RetentionDays = cfg.NotificationRetentionDays
	return job
}

// runMigrate はデータベースマイグレーションを実行する。
// argsはmigrate以降の引数で、up（既定）/down [N]/versionを受け付ける。
func runMigrate(cfg *config.Config, args []string) error {
	action, steps, err := ParseMigrateArgs(args)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("running database migrations",
		slog.String("action", string(action)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch action {
	case MigrateDown:
		if err := database.RollbackMigrations(cfg.DatabaseURL, steps); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database migrations rolled back", slog.Int("steps", steps))
	case MigrateVersion:
		version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database migration version",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	default:
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database migrations completed successfully")
	}
	return nil
}

// runPromote は指定ユーザーをスタッフに昇格する。
// 存在しないユーザー名は警告のみとし、1人も昇格できなかった場合はエラーを返す。
func runPromote(cfg *config.Config, args []string) error {
	usernames, err := ParsePromoteArgs(args)
	if err != nil {
		return fmt.Errorf("promote failed: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := admin.PromoteStaff(context.Background(), repository.NewPostgresUserRepo(db), usernames)
	if err != nil {
		return fmt.Errorf("promote failed: %w", err)
	}
	if len(result.Promoted) == 0 {
		return fmt.Errorf("promote failed: no users found: %s", strings.Join(result.NotFound, ", "))
	}
	return nil
}

// openDatabase はプール設定を適用してDBを開き、接続できるまでリトライする。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	if err := database.PingWithRetry(context.Background(), db, cfg.DBConnectAttempts); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)
	return db, nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// パースできない場合は全体を伏せる。
func maskDatabaseURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
