package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/skillswap/internal/metrics"
	"github.com/hitoshi/skillswap/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	ActorResolver      middleware.ActorResolver
	CORSAllowedOrigins []string
	CSRFConfig         middleware.CSRFConfig
	HSTS               bool
	RateLimiter        *middleware.RateLimiter
	Logger             *slog.Logger
	Metrics            metrics.MetricsCollector
	MetricsHandler     http.Handler
	HealthChecker      HealthChecker

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ドメイン
	UserService         UserServiceInterface
	SkillService        SkillServiceInterface
	SkillRequestService SkillRequestServiceInterface
	ReviewService       ReviewServiceInterface
	MessageService      MessageServiceInterface
	MeetingService      MeetingServiceInterface
	NotificationService NotificationServiceInterface
	ReportService       ReportServiceInterface
	AdminService        AdminServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → Metrics → SecurityHeaders → CORS → StripSlashes
//	  → (認証ルート) Session → RateLimit(General) → RateLimit(Write) → CSRF
//	  → (管理ルート) RequireStaff
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))
	r.Use(chimw.StripSlashes)

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)
	skillHandler := NewSkillHandler(deps.SkillService)
	requestHandler := NewSkillRequestHandler(deps.SkillRequestService)
	reviewHandler := NewReviewHandler(deps.ReviewService)
	messageHandler := NewMessageHandler(deps.MessageService)
	meetingHandler := NewMeetingHandler(deps.MeetingService)
	notificationHandler := NewNotificationHandler(deps.NotificationService)
	reportHandler := NewReportHandler(deps.ReportService)
	adminHandler := NewAdminHandler(deps.AdminService)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/me", authHandler.Me)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
		})
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.ActorResolver))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(deps.RateLimiter.WriteMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Get("/api/dashboard", skillHandler.Dashboard)

		// プロフィール・アカウント
		r.Get("/api/profile/{username}", userHandler.GetProfile)
		r.Put("/api/profile", userHandler.UpdateProfile)
		r.Delete("/api/account", userHandler.DeleteAccount)
		r.Get("/api/users/search", userHandler.SearchUsers)

		// スキル
		r.Route("/api/skills", func(r chi.Router) {
			r.Get("/", skillHandler.ListSkills)
			r.Post("/", skillHandler.CreateSkill)
			r.Get("/search", skillHandler.SearchSkills)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", skillHandler.GetSkill)
				r.Post("/request", requestHandler.RequestSkill)
				r.Post("/reviews", reviewHandler.AddReview)
			})
		})

		// スキルリクエストのライフサイクル
		r.Route("/api/requests", func(r chi.Router) {
			r.Get("/", requestHandler.ListRequests)

			r.Route("/{id}", func(r chi.Router) {
				r.Post("/accept", requestHandler.Accept)
				r.Post("/reject", requestHandler.Reject)
				r.Post("/start", requestHandler.Start)
				r.Post("/complete", requestHandler.Complete)
			})
		})

		// レビュー
		r.Route("/api/reviews/{id}", func(r chi.Router) {
			r.Put("/", reviewHandler.EditReview)
			r.Delete("/", reviewHandler.DeleteReview)
		})

		// メッセージ
		r.Get("/api/messages", messageHandler.Inbox)
		r.Post("/api/messages", messageHandler.Send)
		r.Get("/api/chats", messageHandler.Chats)
		r.Route("/api/conversations/{username}", func(r chi.Router) {
			r.Get("/", messageHandler.Conversation)
			r.Post("/read", messageHandler.MarkRead)
		})

		// ミーティング
		r.Route("/api/meetings", func(r chi.Router) {
			r.Get("/", meetingHandler.MyMeetings)
			r.Post("/", meetingHandler.Schedule)
			r.Get("/calendar", meetingHandler.Calendar)
			r.Post("/quick/{username}", meetingHandler.QuickSchedule)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", meetingHandler.GetMeeting)
				r.Post("/status/{status}", meetingHandler.UpdateStatus)
			})
		})

		// 通知
		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.List)
			r.Get("/counts", notificationHandler.Counts)
			r.Post("/read-all", notificationHandler.MarkAllRead)
			r.Post("/{id}/read", notificationHandler.MarkRead)
		})

		// 通報
		r.Post("/api/reports", reportHandler.CreateReport)

		// 管理
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.RequireStaff)

			r.Get("/dashboard", adminHandler.Dashboard)

			r.Get("/users", adminHandler.Users)
			r.Put("/users/{id}", adminHandler.EditUser)
			r.Delete("/users/{id}", adminHandler.DeleteUser)

			r.Get("/skills", adminHandler.Skills)
			r.Put("/skills/{id}", adminHandler.EditSkill)
			r.Delete("/skills/{id}", adminHandler.DeleteSkill)

			r.Get("/requests", adminHandler.Requests)
			r.Post("/requests/{id}/approve", adminHandler.ApproveRequest)
			r.Post("/requests/{id}/reject", adminHandler.RejectRequest)
			r.Delete("/requests/{id}", adminHandler.DeleteRequest)

			r.Get("/reviews", adminHandler.Reviews)
			r.Delete("/reviews/{id}", adminHandler.DeleteReview)

			r.Get("/meetings", adminHandler.Meetings)
			r.Put("/meetings/{id}", adminHandler.EditMeeting)
			r.Delete("/meetings/{id}", adminHandler.DeleteMeeting)

			r.Get("/reports", adminHandler.Reports)
			r.Post("/reports/{id}/resolve", adminHandler.ResolveReport)
		})
	})

	return r
}
