package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/idman/internal/metrics"
	"github.com/hitoshi/idman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.HTTPStatusRecorder

	// サービス
	AccountService AccountServiceInterface
	ProfileService ProfileServiceInterface

	// 運用エンドポイント
	DB              Pinger
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → CORS → SecurityHeaders → Metrics → RateLimit(General)
//
// 運用ルート（/health, /metrics）はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}

	accountHandler := NewAccountHandler(deps.AccountService)
	profileHandler := NewProfileHandler(deps.ProfileService)
	healthHandler := NewHealthHandler(deps.DB)

	// --- 運用ルート ---

	r.Get("/health", healthHandler.Health)

	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- APIルート ---
	// ミドルウェアスタック: RateLimit(General)
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Route("/api/accounts", func(r chi.Router) {
			// POST /api/accounts - アカウント登録（登録専用レート制限を追加）
			if deps.RateLimiter != nil {
				r.With(deps.RateLimiter.AccountRegistrationMiddleware()).Post("/", accountHandler.RegisterAccount)
			} else {
				r.Post("/", accountHandler.RegisterAccount)
			}

			r.Route("/{accountID}", func(r chi.Router) {
				r.Get("/", accountHandler.GetAccount)

				// プロフィール管理
				r.Route("/profiles", func(r chi.Router) {
					r.Post("/", profileHandler.CreateProfile)
					r.Get("/", profileHandler.ListProfiles)

					r.Route("/{profileID}", func(r chi.Router) {
						r.Get("/", profileHandler.GetProfile)
						r.Patch("/", profileHandler.UpdateProfile)
						r.Delete("/", profileHandler.DeleteProfile)
					})
				})
			})
		})
	})

	return r
}
