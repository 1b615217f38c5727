package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/simmer/internal/middleware"
)

// DBPinger はヘルスチェックのDB疎通確認インターフェース。*sql.DBが満たす。
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger     *slog.Logger
	CronSecret string

	// スクレイプトリガー
	Processor BatchRunner
	Discovery DiscoveryRunner
	Scraper   SingleScraper

	// レシピ読み取り
	Recipes RecipeReader

	// キュー運用状況の読み出し
	QueueCounts  QueueCounter
	RecipeCounts RecipeCounter

	// ヘルスチェックと監視
	DB             DBPinger
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	LoggingMiddleware → RecoveryMiddleware → (トリガールートのみ) BearerAuthMiddleware
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))

	scrapeHandler := NewScrapeHandler(deps.Processor, deps.Discovery, deps.Scraper, deps.Logger)
	recipeHandler := NewRecipeHandler(deps.Recipes, deps.Logger)
	statusHandler := NewStatusHandler(deps.QueueCounts, deps.RecipeCounts, deps.Logger)

	// --- 認証不要のルート ---

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := deps.DB.PingContext(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "database unreachable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// レシピ読み取りAPI
	r.Route("/api/recipes", func(r chi.Router) {
		r.Get("/", recipeHandler.ListRecipes)
		r.Get("/{slug}", recipeHandler.GetRecipe)
	})

	// --- ベアラートークン認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.CronSecret, deps.Logger))

		r.Post("/api/cron/discover", scrapeHandler.TriggerDiscover)
		r.Post("/api/cron/scrape", scrapeHandler.TriggerProcess)
		r.Post("/api/scrape", scrapeHandler.ScrapeURL)
		r.Get("/api/queue/status", statusHandler.QueueStatus)
	})

	return r
}
