// Package app はアプリケーションの起動とワイヤリングを行う。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/simmer/internal/config"
	"github.com/hitoshi/simmer/internal/database"
	"github.com/hitoshi/simmer/internal/handler"
	"github.com/hitoshi/simmer/internal/logger"
	"github.com/hitoshi/simmer/internal/metrics"
	"github.com/hitoshi/simmer/internal/repository"
	"github.com/hitoshi/simmer/internal/scraper"
	"github.com/hitoshi/simmer/internal/security"
	"github.com/hitoshi/simmer/internal/worker/cleanup"
	scrapeworker "github.com/hitoshi/simmer/internal/worker/scrape"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w, os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
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
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		var path string
		if len(args) > 1 {
			path = args[1]
		}
		return runSeed(cfg, path)
	default:
		return runServe(cfg)
	}
}

// pipeline はスクレイプパイプラインの構成済みコンポーネント一式。
// serveモードとworkerモードの両方で同じワイヤリングを共有する。
type pipeline struct {
	recipeRepo *repository.PostgresRecipeRepo
	queueRepo  *repository.PostgresQueueRepo
	domainRepo *repository.PostgresDomainRepo
	scraper    *scraper.Scraper
	processor  *scrapeworker.Processor
	discovery  *scrapeworker.Discovery
	registry   *prometheus.Registry
}

// buildPipeline はDB接続からスクレイプパイプライン全体をワイヤリングする。
func buildPipeline(cfg *config.Config, db *sql.DB) *pipeline {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	recipeRepo := repository.NewPostgresRecipeRepo(db)
	queueRepo := repository.NewPostgresQueueRepo(db)
	domainRepo := repository.NewPostgresDomainRepo(db)

	ssrfGuard := security.NewSSRFGuard()
	cleaner := security.NewTextCleaner()

	fetcher := scraper.NewFetcher(
		ssrfGuard, collector,
		cfg.ScrapeUserAgent, cfg.ScrapeTimeout,
		cfg.ScrapeMaxRetries, cfg.ScrapeRetryDelay, cfg.ScrapeMaxBodySize,
	)
	limiter := scraper.NewLimiter(cfg.ScrapeRateLimit)
	orchestrator := scraper.NewScraper(fetcher, limiter, recipeRepo, domainRepo, cleaner, slog.Default())

	processor := scrapeworker.NewProcessor(
		queueRepo, domainRepo, orchestrator, collector,
		slog.Default(), cfg.ScrapeBatchSize,
	)
	discovery := scrapeworker.NewDiscovery(
		domainRepo, queueRepo, fetcher, limiter, collector,
		slog.Default(),
	)

	return &pipeline{
		recipeRepo: recipeRepo,
		queueRepo:  queueRepo,
		domainRepo: domainRepo,
		scraper:    orchestrator,
		processor:  processor,
		discovery:  discovery,
		registry:   registry,
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	p := buildPipeline(cfg, db)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:         slog.Default(),
		CronSecret:     cfg.CronSecret,
		Processor:      p.processor,
		Discovery:      p.discovery,
		Scraper:        p.scraper,
		Recipes:        p.recipeRepo,
		QueueCounts:    p.queueRepo,
		RecipeCounts:   p.recipeRepo,
		DB:             db,
		MetricsHandler: metrics.Handler(p.registry),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // 手動スクレイプはフェッチ+リトライ分の時間を要する
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
// スクレイププロセッサとURL発見ワーカーをそれぞれのティッカー間隔で実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	p := buildPipeline(cfg, db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("scrape_interval", cfg.WorkerScrapeInterval),
		slog.Duration("discover_interval", cfg.WorkerDiscoverInterval),
		slog.Int("batch_size", cfg.ScrapeBatchSize),
	)

	// URL発見ワーカーをバックグラウンドで起動
	go p.discovery.Start(ctx, cfg.WorkerDiscoverInterval)

	// 処理済みキューアイテムのクリーンアップジョブを日次でバックグラウンド実行
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// スクレイププロセッサをメインgoroutineで実行（ブロッキング）
	p.processor.Start(ctx, cfg.WorkerScrapeInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
