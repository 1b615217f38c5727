// Package scrape はスクレイプキューのバックグラウンド処理を提供する。
// キューバッチの処理（Processor）とsitemap/フィードからのURL発見
// （Discovery）を含む。
package scrape

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/simmer/internal/metrics"
	"github.com/hitoshi/simmer/internal/model"
	"github.com/hitoshi/simmer/internal/repository"
)

// URLScraper は1URLのスクレイプ実行インターフェース。
type URLScraper interface {
	Scrape(ctx context.Context, url string) model.ScrapeResult
}

// backoffBase はリトライ間隔ラダーの初項。
// 間隔は試行回数ごとに3倍になる（5分、15分、45分）。
const backoffBase = 5 * time.Minute

// backoffDelay は試行回数（加算後）に対する次回処理までの遅延を返す。
func backoffDelay(attempts int) time.Duration {
	delay := backoffBase
	for i := 1; i < attempts; i++ {
		delay *= 3
	}
	return delay
}

// Processor はスクレイプキューのバッチ処理を行う。
// 期限到来アイテムを優先度順に取得し、1件ずつ順番に処理する。
// 並列化はしない。同一ドメインのレート制御を素直に保つためで、
// スループットはバッチサイズと実行間隔で調整する。
type Processor struct {
	queueRepo  repository.QueueRepository
	domainRepo repository.DomainRepository
	scraper    URLScraper
	collector  metrics.MetricsCollector // nil可
	logger     *slog.Logger
	batchSize  int
}

// NewProcessor はProcessorの新しいインスタンスを生成する。
// batchSizeが0以下の場合はデフォルト値10を使用する。collectorはnil可。
func NewProcessor(
	queueRepo repository.QueueRepository,
	domainRepo repository.DomainRepository,
	scraper URLScraper,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	batchSize int,
) *Processor {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Processor{
		queueRepo:  queueRepo,
		domainRepo: domainRepo,
		scraper:    scraper,
		collector:  collector,
		logger:     logger,
		batchSize:  batchSize,
	}
}

// Start は指定間隔のティッカーでプロセッサを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (p *Processor) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("スクレイププロセッサを開始しました",
		slog.Duration("interval", interval),
		slog.Int("batch_size", p.batchSize),
	)

	// 起動直後に1回実行
	if _, err := p.RunOnce(ctx); err != nil {
		p.logger.Error("スクレイプバッチの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("スクレイププロセッサを停止しました")
			return
		case <-ticker.C:
			if _, err := p.RunOnce(ctx); err != nil {
				p.logger.Error("スクレイプバッチの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は期限到来アイテムを1バッチ分処理する。
// 個々のアイテムの失敗はバッチを中断せず、集計結果に記録される。
func (p *Processor) RunOnce(ctx context.Context) (model.BatchResult, error) {
	start := time.Now()
	var result model.BatchResult

	items, err := p.queueRepo.ListDue(ctx, p.batchSize)
	if err != nil {
		return result, err
	}

	if len(items) == 0 {
		p.logger.Info("処理対象のキューアイテムはありません")
		return result, nil
	}

	p.logger.Info("スクレイプバッチを開始します",
		slog.Int("item_count", len(items)),
	)

	for _, item := range items {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		p.processItem(ctx, item, &result)
	}

	p.logger.Info("スクレイプバッチが完了しました",
		slog.Int("processed", result.Processed),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return result, nil
}

// processItem はキューアイテム1件を処理し、結果に応じて状態を遷移させる。
// フェッチ前にattemptsを加算しておくことで、処理中のクラッシュ後も
// 試行が記録として残り、無限リトライに陥らない。
func (p *Processor) processItem(ctx context.Context, item *model.QueueItem, result *model.BatchResult) {
	result.Processed++

	if err := p.queueRepo.MarkProcessing(ctx, item.ID); err != nil {
		p.logger.Error("processing状態への更新に失敗しました",
			slog.String("queue_id", item.ID),
			slog.String("error", err.Error()),
		)
		result.Failed++
		result.Errors = append(result.Errors, model.URLError{URL: item.URL, Error: err.Error()})
		return
	}
	attempts := item.Attempts + 1

	scrape := p.scraper.Scrape(ctx, item.URL)
	if scrape.Success {
		if err := p.queueRepo.MarkCompleted(ctx, item.ID); err != nil {
			p.logger.Error("completed状態への更新に失敗しました",
				slog.String("queue_id", item.ID),
				slog.String("error", err.Error()),
			)
		}
		if err := p.domainRepo.IncrementSuccess(ctx, item.Domain); err != nil {
			p.logger.Error("成功カウンターの更新に失敗しました",
				slog.String("domain", item.Domain),
				slog.String("error", err.Error()),
			)
		}
		if p.collector != nil {
			p.collector.RecordScrapeSuccess(item.Domain)
		}
		result.Succeeded++
		return
	}

	if p.collector != nil {
		p.collector.RecordScrapeFailure(item.Domain)
	}
	result.Failed++
	result.Errors = append(result.Errors, model.URLError{URL: item.URL, Error: scrape.Error})

	if attempts >= item.MaxAttempts {
		if err := p.queueRepo.MarkFailed(ctx, item.ID, scrape.Error); err != nil {
			p.logger.Error("failed状態への更新に失敗しました",
				slog.String("queue_id", item.ID),
				slog.String("error", err.Error()),
			)
		}
		p.logger.Warn("試行回数上限に達したためアイテムを打ち切りました",
			slog.String("url", item.URL),
			slog.Int("attempts", attempts),
			slog.String("error", scrape.Error),
		)
	} else {
		scheduledFor := time.Now().Add(backoffDelay(attempts))
		if err := p.queueRepo.MarkRetry(ctx, item.ID, scrape.Error, scheduledFor); err != nil {
			p.logger.Error("pending状態への更新に失敗しました",
				slog.String("queue_id", item.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := p.domainRepo.IncrementFailure(ctx, item.Domain); err != nil {
		p.logger.Error("失敗カウンターの更新に失敗しました",
			slog.String("domain", item.Domain),
			slog.String("error", err.Error()),
		)
	}
}
