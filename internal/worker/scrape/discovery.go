package scrape

import (
	"context"
	"encoding/xml"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/simmer/internal/metrics"
	"github.com/hitoshi/simmer/internal/model"
	"github.com/hitoshi/simmer/internal/repository"
)

// SitemapFetcher はsitemap/フィードXMLの取得インターフェース。
type SitemapFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Throttler はドメイン別レート制御のインターフェース。
type Throttler interface {
	Throttle(ctx context.Context, domain string, interval time.Duration) error
}

// recipePathPatterns はレシピページらしいURLパスの部分文字列。
// 主要言語圏のレシピサイトのパス規約をカバーする。
var recipePathPatterns = []string{
	"/recipe/",
	"/recipes/",
	"/receita/",
	"/recette/",
	"/rezept/",
}

// excludedPathPatterns はレシピ本体ではないページのURLパターン。
var excludedPathPatterns = []string{
	"/category/",
	"/categories/",
	"/tag/",
	"/tags/",
	"/author/",
	"/search",
	"/page/",
	"wp-content",
	"wp-admin",
}

// excludedExtensions は静的アセットの拡張子。URL末尾でのみ照合する。
var excludedExtensions = []string{".pdf", ".jpg", ".jpeg", ".png", ".gif"}

// sitemapDoc はsitemap XMLの<loc>エントリだけを取り出すための構造体。
// 通常のurlsetとsitemapindexの両方をこの1つの型で受ける。
type sitemapDoc struct {
	XMLName  xml.Name
	URLs     []sitemapLoc `xml:"url"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// Discovery はsitemapとRSS/Atomフィードから候補URLを発見し、
// レシピらしいURLだけをキューに投入する。
type Discovery struct {
	domainRepo repository.DomainRepository
	queueRepo  repository.QueueRepository
	fetcher    SitemapFetcher
	limiter    Throttler
	collector  metrics.MetricsCollector // nil可
	feedParser *gofeed.Parser
	logger     *slog.Logger
}

// NewDiscovery はDiscoveryの新しいインスタンスを生成する。collectorはnil可。
func NewDiscovery(
	domainRepo repository.DomainRepository,
	queueRepo repository.QueueRepository,
	fetcher SitemapFetcher,
	limiter Throttler,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Discovery {
	return &Discovery{
		domainRepo: domainRepo,
		queueRepo:  queueRepo,
		fetcher:    fetcher,
		limiter:    limiter,
		collector:  collector,
		feedParser: gofeed.NewParser(),
		logger:     logger,
	}
}

// Start は指定間隔のティッカーでURL発見処理を起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (d *Discovery) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.logger.Info("URL発見ワーカーを開始しました",
		slog.Duration("interval", interval),
	)

	if _, err := d.RunOnce(ctx); err != nil {
		d.logger.Error("URL発見処理の実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("URL発見ワーカーを停止しました")
			return
		case <-ticker.C:
			if _, err := d.RunOnce(ctx); err != nil {
				d.logger.Error("URL発見処理の実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は有効な全ドメインについてURL発見を1回実行する。
// ドメイン単位のエラーは集計結果に記録され、他ドメインの処理を妨げない。
func (d *Discovery) RunOnce(ctx context.Context) (model.DiscoveryResult, error) {
	var result model.DiscoveryResult

	domains, err := d.domainRepo.ListEnabled(ctx)
	if err != nil {
		return result, err
	}

	for _, domain := range domains {
		if domain.SitemapURL == "" && domain.FeedURL == "" {
			continue
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		result.DomainsProcessed++
		discovered, added, err := d.discoverDomain(ctx, domain)
		result.URLsDiscovered += discovered
		result.URLsAdded += added
		if d.collector != nil {
			d.collector.RecordURLsDiscovered(discovered)
			d.collector.RecordURLsAdded(added)
		}
		if err != nil {
			d.logger.Error("ドメインのURL発見に失敗しました",
				slog.String("domain", domain.Domain),
				slog.String("error", err.Error()),
			)
			result.Errors = append(result.Errors, model.DomainError{
				Domain: domain.Domain,
				Error:  err.Error(),
			})
			continue
		}

		d.logger.Info("ドメインのURL発見が完了しました",
			slog.String("domain", domain.Domain),
			slog.Int("discovered", discovered),
			slog.Int("added", added),
		)
	}

	return result, nil
}

// discoverDomain は1ドメイン分の候補URLを収集し、キューに投入する。
// 発見数と投入数を返す。
func (d *Discovery) discoverDomain(ctx context.Context, domain *model.DomainConfig) (int, int, error) {
	interval := time.Duration(domain.RateLimitSeconds) * time.Second

	var candidates []string
	var firstErr error

	if domain.SitemapURL != "" {
		urls, err := d.collectSitemapURLs(ctx, domain.Domain, domain.SitemapURL, interval)
		if err != nil {
			firstErr = err
		} else {
			candidates = append(candidates, urls...)
			if err := d.domainRepo.TouchSitemapFetched(ctx, domain.Domain); err != nil {
				d.logger.Error("sitemap取得時刻の更新に失敗しました",
					slog.String("domain", domain.Domain),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if domain.FeedURL != "" {
		urls, err := d.collectFeedURLs(ctx, domain.Domain, domain.FeedURL, interval)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			candidates = append(candidates, urls...)
		}
	}

	recipeLike := filterRecipeURLs(candidates)
	if len(recipeLike) == 0 {
		return len(recipeLike), 0, firstErr
	}

	unknown, err := d.queueRepo.FilterKnown(ctx, recipeLike)
	if err != nil {
		return len(recipeLike), 0, err
	}

	added := 0
	for _, url := range unknown {
		inserted, err := d.queueRepo.Enqueue(ctx, url, domain.Domain, 0)
		if err != nil {
			return len(recipeLike), added, err
		}
		if inserted {
			added++
		}
	}

	return len(recipeLike), added, firstErr
}

// collectSitemapURLs はsitemapから<loc>エントリを収集する。
// sitemapindexの場合は子sitemapを1階層だけ辿る。
func (d *Discovery) collectSitemapURLs(ctx context.Context, domain, sitemapURL string, interval time.Duration) ([]string, error) {
	if err := d.limiter.Throttle(ctx, domain, interval); err != nil {
		return nil, err
	}
	body, err := d.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	urls, children, err := parseSitemap(body)
	if err != nil {
		return nil, err
	}

	for _, child := range children {
		if err := d.limiter.Throttle(ctx, domain, interval); err != nil {
			return nil, err
		}
		childBody, err := d.fetcher.Fetch(ctx, child)
		if err != nil {
			// 子sitemapの取得失敗は記録のみで、残りの収集を続ける
			d.logger.Warn("子sitemapの取得に失敗しました",
				slog.String("sitemap_url", child),
				slog.String("error", err.Error()),
			)
			continue
		}
		childURLs, _, err := parseSitemap(childBody)
		if err != nil {
			d.logger.Warn("子sitemapの解析に失敗しました",
				slog.String("sitemap_url", child),
				slog.String("error", err.Error()),
			)
			continue
		}
		urls = append(urls, childURLs...)
	}

	return urls, nil
}

// collectFeedURLs はRSS/Atomフィードから記事URLを収集する。
func (d *Discovery) collectFeedURLs(ctx context.Context, domain, feedURL string, interval time.Duration) ([]string, error) {
	if err := d.limiter.Throttle(ctx, domain, interval); err != nil {
		return nil, err
	}
	body, err := d.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	feed, err := d.feedParser.ParseString(body)
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, item := range feed.Items {
		if item.Link != "" {
			urls = append(urls, item.Link)
		}
	}
	return urls, nil
}

// parseSitemap はsitemap XMLからURLエントリと子sitemapエントリを取り出す。
func parseSitemap(body string) (urls, children []string, err error) {
	var doc sitemapDoc
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		return nil, nil, err
	}

	for _, entry := range doc.URLs {
		if loc := strings.TrimSpace(entry.Loc); loc != "" {
			urls = append(urls, loc)
		}
	}
	for _, entry := range doc.Sitemaps {
		if loc := strings.TrimSpace(entry.Loc); loc != "" {
			children = append(children, loc)
		}
	}
	return urls, children, nil
}

// filterRecipeURLs はレシピページらしいURLだけを残す。
// 重複は入力順で最初の1件が残る。
func filterRecipeURLs(urls []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, url := range urls {
		if seen[url] || !isRecipeURL(url) {
			continue
		}
		seen[url] = true
		result = append(result, url)
	}
	return result
}

// isRecipeURL はURLがレシピページらしいかどうかを判定する。
func isRecipeURL(url string) bool {
	lower := strings.ToLower(url)

	for _, ext := range excludedExtensions {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	for _, pattern := range excludedPathPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	for _, pattern := range recipePathPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
