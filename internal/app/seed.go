package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/hitoshi/simmer/internal/config"
	"github.com/hitoshi/simmer/internal/model"
	"github.com/hitoshi/simmer/internal/repository"
)

// seedFile はseedサブコマンドが読み込む初期データのファイル形式。
type seedFile struct {
	Domains []seedDomain `json:"domains"`
	URLs    []string     `json:"urls"`
}

// seedDomain はシード対象ドメインのクロール設定。
type seedDomain struct {
	Domain           string `json:"domain"`
	SitemapURL       string `json:"sitemapUrl"`
	FeedURL          string `json:"feedUrl"`
	RateLimitSeconds int    `json:"rateLimitSeconds"`
}

// loadSeedFile はシードファイルを読み込んで検証する。
func loadSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, d := range seed.Domains {
		if d.Domain == "" {
			return nil, fmt.Errorf("domains[%d]: domain is required", i)
		}
		if d.RateLimitSeconds < 0 {
			return nil, fmt.Errorf("domains[%d]: rateLimitSeconds must not be negative", i)
		}
	}
	for i, raw := range seed.URLs {
		if _, err := seedDomainOf(raw); err != nil {
			return nil, fmt.Errorf("urls[%d]: %w", i, err)
		}
	}
	return &seed, nil
}

// seedDomainOf はシードURLからドメインキーを取り出す。
func seedDomainOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return "", fmt.Errorf("invalid URL: %s", rawURL)
	}
	return strings.TrimPrefix(parsed.Hostname(), "www."), nil
}

// runSeed はドメイン設定と初期URLをデータベースに投入する。
// ドメインはUPSERT、URLは優先度SeedPriorityでキューに追加されるため、
// Discovery経由の投入分（優先度0）より先に処理される。
// 再実行しても安全（既存ドメインは更新、既知URLはスキップ）。
func runSeed(cfg *config.Config, path string) error {
	if path == "" {
		return fmt.Errorf("seed file path is required: simmer seed <file.json>")
	}

	seed, err := loadSeedFile(path)
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	domainRepo := repository.NewPostgresDomainRepo(db)
	queueRepo := repository.NewPostgresQueueRepo(db)

	for _, d := range seed.Domains {
		err := domainRepo.Upsert(ctx, &model.DomainConfig{
			Domain:           d.Domain,
			IsEnabled:        true,
			RateLimitSeconds: d.RateLimitSeconds,
			SitemapURL:       d.SitemapURL,
			FeedURL:          d.FeedURL,
		})
		if err != nil {
			return fmt.Errorf("failed to seed domain %s: %w", d.Domain, err)
		}
	}

	enqueued := 0
	for _, raw := range seed.URLs {
		domain, _ := seedDomainOf(raw)
		inserted, err := queueRepo.Enqueue(ctx, raw, domain, model.SeedPriority)
		if err != nil {
			return fmt.Errorf("failed to enqueue %s: %w", raw, err)
		}
		if inserted {
			enqueued++
		}
	}

	slog.Info("seed completed",
		slog.Int("domains", len(seed.Domains)),
		slog.Int("urls_enqueued", enqueued),
		slog.Int("urls_skipped", len(seed.URLs)-enqueued),
	)
	return nil
}
