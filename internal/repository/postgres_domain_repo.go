package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/simmer/internal/model"
)

// PostgresDomainRepo はPostgreSQLを使用したドメイン設定リポジトリ。
type PostgresDomainRepo struct {
	db *sql.DB
}

// NewPostgresDomainRepo はPostgresDomainRepoを生成する。
func NewPostgresDomainRepo(db *sql.DB) *PostgresDomainRepo {
	return &PostgresDomainRepo{db: db}
}

const selectDomainColumns = `SELECT id, domain, is_enabled, rate_limit_seconds,
       sitemap_url, feed_url, sitemap_last_fetched,
       successful_scrapes, failed_scrapes, created_at, updated_at`

// FindByDomain は指定ドメインの設定を取得する。見つからない場合はnilを返す。
func (r *PostgresDomainRepo) FindByDomain(ctx context.Context, domain string) (*model.DomainConfig, error) {
	config, err := r.scanDomain(r.db.QueryRowContext(ctx,
		selectDomainColumns+` FROM scrape_domains WHERE domain = $1`, domain,
	))
	if err != nil {
		return nil, fmt.Errorf("ドメイン設定の取得に失敗しました: %w", err)
	}
	return config, nil
}

// ListEnabled は有効なドメイン設定をすべて取得する。
func (r *PostgresDomainRepo) ListEnabled(ctx context.Context) ([]*model.DomainConfig, error) {
	rows, err := r.db.QueryContext(ctx,
		selectDomainColumns+` FROM scrape_domains WHERE is_enabled ORDER BY domain`,
	)
	if err != nil {
		return nil, fmt.Errorf("ドメイン設定一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var configs []*model.DomainConfig
	for rows.Next() {
		config, err := r.scanDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("ドメイン設定の読み取りに失敗しました: %w", err)
		}
		configs = append(configs, config)
	}
	return configs, rows.Err()
}

// Upsert はドメイン設定を作成または更新する。カウンターは更新しない。
func (r *PostgresDomainRepo) Upsert(ctx context.Context, config *model.DomainConfig) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scrape_domains (id, domain, is_enabled, rate_limit_seconds,
		                             sitemap_url, feed_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		 ON CONFLICT (domain) DO UPDATE SET
		   is_enabled = EXCLUDED.is_enabled,
		   rate_limit_seconds = EXCLUDED.rate_limit_seconds,
		   sitemap_url = EXCLUDED.sitemap_url,
		   feed_url = EXCLUDED.feed_url,
		   updated_at = now()`,
		uuid.New().String(), config.Domain, config.IsEnabled, config.RateLimitSeconds,
		nullString(config.SitemapURL), nullString(config.FeedURL),
	)
	if err != nil {
		return fmt.Errorf("ドメイン設定の保存に失敗しました: %w", err)
	}
	return nil
}

// TouchSitemapFetched はsitemap_last_fetchedを現在時刻に更新する。
func (r *PostgresDomainRepo) TouchSitemapFetched(ctx context.Context, domain string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scrape_domains SET sitemap_last_fetched = now(), updated_at = now()
		 WHERE domain = $1`,
		domain,
	)
	if err != nil {
		return fmt.Errorf("sitemap取得時刻の更新に失敗しました: %w", err)
	}
	return nil
}

// IncrementSuccess は成功カウンターを加算する。
func (r *PostgresDomainRepo) IncrementSuccess(ctx context.Context, domain string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scrape_domains SET successful_scrapes = successful_scrapes + 1, updated_at = now()
		 WHERE domain = $1`,
		domain,
	)
	if err != nil {
		return fmt.Errorf("成功カウンターの更新に失敗しました: %w", err)
	}
	return nil
}

// IncrementFailure は失敗カウンターを加算する。
func (r *PostgresDomainRepo) IncrementFailure(ctx context.Context, domain string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scrape_domains SET failed_scrapes = failed_scrapes + 1, updated_at = now()
		 WHERE domain = $1`,
		domain,
	)
	if err != nil {
		return fmt.Errorf("失敗カウンターの更新に失敗しました: %w", err)
	}
	return nil
}

func (r *PostgresDomainRepo) scanDomain(row rowScanner) (*model.DomainConfig, error) {
	config := &model.DomainConfig{}
	var sitemapURL, feedURL sql.NullString
	var sitemapLastFetched sql.NullTime

	err := row.Scan(
		&config.ID, &config.Domain, &config.IsEnabled, &config.RateLimitSeconds,
		&sitemapURL, &feedURL, &sitemapLastFetched,
		&config.SuccessfulScrapes, &config.FailedScrapes,
		&config.CreatedAt, &config.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	config.SitemapURL = nullStringValue(sitemapURL)
	config.FeedURL = nullStringValue(feedURL)
	if sitemapLastFetched.Valid {
		config.SitemapLastFetched = &sitemapLastFetched.Time
	}
	return config, nil
}
