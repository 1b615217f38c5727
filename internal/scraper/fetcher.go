// Package scraper はレシピページの取得と構造化パイプラインの編成を提供する。
// Fetcher（リトライ付きHTTP取得）、Limiter（ドメイン別レート制御）、
// Scraper（取得→抽出→正規化→保存の編成）で構成される。
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hitoshi/simmer/internal/metrics"
	"github.com/hitoshi/simmer/internal/security"
)

// FetchError はHTTP取得の失敗を表す。
// Permanentがtrueの場合、リトライしても解決しない失敗（429以外の4xx）を意味する。
type FetchError struct {
	URL        string
	StatusCode int // ネットワークエラーの場合は0
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d after %d attempt(s)", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("fetch %s: %v after %d attempt(s)", e.URL, e.Err, e.Attempts)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Permanent はリトライ対象外の失敗かどうかを返す。
// 429を除く4xxはページ側の問題であり、再試行しても解決しない。
func (e *FetchError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

// Fetcher はレシピページのHTTP取得を行う。
// SSRF検証済みクライアントを使用し、一時的な失敗には指数バックオフでリトライする。
type Fetcher struct {
	ssrfGuard   security.SSRFGuardService
	collector   metrics.MetricsCollector // nil可
	userAgent   string
	timeout     time.Duration
	maxRetries  int
	retryDelay  time.Duration
	maxBodySize int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。collectorはnil可。
func NewFetcher(ssrfGuard security.SSRFGuardService, collector metrics.MetricsCollector, userAgent string, timeout time.Duration, maxRetries int, retryDelay time.Duration, maxBodySize int64) *Fetcher {
	return &Fetcher{
		ssrfGuard:   ssrfGuard,
		collector:   collector,
		userAgent:   userAgent,
		timeout:     timeout,
		maxRetries:  maxRetries,
		retryDelay:  retryDelay,
		maxBodySize: maxBodySize,
	}
}

// Fetch はURLのHTMLを取得する。
// 5xx・429・ネットワークエラーはmaxRetries回まで retryDelay × 2^attempt の
// 間隔でリトライする。429以外の4xxは即座に失敗する（リトライなし）。
// すべての失敗は*FetchErrorとして返る。
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := f.ssrfGuard.ValidateURL(url); err != nil {
		return "", &FetchError{URL: url, Attempts: 0, Err: err}
	}

	client := f.ssrfGuard.NewSafeClient(f.timeout)

	var lastErr *FetchError
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			delay := f.retryDelay * (1 << (attempt - 1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", &FetchError{URL: url, Attempts: attempt, Err: ctx.Err()}
			}
		}

		html, ferr := f.fetchOnce(ctx, client, url)
		if ferr == nil {
			return html, nil
		}
		ferr.Attempts = attempt + 1
		lastErr = ferr

		if ferr.Permanent() {
			return "", ferr
		}
		if ctx.Err() != nil {
			return "", ferr
		}
	}

	return "", lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, client *http.Client, url string) (string, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	resp, err := client.Do(req)
	if f.collector != nil {
		f.collector.RecordFetchLatency(time.Since(start))
	}
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if f.collector != nil {
		f.collector.RecordHTTPStatus(resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 後続のリトライ判定のためボディは読み捨てる
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return "", &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	return string(body), nil
}
