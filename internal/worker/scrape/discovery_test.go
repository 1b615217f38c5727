package scrape

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/simmer/internal/model"
)

// mockFetcher はSitemapFetcherのテスト用モック。URLごとに固定レスポンスを返す。
type mockFetcher struct {
	responses map[string]string
	errs      map[string]error
	fetched   []string
}

func (m *mockFetcher) Fetch(_ context.Context, url string) (string, error) {
	m.fetched = append(m.fetched, url)
	if err, ok := m.errs[url]; ok {
		return "", err
	}
	if body, ok := m.responses[url]; ok {
		return body, nil
	}
	return "", errors.New("unexpected URL: " + url)
}

// mockThrottler はThrottlerのテスト用モック。待たずに回数だけ記録する。
type mockThrottler struct {
	calls int
}

func (m *mockThrottler) Throttle(_ context.Context, _ string, _ time.Duration) error {
	m.calls++
	return nil
}

const flatSitemap = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/recipes/tomato-soup</loc></url>
  <url><loc>https://example.com/recipes/carbonara</loc></url>
  <url><loc>https://example.com/category/soups</loc></url>
  <url><loc>https://example.com/about</loc></url>
</urlset>`

const indexSitemap = `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/sitemap-recipes.xml</loc></sitemap>
  <sitemap><loc>https://example.com/sitemap-posts.xml</loc></sitemap>
</sitemapindex>`

func TestParseSitemap_Flat(t *testing.T) {
	urls, children, err := parseSitemap(flatSitemap)
	if err != nil {
		t.Fatalf("parseSitemap returned error: %v", err)
	}
	if len(urls) != 4 {
		t.Errorf("urls = %d, want 4", len(urls))
	}
	if len(children) != 0 {
		t.Errorf("children = %d, want 0", len(children))
	}
	if urls[0] != "https://example.com/recipes/tomato-soup" {
		t.Errorf("first url = %q", urls[0])
	}
}

func TestParseSitemap_Index(t *testing.T) {
	urls, children, err := parseSitemap(indexSitemap)
	if err != nil {
		t.Fatalf("parseSitemap returned error: %v", err)
	}
	if len(urls) != 0 {
		t.Errorf("urls = %d, want 0", len(urls))
	}
	if len(children) != 2 {
		t.Fatalf("children = %d, want 2", len(children))
	}
	if children[0] != "https://example.com/sitemap-recipes.xml" {
		t.Errorf("first child = %q", children[0])
	}
}

func TestParseSitemap_InvalidXML(t *testing.T) {
	if _, _, err := parseSitemap("this is not xml <<<"); err == nil {
		t.Fatal("parseSitemap should fail on invalid XML")
	}
}

func TestIsRecipeURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/recipe/tomato-soup", true},
		{"https://example.com/recipes/tomato-soup", true},
		{"https://example.com.br/receita/feijoada", true},
		{"https://example.fr/recette/ratatouille", true},
		{"https://example.de/rezept/spaetzle", true},
		{"https://example.com/about", false},
		{"https://example.com/category/soups", false},
		{"https://example.com/recipes/categories/soups", false},
		{"https://example.com/recipes/tag/vegan", false},
		{"https://example.com/recipes/tags/vegan", false},
		{"https://example.com/author/jane", false},
		{"https://example.com/search?q=soup", false},
		{"https://example.com/recipes/page/2", false},
		{"https://example.com/wp-content/uploads/recipe-card.png", false},
		{"https://example.com/wp-admin/edit.php", false},
		{"https://example.com/recipes/soup.pdf", false},
		{"https://example.com/recipes/soup.jpg", false},
		{"https://example.com/RECIPES/Tomato-Soup", true},
	}

	for _, tt := range tests {
		if got := isRecipeURL(tt.url); got != tt.want {
			t.Errorf("isRecipeURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestFilterRecipeURLs_DropsDuplicates(t *testing.T) {
	got := filterRecipeURLs([]string{
		"https://example.com/recipes/a",
		"https://example.com/recipes/a",
		"https://example.com/recipes/b",
	})
	if len(got) != 2 {
		t.Errorf("filtered = %d, want 2", len(got))
	}
}

func enabledDomain(domain, sitemapURL, feedURL string) *model.DomainConfig {
	return &model.DomainConfig{
		Domain:           domain,
		IsEnabled:        true,
		RateLimitSeconds: 0,
		SitemapURL:       sitemapURL,
		FeedURL:          feedURL,
	}
}

func TestDiscovery_RunOnce_EnqueuesRecipeURLs(t *testing.T) {
	queueRepo := &mockQueueRepo{knownURLs: map[string]bool{}}
	domainRepo := &mockDomainRepo{
		enabled: []*model.DomainConfig{
			enabledDomain("example.com", "https://example.com/sitemap.xml", ""),
		},
	}
	fetcher := &mockFetcher{responses: map[string]string{
		"https://example.com/sitemap.xml": flatSitemap,
	}}
	throttler := &mockThrottler{}
	d := NewDiscovery(domainRepo, queueRepo, fetcher, throttler, nil, newTestLogger())

	result, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	if result.DomainsProcessed != 1 {
		t.Errorf("DomainsProcessed = %d, want 1", result.DomainsProcessed)
	}
	if result.URLsDiscovered != 2 {
		t.Errorf("URLsDiscovered = %d, want 2 (recipe-like only)", result.URLsDiscovered)
	}
	if result.URLsAdded != 2 {
		t.Errorf("URLsAdded = %d, want 2", result.URLsAdded)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %+v", result.Errors)
	}

	if len(queueRepo.enqueued) != 2 {
		t.Fatalf("enqueued = %d, want 2", len(queueRepo.enqueued))
	}
	for _, prio := range queueRepo.enqueuedPrio {
		if prio != 0 {
			t.Errorf("discovery enqueue priority = %d, want 0", prio)
		}
	}
	if len(domainRepo.touched) != 1 || domainRepo.touched[0] != "example.com" {
		t.Error("sitemap_last_fetched should be updated")
	}
	if throttler.calls == 0 {
		t.Error("sitemap fetch should go through the rate limiter")
	}
}

func TestDiscovery_RunOnce_SitemapIndex(t *testing.T) {
	queueRepo := &mockQueueRepo{knownURLs: map[string]bool{}}
	domainRepo := &mockDomainRepo{
		enabled: []*model.DomainConfig{
			enabledDomain("example.com", "https://example.com/sitemap.xml", ""),
		},
	}
	fetcher := &mockFetcher{responses: map[string]string{
		"https://example.com/sitemap.xml":         indexSitemap,
		"https://example.com/sitemap-recipes.xml": flatSitemap,
		"https://example.com/sitemap-posts.xml": `<?xml version="1.0"?>
<urlset><url><loc>https://example.com/posts/hello</loc></url></urlset>`,
	}}
	d := NewDiscovery(domainRepo, queueRepo, fetcher, &mockThrottler{}, nil, newTestLogger())

	result, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.URLsAdded != 2 {
		t.Errorf("URLsAdded = %d, want 2 (from child sitemap)", result.URLsAdded)
	}
	if len(fetcher.fetched) != 3 {
		t.Errorf("fetched %d URL(s), want 3 (index + 2 children)", len(fetcher.fetched))
	}
}

func TestDiscovery_RunOnce_SkipsKnownURLs(t *testing.T) {
	queueRepo := &mockQueueRepo{knownURLs: map[string]bool{
		"https://example.com/recipes/tomato-soup": true,
	}}
	domainRepo := &mockDomainRepo{
		enabled: []*model.DomainConfig{
			enabledDomain("example.com", "https://example.com/sitemap.xml", ""),
		},
	}
	fetcher := &mockFetcher{responses: map[string]string{
		"https://example.com/sitemap.xml": flatSitemap,
	}}
	d := NewDiscovery(domainRepo, queueRepo, fetcher, &mockThrottler{}, nil, newTestLogger())

	result, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.URLsAdded != 1 {
		t.Errorf("URLsAdded = %d, want 1 (known URL skipped)", result.URLsAdded)
	}
}

func TestDiscovery_RunOnce_PerDomainErrorsDoNotAbort(t *testing.T) {
	queueRepo := &mockQueueRepo{knownURLs: map[string]bool{}}
	domainRepo := &mockDomainRepo{
		enabled: []*model.DomainConfig{
			enabledDomain("broken.example.com", "https://broken.example.com/sitemap.xml", ""),
			enabledDomain("example.com", "https://example.com/sitemap.xml", ""),
		},
	}
	fetcher := &mockFetcher{
		responses: map[string]string{
			"https://example.com/sitemap.xml": flatSitemap,
		},
		errs: map[string]error{
			"https://broken.example.com/sitemap.xml": errors.New("HTTP 500"),
		},
	}
	d := NewDiscovery(domainRepo, queueRepo, fetcher, &mockThrottler{}, nil, newTestLogger())

	result, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	if result.DomainsProcessed != 2 {
		t.Errorf("DomainsProcessed = %d, want 2", result.DomainsProcessed)
	}
	if len(result.Errors) != 1 || result.Errors[0].Domain != "broken.example.com" {
		t.Errorf("Errors = %+v", result.Errors)
	}
	if result.URLsAdded != 2 {
		t.Errorf("URLsAdded = %d, want 2 (healthy domain still processed)", result.URLsAdded)
	}
}

func TestDiscovery_RunOnce_FeedSource(t *testing.T) {
	queueRepo := &mockQueueRepo{knownURLs: map[string]bool{}}
	domainRepo := &mockDomainRepo{
		enabled: []*model.DomainConfig{
			enabledDomain("example.com", "", "https://example.com/feed.xml"),
		},
	}
	fetcher := &mockFetcher{responses: map[string]string{
		"https://example.com/feed.xml": `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Example Kitchen</title>
    <item>
      <title>Tomato Soup</title>
      <link>https://example.com/recipes/tomato-soup</link>
    </item>
    <item>
      <title>Kitchen Tour</title>
      <link>https://example.com/blog/kitchen-tour</link>
    </item>
  </channel>
</rss>`,
	}}
	d := NewDiscovery(domainRepo, queueRepo, fetcher, &mockThrottler{}, nil, newTestLogger())

	result, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.URLsAdded != 1 {
		t.Errorf("URLsAdded = %d, want 1 (recipe link only)", result.URLsAdded)
	}
	if len(queueRepo.enqueued) != 1 || queueRepo.enqueued[0] != "https://example.com/recipes/tomato-soup" {
		t.Errorf("enqueued = %v", queueRepo.enqueued)
	}
}

func TestDiscovery_RunOnce_SkipsDomainsWithoutSources(t *testing.T) {
	queueRepo := &mockQueueRepo{knownURLs: map[string]bool{}}
	domainRepo := &mockDomainRepo{
		enabled: []*model.DomainConfig{
			enabledDomain("example.com", "", ""),
		},
	}
	fetcher := &mockFetcher{}
	d := NewDiscovery(domainRepo, queueRepo, fetcher, &mockThrottler{}, nil, newTestLogger())

	result, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.DomainsProcessed != 0 {
		t.Errorf("DomainsProcessed = %d, want 0", result.DomainsProcessed)
	}
	if len(fetcher.fetched) != 0 {
		t.Errorf("fetched = %v, want none", fetcher.fetched)
	}
}
