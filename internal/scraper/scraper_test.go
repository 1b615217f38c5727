package scraper

import (
	"bytes"
	"context"
	"errors"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/simmer/internal/model"
)

// fakeFetcher はPageFetcherのテスト用フェイク。
type fakeFetcher struct {
	html string
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return f.html, f.err
}

// fakeStore はRecipeStoreのテスト用フェイク。
type fakeStore struct {
	recipe       *model.Recipe
	ingredients  []model.Ingredient
	instructions []model.Instruction
	nutrition    *model.Nutrition
	err          error
}

func (s *fakeStore) Upsert(_ context.Context, recipe *model.Recipe, ingredients []model.Ingredient, instructions []model.Instruction, nutrition *model.Nutrition) (string, error) {
	s.recipe = recipe
	s.ingredients = ingredients
	s.instructions = instructions
	s.nutrition = nutrition
	if s.err != nil {
		return "", s.err
	}
	return "recipe-id-1", nil
}

// fakeDomainRepo はDomainConfigSourceのテスト用フェイク。
type fakeDomainRepo struct {
	config *model.DomainConfig
}

func (r *fakeDomainRepo) FindByDomain(_ context.Context, _ string) (*model.DomainConfig, error) {
	return r.config, nil
}

// fakeCleaner はタグ除去と空白圧縮だけを行う簡易クリーナー。
type fakeCleaner struct{}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func (fakeCleaner) Clean(raw string) string {
	s := tagPattern.ReplaceAllString(raw, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func newTestScraper(fetcher *fakeFetcher, store *fakeStore) *Scraper {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	return NewScraper(fetcher, NewLimiter(time.Millisecond), store, &fakeDomainRepo{}, fakeCleaner{}, logger)
}

const recipePage = `<!DOCTYPE html>
<html><head>
<script type="application/ld+json">
{
  "@type": "Recipe",
  "name": "Classic Tomato Soup",
  "description": "A simple, &amp; comforting soup.",
  "prepTime": "PT15M",
  "cookTime": "PT30M",
  "totalTime": "PT45M",
  "recipeYield": "4 servings",
  "recipeCuisine": "American",
  "recipeCategory": "Soup, Dinner",
  "keywords": "vegetarian, gluten-free",
  "recipeIngredient": ["2 cups tomatoes, chopped", "1 tablespoon olive oil", "salt"],
  "recipeInstructions": [
    {"@type": "HowToStep", "text": "Heat the oil."},
    {"@type": "HowToStep", "text": "Add tomatoes and simmer."}
  ],
  "nutrition": {"@type": "NutritionInformation", "calories": "120 calories", "proteinContent": "3 g"},
  "publisher": {"@type": "Organization", "name": "Example Kitchen"}
}
</script>
</head><body></body></html>`

func TestScraper_Scrape_Success(t *testing.T) {
	fetcher := &fakeFetcher{html: recipePage}
	store := &fakeStore{}
	s := newTestScraper(fetcher, store)

	result := s.Scrape(context.Background(), "https://www.example.com/recipes/tomato-soup")
	if !result.Success {
		t.Fatalf("Scrape failed: %s", result.Error)
	}
	if result.RecipeID != "recipe-id-1" {
		t.Errorf("RecipeID = %q, want %q", result.RecipeID, "recipe-id-1")
	}

	r := store.recipe
	if r == nil {
		t.Fatal("store was not called")
	}
	if r.Name != "Classic Tomato Soup" {
		t.Errorf("Name = %q", r.Name)
	}
	if r.Description != "A simple, & comforting soup." {
		t.Errorf("Description = %q", r.Description)
	}
	if r.SourceDomain != "example.com" {
		t.Errorf("SourceDomain = %q, want %q (www. stripped)", r.SourceDomain, "example.com")
	}
	if r.SourceName != "Example Kitchen" {
		t.Errorf("SourceName = %q", r.SourceName)
	}
	if r.Slug != "classic-tomato-soup-example-com" {
		t.Errorf("Slug = %q", r.Slug)
	}
	if r.PrepTime == nil || *r.PrepTime != 15 {
		t.Errorf("PrepTime = %v, want 15", r.PrepTime)
	}
	if r.TotalTime == nil || *r.TotalTime != 45 {
		t.Errorf("TotalTime = %v, want 45", r.TotalTime)
	}
	if r.Servings == nil || *r.Servings != 4 || r.ServingsUnit != "servings" {
		t.Errorf("Servings = %v %q", r.Servings, r.ServingsUnit)
	}
	if len(r.Category) != 2 || r.Category[0] != "Soup" || r.Category[1] != "Dinner" {
		t.Errorf("Category = %v", r.Category)
	}
	if len(r.DietTags) != 2 || r.DietTags[0] != "vegetarian" {
		t.Errorf("DietTags = %v", r.DietTags)
	}

	if len(store.ingredients) != 3 {
		t.Fatalf("ingredients = %d, want 3", len(store.ingredients))
	}
	first := store.ingredients[0]
	if first.Position != 1 || first.Item != "tomatoes" || first.Preparation != "chopped" {
		t.Errorf("first ingredient = %+v", first)
	}
	if first.Amount == nil || *first.Amount != 2 || first.UnitNormalized != "cup" {
		t.Errorf("first ingredient amount/unit = %+v", first)
	}
	if first.AffiliateCategory != "produce" {
		t.Errorf("AffiliateCategory = %q, want %q", first.AffiliateCategory, "produce")
	}

	if len(store.instructions) != 2 {
		t.Fatalf("instructions = %d, want 2", len(store.instructions))
	}
	if store.instructions[1].StepNumber != 2 || store.instructions[1].Text != "Add tomatoes and simmer." {
		t.Errorf("second instruction = %+v", store.instructions[1])
	}

	if store.nutrition == nil {
		t.Fatal("nutrition was not persisted")
	}
	if store.nutrition.Calories == nil || *store.nutrition.Calories != 120 {
		t.Errorf("Calories = %v, want 120", store.nutrition.Calories)
	}
	if store.nutrition.ProteinGrams == nil || *store.nutrition.ProteinGrams != 3 {
		t.Errorf("ProteinGrams = %v, want 3", store.nutrition.ProteinGrams)
	}
}

func TestScraper_Scrape_InvalidURL(t *testing.T) {
	s := newTestScraper(&fakeFetcher{}, &fakeStore{})

	result := s.Scrape(context.Background(), "://not a url")
	if result.Success {
		t.Fatal("Scrape should fail for invalid URL")
	}
	if result.Error == "" {
		t.Error("Error message should be set")
	}
}

func TestScraper_Scrape_FetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	store := &fakeStore{}
	s := newTestScraper(fetcher, store)

	result := s.Scrape(context.Background(), "https://example.com/recipes/x")
	if result.Success {
		t.Fatal("Scrape should fail when fetch fails")
	}
	if !strings.Contains(result.Error, "connection refused") {
		t.Errorf("Error = %q, should carry fetch error", result.Error)
	}
	if store.recipe != nil {
		t.Error("store should not be called on fetch failure")
	}
}

func TestScraper_Scrape_NoRecipeData(t *testing.T) {
	fetcher := &fakeFetcher{html: "<html><body><p>Just a blog post.</p></body></html>"}
	s := newTestScraper(fetcher, &fakeStore{})

	result := s.Scrape(context.Background(), "https://example.com/about")
	if result.Success {
		t.Fatal("Scrape should fail when page has no recipe markup")
	}
	if !strings.Contains(result.Error, "no recipe data") {
		t.Errorf("Error = %q", result.Error)
	}
}

func TestScraper_Scrape_MissingName(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
{"@type": "Recipe", "recipeIngredient": ["1 cup water"]}
</script></head></html>`
	s := newTestScraper(&fakeFetcher{html: page}, &fakeStore{})

	result := s.Scrape(context.Background(), "https://example.com/recipes/unnamed")
	if result.Success {
		t.Fatal("Scrape should fail when recipe has no name")
	}
	if !strings.Contains(result.Error, "name") {
		t.Errorf("Error = %q", result.Error)
	}
}

func TestScraper_Scrape_StoreFailure(t *testing.T) {
	fetcher := &fakeFetcher{html: recipePage}
	store := &fakeStore{err: errors.New("connection pool exhausted")}
	s := newTestScraper(fetcher, store)

	result := s.Scrape(context.Background(), "https://example.com/recipes/tomato-soup")
	if result.Success {
		t.Fatal("Scrape should fail when persistence fails")
	}
	if !strings.Contains(result.Error, "failed to save recipe") {
		t.Errorf("Error = %q", result.Error)
	}
}

func TestScraper_Scrape_UsesDomainRateLimitOverride(t *testing.T) {
	fetcher := &fakeFetcher{html: recipePage}
	store := &fakeStore{}
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	domainRepo := &fakeDomainRepo{config: &model.DomainConfig{
		Domain:           "example.com",
		IsEnabled:        true,
		RateLimitSeconds: 0,
	}}
	s := NewScraper(fetcher, NewLimiter(time.Millisecond), store, domainRepo, fakeCleaner{}, logger)

	result := s.Scrape(context.Background(), "https://example.com/recipes/tomato-soup")
	if !result.Success {
		t.Fatalf("Scrape failed: %s", result.Error)
	}
}
