package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/simmer/internal/ingredient"
	"github.com/hitoshi/simmer/internal/model"
	"github.com/hitoshi/simmer/internal/schema"
	"github.com/hitoshi/simmer/internal/security"
)

// RecipeStore はレシピ一式の永続化のインターフェース。
type RecipeStore interface {
	Upsert(ctx context.Context, recipe *model.Recipe, ingredients []model.Ingredient, instructions []model.Instruction, nutrition *model.Nutrition) (string, error)
}

// DomainConfigSource はドメイン別設定の参照インターフェース。
// 未登録ドメインはnilを返す。
type DomainConfigSource interface {
	FindByDomain(ctx context.Context, domain string) (*model.DomainConfig, error)
}

// PageFetcher はHTMLページ取得のインターフェース。
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Scraper は1URLのスクレイプ処理全体を編成する。
// レート制御→取得→構造化データ抽出→正規化→材料解析→保存の順で実行し、
// どの段階の失敗も型付き結果として返す。エラーを呼び出し元へ伝播させることはない。
type Scraper struct {
	fetcher    PageFetcher
	limiter    *Limiter
	store      RecipeStore
	domainRepo DomainConfigSource
	cleaner    security.TextCleanerService
	logger     *slog.Logger
}

// NewScraper はScraperの新しいインスタンスを生成する。
func NewScraper(fetcher PageFetcher, limiter *Limiter, store RecipeStore, domainRepo DomainConfigSource, cleaner security.TextCleanerService, logger *slog.Logger) *Scraper {
	return &Scraper{
		fetcher:    fetcher,
		limiter:    limiter,
		store:      store,
		domainRepo: domainRepo,
		cleaner:    cleaner,
		logger:     logger,
	}
}

// Scrape は1URLをスクレイプしてレシピを保存する。
func (s *Scraper) Scrape(ctx context.Context, rawURL string) model.ScrapeResult {
	failure := func(msg string) model.ScrapeResult {
		return model.ScrapeResult{Success: false, Error: msg, URL: rawURL}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return failure("invalid URL")
	}
	domain := strings.TrimPrefix(parsed.Hostname(), "www.")

	// ドメイン別のレート間隔設定があれば優先する
	var interval time.Duration
	if s.domainRepo != nil {
		if cfg, cfgErr := s.domainRepo.FindByDomain(ctx, domain); cfgErr == nil && cfg != nil {
			interval = time.Duration(cfg.RateLimitSeconds) * time.Second
		}
	}

	if err := s.limiter.Throttle(ctx, domain, interval); err != nil {
		return failure("rate limit wait canceled: " + err.Error())
	}

	html, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		s.logger.Warn("ページ取得に失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return failure(err.Error())
	}

	node, err := schema.Extract(html)
	if err != nil {
		return failure("failed to parse page: " + err.Error())
	}
	if node == nil {
		return failure("no recipe data found on page")
	}

	name := s.cleaner.Clean(node.Name)
	if name == "" {
		return failure("recipe has no name")
	}

	recipe, ingredients, instructions, nutrition := s.buildRecord(node, name, rawURL, domain)

	recipeID, err := s.store.Upsert(ctx, recipe, ingredients, instructions, nutrition)
	if err != nil {
		s.logger.Error("レシピの保存に失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return failure("failed to save recipe: " + err.Error())
	}

	s.logger.Info("レシピを保存しました",
		slog.String("url", rawURL),
		slog.String("recipe_id", recipeID),
		slog.String("slug", recipe.Slug),
		slog.Int("ingredients", len(ingredients)),
	)

	return model.ScrapeResult{Success: true, RecipeID: recipeID, URL: rawURL}
}

// buildRecord は抽出済みノードを正規化済みレシピ一式へ変換する。
func (s *Scraper) buildRecord(node *model.SchemaRecipe, name, sourceURL, domain string) (*model.Recipe, []model.Ingredient, []model.Instruction, *model.Nutrition) {
	recipe := &model.Recipe{
		Slug:         Slugify(name, domain),
		Name:         name,
		Description:  s.cleaner.Clean(node.Description),
		PrepTime:     schema.ParseDuration(node.PrepTime),
		CookTime:     schema.ParseDuration(node.CookTime),
		TotalTime:    schema.ParseDuration(node.TotalTime),
		Cuisine:      schema.NormalizeList(node.RecipeCuisine),
		Category:     schema.NormalizeList(node.RecipeCategory),
		DietTags:     schema.NormalizeList(node.Keywords),
		SourceURL:    sourceURL,
		SourceDomain: domain,
		SourceName:   schema.SourceName(node),
	}
	if servings := schema.ParseServings(node.RecipeYield); servings != nil {
		recipe.Servings = &servings.Count
		recipe.ServingsUnit = servings.Unit
	}

	var ingredients []model.Ingredient
	for _, line := range node.RecipeIngredient {
		text := s.cleaner.Clean(line)
		if text == "" {
			continue
		}
		parsed := ingredient.Parse(text)
		ingredients = append(ingredients, model.Ingredient{
			Position:          len(ingredients) + 1,
			OriginalText:      text,
			Amount:            parsed.Amount,
			AmountMax:         parsed.AmountMax,
			Unit:              parsed.Unit,
			UnitNormalized:    parsed.UnitNormalized,
			Item:              parsed.Item,
			Preparation:       parsed.Preparation,
			AffiliateCategory: ingredient.Categorize(parsed.Item),
		})
	}

	var instructions []model.Instruction
	for _, step := range schema.NormalizeInstructions(node.RecipeInstructions) {
		text := s.cleaner.Clean(step)
		if text == "" {
			continue
		}
		instructions = append(instructions, model.Instruction{
			StepNumber: len(instructions) + 1,
			Text:       text,
		})
	}

	var nutrition *model.Nutrition
	if node.Nutrition != nil {
		nutrition = &model.Nutrition{
			Calories:          schema.ParseNutritionValue(node.Nutrition.Calories),
			FatGrams:          schema.ParseNutritionValue(node.Nutrition.FatContent),
			SaturatedFatGrams: schema.ParseNutritionValue(node.Nutrition.SaturatedFatContent),
			CarbsGrams:        schema.ParseNutritionValue(node.Nutrition.CarbohydrateContent),
			FiberGrams:        schema.ParseNutritionValue(node.Nutrition.FiberContent),
			SugarGrams:        schema.ParseNutritionValue(node.Nutrition.SugarContent),
			ProteinGrams:      schema.ParseNutritionValue(node.Nutrition.ProteinContent),
			SodiumMg:          schema.ParseNutritionValue(node.Nutrition.SodiumContent),
			CholesterolMg:     schema.ParseNutritionValue(node.Nutrition.CholesterolContent),
			ServingSize:       node.Nutrition.ServingSize,
		}
	}

	return recipe, ingredients, instructions, nutrition
}
