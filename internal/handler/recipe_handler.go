package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/simmer/internal/model"
)

// デフォルトと上限の一覧取得件数。
const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// RecipeReader はレシピ読み取りAPIが必要とするリポジトリインターフェース。
type RecipeReader interface {
	// FindBySlug は指定スラッグのレシピを子レコード込みで取得する。
	// 見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.RecipeWithDetails, error)
	// List は更新日時の新しい順にレシピ本体を取得する。
	List(ctx context.Context, limit int) ([]*model.Recipe, error)
}

// RecipeHandler はレシピ読み取りAPIのHTTPハンドラー。
type RecipeHandler struct {
	recipes RecipeReader
	logger  *slog.Logger
}

// NewRecipeHandler はRecipeHandlerを生成する。
func NewRecipeHandler(recipes RecipeReader, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{
		recipes: recipes,
		logger:  logger,
	}
}

// recipeSummary はレシピ一覧の1件分のレスポンス。
type recipeSummary struct {
	ID           string   `json:"id"`
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	PrepTime     *int     `json:"prepTime"`
	CookTime     *int     `json:"cookTime"`
	TotalTime    *int     `json:"totalTime"`
	Servings     *int     `json:"servings"`
	ServingsUnit string   `json:"servingsUnit,omitempty"`
	Cuisine      []string `json:"cuisine"`
	Category     []string `json:"category"`
	DietTags     []string `json:"dietTags"`
	SourceURL    string   `json:"sourceUrl"`
	SourceDomain string   `json:"sourceDomain"`
	SourceName   string   `json:"sourceName,omitempty"`
}

// ingredientResponse は材料1行分のレスポンス。
type ingredientResponse struct {
	Position          int      `json:"position"`
	OriginalText      string   `json:"originalText"`
	Amount            *float64 `json:"amount"`
	AmountMax         *float64 `json:"amountMax"`
	Unit              string   `json:"unit,omitempty"`
	UnitNormalized    string   `json:"unitNormalized,omitempty"`
	Item              string   `json:"item,omitempty"`
	Preparation       string   `json:"preparation,omitempty"`
	AffiliateCategory string   `json:"affiliateCategory,omitempty"`
}

// instructionResponse は調理手順1ステップ分のレスポンス。
type instructionResponse struct {
	StepNumber int    `json:"stepNumber"`
	Text       string `json:"text"`
}

// nutritionResponse は栄養情報のレスポンス。
type nutritionResponse struct {
	Calories          *float64 `json:"calories"`
	FatGrams          *float64 `json:"fatGrams"`
	SaturatedFatGrams *float64 `json:"saturatedFatGrams"`
	CarbsGrams        *float64 `json:"carbsGrams"`
	FiberGrams        *float64 `json:"fiberGrams"`
	SugarGrams        *float64 `json:"sugarGrams"`
	ProteinGrams      *float64 `json:"proteinGrams"`
	SodiumMg          *float64 `json:"sodiumMg"`
	CholesterolMg     *float64 `json:"cholesterolMg"`
	ServingSize       string   `json:"servingSize,omitempty"`
}

// recipeDetailResponse はレシピ詳細のレスポンス。
type recipeDetailResponse struct {
	recipeSummary
	Ingredients  []ingredientResponse  `json:"ingredients"`
	Instructions []instructionResponse `json:"instructions"`
	Nutrition    *nutritionResponse    `json:"nutrition"`
}

// listRecipesResponse はレシピ一覧のレスポンス。
type listRecipesResponse struct {
	Recipes []recipeSummary `json:"recipes"`
	Count   int             `json:"count"`
}

// errorResponse は読み取りAPIのエラーレスポンス。
type errorResponse struct {
	Error string `json:"error"`
}

// ListRecipes は更新日時の新しい順にレシピ一覧を返す。
// GET /api/recipes?limit=N
func (h *RecipeHandler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	recipes, err := h.recipes.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list recipes", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	resp := listRecipesResponse{
		Recipes: make([]recipeSummary, 0, len(recipes)),
		Count:   len(recipes),
	}
	for _, recipe := range recipes {
		resp.Recipes = append(resp.Recipes, toRecipeSummary(recipe))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRecipe はスラッグ指定で1件のレシピを子レコード込みで返す。
// GET /api/recipes/{slug}
func (h *RecipeHandler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	details, err := h.recipes.FindBySlug(r.Context(), slug)
	if err != nil {
		h.logger.Error("failed to find recipe",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if details == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "recipe not found"})
		return
	}

	writeJSON(w, http.StatusOK, toRecipeDetail(details))
}

// toRecipeSummary はモデルを一覧レスポンスに変換する。
func toRecipeSummary(recipe *model.Recipe) recipeSummary {
	return recipeSummary{
		ID:           recipe.ID,
		Slug:         recipe.Slug,
		Name:         recipe.Name,
		Description:  recipe.Description,
		PrepTime:     recipe.PrepTime,
		CookTime:     recipe.CookTime,
		TotalTime:    recipe.TotalTime,
		Servings:     recipe.Servings,
		ServingsUnit: recipe.ServingsUnit,
		Cuisine:      recipe.Cuisine,
		Category:     recipe.Category,
		DietTags:     recipe.DietTags,
		SourceURL:    recipe.SourceURL,
		SourceDomain: recipe.SourceDomain,
		SourceName:   recipe.SourceName,
	}
}

// toRecipeDetail はモデルを詳細レスポンスに変換する。
func toRecipeDetail(details *model.RecipeWithDetails) recipeDetailResponse {
	resp := recipeDetailResponse{
		recipeSummary: toRecipeSummary(&details.Recipe),
		Ingredients:   make([]ingredientResponse, 0, len(details.Ingredients)),
		Instructions:  make([]instructionResponse, 0, len(details.Instructions)),
	}

	for _, ing := range details.Ingredients {
		resp.Ingredients = append(resp.Ingredients, ingredientResponse{
			Position:          ing.Position,
			OriginalText:      ing.OriginalText,
			Amount:            ing.Amount,
			AmountMax:         ing.AmountMax,
			Unit:              ing.Unit,
			UnitNormalized:    ing.UnitNormalized,
			Item:              ing.Item,
			Preparation:       ing.Preparation,
			AffiliateCategory: ing.AffiliateCategory,
		})
	}
	for _, step := range details.Instructions {
		resp.Instructions = append(resp.Instructions, instructionResponse{
			StepNumber: step.StepNumber,
			Text:       step.Text,
		})
	}
	if details.Nutrition != nil {
		resp.Nutrition = &nutritionResponse{
			Calories:          details.Nutrition.Calories,
			FatGrams:          details.Nutrition.FatGrams,
			SaturatedFatGrams: details.Nutrition.SaturatedFatGrams,
			CarbsGrams:        details.Nutrition.CarbsGrams,
			FiberGrams:        details.Nutrition.FiberGrams,
			SugarGrams:        details.Nutrition.SugarGrams,
			ProteinGrams:      details.Nutrition.ProteinGrams,
			SodiumMg:          details.Nutrition.SodiumMg,
			CholesterolMg:     details.Nutrition.CholesterolMg,
			ServingSize:       details.Nutrition.ServingSize,
		}
	}

	return resp
}
