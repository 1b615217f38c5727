package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/simmer/internal/model"
)

// mockRecipeReader はRecipeReaderのモック。
type mockRecipeReader struct {
	details   map[string]*model.RecipeWithDetails
	recipes   []*model.Recipe
	listErr   error
	findErr   error
	lastLimit int
}

func (m *mockRecipeReader) FindBySlug(ctx context.Context, slug string) (*model.RecipeWithDetails, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.details[slug], nil
}

func (m *mockRecipeReader) List(ctx context.Context, limit int) ([]*model.Recipe, error) {
	m.lastLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	if len(m.recipes) > limit {
		return m.recipes[:limit], nil
	}
	return m.recipes, nil
}

func intPtr(n int) *int { return &n }

func float64Ptr(f float64) *float64 { return &f }

func sampleRecipe(slug, name string) *model.Recipe {
	return &model.Recipe{
		ID:           "id-" + slug,
		Slug:         slug,
		Name:         name,
		PrepTime:     intPtr(15),
		Servings:     intPtr(4),
		ServingsUnit: "servings",
		Cuisine:      []string{"Italian"},
		Category:     []string{"Soup"},
		DietTags:     []string{},
		SourceURL:    "https://example.com/recipes/" + slug,
		SourceDomain: "example.com",
		SourceName:   "Example Kitchen",
	}
}

// TestListRecipes_ReturnsRecipes はレシピ一覧がJSONで返ることを検証する。
func TestListRecipes_ReturnsRecipes(t *testing.T) {
	reader := &mockRecipeReader{
		recipes: []*model.Recipe{
			sampleRecipe("tomato-soup-example-com", "Tomato Soup"),
			sampleRecipe("beef-stew-example-com", "Beef Stew"),
		},
	}
	h := NewRecipeHandler(reader, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
	w := httptest.NewRecorder()

	h.ListRecipes(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if reader.lastLimit != defaultListLimit {
		t.Errorf("limit = %d, want default %d", reader.lastLimit, defaultListLimit)
	}

	var resp listRecipesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Count != 2 || len(resp.Recipes) != 2 {
		t.Fatalf("count = %d, recipes = %d, want 2 each", resp.Count, len(resp.Recipes))
	}
	if resp.Recipes[0].Slug != "tomato-soup-example-com" {
		t.Errorf("first slug = %q, want %q", resp.Recipes[0].Slug, "tomato-soup-example-com")
	}
	if resp.Recipes[0].SourceDomain != "example.com" {
		t.Errorf("sourceDomain = %q, want %q", resp.Recipes[0].SourceDomain, "example.com")
	}
}

// TestListRecipes_LimitParam はlimitパラメータの扱いを検証する。
func TestListRecipes_LimitParam(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
	}{
		{"explicit limit", "?limit=5", http.StatusOK, 5},
		{"capped at max", "?limit=500", http.StatusOK, maxListLimit},
		{"zero is invalid", "?limit=0", http.StatusBadRequest, 0},
		{"negative is invalid", "?limit=-1", http.StatusBadRequest, 0},
		{"non-numeric is invalid", "?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &mockRecipeReader{}
			h := NewRecipeHandler(reader, newTestLogger())

			req := httptest.NewRequest(http.MethodGet, "/api/recipes"+tt.query, nil)
			w := httptest.NewRecorder()

			h.ListRecipes(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && reader.lastLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", reader.lastLimit, tt.wantLimit)
			}
		})
	}
}

// TestListRecipes_RepositoryError はリポジトリエラーが500になることを検証する。
func TestListRecipes_RepositoryError(t *testing.T) {
	reader := &mockRecipeReader{listErr: errors.New("connection refused")}
	h := NewRecipeHandler(reader, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
	w := httptest.NewRecorder()

	h.ListRecipes(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// getWithSlug はchiのURLパラメータを含むリクエストを組み立てる。
func getWithSlug(slug string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/recipes/"+slug, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("slug", slug)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// TestGetRecipe_WithDetails は子レコード込みの詳細が返ることを検証する。
func TestGetRecipe_WithDetails(t *testing.T) {
	details := &model.RecipeWithDetails{
		Recipe: *sampleRecipe("tomato-soup-example-com", "Tomato Soup"),
		Ingredients: []model.Ingredient{
			{
				Position:          1,
				OriginalText:      "2 cups tomatoes, diced",
				Amount:            float64Ptr(2),
				Unit:              "cups",
				UnitNormalized:    "cup",
				Item:              "tomatoes",
				Preparation:       "diced",
				AffiliateCategory: "produce",
			},
		},
		Instructions: []model.Instruction{
			{StepNumber: 1, Text: "Simmer the tomatoes."},
		},
		Nutrition: &model.Nutrition{
			Calories: float64Ptr(120),
		},
	}
	reader := &mockRecipeReader{
		details: map[string]*model.RecipeWithDetails{"tomato-soup-example-com": details},
	}
	h := NewRecipeHandler(reader, newTestLogger())

	w := httptest.NewRecorder()
	h.GetRecipe(w, getWithSlug("tomato-soup-example-com"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp recipeDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Name != "Tomato Soup" {
		t.Errorf("name = %q, want %q", resp.Name, "Tomato Soup")
	}
	if len(resp.Ingredients) != 1 || resp.Ingredients[0].Item != "tomatoes" {
		t.Errorf("unexpected ingredients: %+v", resp.Ingredients)
	}
	if len(resp.Instructions) != 1 || resp.Instructions[0].StepNumber != 1 {
		t.Errorf("unexpected instructions: %+v", resp.Instructions)
	}
	if resp.Nutrition == nil || resp.Nutrition.Calories == nil || *resp.Nutrition.Calories != 120 {
		t.Errorf("unexpected nutrition: %+v", resp.Nutrition)
	}
}

// TestGetRecipe_NotFound は未登録スラッグが404になることを検証する。
func TestGetRecipe_NotFound(t *testing.T) {
	reader := &mockRecipeReader{}
	h := NewRecipeHandler(reader, newTestLogger())

	w := httptest.NewRecorder()
	h.GetRecipe(w, getWithSlug("no-such-recipe"))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
