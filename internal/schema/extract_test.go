package schema

import "testing"

func TestExtract_DirectRecipeNode(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">
	{"@type": "Recipe", "name": "Tomato Soup", "recipeIngredient": ["2 tomatoes"]}
	</script>
	</head><body></body></html>`

	recipe, err := Extract(html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recipe == nil {
		t.Fatal("expected recipe, got nil")
	}
	if recipe.Name != "Tomato Soup" {
		t.Errorf("Name = %q, want Tomato Soup", recipe.Name)
	}
	if len(recipe.RecipeIngredient) != 1 || recipe.RecipeIngredient[0] != "2 tomatoes" {
		t.Errorf("RecipeIngredient = %v", recipe.RecipeIngredient)
	}
}

func TestExtract_TypeArray(t *testing.T) {
	html := `<script type="application/ld+json">
	{"@type": ["Recipe", "NewsArticle"], "name": "Braised Beef"}
	</script>`

	recipe, err := Extract(html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recipe == nil || recipe.Name != "Braised Beef" {
		t.Fatalf("expected Braised Beef, got %+v", recipe)
	}
}

func TestExtract_GraphFormat(t *testing.T) {
	html := `<script type="application/ld+json">
	{
		"@context": "https://schema.org",
		"@graph": [
			{"@type": "WebPage", "name": "Page"},
			{"@type": "Recipe", "name": "Lemon Cake", "prepTime": "PT20M"},
			{"@type": "Person", "name": "Someone"}
		]
	}
	</script>`

	recipe, err := Extract(html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recipe == nil || recipe.Name != "Lemon Cake" {
		t.Fatalf("expected Lemon Cake, got %+v", recipe)
	}
	if recipe.PrepTime != "PT20M" {
		t.Errorf("PrepTime = %q, want PT20M", recipe.PrepTime)
	}
}

func TestExtract_TopLevelArray(t *testing.T) {
	html := `<script type="application/ld+json">
	[
		{"@type": "BreadcrumbList"},
		{"@type": "Recipe", "name": "Fried Rice"}
	]
	</script>`

	recipe, err := Extract(html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recipe == nil || recipe.Name != "Fried Rice" {
		t.Fatalf("expected Fried Rice, got %+v", recipe)
	}
}

func TestExtract_SkipsInvalidJSONBlocks(t *testing.T) {
	html := `
	<script type="application/ld+json">{not valid json</script>
	<script type="application/ld+json">{"@type": "Recipe", "name": "Second Block"}</script>`

	recipe, err := Extract(html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recipe == nil || recipe.Name != "Second Block" {
		t.Fatalf("expected recipe from second block, got %+v", recipe)
	}
}

func TestExtract_FirstMatchInDocumentOrder(t *testing.T) {
	html := `
	<script type="application/ld+json">{"@type": "Recipe", "name": "First"}</script>
	<script type="application/ld+json">{"@type": "Recipe", "name": "Second"}</script>`

	recipe, err := Extract(html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recipe == nil || recipe.Name != "First" {
		t.Fatalf("expected First, got %+v", recipe)
	}
}

func TestExtract_NoRecipeReturnsNil(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"no json-ld at all", `<html><body><h1>About us</h1></body></html>`},
		{"json-ld without recipe", `<script type="application/ld+json">{"@type": "NewsArticle", "headline": "x"}</script>`},
		{"empty block", `<script type="application/ld+json"></script>`},
		{"graph without recipe", `<script type="application/ld+json">{"@graph": [{"@type": "WebSite"}]}</script>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipe, err := Extract(tt.html)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if recipe != nil {
				t.Errorf("expected nil, got %+v", recipe)
			}
		})
	}
}

func TestSourceName(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"publisher object", `{"@type":"Recipe","name":"x","publisher":{"@type":"Organization","name":"Cook Site"}}`, "Cook Site"},
		{"author object", `{"@type":"Recipe","name":"x","author":{"@type":"Person","name":"Jamie"}}`, "Jamie"},
		{"author string", `{"@type":"Recipe","name":"x","author":"Alex"}`, "Alex"},
		{"author array", `{"@type":"Recipe","name":"x","author":[{"@type":"Person","name":"Kim"}]}`, "Kim"},
		{"publisher wins over author", `{"@type":"Recipe","name":"x","publisher":{"name":"Site"},"author":"Alex"}`, "Site"},
		{"neither", `{"@type":"Recipe","name":"x"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipe := decodeRecipe([]byte(tt.json))
			if recipe == nil {
				t.Fatal("failed to decode test recipe")
			}
			if got := SourceName(recipe); got != tt.want {
				t.Errorf("SourceName = %q, want %q", got, tt.want)
			}
		})
	}
}
