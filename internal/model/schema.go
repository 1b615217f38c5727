package model

import "encoding/json"

// SchemaRecipe はページに埋め込まれたschema.org Recipeノードを表す。
// JSON-LDの値は同じフィールドでも文字列・配列・オブジェクトと
// 表記揺れが大きいため、揺れるフィールドは柔軟な型で受ける。
type SchemaRecipe struct {
	Type               TypeTag          `json:"@type"`
	Name               string           `json:"name"`
	Description        string           `json:"description"`
	RecipeIngredient   []string         `json:"recipeIngredient"`
	RecipeInstructions json.RawMessage  `json:"recipeInstructions"`
	PrepTime           string           `json:"prepTime"`
	CookTime           string           `json:"cookTime"`
	TotalTime          string           `json:"totalTime"`
	RecipeYield        StringOrList     `json:"recipeYield"`
	RecipeCategory     StringOrList     `json:"recipeCategory"`
	RecipeCuisine      StringOrList     `json:"recipeCuisine"`
	Keywords           StringOrList     `json:"keywords"`
	Nutrition          *SchemaNutrition `json:"nutrition"`
	Author             json.RawMessage  `json:"author"`
	Publisher          json.RawMessage  `json:"publisher"`
}

// SchemaNutrition はschema.org NutritionInformationノードを表す。
// 値はすべて "200 calories" のような自由テキスト。
type SchemaNutrition struct {
	Calories            string `json:"calories"`
	ProteinContent      string `json:"proteinContent"`
	CarbohydrateContent string `json:"carbohydrateContent"`
	FatContent          string `json:"fatContent"`
	SaturatedFatContent string `json:"saturatedFatContent"`
	FiberContent        string `json:"fiberContent"`
	SodiumContent       string `json:"sodiumContent"`
	SugarContent        string `json:"sugarContent"`
	CholesterolContent  string `json:"cholesterolContent"`
	ServingSize         string `json:"servingSize"`
}

// TypeTag はJSON-LDの@typeフィールドを表す。
// "Recipe" のような単一文字列と ["Recipe","NewsArticle"] のような配列の両方を受ける。
type TypeTag []string

// UnmarshalJSON は文字列・文字列配列のどちらの表記も受け付ける。
// どちらでもない値は空として扱う（エラーにしない）。
func (t *TypeTag) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = TypeTag{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = TypeTag(list)
		return nil
	}
	*t = nil
	return nil
}

// Contains は@typeに指定の型名が含まれるかを返す。
func (t TypeTag) Contains(name string) bool {
	for _, v := range t {
		if v == name {
			return true
		}
	}
	return false
}

// StringOrList は文字列または文字列配列のどちらでも表記されるフィールドを表す。
type StringOrList []string

// UnmarshalJSON は文字列・文字列配列・数値のいずれの表記も受け付ける。
// それ以外の値は空として扱う（エラーにしない）。
func (s *StringOrList) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = StringOrList{str}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = StringOrList(list)
		return nil
	}
	// recipeYieldが数値（例: 4）で表記されるサイトがある
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = StringOrList{n.String()}
		return nil
	}
	*s = nil
	return nil
}

// First は最初の要素を返す。空の場合は空文字列を返す。
func (s StringOrList) First() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
