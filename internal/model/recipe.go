// Package model はドメインモデルを定義する。
package model

import "time"

// Recipe は正規化されたレシピレコードを表す。
// source_urlをキーとしてUPSERTされ、再スクレイプ時には
// 子レコード（材料・手順・栄養）が全削除・全挿入で置き換えられる。
type Recipe struct {
	ID           string
	Slug         string
	Name         string
	Description  string
	PrepTime     *int // 分単位。未取得の場合はnil
	CookTime     *int
	TotalTime    *int
	Servings     *int
	ServingsUnit string
	Cuisine      []string
	Category     []string
	DietTags     []string
	SourceURL    string
	SourceDomain string
	SourceName   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ingredient はレシピの材料1行を表す。
// OriginalTextは元の文字列をそのまま保持し、Amount以降は
// 材料パーサーによるベストエフォートの解析結果を保持する。
type Ingredient struct {
	ID                string
	RecipeID          string
	Position          int // レシピ内の1始まりの表示順
	OriginalText      string
	Amount            *float64
	AmountMax         *float64 // 範囲指定（"3-4"等）の場合のみ設定される
	Unit              string
	UnitNormalized    string
	Item              string
	Preparation       string
	AffiliateCategory string
}

// Instruction はレシピの調理手順1ステップを表す。
type Instruction struct {
	ID         string
	RecipeID   string
	StepNumber int // 1始まり
	Text       string
}

// Nutrition はレシピの1人前あたりの栄養情報を表す。
// すべてのフィールドが未取得（nil）になりうる。
type Nutrition struct {
	ID                string
	RecipeID          string
	Calories          *float64
	FatGrams          *float64
	SaturatedFatGrams *float64
	CarbsGrams        *float64
	FiberGrams        *float64
	SugarGrams        *float64
	ProteinGrams      *float64
	SodiumMg          *float64
	CholesterolMg     *float64
	ServingSize       string
}

// RecipeWithDetails はレシピと子レコードをまとめた読み取り用ビュー。
type RecipeWithDetails struct {
	Recipe
	Ingredients  []Ingredient
	Instructions []Instruction
	Nutrition    *Nutrition
}

// ParsedIngredient は材料文字列の解析結果を表す。
// どのフィールドも解析できなかった場合は、元の文字列全体がItemになる。
type ParsedIngredient struct {
	Amount         *float64
	AmountMax      *float64
	Unit           string
	UnitNormalized string
	Item           string
	Preparation    string
}
