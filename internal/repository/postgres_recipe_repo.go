package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/simmer/internal/model"
)

// PostgresRecipeRepo はPostgreSQLを使用したレシピリポジトリ。
type PostgresRecipeRepo struct {
	db *sql.DB
}

// NewPostgresRecipeRepo はPostgresRecipeRepoを生成する。
func NewPostgresRecipeRepo(db *sql.DB) *PostgresRecipeRepo {
	return &PostgresRecipeRepo{db: db}
}

// Upsert はレシピと子レコード一式を単一トランザクションで保存する。
// source_urlの衝突時はレシピ本体を更新し、材料・手順・栄養は
// 全削除・全挿入で置き換える。部分的なマージはしない。
func (r *PostgresRecipeRepo) Upsert(ctx context.Context, recipe *model.Recipe, ingredients []model.Ingredient, instructions []model.Instruction, nutrition *model.Nutrition) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	var recipeID string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO recipes (id, slug, name, description, prep_time, cook_time, total_time,
		                      servings, servings_unit, cuisine, category, diet_tags,
		                      source_url, source_domain, source_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), now())
		 ON CONFLICT (source_url) DO UPDATE SET
		   slug = EXCLUDED.slug,
		   name = EXCLUDED.name,
		   description = EXCLUDED.description,
		   prep_time = EXCLUDED.prep_time,
		   cook_time = EXCLUDED.cook_time,
		   total_time = EXCLUDED.total_time,
		   servings = EXCLUDED.servings,
		   servings_unit = EXCLUDED.servings_unit,
		   cuisine = EXCLUDED.cuisine,
		   category = EXCLUDED.category,
		   diet_tags = EXCLUDED.diet_tags,
		   source_domain = EXCLUDED.source_domain,
		   source_name = EXCLUDED.source_name,
		   updated_at = now()
		 RETURNING id`,
		uuid.New().String(), recipe.Slug, recipe.Name, nullString(recipe.Description),
		recipe.PrepTime, recipe.CookTime, recipe.TotalTime,
		recipe.Servings, nullString(recipe.ServingsUnit),
		pq.Array(recipe.Cuisine), pq.Array(recipe.Category), pq.Array(recipe.DietTags),
		recipe.SourceURL, recipe.SourceDomain, nullString(recipe.SourceName),
	).Scan(&recipeID)
	if err != nil {
		return "", fmt.Errorf("レシピの保存に失敗しました: %w", err)
	}

	// 子レコードの置き換え: 削除してから挿入する
	for _, table := range []string{"ingredients", "instructions", "nutrition"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE recipe_id = $1", table), recipeID,
		); err != nil {
			return "", fmt.Errorf("%sの削除に失敗しました: %w", table, err)
		}
	}

	for _, ing := range ingredients {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ingredients (id, recipe_id, position, original_text, amount, amount_max,
			                          unit, unit_normalized, item, preparation, affiliate_category)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			uuid.New().String(), recipeID, ing.Position, ing.OriginalText,
			ing.Amount, ing.AmountMax,
			nullString(ing.Unit), nullString(ing.UnitNormalized),
			nullString(ing.Item), nullString(ing.Preparation), nullString(ing.AffiliateCategory),
		)
		if err != nil {
			return "", fmt.Errorf("材料の保存に失敗しました: %w", err)
		}
	}

	for _, step := range instructions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO instructions (id, recipe_id, step_number, text)
			 VALUES ($1, $2, $3, $4)`,
			uuid.New().String(), recipeID, step.StepNumber, step.Text,
		)
		if err != nil {
			return "", fmt.Errorf("手順の保存に失敗しました: %w", err)
		}
	}

	if nutrition != nil {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO nutrition (id, recipe_id, calories, fat_grams, saturated_fat_grams,
			                        carbs_grams, fiber_grams, sugar_grams, protein_grams,
			                        sodium_mg, cholesterol_mg, serving_size)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			uuid.New().String(), recipeID,
			nutrition.Calories, nutrition.FatGrams, nutrition.SaturatedFatGrams,
			nutrition.CarbsGrams, nutrition.FiberGrams, nutrition.SugarGrams,
			nutrition.ProteinGrams, nutrition.SodiumMg, nutrition.CholesterolMg,
			nullString(nutrition.ServingSize),
		)
		if err != nil {
			return "", fmt.Errorf("栄養情報の保存に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return recipeID, nil
}

// FindBySlug は指定スラッグのレシピを子レコード込みで取得する。見つからない場合はnilを返す。
func (r *PostgresRecipeRepo) FindBySlug(ctx context.Context, slug string) (*model.RecipeWithDetails, error) {
	recipe, err := r.scanRecipe(r.db.QueryRowContext(ctx,
		selectRecipeColumns+` FROM recipes WHERE slug = $1`, slug,
	))
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, nil
	}

	details := &model.RecipeWithDetails{Recipe: *recipe}

	if details.Ingredients, err = r.listIngredients(ctx, recipe.ID); err != nil {
		return nil, err
	}
	if details.Instructions, err = r.listInstructions(ctx, recipe.ID); err != nil {
		return nil, err
	}
	if details.Nutrition, err = r.findNutrition(ctx, recipe.ID); err != nil {
		return nil, err
	}

	return details, nil
}

// List は更新日時の新しい順にレシピ本体を取得する。
func (r *PostgresRecipeRepo) List(ctx context.Context, limit int) ([]*model.Recipe, error) {
	rows, err := r.db.QueryContext(ctx,
		selectRecipeColumns+` FROM recipes ORDER BY updated_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("レシピ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var recipes []*model.Recipe
	for rows.Next() {
		recipe, err := r.scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
	}
	return recipes, rows.Err()
}

// Count は保存済みレシピの総数を返す。
func (r *PostgresRecipeRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("レシピ数の取得に失敗しました: %w", err)
	}
	return count, nil
}

const selectRecipeColumns = `SELECT id, slug, name, description, prep_time, cook_time, total_time,
       servings, servings_unit, cuisine, category, diet_tags,
       source_url, source_domain, source_name, created_at, updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRecipeRepo) scanRecipe(row rowScanner) (*model.Recipe, error) {
	recipe := &model.Recipe{}
	var description, servingsUnit, sourceName sql.NullString

	err := row.Scan(
		&recipe.ID, &recipe.Slug, &recipe.Name, &description,
		&recipe.PrepTime, &recipe.CookTime, &recipe.TotalTime,
		&recipe.Servings, &servingsUnit,
		pq.Array(&recipe.Cuisine), pq.Array(&recipe.Category), pq.Array(&recipe.DietTags),
		&recipe.SourceURL, &recipe.SourceDomain, &sourceName,
		&recipe.CreatedAt, &recipe.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("レシピの取得に失敗しました: %w", err)
	}

	recipe.Description = nullStringValue(description)
	recipe.ServingsUnit = nullStringValue(servingsUnit)
	recipe.SourceName = nullStringValue(sourceName)
	return recipe, nil
}

func (r *PostgresRecipeRepo) listIngredients(ctx context.Context, recipeID string) ([]model.Ingredient, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, recipe_id, position, original_text, amount, amount_max,
		        unit, unit_normalized, item, preparation, affiliate_category
		 FROM ingredients WHERE recipe_id = $1 ORDER BY position`,
		recipeID,
	)
	if err != nil {
		return nil, fmt.Errorf("材料の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ingredients []model.Ingredient
	for rows.Next() {
		var ing model.Ingredient
		var unit, unitNormalized, item, preparation, affiliateCategory sql.NullString
		err := rows.Scan(
			&ing.ID, &ing.RecipeID, &ing.Position, &ing.OriginalText,
			&ing.Amount, &ing.AmountMax,
			&unit, &unitNormalized, &item, &preparation, &affiliateCategory,
		)
		if err != nil {
			return nil, fmt.Errorf("材料の取得に失敗しました: %w", err)
		}
		ing.Unit = nullStringValue(unit)
		ing.UnitNormalized = nullStringValue(unitNormalized)
		ing.Item = nullStringValue(item)
		ing.Preparation = nullStringValue(preparation)
		ing.AffiliateCategory = nullStringValue(affiliateCategory)
		ingredients = append(ingredients, ing)
	}
	return ingredients, rows.Err()
}

func (r *PostgresRecipeRepo) listInstructions(ctx context.Context, recipeID string) ([]model.Instruction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, recipe_id, step_number, text
		 FROM instructions WHERE recipe_id = $1 ORDER BY step_number`,
		recipeID,
	)
	if err != nil {
		return nil, fmt.Errorf("手順の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var instructions []model.Instruction
	for rows.Next() {
		var step model.Instruction
		if err := rows.Scan(&step.ID, &step.RecipeID, &step.StepNumber, &step.Text); err != nil {
			return nil, fmt.Errorf("手順の取得に失敗しました: %w", err)
		}
		instructions = append(instructions, step)
	}
	return instructions, rows.Err()
}

func (r *PostgresRecipeRepo) findNutrition(ctx context.Context, recipeID string) (*model.Nutrition, error) {
	n := &model.Nutrition{}
	var servingSize sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, recipe_id, calories, fat_grams, saturated_fat_grams,
		        carbs_grams, fiber_grams, sugar_grams, protein_grams,
		        sodium_mg, cholesterol_mg, serving_size
		 FROM nutrition WHERE recipe_id = $1`,
		recipeID,
	).Scan(
		&n.ID, &n.RecipeID, &n.Calories, &n.FatGrams, &n.SaturatedFatGrams,
		&n.CarbsGrams, &n.FiberGrams, &n.SugarGrams, &n.ProteinGrams,
		&n.SodiumMg, &n.CholesterolMg, &servingSize,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("栄養情報の取得に失敗しました: %w", err)
	}

	n.ServingSize = nullStringValue(servingSize)
	return n, nil
}

// nullString は空文字列をNULLとして扱うsql.NullStringを返す。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列値を取り出す。NULLは空文字列になる。
func nullStringValue(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}
