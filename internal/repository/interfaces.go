// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/simmer/internal/model"
)

// RecipeRepository はレシピデータの永続化インターフェース。
type RecipeRepository interface {
	// Upsert はレシピと子レコード一式を単一トランザクションで保存する。
	// source_urlをキーとして衝突時は本体を更新し、子レコード
	// （材料・手順・栄養）は全削除・全挿入で置き換える。
	// 保存されたレシピのIDを返す。
	Upsert(ctx context.Context, recipe *model.Recipe, ingredients []model.Ingredient, instructions []model.Instruction, nutrition *model.Nutrition) (string, error)

	// FindBySlug は指定スラッグのレシピを子レコード込みで取得する。
	// 見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.RecipeWithDetails, error)

	// List は更新日時の新しい順にレシピ本体を取得する。
	List(ctx context.Context, limit int) ([]*model.Recipe, error)

	// Count は保存済みレシピの総数を返す。
	Count(ctx context.Context) (int, error)
}

// QueueRepository はスクレイプキューの永続化インターフェース。
type QueueRepository interface {
	// Enqueue はURLをpending状態でキューに追加する。
	// 既に同じURLが存在する場合は何もせずfalseを返す。
	Enqueue(ctx context.Context, url, domain string, priority int) (bool, error)

	// ListDue は処理期限が到来したpendingアイテムを取得する。
	// priority降順・scheduled_for昇順で最大limit件。
	// 行ロックは取らない。呼び出しの重複はstatusとattemptsの更新で
	// 無駄な再処理を抑える前提（ワーカー起動は通常重ならない）。
	ListDue(ctx context.Context, limit int) ([]*model.QueueItem, error)

	// MarkProcessing はアイテムをprocessingにし、attemptsを加算する。
	// フェッチ前に呼ぶことで、処理中のクラッシュでも試行回数が残る。
	MarkProcessing(ctx context.Context, id string) error

	// MarkCompleted はアイテムをcompleted（終端）にする。
	MarkCompleted(ctx context.Context, id string) error

	// MarkRetry はアイテムをpendingに戻し、次回処理時刻とエラーを記録する。
	MarkRetry(ctx context.Context, id, lastError string, scheduledFor time.Time) error

	// MarkFailed はアイテムをfailed（終端）にする。
	MarkFailed(ctx context.Context, id, lastError string) error

	// FilterKnown は既知のURL（キュー登録済み、またはスクレイプ済み）を
	// 除外し、未知のURLだけを返す。
	FilterKnown(ctx context.Context, urls []string) ([]string, error)

	// CountByStatus はステータスごとのアイテム数を返す。
	CountByStatus(ctx context.Context) (map[model.QueueStatus]int, error)
}

// DomainRepository はドメイン別クロール設定の永続化インターフェース。
type DomainRepository interface {
	// FindByDomain は指定ドメインの設定を取得する。見つからない場合はnilを返す。
	FindByDomain(ctx context.Context, domain string) (*model.DomainConfig, error)

	// ListEnabled は有効なドメイン設定をすべて取得する。
	ListEnabled(ctx context.Context) ([]*model.DomainConfig, error)

	// Upsert はドメイン設定を作成または更新する。
	Upsert(ctx context.Context, config *model.DomainConfig) error

	// TouchSitemapFetched はsitemap_last_fetchedを現在時刻に更新する。
	TouchSitemapFetched(ctx context.Context, domain string) error

	// IncrementSuccess は成功カウンターを加算する。未登録ドメインは無視される。
	IncrementSuccess(ctx context.Context, domain string) error

	// IncrementFailure は失敗カウンターを加算する。未登録ドメインは無視される。
	IncrementFailure(ctx context.Context, domain string) error
}
