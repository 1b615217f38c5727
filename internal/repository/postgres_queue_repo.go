package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/simmer/internal/model"
)

// PostgresQueueRepo はPostgreSQLを使用したスクレイプキューリポジトリ。
type PostgresQueueRepo struct {
	db *sql.DB
}

// NewPostgresQueueRepo はPostgresQueueRepoを生成する。
func NewPostgresQueueRepo(db *sql.DB) *PostgresQueueRepo {
	return &PostgresQueueRepo{db: db}
}

// Enqueue はURLをpending状態でキューに追加する。
// urlのUNIQUE制約との衝突時は何もせずfalseを返す。
func (r *PostgresQueueRepo) Enqueue(ctx context.Context, url, domain string, priority int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO scrape_queue (id, url, domain, status, priority, attempts, max_attempts,
		                           scheduled_for, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 0, $6, now(), now(), now())
		 ON CONFLICT (url) DO NOTHING`,
		uuid.New().String(), url, domain, model.QueueStatusPending, priority, model.DefaultMaxAttempts,
	)
	if err != nil {
		return false, fmt.Errorf("キューへの追加に失敗しました: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("キューへの追加結果の確認に失敗しました: %w", err)
	}
	return inserted > 0, nil
}

// ListDue は処理期限が到来したpendingアイテムを取得する。
// priority降順・scheduled_for昇順で最大limit件。
func (r *PostgresQueueRepo) ListDue(ctx context.Context, limit int) ([]*model.QueueItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, url, domain, status, priority, attempts, max_attempts,
		        last_error, scheduled_for, completed_at, created_at, updated_at
		 FROM scrape_queue
		 WHERE status = $1 AND scheduled_for <= now() AND attempts < max_attempts
		 ORDER BY priority DESC, scheduled_for ASC
		 LIMIT $2`,
		model.QueueStatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("キューの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []*model.QueueItem
	for rows.Next() {
		item := &model.QueueItem{}
		var lastError sql.NullString
		var completedAt sql.NullTime
		err := rows.Scan(
			&item.ID, &item.URL, &item.Domain, &item.Status,
			&item.Priority, &item.Attempts, &item.MaxAttempts,
			&lastError, &item.ScheduledFor, &completedAt,
			&item.CreatedAt, &item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("キューアイテムの読み取りに失敗しました: %w", err)
		}
		item.LastError = nullStringValue(lastError)
		if completedAt.Valid {
			item.CompletedAt = &completedAt.Time
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkProcessing はアイテムをprocessingにし、attemptsを加算する。
func (r *PostgresQueueRepo) MarkProcessing(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scrape_queue
		 SET status = $1, attempts = attempts + 1, updated_at = now()
		 WHERE id = $2`,
		model.QueueStatusProcessing, id,
	)
	if err != nil {
		return fmt.Errorf("processing状態への更新に失敗しました: %w", err)
	}
	return nil
}

// MarkCompleted はアイテムをcompletedにする。
func (r *PostgresQueueRepo) MarkCompleted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scrape_queue
		 SET status = $1, last_error = NULL, completed_at = now(), updated_at = now()
		 WHERE id = $2`,
		model.QueueStatusCompleted, id,
	)
	if err != nil {
		return fmt.Errorf("completed状態への更新に失敗しました: %w", err)
	}
	return nil
}

// MarkRetry はアイテムをpendingに戻し、次回処理時刻とエラーを記録する。
func (r *PostgresQueueRepo) MarkRetry(ctx context.Context, id, lastError string, scheduledFor time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scrape_queue
		 SET status = $1, last_error = $2, scheduled_for = $3, updated_at = now()
		 WHERE id = $4`,
		model.QueueStatusPending, lastError, scheduledFor, id,
	)
	if err != nil {
		return fmt.Errorf("pending状態への更新に失敗しました: %w", err)
	}
	return nil
}

// MarkFailed はアイテムをfailed（終端）にする。
func (r *PostgresQueueRepo) MarkFailed(ctx context.Context, id, lastError string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scrape_queue
		 SET status = $1, last_error = $2, updated_at = now()
		 WHERE id = $3`,
		model.QueueStatusFailed, lastError, id,
	)
	if err != nil {
		return fmt.Errorf("failed状態への更新に失敗しました: %w", err)
	}
	return nil
}

// FilterKnown は既知のURL（キュー登録済み、またはスクレイプ済みレシピの
// source_url）を除外し、未知のURLだけを入力順で返す。
func (r *PostgresQueueRepo) FilterKnown(ctx context.Context, urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT url FROM scrape_queue WHERE url = ANY($1)
		 UNION
		 SELECT source_url FROM recipes WHERE source_url = ANY($1)`,
		pq.Array(urls),
	)
	if err != nil {
		return nil, fmt.Errorf("既知URLの問い合わせに失敗しました: %w", err)
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("既知URLの読み取りに失敗しました: %w", err)
		}
		known[url] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var unknown []string
	for _, url := range urls {
		if !known[url] {
			unknown = append(unknown, url)
		}
	}
	return unknown, nil
}

// CountByStatus はステータスごとのアイテム数を返す。
func (r *PostgresQueueRepo) CountByStatus(ctx context.Context) (map[model.QueueStatus]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM scrape_queue GROUP BY status`,
	)
	if err != nil {
		return nil, fmt.Errorf("キュー統計の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.QueueStatus]int)
	for rows.Next() {
		var status model.QueueStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("キュー統計の読み取りに失敗しました: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
