package model

import "time"

// QueueStatus はスクレイプキューアイテムの状態を表す。
type QueueStatus string

const (
	// QueueStatusPending は処理待ちの状態。
	QueueStatusPending QueueStatus = "pending"
	// QueueStatusProcessing は処理中の状態。
	QueueStatusProcessing QueueStatus = "processing"
	// QueueStatusCompleted はスクレイプ成功の終端状態。
	QueueStatusCompleted QueueStatus = "completed"
	// QueueStatusFailed は試行回数上限到達による失敗の終端状態。
	QueueStatusFailed QueueStatus = "failed"
	// QueueStatusSkipped は手動スキップの終端状態。
	QueueStatusSkipped QueueStatus = "skipped"
)

// IsTerminal は終端状態（再処理されない状態）かどうかを返す。
func (s QueueStatus) IsTerminal() bool {
	return s == QueueStatusCompleted || s == QueueStatusFailed || s == QueueStatusSkipped
}

// QueueItem はスクレイプ待ちまたはスクレイプ済みの候補URLを表す。
// 監査証跡としてレコードは削除されず、状態遷移のみ行われる。
// 不変条件: Attempts <= MaxAttempts。
type QueueItem struct {
	ID           string
	URL          string // 一意キー
	Domain       string
	Status       QueueStatus
	Priority     int // 大きいほど先にスクレイプされる
	Attempts     int
	MaxAttempts  int
	LastError    string
	ScheduledFor time.Time // この時刻まではバッチ選択の対象にならない
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DefaultMaxAttempts はキューアイテムの試行回数上限のデフォルト値。
const DefaultMaxAttempts = 3

// SeedPriority は手動シード投入時の優先度。Discovery投入分（0）より先に処理される。
const SeedPriority = 10

// DomainConfig はスクレイプ対象ドメインのクロールポリシーを表す。
// 不変条件: RateLimitSeconds >= 0。
type DomainConfig struct {
	ID                 string
	Domain             string
	IsEnabled          bool
	RateLimitSeconds   int
	SitemapURL         string
	FeedURL            string // RSS/AtomフィードからのURL発見用（任意）
	SitemapLastFetched *time.Time
	SuccessfulScrapes  int
	FailedScrapes      int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
