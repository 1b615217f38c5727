package scraper

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter はドメイン別の最小リクエスト間隔を強制する。
// 同一ドメインへの連続リクエストは設定間隔以上の時間で分離される。
// 状態はプロセスメモリ内のみで保持し、永続的な順序付けはキューの
// scheduled_forが担う。
type Limiter struct {
	mu              sync.Mutex
	limiters        map[string]*rate.Limiter
	defaultInterval time.Duration
}

// NewLimiter はLimiterの新しいインスタンスを生成する。
// defaultIntervalはドメイン別設定が無い場合の最小間隔。
func NewLimiter(defaultInterval time.Duration) *Limiter {
	return &Limiter{
		limiters:        make(map[string]*rate.Limiter),
		defaultInterval: defaultInterval,
	}
}

// limiterFor はドメインキーに対応するrate.Limiterを返す。
// 初回アクセス時に生成され、以後はプロセス終了まで再利用される。
// 間隔の変更は既存エントリには反映されない（ワーカーの1バッチ内では
// 設定は不変なので問題にならない）。
func (l *Limiter) limiterFor(domain string, interval time.Duration) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[domain]; ok {
		return lim
	}
	if interval <= 0 {
		interval = l.defaultInterval
	}
	lim := rate.NewLimiter(rate.Every(interval), 1)
	l.limiters[domain] = lim
	return lim
}

// Throttle は同一ドメインの前回ディスパッチから最小間隔が経過するまで
// ブロックする。intervalが0以下の場合はデフォルト間隔を使う。
// 同一ドメインの並行呼び出しは直列化され、二重の即時ディスパッチは起きない。
func (l *Limiter) Throttle(ctx context.Context, domain string, interval time.Duration) error {
	return l.limiterFor(domain, interval).Wait(ctx)
}

// WaitTime は指定ドメインの残り待ち時間をブロックせずに返す。
// 診断用であり、この値に基づく制御はしないこと（TOCTOU）。
func (l *Limiter) WaitTime(domain string) time.Duration {
	l.mu.Lock()
	lim, ok := l.limiters[domain]
	l.mu.Unlock()
	if !ok {
		return 0
	}

	r := lim.Reserve()
	d := r.Delay()
	r.Cancel()
	return d
}
