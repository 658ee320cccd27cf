package services

import (
	"sync"
	"time"

	"forecast-api/pkg/models"
)

// StatsTracker プロセス全体の利用統計。
// 累計カウンタと日次カウンタを持ち、日付が変わると日次カウンタを1回だけリセットする。
type StatsTracker struct {
	mu        sync.Mutex
	total     int64
	daily     int64
	lastReset string // YYYY-MM-DD

	accuracy float64 // 静的設定値。オンラインでは再計算しない。

	// テストで日付境界を差し替えるためのフック
	now func() time.Time
}

// NewStatsTracker 新しいStatsTrackerを作成
func NewStatsTracker(accuracy float64) *StatsTracker {
	t := &StatsTracker{
		accuracy: accuracy,
		now:      time.Now,
	}
	t.lastReset = t.now().Format("2006-01-02")
	return t
}

// RecordPrediction 成功した予測1件を記録する。
// 日付境界のチェックとリセットはインクリメントと同一のロック内で行うため、
// 二重リセットやカウント漏れは発生しない。
func (t *StatsTracker) RecordPrediction() {
	today := t.now().Format("2006-01-02")

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lastReset != today {
		t.daily = 0
		t.lastReset = today
	}
	t.total++
	t.daily++
}

// Snapshot 一貫性のある時点のコピーを返す。
// ロック保持は数個の整数をコピーする間のみ。
func (t *StatsTracker) Snapshot() models.StatsSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return models.StatsSnapshot{
		TotalPredictions: t.total,
		DailyPredictions: t.daily,
		LastReset:        t.lastReset,
		ModelAccuracy:    t.accuracy,
	}
}
