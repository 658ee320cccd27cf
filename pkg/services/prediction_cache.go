package services

import (
	"sync/atomic"
	"time"

	"forecast-api/pkg/models"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// CacheEntry キャッシュに保持する1件の予測結果
type CacheEntry struct {
	Fingerprint string                   // 正規化済みリクエストのハッシュ
	Result      *models.PredictionResult // 共有される読み取り専用の結果
	CreatedAt   time.Time
}

// PredictionCache フィンガープリントをキーとする予測結果キャッシュ。
// TTLと最大件数（LRU）で保持量を制限し、同一キーの同時計算は1回に集約する。
type PredictionCache struct {
	entries *expirable.LRU[string, *CacheEntry]
	group   singleflight.Group

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewPredictionCache 新しいPredictionCacheを作成
func NewPredictionCache(ttl time.Duration, maxEntries int) *PredictionCache {
	pc := &PredictionCache{}
	pc.entries = expirable.NewLRU[string, *CacheEntry](maxEntries,
		func(key string, value *CacheEntry) {
			pc.evictions.Add(1)
		}, ttl)
	return pc
}

// GetOrCompute フィンガープリントに対応する結果を返す。
// 有効なエントリがあればそれを返し、なければcomputeを実行して格納する。
// 同一フィンガープリントへの同時呼び出しはcomputeを1回だけ実行し、結果を共有する。
// 異なるフィンガープリント同士は互いにブロックしない。
func (pc *PredictionCache) GetOrCompute(fingerprint string, compute func() (*models.PredictionResult, error)) (*models.PredictionResult, bool, error) {
	if result := pc.lookup(fingerprint); result != nil {
		pc.hits.Add(1)
		return result, true, nil
	}
	pc.misses.Add(1)

	v, err, _ := pc.group.Do(fingerprint, func() (interface{}, error) {
		// 待機中に先行の計算が完了している場合がある
		if result := pc.lookup(fingerprint); result != nil {
			return result, nil
		}
		result, err := compute()
		if err != nil {
			return nil, err
		}
		pc.entries.Add(fingerprint, &CacheEntry{
			Fingerprint: fingerprint,
			Result:      result,
			CreatedAt:   time.Now(),
		})
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*models.PredictionResult), false, nil
}

// lookup 有効なエントリのみを返す。整合性チェックに失敗したエントリは
// 破損として削除し、ミス扱いにする（致命的エラーにはしない）。
func (pc *PredictionCache) lookup(fingerprint string) *models.PredictionResult {
	entry, ok := pc.entries.Get(fingerprint)
	if !ok {
		return nil
	}
	if err := validateEntry(entry, fingerprint); err != nil {
		pc.entries.Remove(fingerprint)
		return nil
	}
	return entry.Result
}

// validateEntry エントリの内部整合性を検証する
func validateEntry(entry *CacheEntry, fingerprint string) error {
	if entry == nil || entry.Result == nil {
		return models.ErrCacheCorrupt
	}
	if entry.Fingerprint != fingerprint {
		return models.ErrCacheCorrupt
	}
	fd := entry.Result.ForecastData
	if len(fd.Dates) != len(fd.Predictions) ||
		len(fd.Dates) != len(fd.UpperBound) ||
		len(fd.Dates) != len(fd.LowerBound) {
		return models.ErrCacheCorrupt
	}
	return nil
}

// Len 現在のエントリ数を返す
func (pc *PredictionCache) Len() int {
	return pc.entries.Len()
}

// Stats ヒット・ミス・追い出しの累計を返す
func (pc *PredictionCache) Stats() (hits, misses, evictions uint64) {
	return pc.hits.Load(), pc.misses.Load(), pc.evictions.Load()
}

// Purge 全エントリを破棄する（テスト用）
func (pc *PredictionCache) Purge() {
	pc.entries.Purge()
}
