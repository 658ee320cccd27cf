package services

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"forecast-api/pkg/models"
)

func testResult(sales float64) *models.PredictionResult {
	return &models.PredictionResult{
		PredictedSales: sales,
		Confidence:     80,
		ForecastData: models.ForecastData{
			Dates:       []string{"2024-06-04"},
			Predictions: []float64{sales},
			UpperBound:  []float64{sales * 1.15},
			LowerBound:  []float64{sales * 0.85},
		},
	}
}

func TestGetOrComputeCachesResult(t *testing.T) {
	cache := NewPredictionCache(time.Minute, 16)

	var calls int
	compute := func() (*models.PredictionResult, error) {
		calls++
		return testResult(5.0), nil
	}

	r1, hit1, err := cache.GetOrCompute("fp-1", compute)
	if err != nil {
		t.Fatal(err)
	}
	if hit1 {
		t.Error("first call should be a miss")
	}

	r2, hit2, err := cache.GetOrCompute("fp-1", compute)
	if err != nil {
		t.Fatal(err)
	}
	if !hit2 {
		t.Error("second call should be a hit")
	}
	if calls != 1 {
		t.Errorf("compute should run once, ran %d times", calls)
	}
	// ヒットは同一ポインタを共有する
	if r1 != r2 {
		t.Error("cache hit should return the shared result pointer")
	}
}

func TestGetOrComputeTTLExpiry(t *testing.T) {
	cache := NewPredictionCache(50*time.Millisecond, 16)

	var calls int
	compute := func() (*models.PredictionResult, error) {
		calls++
		return testResult(5.0), nil
	}

	cache.GetOrCompute("fp-1", compute)
	time.Sleep(120 * time.Millisecond)
	_, hit, _ := cache.GetOrCompute("fp-1", compute)

	if hit {
		t.Error("expired entry should not be a hit")
	}
	if calls != 2 {
		t.Errorf("compute should run again after expiry, ran %d times", calls)
	}
}

func TestLRUEviction(t *testing.T) {
	cache := NewPredictionCache(time.Minute, 2)

	for i := 0; i < 3; i++ {
		fp := fmt.Sprintf("fp-%d", i)
		cache.GetOrCompute(fp, func() (*models.PredictionResult, error) {
			return testResult(float64(i)), nil
		})
	}

	if cache.Len() != 2 {
		t.Errorf("Expected 2 entries after eviction, got %d", cache.Len())
	}

	// 最も古いfp-0は追い出されている
	var recomputed bool
	cache.GetOrCompute("fp-0", func() (*models.PredictionResult, error) {
		recomputed = true
		return testResult(0), nil
	})
	if !recomputed {
		t.Error("evicted entry should trigger recomputation")
	}

	_, _, evictions := cache.Stats()
	if evictions == 0 {
		t.Error("eviction counter should be non-zero")
	}
}

func TestGetOrComputeCollapsesConcurrentCallers(t *testing.T) {
	cache := NewPredictionCache(time.Minute, 16)

	var calls atomic.Int64
	compute := func() (*models.PredictionResult, error) {
		calls.Add(1)
		time.Sleep(30 * time.Millisecond) // 計算中に他の呼び出しを到着させる
		return testResult(7.0), nil
	}

	const workers = 20
	var wg sync.WaitGroup
	results := make([]*models.PredictionResult, workers)
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, _, err := cache.GetOrCompute("fp-shared", compute)
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = r
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("compute should run exactly once under concurrency, ran %d times", got)
	}
	for i, r := range results {
		if r != results[0] {
			t.Fatalf("caller %d received a different result pointer", i)
		}
	}
}

func TestComputeErrorIsNotCached(t *testing.T) {
	cache := NewPredictionCache(time.Minute, 16)

	var calls int
	failing := func() (*models.PredictionResult, error) {
		calls++
		return nil, fmt.Errorf("model down")
	}

	if _, _, err := cache.GetOrCompute("fp-err", failing); err == nil {
		t.Fatal("expected error from compute")
	}
	if _, _, err := cache.GetOrCompute("fp-err", failing); err == nil {
		t.Fatal("expected error from compute")
	}
	if calls != 2 {
		t.Errorf("failed computations must not be cached, compute ran %d times", calls)
	}
	if cache.Len() != 0 {
		t.Errorf("failed computation should leave no entry, got %d", cache.Len())
	}
}

func TestValidateEntryDetectsCorruption(t *testing.T) {
	good := &CacheEntry{Fingerprint: "fp", Result: testResult(5), CreatedAt: time.Now()}
	if err := validateEntry(good, "fp"); err != nil {
		t.Errorf("valid entry should pass, got %v", err)
	}

	if err := validateEntry(nil, "fp"); err == nil {
		t.Error("nil entry should fail the consistency check")
	}
	if err := validateEntry(&CacheEntry{Fingerprint: "fp"}, "fp"); err == nil {
		t.Error("entry without result should fail the consistency check")
	}
	if err := validateEntry(good, "other-fp"); err == nil {
		t.Error("fingerprint mismatch should fail the consistency check")
	}

	broken := &CacheEntry{Fingerprint: "fp", Result: testResult(5), CreatedAt: time.Now()}
	broken.Result = &models.PredictionResult{
		ForecastData: models.ForecastData{
			Dates:       []string{"2024-06-04", "2024-06-05"},
			Predictions: []float64{1},
			UpperBound:  []float64{1},
			LowerBound:  []float64{1},
		},
	}
	if err := validateEntry(broken, "fp"); err == nil {
		t.Error("misaligned series lengths should fail the consistency check")
	}
}
