package services

import (
	"context"
	"errors"
	"math"
	"time"

	"forecast-api/pkg/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// 曜日ごとの需要プロファイル。週末に需要が上がる小売の典型的な形を固定値で持つ。
// 乱数を使わないため、同じ予測値からは常に同じ日次系列が得られる。
var weekdayProfile = [7]float64{
	time.Sunday:    1.15,
	time.Monday:    0.95,
	time.Tuesday:   0.90,
	time.Wednesday: 0.92,
	time.Thursday:  0.98,
	time.Friday:    1.10,
	time.Saturday:  1.20,
}

// フォールバック予測に付与するバージョンタグ
const fallbackVersion = "heuristic-v1"

// PredictionServiceOptions PredictionServiceの依存と設定
type PredictionServiceOptions struct {
	Codec            *FeatureCodec
	Cache            *PredictionCache
	Stats            *StatsTracker
	Insights         *InsightEngine
	Predictor        Predictor // nilの場合はフォールバック運用
	ModelInfo        models.ModelInfo
	ConfidenceSpread float64 // 信頼区間の対称スプレッド
	BatchConcurrency int     // バッチ予測のワーカー数上限
	FallbackEnabled  bool    // Predictor失敗時にヒューリスティックへ切り替えるか
}

// PredictionService 予測パイプラインのオーケストレータ。
// 検証 → フィンガープリント → キャッシュ → Predictor → 信頼区間・売上計算 →
// インサイト導出 → キャッシュ格納 → 統計記録、の順序は固定。
type PredictionService struct {
	codec     *FeatureCodec
	cache     *PredictionCache
	stats     *StatsTracker
	insights  *InsightEngine
	predictor Predictor
	modelInfo models.ModelInfo

	confidenceSpread float64
	batchConcurrency int
	fallbackEnabled  bool

	startedAt time.Time
	now       func() time.Time
}

// NewPredictionService 新しいPredictionServiceを作成
func NewPredictionService(opts PredictionServiceOptions) *PredictionService {
	spread := opts.ConfidenceSpread
	if spread <= 0 {
		spread = 0.15
	}
	concurrency := opts.BatchConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &PredictionService{
		codec:            opts.Codec,
		cache:            opts.Cache,
		stats:            opts.Stats,
		insights:         opts.Insights,
		predictor:        opts.Predictor,
		modelInfo:        opts.ModelInfo,
		confidenceSpread: spread,
		batchConcurrency: concurrency,
		fallbackEnabled:  opts.FallbackEnabled,
		startedAt:        time.Now(),
		now:              time.Now,
	}
}

// Predict 単一リクエストの予測を実行する。
// 検証エラーはキャッシュにもPredictorにも統計にも触れずに返す。
func (s *PredictionService) Predict(ctx context.Context, req models.PredictionRequest) (*models.PredictionResult, error) {
	norm, err := s.codec.Normalize(req)
	if err != nil {
		return nil, err
	}
	fingerprint := s.codec.Fingerprint(norm)

	result, hit, err := s.cache.GetOrCompute(fingerprint, func() (*models.PredictionResult, error) {
		return s.compute(ctx, norm)
	})
	if err != nil {
		return nil, err
	}

	// 統計の加算は成功した予測1件につき1回（キャッシュヒットも1回の予測）
	s.stats.RecordPrediction()

	log.Debug().
		Str("item_id", norm.ItemID).
		Str("store_id", norm.StoreID).
		Bool("cache_hit", hit).
		Bool("fallback", result.Fallback).
		Float64("predicted_sales", result.PredictedSales).
		Msg("prediction served")

	return result, nil
}

// compute キャッシュミス時の実計算。Predictor呼び出しはロックを持たずに行われる。
func (s *PredictionService) compute(ctx context.Context, norm models.NormalizedRequest) (*models.PredictionResult, error) {
	features := s.codec.Features(norm, s.now())

	prediction, fallback, version, err := s.invokePredictor(ctx, norm, features)
	if err != nil {
		return nil, err
	}
	if prediction < 0 {
		prediction = 0
	}

	forecast := s.buildForecast(prediction, norm.DaysAhead)
	confidence := s.confidenceFor(forecast.Predictions)
	revenueImpact := prediction * norm.SellPrice

	return &models.PredictionResult{
		PredictedSales: prediction,
		Confidence:     confidence,
		RevenueImpact:  revenueImpact,
		Fallback:       fallback,
		ModelVersion:   version,
		ForecastData:   forecast,
		Insights:       s.insights.Derive(prediction, confidence, revenueImpact),
	}, nil
}

// invokePredictor Predictorを呼び出し、失敗時は設定に応じてフォールバックする
func (s *PredictionService) invokePredictor(ctx context.Context, norm models.NormalizedRequest, features models.FeatureVector) (prediction float64, fallback bool, version string, err error) {
	if s.predictor == nil {
		if !s.fallbackEnabled {
			return 0, false, "", models.NewModelError(models.CodeModelUnavailable, "no model loaded", ErrModelUnavailable)
		}
		log.Warn().Str("item_id", norm.ItemID).Msg("no model loaded, using fallback prediction")
		return HeuristicEstimate(norm), true, fallbackVersion, nil
	}

	raw, perr := s.predictor.Predict(ctx, features)
	if perr == nil && (math.IsNaN(raw) || math.IsInf(raw, 0)) {
		perr = models.NewModelError(models.CodeInvalidOutput, "model returned a non-finite value", nil)
	}
	if perr != nil {
		if s.fallbackEnabled {
			log.Warn().Err(perr).Str("item_id", norm.ItemID).Msg("predictor failed, using fallback prediction")
			return HeuristicEstimate(norm), true, fallbackVersion, nil
		}
		if models.IsModel(perr) {
			return 0, false, "", perr
		}
		return 0, false, "", models.NewModelError(models.CodeModelUnavailable, "predictor invocation failed", perr)
	}
	return raw, false, s.predictor.Version(), nil
}

// buildForecast 日付に揃えた日次系列と信頼区間を構築する。
// 区間は各予測点に固定の対称スプレッドを適用したもの（学習値ではない）。
func (s *PredictionService) buildForecast(prediction float64, horizon int) models.ForecastData {
	forecast := models.ForecastData{
		Dates:       make([]string, horizon),
		Predictions: make([]float64, horizon),
		UpperBound:  make([]float64, horizon),
		LowerBound:  make([]float64, horizon),
	}
	start := s.now()
	for i := 0; i < horizon; i++ {
		date := start.AddDate(0, 0, i+1)
		daily := prediction * weekdayProfile[date.Weekday()]
		forecast.Dates[i] = date.Format("2006-01-02")
		forecast.Predictions[i] = daily
		forecast.UpperBound[i] = daily * (1 + s.confidenceSpread)
		forecast.LowerBound[i] = maxf(0, daily*(1-s.confidenceSpread))
	}
	return forecast
}

// confidenceFor 日次系列のばらつきから信頼度（70〜95）を計算する
func (s *PredictionService) confidenceFor(series []float64) float64 {
	if len(series) == 0 {
		return lowConfidenceThreshold
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	mean := sum / float64(len(series))
	if mean <= 0 {
		return lowConfidenceThreshold
	}

	var variance float64
	for _, v := range series {
		variance += math.Pow(v-mean, 2)
	}
	variance /= float64(len(series))
	stdDev := math.Sqrt(variance)

	confidence := 90.0 - stdDev/mean*100.0
	if confidence < 70.0 {
		confidence = 70.0
	} else if confidence > 95.0 {
		confidence = 95.0
	}
	return math.Round(confidence*10) / 10
}

// PredictBatch 複数リクエストを独立に予測する。
// 1項目の失敗はバッチ全体を失敗させず、結果は入力順に並ぶ。
// 同時実行数はワーカープール方式で制限する。
func (s *PredictionService) PredictBatch(ctx context.Context, reqs []models.PredictionRequest) []models.BatchPredictionItem {
	results := make([]models.BatchPredictionItem, len(reqs))

	var g errgroup.Group
	g.SetLimit(s.batchConcurrency)

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			item := models.BatchPredictionItem{
				Index:   i,
				ItemID:  req.ItemID,
				StoreID: req.StoreID,
			}
			result, err := s.Predict(ctx, req)
			if err != nil {
				item.Error = batchError(err)
			} else {
				item.Result = result
			}
			results[i] = item
			return nil
		})
	}
	// g.Goは常にnilを返すためWaitのエラーは無視できる
	_ = g.Wait()

	return results
}

func asValidation(err error) (*models.ValidationError, bool) {
	var ve *models.ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

func asModel(err error) (*models.ModelError, bool) {
	var me *models.ModelError
	ok := errors.As(err, &me)
	return me, ok
}

// batchError エラーをバッチ項目用の構造に変換する
func batchError(err error) *models.BatchItemError {
	if ve, ok := asValidation(err); ok {
		return &models.BatchItemError{Kind: "validation", Code: ve.Code, Message: ve.Error()}
	}
	if me, ok := asModel(err); ok {
		return &models.BatchItemError{Kind: "model", Code: me.Code, Message: me.Error()}
	}
	return &models.BatchItemError{Kind: "model", Code: models.CodeModelUnavailable, Message: err.Error()}
}

// Stats 利用統計のスナップショットを返す
func (s *PredictionService) Stats() models.StatsSnapshot {
	return s.stats.Snapshot()
}

// ModelInfo モデルの静的メタデータを返す
func (s *PredictionService) ModelInfo() models.ModelInfo {
	return s.modelInfo
}

// ModelLoaded 学習済みモデルがロードされているかを返す
func (s *PredictionService) ModelLoaded() bool {
	return s.predictor != nil
}

// Health サービスの稼働状態を返す
func (s *PredictionService) Health() models.HealthStatus {
	return models.HealthStatus{
		Status:        "healthy",
		ModelLoaded:   s.predictor != nil,
		CacheSize:     s.cache.Len(),
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
	}
}
