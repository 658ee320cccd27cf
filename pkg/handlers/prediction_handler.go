package handlers

import (
	"errors"
	"net/http"
	"time"

	"forecast-api/pkg/models"
	"forecast-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// PredictionHandler 予測APIのハンドラー
type PredictionHandler struct {
	service *services.PredictionService
}

// NewPredictionHandler 新しい予測ハンドラーを作成
func NewPredictionHandler(service *services.PredictionService) *PredictionHandler {
	return &PredictionHandler{service: service}
}

// Predict 単一の予測を実行
func (ph *PredictionHandler) Predict(c *gin.Context) {
	var request models.PredictionRequest

	// リクエストボディをバインド
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "リクエストの解析に失敗しました: " + err.Error(),
			"code":  "invalid_request",
		})
		return
	}

	result, err := ph.service.Predict(c.Request.Context(), request)
	if err != nil {
		ph.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// PredictBatch 複数項目の予測をまとめて実行
func (ph *PredictionHandler) PredictBatch(c *gin.Context) {
	var request models.BatchPredictionRequest

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "リクエストの解析に失敗しました: " + err.Error(),
			"code":  "invalid_request",
		})
		return
	}

	// バッチ全体のdays_aheadを未指定の項目に適用
	if request.DaysAhead != 0 {
		for i := range request.Items {
			if request.Items[i].DaysAhead == 0 {
				request.Items[i].DaysAhead = request.DaysAhead
			}
		}
	}

	results := ph.service.PredictBatch(c.Request.Context(), request.Items)

	c.JSON(http.StatusOK, gin.H{
		"predictions": results,
		"total_items": len(results),
	})
}

// PredictBatchUpload アップロードされたファイル（.xlsx / .csv）から予測対象を読み込み、
// バッチ予測を実行する
func (ph *PredictionHandler) PredictBatchUpload(c *gin.Context) {
	requests, err := parseUploadedItems(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_file"})
		return
	}
	if len(requests) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "ファイルに予測対象の行がありません",
			"code":  "invalid_file",
		})
		return
	}

	results := ph.service.PredictBatch(c.Request.Context(), requests)

	c.JSON(http.StatusOK, gin.H{
		"predictions": results,
		"total_items": len(results),
	})
}

// GetStats 利用統計を取得
func (ph *PredictionHandler) GetStats(c *gin.Context) {
	snapshot := ph.service.Stats()

	c.JSON(http.StatusOK, gin.H{
		"total_predictions": snapshot.TotalPredictions,
		"daily_predictions": snapshot.DailyPredictions,
		"last_reset":        snapshot.LastReset,
		"model_accuracy":    snapshot.ModelAccuracy,
		"last_updated":      time.Now().Format(time.RFC3339),
	})
}

// GetModelInfo モデルの静的メタデータを取得
func (ph *PredictionHandler) GetModelInfo(c *gin.Context) {
	info := ph.service.ModelInfo()

	c.JSON(http.StatusOK, gin.H{
		"model_type":    info.ModelType,
		"feature_count": info.FeatureCount,
		"version":       info.Version,
		"is_loaded":     ph.service.ModelLoaded(),
	})
}

// HealthCheck は外部のヘルスチェッカー（例: ロードバランサー）からのリクエストに応答します。
func (ph *PredictionHandler) HealthCheck(c *gin.Context) {
	health := ph.service.Health()

	c.JSON(http.StatusOK, gin.H{
		"status":         health.Status,
		"model_loaded":   health.ModelLoaded,
		"cache_size":     health.CacheSize,
		"uptime_seconds": health.UptimeSeconds,
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// respondError エラー種別をHTTPステータスにマップして応答する。
// どのエラーもプロセスを落とさない（1リクエストの失敗はそのリクエストで完結する）。
func (ph *PredictionHandler) respondError(c *gin.Context, err error) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "code": ve.Code, "field": ve.Field})
		return
	}
	var me *models.ModelError
	if errors.As(err, &me) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": me.Error(), "code": me.Code})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "予測の実行に失敗しました: " + err.Error()})
}
