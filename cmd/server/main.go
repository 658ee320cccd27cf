package main

import (
	"os"

	config "forecast-api/configs"
	"forecast-api/pkg/handlers"
	"forecast-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	// 設定の読み込み
	cfg := config.LoadConfig()

	// ロガーの初期化
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// エンコード表とモデル成果物の読み込み
	encoders, err := services.LoadEncoderTable(cfg.EncodersPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load encoder table")
	}
	log.Info().Str("version", encoders.Version).Msg("encoder table loaded")

	model, err := services.LoadLinearModel(cfg.ModelPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load model")
	}
	modelInfo, err := services.LoadModelInfo(cfg.ModelInfoPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load model info")
	}

	// サービスの初期化
	monitoringService := services.NewMonitoringService()
	codec := services.NewFeatureCodec(encoders)
	cache := services.NewPredictionCache(cfg.CacheTTL, cfg.CacheMaxEntries)
	stats := services.NewStatsTracker(cfg.ModelAccuracy)
	insights := services.NewInsightEngine(cfg.ModelAccuracy)

	opts := services.PredictionServiceOptions{
		Codec:            codec,
		Cache:            cache,
		Stats:            stats,
		Insights:         insights,
		ModelInfo:        modelInfo,
		ConfidenceSpread: cfg.ConfidenceSpread,
		BatchConcurrency: cfg.BatchConcurrency,
		FallbackEnabled:  cfg.FallbackEnabled,
	}
	if model != nil {
		opts.Predictor = model
		log.Info().Str("version", model.Version()).Msg("model loaded")
	} else {
		log.Warn().Msg("no model artifact found, using fallback prediction logic")
	}
	predictionService := services.NewPredictionService(opts)

	// ハンドラーの初期化
	predictionHandler := handlers.NewPredictionHandler(predictionService)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService)

	// Ginルーターの初期化
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// ミドルウェアの登録
	r.Use(monitoringService.LoggingMiddleware())
	r.Use(services.RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))
	r.Use(cors.Default())

	// ヘルスチェックエンドポイント
	r.GET("/health", predictionHandler.HealthCheck)

	// APIバージョン1のルートグループ
	v1 := r.Group("/api/v1")
	{
		// 予測API
		v1.POST("/predict", predictionHandler.Predict)
		v1.POST("/predict/batch", predictionHandler.PredictBatch)
		v1.POST("/predict/batch/upload", predictionHandler.PredictBatchUpload)

		// 統計・モデル情報API
		v1.GET("/stats", predictionHandler.GetStats)
		v1.GET("/model/info", predictionHandler.GetModelInfo)

		// モニタリングAPI
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}
	}

	log.Info().Str("port", cfg.Port).Msg("starting forecast-api server")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
