package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// モデル成果物のパス
	ModelPath     string
	EncodersPath  string
	ModelInfoPath string

	// 予測キャッシュ
	CacheTTL        time.Duration
	CacheMaxEntries int

	// 予測サービス
	ConfidenceSpread float64 // 信頼区間の対称スプレッド（例: 0.15 = ±15%）
	BatchConcurrency int     // バッチ予測の同時実行数上限
	FallbackEnabled  bool    // Predictor失敗時にヒューリスティック予測へ切り替えるか
	ModelAccuracy    float64 // 統計に表示する静的なモデル精度

	// レートリミット（0以下で無効）
	RateLimitRPS   float64
	RateLimitBurst int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:             getEnv("PORT", "8080"),
		Environment:      getEnv("ENVIRONMENT", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		ModelPath:        getEnv("MODEL_PATH", "models/forecast_model.json"),
		EncodersPath:     getEnv("ENCODERS_PATH", "models/model_encoders.json"),
		ModelInfoPath:    getEnv("MODEL_INFO_PATH", "models/model_info.json"),
		CacheTTL:         time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		CacheMaxEntries:  getEnvInt("CACHE_MAX_ENTRIES", 1024),
		ConfidenceSpread: getEnvFloat("CONFIDENCE_SPREAD", 0.15),
		BatchConcurrency: getEnvInt("BATCH_CONCURRENCY", 4),
		FallbackEnabled:  getEnvBool("FALLBACK_ENABLED", true),
		ModelAccuracy:    getEnvFloat("MODEL_ACCURACY", 94.6),
		RateLimitRPS:     getEnvFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 20),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
