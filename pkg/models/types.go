package models

// PredictionRequest represents an incoming forecast request
type PredictionRequest struct {
	ItemID    string  `json:"item_id" binding:"required"`    // 商品ID（例: FOODS_3_001）
	StoreID   string  `json:"store_id" binding:"required"`   // 店舗ID（例: CA_1）
	DeptID    string  `json:"dept_id" binding:"required"`    // 部門ID（例: FOODS_3）
	CatID     string  `json:"cat_id" binding:"required"`     // カテゴリID（FOODS/HOBBIES/HOUSEHOLD）
	StateID   string  `json:"state_id" binding:"required"`   // 州ID（CA/TX/WI）
	SellPrice float64 `json:"sell_price" binding:"required"` // 販売価格（正の値）
	DaysAhead int     `json:"days_ahead,omitempty"`          // 予測日数（7/14/28/56、省略時は7）
}

// NormalizedRequest 正規化済みのリクエスト。FeatureCodecのみが生成する。
type NormalizedRequest struct {
	ItemID    string
	StoreID   string
	DeptID    string
	CatID     string
	StateID   string
	SellPrice float64
	DaysAhead int
}

// FeatureVector モデルが期待する固定順の特徴量ベクトル
type FeatureVector []float64

// ForecastData 日付に揃えた予測系列（チャート表示用）
type ForecastData struct {
	Dates       []string  `json:"dates"`       // 予測対象日（YYYY-MM-DD）
	Predictions []float64 `json:"predictions"` // 日次予測値
	UpperBound  []float64 `json:"upper_bound"` // 信頼区間の上限
	LowerBound  []float64 `json:"lower_bound"` // 信頼区間の下限
}

// Insight 予測から導出されたビジネス提案
type Insight struct {
	Category    string `json:"category"`    // demand / confidence / revenue / model
	Title       string `json:"title"`       // 見出し
	Description string `json:"description"` // 説明文
	Action      string `json:"action"`      // 推奨アクション
}

// PredictionResult represents a completed forecast.
// キャッシュヒット時は同一ポインタを共有するため、生成後に変更してはならない。
type PredictionResult struct {
	PredictedSales float64      `json:"predicted_sales"` // 予測販売数（0以上）
	Confidence     float64      `json:"confidence"`      // 信頼度（0-100）
	RevenueImpact  float64      `json:"revenue_impact"`  // 売上インパクト（予測数×単価）
	Fallback       bool         `json:"fallback"`        // フォールバック予測かどうか
	ModelVersion   string       `json:"model_version"`   // 予測に使用したモデルのバージョン
	ForecastData   ForecastData `json:"forecast_data"`   // 日次予測系列
	Insights       []Insight    `json:"insights"`        // 導出された提案（順序固定）
}

// BatchPredictionRequest バッチ予測リクエスト
type BatchPredictionRequest struct {
	Items     []PredictionRequest `json:"items" binding:"required"`
	DaysAhead int                 `json:"days_ahead,omitempty"` // 各項目のDaysAheadが0の場合に適用
}

// BatchItemError バッチ内の1項目の失敗内容
type BatchItemError struct {
	Kind    string `json:"kind"`    // validation / model
	Code    string `json:"code"`    // エラーコード
	Message string `json:"message"` // 詳細メッセージ
}

// BatchPredictionItem バッチ予測の1項目の結果。入力順に並ぶ。
type BatchPredictionItem struct {
	Index   int               `json:"index"`
	ItemID  string            `json:"item_id"`
	StoreID string            `json:"store_id"`
	Result  *PredictionResult `json:"result,omitempty"`
	Error   *BatchItemError   `json:"error,omitempty"`
}

// StatsSnapshot 利用統計のスナップショット
type StatsSnapshot struct {
	TotalPredictions int64   `json:"total_predictions"` // 累計予測回数
	DailyPredictions int64   `json:"daily_predictions"` // 当日の予測回数
	LastReset        string  `json:"last_reset"`        // 日次カウンタの基準日（YYYY-MM-DD）
	ModelAccuracy    float64 `json:"model_accuracy"`    // モデル精度（静的設定値）
}

// ModelInfo モデルの静的メタデータ
type ModelInfo struct {
	ModelType    string `json:"model_type"`    // アルゴリズム名
	FeatureCount int    `json:"feature_count"` // 特徴量の数
	Version      string `json:"version"`       // モデルバージョン
}

// HealthStatus ヘルスチェック結果
type HealthStatus struct {
	Status        string  `json:"status"`
	ModelLoaded   bool    `json:"model_loaded"`
	CacheSize     int     `json:"cache_size"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}
