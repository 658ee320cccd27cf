package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"forecast-api/pkg/models"
)

// ErrModelUnavailable モデルが未ロード、または予測を実行できない状態
var ErrModelUnavailable = errors.New("model unavailable")

// Predictor 特徴量ベクトルからスカラー予測値を返す外部コラボレータ
type Predictor interface {
	Predict(ctx context.Context, features models.FeatureVector) (float64, error)
	Version() string
}

// LinearModel JSONとしてエクスポートされた学習済みモデル。
// 勾配ブースティングモデルを線形近似した成果物で、切片と特徴量ごとの重みを持つ。
type LinearModel struct {
	ModelVersion string    `json:"version"`
	ModelType    string    `json:"model_type"`
	Intercept    float64   `json:"intercept"`
	Weights      []float64 `json:"weights"`
}

// LoadLinearModel モデル成果物を読み込む。
// ファイルが存在しない場合は(nil, nil)を返し、呼び出し側がフォールバック運用に切り替える。
func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("モデルファイルの読み込みに失敗: %w", err)
	}

	var model LinearModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("モデルファイルの解析に失敗: %w", err)
	}
	if len(model.Weights) == 0 {
		return nil, fmt.Errorf("モデルファイルに重みがありません: %s", path)
	}
	return &model, nil
}

// Predict 特徴量ベクトルとの内積で予測値を計算する
func (m *LinearModel) Predict(_ context.Context, features models.FeatureVector) (float64, error) {
	if len(features) != len(m.Weights) {
		return 0, fmt.Errorf("%w: feature length %d does not match model %d",
			ErrModelUnavailable, len(features), len(m.Weights))
	}
	prediction := m.Intercept
	for i, w := range m.Weights {
		prediction += w * features[i]
	}
	return prediction, nil
}

// Version モデルバージョンを返す
func (m *LinearModel) Version() string {
	if m.ModelVersion == "" {
		return "unknown"
	}
	return m.ModelVersion
}

// HeuristicEstimate モデルが利用できない場合の決定的なフォールバック予測。
// 基準値にカテゴリ係数と価格係数を掛けるだけの単純なルールで、同じ入力には常に同じ値を返す。
func HeuristicEstimate(norm models.NormalizedRequest) float64 {
	baseSales := 5.0

	// カテゴリによる補正
	switch norm.CatID {
	case "FOODS":
		baseSales *= 1.3
	case "HOUSEHOLD":
		baseSales *= 0.8
	case "HOBBIES":
		baseSales *= 0.9
	}

	// 価格による補正
	if norm.SellPrice > 5.0 {
		baseSales *= 0.7
	} else if norm.SellPrice < 2.0 {
		baseSales *= 1.4
	}

	return baseSales
}

// LoadModelInfo モデルの静的メタデータを読み込む。
// ファイルが存在しない場合は組み込みのデフォルト値を返す。
func LoadModelInfo(path string) (models.ModelInfo, error) {
	info := models.ModelInfo{
		ModelType:    "gradient_boosting",
		FeatureCount: FeatureCount,
		Version:      "1.0.0",
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return info, nil
		}
		return info, fmt.Errorf("モデル情報の読み込みに失敗: %w", err)
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("モデル情報の解析に失敗: %w", err)
	}
	return info, nil
}
