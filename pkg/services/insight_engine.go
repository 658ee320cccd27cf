package services

import (
	"fmt"

	"forecast-api/pkg/models"
)

// インサイトのカテゴリ
const (
	InsightCategoryDemand     = "demand"
	InsightCategoryConfidence = "confidence"
	InsightCategoryRevenue    = "revenue"
	InsightCategoryModel      = "model"
)

// 需要・信頼度・売上インパクトの判定しきい値
const (
	highDemandThreshold     = 10.0
	lowDemandThreshold      = 3.0
	highConfidenceThreshold = 85.0
	lowConfidenceThreshold  = 70.0
	revenueImpactThreshold  = 100.0
)

// InsightEngine 予測結果からビジネス提案を導出する純粋なルールエンジン。
// 評価順序が出力順序を決める: 需要 → 信頼度 → 売上インパクト → モデル品質。
// 同じ入力には常に同じ順序で同じ結果を返す（キャッシュ整合性の前提）。
type InsightEngine struct {
	modelAccuracy float64
}

// NewInsightEngine 新しいInsightEngineを作成
func NewInsightEngine(modelAccuracy float64) *InsightEngine {
	return &InsightEngine{modelAccuracy: modelAccuracy}
}

// Derive 予測値・信頼度・売上インパクトから提案リストを導出する
func (e *InsightEngine) Derive(predictedSales, confidence, revenueImpact float64) []models.Insight {
	insights := make([]models.Insight, 0, 4)

	// 需要ティア（相互排他、必ず1件）
	switch {
	case predictedSales > highDemandThreshold:
		insights = append(insights, models.Insight{
			Category:    InsightCategoryDemand,
			Title:       "High demand expected",
			Description: fmt.Sprintf("Predicted sales of %.1f units indicate strong demand.", predictedSales),
			Action:      "Increase stock levels by 20-30%",
		})
	case predictedSales < lowDemandThreshold:
		insights = append(insights, models.Insight{
			Category:    InsightCategoryDemand,
			Title:       "Low demand predicted",
			Description: fmt.Sprintf("Predicted sales of %.1f units indicate weak demand.", predictedSales),
			Action:      "Reduce stock levels to avoid overstock",
		})
	default:
		insights = append(insights, models.Insight{
			Category:    InsightCategoryDemand,
			Title:       "Moderate demand expected",
			Description: fmt.Sprintf("Predicted sales of %.1f units are within the normal range.", predictedSales),
			Action:      "Maintain current stock levels",
		})
	}

	// 信頼度ティア（最大1件、70〜85は何も出さない）
	if confidence > highConfidenceThreshold {
		insights = append(insights, models.Insight{
			Category:    InsightCategoryConfidence,
			Title:       "High confidence prediction",
			Description: fmt.Sprintf("Confidence of %.1f%% makes this forecast reliable for planning.", confidence),
			Action:      "Use this forecast for inventory planning",
		})
	} else if confidence < lowConfidenceThreshold {
		insights = append(insights, models.Insight{
			Category:    InsightCategoryConfidence,
			Title:       "Lower confidence prediction",
			Description: fmt.Sprintf("Confidence of %.1f%% is below the reliable range.", confidence),
			Action:      "Monitor closely and adjust as needed",
		})
	}

	// 売上インパクトティア（条件付き1件）
	if revenueImpact > revenueImpactThreshold {
		insights = append(insights, models.Insight{
			Category:    InsightCategoryRevenue,
			Title:       "Strong revenue impact",
			Description: fmt.Sprintf("Estimated revenue impact of $%.2f.", revenueImpact),
			Action:      "Prioritize availability of this item",
		})
	}

	// モデル品質ノート（常に最後、常に1件）
	insights = append(insights, models.Insight{
		Category:    InsightCategoryModel,
		Title:       "Model quality",
		Description: fmt.Sprintf("Based on advanced ML model with %.1f%% accuracy.", e.modelAccuracy),
		Action:      "",
	})

	return insights
}
