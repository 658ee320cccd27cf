package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"time"

	"forecast-api/pkg/models"
)

// 許可された予測日数
var allowedHorizons = map[int]bool{7: true, 14: true, 28: true, 56: true}

// DefaultHorizon 予測日数が省略された場合のデフォルト値
const DefaultHorizon = 7

// FeatureCount 特徴量ベクトルの固定長
const FeatureCount = 34

// FeatureCodec リクエストの検証・正規化と特徴量ベクトルの構築を行う。
// 状態を持たないため同期は不要。
type FeatureCodec struct {
	encoders *EncoderTable
}

// NewFeatureCodec 新しいFeatureCodecを作成
func NewFeatureCodec(encoders *EncoderTable) *FeatureCodec {
	return &FeatureCodec{encoders: encoders}
}

// Normalize リクエストを検証して正規化する。
// 不備があればValidationErrorを返し、以降のパイプラインには進ませない。
func (fc *FeatureCodec) Normalize(req models.PredictionRequest) (models.NormalizedRequest, error) {
	var norm models.NormalizedRequest

	// 識別子フィールドの必須チェック
	idFields := []struct {
		name  string
		value string
		dst   *string
	}{
		{"item_id", req.ItemID, &norm.ItemID},
		{"store_id", req.StoreID, &norm.StoreID},
		{"dept_id", req.DeptID, &norm.DeptID},
		{"cat_id", req.CatID, &norm.CatID},
		{"state_id", req.StateID, &norm.StateID},
	}
	for _, f := range idFields {
		v := strings.ToUpper(strings.TrimSpace(f.value))
		if v == "" {
			return norm, models.NewValidationError(models.CodeMissingField, f.name,
				fmt.Sprintf("%s is required", f.name))
		}
		*f.dst = v
	}

	if req.SellPrice <= 0 || math.IsNaN(req.SellPrice) || math.IsInf(req.SellPrice, 0) {
		return norm, models.NewValidationError(models.CodeInvalidPrice, "sell_price",
			fmt.Sprintf("sell_price must be positive, got %v", req.SellPrice))
	}
	norm.SellPrice = req.SellPrice

	horizon := req.DaysAhead
	if horizon == 0 {
		horizon = DefaultHorizon
	}
	if !allowedHorizons[horizon] {
		return norm, models.NewValidationError(models.CodeInvalidHorizon, "days_ahead",
			fmt.Sprintf("days_ahead must be one of 7/14/28/56, got %d", horizon))
	}
	norm.DaysAhead = horizon

	return norm, nil
}

// Fingerprint 正規化済みフィールドからキャッシュキーを計算する。
// 派生特徴量（ラグ等）の再計算誤差に影響されないよう、業務フィールドのみを対象にする。
func (fc *FeatureCodec) Fingerprint(norm models.NormalizedRequest) string {
	payload := strings.Join([]string{
		"v1",
		norm.ItemID,
		norm.StoreID,
		norm.DeptID,
		norm.CatID,
		norm.StateID,
		strconv.FormatFloat(norm.SellPrice, 'f', 2, 64),
		strconv.Itoa(norm.DaysAhead),
		fc.encoders.Version,
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Features 正規化済みリクエストから固定順の特徴量ベクトルを構築する。
// 戻り値は呼び出しごとに新規に確保され、以降変更されない。
func (fc *FeatureCodec) Features(norm models.NormalizedRequest, now time.Time) models.FeatureVector {
	features := make(models.FeatureVector, 0, FeatureCount)

	// カテゴリ変数（エンコード表による整数コード）
	features = append(features,
		float64(fc.encoders.Encode("item_id", norm.ItemID)),
		float64(fc.encoders.Encode("dept_id", norm.DeptID)),
		float64(fc.encoders.Encode("cat_id", norm.CatID)),
		float64(fc.encoders.Encode("store_id", norm.StoreID)),
		float64(fc.encoders.Encode("state_id", norm.StateID)),
	)

	// 価格
	features = append(features, norm.SellPrice)

	// カレンダー特徴量
	weekday := int(now.Weekday())
	isWeekend := 0.0
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		isWeekend = 1.0
	}
	_, week := now.ISOWeek()
	features = append(features,
		float64(weekday),
		float64(now.Month()),
		float64((int(now.Month())-1)/3+1),
		isWeekend,
		float64(now.Day()),
		float64(week),
	)

	// 販売履歴由来の集計値。フィーチャストアが未接続のため、
	// 商品×店舗のシードから決定的に合成する。
	base := fc.baseSales(norm.ItemID, norm.StoreID)

	// ラグ特徴量（1/7/14/28/56日前）
	features = append(features,
		maxf(0, base*1.02),
		maxf(0, base*0.97),
		maxf(0, base*1.05),
		maxf(0, base*0.93),
		maxf(0, base*1.08),
	)

	// ローリング統計（平均3/7/14/28、標準偏差3/7/14/28、最大7/14、最小7/14）
	features = append(features,
		base, base, base, base,
		1.0, 1.2, 1.5, 2.0,
		base+2, base+3,
		maxf(0, base-2), maxf(0, base-3),
	)

	// トレンド・価格特徴量
	features = append(features,
		0.05,                // 7日トレンド
		0.02,                // 28日トレンド
		0.0,                 // 価格変化率
		norm.SellPrice/3.0,  // カテゴリ平均価格比
		0.0,                 // イベントフラグ
	)

	return features
}

// baseSales 商品×店舗ごとの基準販売数を合成する。
// 同じ組み合わせには常に同じ値を返す（キャッシュとテストの決定性のため）。
func (fc *FeatureCodec) baseSales(itemID, storeID string) float64 {
	h := fnv.New64a()
	h.Write([]byte(itemID))
	h.Write([]byte("|"))
	h.Write([]byte(storeID))
	// 3.0〜8.0の範囲に収める
	return 3.0 + float64(h.Sum64()%500)/100.0
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
