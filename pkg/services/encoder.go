package services

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// EncoderTable 学習済みモデルと同梱されるカテゴリ変数のエンコード表。
// モデルとバージョンを揃えて配布され、実行中は変更されない。
type EncoderTable struct {
	Version     string                    `json:"version"`
	UnknownCode int                       `json:"unknown_code"`
	Columns     map[string]map[string]int `json:"columns"`
}

// LoadEncoderTable JSONファイルからエンコード表を読み込む。
// ファイルが存在しない場合は組み込みのデフォルト表を返す。
func LoadEncoderTable(path string) (*EncoderTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultEncoderTable(), nil
		}
		return nil, fmt.Errorf("エンコード表の読み込みに失敗: %w", err)
	}

	var table EncoderTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("エンコード表の解析に失敗: %w", err)
	}
	if table.Columns == nil {
		return nil, fmt.Errorf("エンコード表にcolumnsがありません: %s", path)
	}
	return &table, nil
}

// Encode カテゴリ値を整数コードに変換する。
// 未知の値は予約済みのUnknownCodeにマップし、エラーにはしない（可用性優先）。
func (t *EncoderTable) Encode(column, value string) int {
	mapping, ok := t.Columns[column]
	if !ok {
		return t.UnknownCode
	}
	code, ok := mapping[strings.ToUpper(strings.TrimSpace(value))]
	if !ok {
		return t.UnknownCode
	}
	return code
}

// DefaultEncoderTable M5データセットの語彙をカバーする組み込みのエンコード表
func DefaultEncoderTable() *EncoderTable {
	return &EncoderTable{
		Version:     "1.0.0",
		UnknownCode: -1,
		Columns: map[string]map[string]int{
			"cat_id": {
				"FOODS":     0,
				"HOBBIES":   1,
				"HOUSEHOLD": 2,
			},
			"dept_id": {
				"FOODS_1":     0,
				"FOODS_2":     1,
				"FOODS_3":     2,
				"HOBBIES_1":   3,
				"HOBBIES_2":   4,
				"HOUSEHOLD_1": 5,
				"HOUSEHOLD_2": 6,
			},
			"store_id": {
				"CA_1": 0,
				"CA_2": 1,
				"CA_3": 2,
				"CA_4": 3,
				"TX_1": 4,
				"TX_2": 5,
				"TX_3": 6,
				"WI_1": 7,
				"WI_2": 8,
				"WI_3": 9,
			},
			"state_id": {
				"CA": 0,
				"TX": 1,
				"WI": 2,
			},
		},
	}
}
