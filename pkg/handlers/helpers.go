package handlers

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"forecast-api/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// findIndex finds the index of the first candidate in a slice
func findIndex(slice []string, candidates ...string) int {
	for _, candidate := range candidates {
		for i, item := range slice {
			if strings.EqualFold(strings.TrimSpace(item), candidate) {
				return i
			}
		}
	}
	return -1
}

// parseUploadedItems マルチパートの"file"フィールドから予測対象の行を読み込む。
// 1行目をヘッダーとして列位置を特定する（列順は自由）。
func parseUploadedItems(c *gin.Context) ([]models.PredictionRequest, error) {
	file, fileHeader, err := c.Request.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("ファイルの取得に失敗しました")
	}
	defer file.Close()

	// フォームで指定されたdays_ahead（省略時は各行または7日）
	defaultDays := 0
	if v := c.PostForm("days_ahead"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			defaultDays = n
		}
	}

	var rows [][]string
	fileName := strings.ToLower(fileHeader.Filename)

	switch {
	case strings.HasSuffix(fileName, ".xlsx"):
		f, err := excelize.OpenReader(file)
		if err != nil {
			return nil, fmt.Errorf("Excelファイルの読み込みに失敗しました")
		}
		defer f.Close()
		rows, err = f.GetRows(f.GetSheetName(0))
		if err != nil {
			return nil, fmt.Errorf("Excelシートの行取得に失敗しました")
		}
	case strings.HasSuffix(fileName, ".csv"):
		r := csv.NewReader(file)
		r.FieldsPerRecord = -1
		rows, err = r.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("CSVファイルの読み込みに失敗しました")
		}
	default:
		return nil, fmt.Errorf("未対応のファイル形式です: %s（.xlsx / .csv のみ）", fileHeader.Filename)
	}

	return itemRowsToRequests(rows, defaultDays)
}

// itemRowsToRequests ヘッダー付きの行データをPredictionRequestのリストに変換する。
// 必須列が見つからない場合はエラー、個々の行の不備はバリデーション段階に委ねる。
func itemRowsToRequests(rows [][]string, defaultDays int) ([]models.PredictionRequest, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("ヘッダー行とデータ行が必要です")
	}

	header := rows[0]
	itemIdx := findIndex(header, "item_id", "item", "商品ID")
	storeIdx := findIndex(header, "store_id", "store", "店舗ID")
	deptIdx := findIndex(header, "dept_id", "dept", "部門ID")
	catIdx := findIndex(header, "cat_id", "category", "カテゴリ")
	stateIdx := findIndex(header, "state_id", "state", "州")
	priceIdx := findIndex(header, "sell_price", "price", "価格")
	daysIdx := findIndex(header, "days_ahead", "horizon", "予測日数")

	required := map[string]int{
		"item_id": itemIdx, "store_id": storeIdx, "dept_id": deptIdx,
		"cat_id": catIdx, "state_id": stateIdx, "sell_price": priceIdx,
	}
	for name, idx := range required {
		if idx < 0 {
			return nil, fmt.Errorf("必須列が見つかりません: %s", name)
		}
	}

	cell := func(row []string, idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	requests := make([]models.PredictionRequest, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		price, _ := strconv.ParseFloat(cell(row, priceIdx), 64)
		days := defaultDays
		if v := cell(row, daysIdx); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				days = n
			}
		}
		requests = append(requests, models.PredictionRequest{
			ItemID:    cell(row, itemIdx),
			StoreID:   cell(row, storeIdx),
			DeptID:    cell(row, deptIdx),
			CatID:     cell(row, catIdx),
			StateID:   cell(row, stateIdx),
			SellPrice: price,
			DaysAhead: days,
		})
	}
	return requests, nil
}
