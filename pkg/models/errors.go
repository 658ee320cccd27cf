package models

import (
	"errors"
	"fmt"
)

// バリデーションエラーコード
const (
	CodeMissingField   = "missing_field"
	CodeInvalidPrice   = "invalid_price"
	CodeInvalidHorizon = "invalid_horizon"
)

// モデルエラーコード
const (
	CodeModelUnavailable = "model_unavailable"
	CodeInvalidOutput    = "invalid_output"
)

// ValidationError リクエスト内容の不備。Predictorには到達しない。
type ValidationError struct {
	Code  string // エラーコード
	Field string // 問題のあったフィールド
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Code, e.Msg)
}

// NewValidationError 新しいValidationErrorを生成
func NewValidationError(code, field, msg string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Msg: msg}
}

// ModelError Predictorの呼び出し失敗、または不正な出力
type ModelError struct {
	Code string
	Msg  string
	Err  error // 元のエラー（あれば）
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model error (%s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("model error (%s): %s", e.Code, e.Msg)
}

func (e *ModelError) Unwrap() error { return e.Err }

// NewModelError 新しいModelErrorを生成
func NewModelError(code, msg string, err error) *ModelError {
	return &ModelError{Code: code, Msg: msg, Err: err}
}

// ErrCacheCorrupt キャッシュエントリが整合性チェックに失敗した場合の内部エラー。
// 呼び出し側ではミスとして扱い、致命的エラーにはしない。
var ErrCacheCorrupt = errors.New("cache entry failed consistency check")

// IsValidation errがValidationErrorかどうかを判定
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsModel errがModelErrorかどうかを判定
func IsModel(err error) bool {
	var me *ModelError
	return errors.As(err, &me)
}
