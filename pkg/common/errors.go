package common

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound 未找到错误
	ErrNotFound = errors.New("not found")

	// ErrConflict 版本冲突错误
	ErrConflict = errors.New("version conflict")

	// ErrInvalidInput 无效输入错误
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed 验证失败错误
	ErrValidationFailed = errors.New("validation failed")

	// ErrStorageFailed 存储失败错误
	ErrStorageFailed = errors.New("storage failed")

	// ErrUnauthorized 未授权错误
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotConnected 未连接错误
	ErrNotConnected = errors.New("not connected")
)

// AppError 应用错误
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError 创建应用错误
func NewAppError(code string, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ValidationError 字段级校验错误, key 为 json 字段名
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
