package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 输入错误：按设计返回"空结果"，不作为异常处理
	ErrCodeEmptyInput        ErrorCode = "EMPTY_INPUT"
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"

	// 外部服务错误（embedding/LLM/缓存后端）
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// 索引错误
	ErrCodeIndexCorrupted    ErrorCode = "INDEX_CORRUPTED"
	ErrCodeDimensionMismatch ErrorCode = "DIMENSION_MISMATCH"
	ErrCodePersistFailed     ErrorCode = "PERSIST_FAILED"
)

// ErrorType 错误类型，对应四类处理策略：
// 外部瞬时错误向上报告、输入错误降级为空结果、
// 损坏错误降级为空索引、不变量错误立即失败。
type ErrorType int

const (
	ErrorTypeSystem ErrorType = iota
	ErrorTypeInput
	ErrorTypeExternal
	ErrorTypeCorruption
	ErrorTypeInvariant
)

// AppError 应用错误结构体
type AppError struct {
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
	Type     ErrorType `json:"type"`
	HTTPCode int       `json:"-"`
	Cause    error     `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewInputError 创建输入错误（调用方应降级为空结果）
func NewInputError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeInput,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewExternalError 创建外部服务错误
func NewExternalError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeExternal,
		HTTPCode: http.StatusBadGateway,
	}
}

// NewInvariantError 创建不变量错误（必须大声失败，不能静默忽略）
func NewInvariantError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeInvariant,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewSystemError 创建系统错误
func NewSystemError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
	}
}

// IsType 判断错误是否属于指定类型
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// GetAppError 从错误链中提取AppError
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
