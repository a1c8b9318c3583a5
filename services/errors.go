package services

import (
	"errors"
	"fmt"
)

// 交换核心的失败类别。调用方用 errors.Is 判断类别并映射为响应码。
var (
	// ErrNotFound 物品不存在
	ErrNotFound = errors.New("item not found")
	// ErrForbidden 操作者无权执行该操作（非物主、非管理员、对自己的物品发起交换）
	ErrForbidden = errors.New("operation forbidden")
	// ErrInvariantViolation 当前状态下不允许该状态转换
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrInsufficientPoints 积分余额不足
	ErrInsufficientPoints = errors.New("insufficient points")
)

// ValidationError 字段校验失败
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

// NewValidationError 创建校验错误
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError 是否为校验错误
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// invariantf 带说明的状态转换错误
func invariantf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvariantViolation}, args...)...)
}

// forbiddenf 带说明的权限错误
func forbiddenf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrForbidden}, args...)...)
}
