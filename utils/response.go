package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rewear_go/config"
	"rewear_go/services"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`            // 业务状态码
	Message string      `json:"message"`         // 响应消息
	Data    interface{} `json:"data,omitempty"`  // 响应数据
	Error   string      `json:"error,omitempty"` // 错误信息
}

// PageResponse 分页响应结构
type PageResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Total   int64       `json:"total"` // 总数
	Page    int         `json:"page"`  // 当前页
	Limit   int         `json:"limit"` // 每页数量
}

// 业务状态码常量
const (
	CodeSuccess            = 20000 // 成功
	CodeError              = 40000 // 错误
	CodeUnauthorized       = 40100 // 未授权
	CodeForbidden          = 40300 // 禁止访问
	CodeNotFound           = 40400 // 资源不存在
	CodeInvariantViolation = 40900 // 当前状态不允许该操作
	CodeValidationError    = 42200 // 验证错误
	CodeInsufficientPoints = 42600 // 积分不足
	CodeInternalError      = 50000 // 内部错误
)

// 业务状态码对应的消息
var codeMessages = map[int]string{
	CodeSuccess:            "操作成功",
	CodeError:              "操作失败",
	CodeUnauthorized:       "未授权，请重新登录",
	CodeForbidden:          "禁止访问",
	CodeNotFound:           "资源不存在",
	CodeInvariantViolation: "当前状态不允许该操作",
	CodeValidationError:    "参数验证失败",
	CodeInsufficientPoints: "积分不足",
	CodeInternalError:      "服务器内部错误",
}

// GetCodeMessage 获取状态码对应的消息
func GetCodeMessage(code int) string {
	if msg, exists := codeMessages[code]; exists {
		return msg
	}
	return "未知错误"
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: GetCodeMessage(CodeSuccess),
		Data:    data,
	})
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    CodeSuccess,
		Message: GetCodeMessage(CodeSuccess),
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpStatus, code int, message string) {
	if message == "" {
		message = GetCodeMessage(code)
	}
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
	})
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, CodeForbidden, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message)
}

// ValidationFailed 验证错误响应
func ValidationFailed(c *gin.Context, message string) {
	Error(c, http.StatusUnprocessableEntity, CodeValidationError, message)
}

// InternalError 内部错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, CodeInternalError, message)
}

// Paginate 分页响应
func Paginate(c *gin.Context, data interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, PageResponse{
		Code:    CodeSuccess,
		Message: GetCodeMessage(CodeSuccess),
		Data:    data,
		Total:   total,
		Page:    page,
		Limit:   limit,
	})
}

// HandleServiceError 将服务层错误类别映射为响应
// 每个失败都同步返回给调用方，消息里带上未通过的前置条件。
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		Error(c, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, services.ErrForbidden):
		Error(c, http.StatusForbidden, CodeForbidden, err.Error())
	case errors.Is(err, services.ErrInvariantViolation):
		Error(c, http.StatusConflict, CodeInvariantViolation, err.Error())
	case errors.Is(err, services.ErrInsufficientPoints):
		Error(c, http.StatusUnprocessableEntity, CodeInsufficientPoints, err.Error())
	case services.IsValidationError(err):
		Error(c, http.StatusUnprocessableEntity, CodeValidationError, err.Error())
	default:
		Error(c, http.StatusInternalServerError, CodeInternalError, err.Error())
	}
}

// APIRateLimit API限流（使用Redis）
func APIRateLimit(c *gin.Context, userID string, limit int, duration time.Duration) bool {
	if config.RedisClient == nil {
		return true // Redis不可用时，不限流
	}

	ctx := context.Background()
	key := fmt.Sprintf("ratelimit:api:%s:%s", c.FullPath(), userID)

	// 使用Redis的INCR和EXPIRE实现限流
	count, err := config.RedisClient.Incr(ctx, key).Result()
	if err != nil {
		return true
	}

	// 如果是第一次请求，设置过期时间
	if count == 1 {
		config.RedisClient.Expire(ctx, key, duration)
	}

	return count <= int64(limit)
}
