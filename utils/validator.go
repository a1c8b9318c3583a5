package utils

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// 自定义校验规则注册到gin的binding引擎。
// DTO里的 binding:"username" / binding:"condition" / binding:"points"
// 标签都依赖这里的注册（控制器包引入utils即完成注册）。
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("username", validateUsername)
		v.RegisterValidation("condition", validateCondition)
		v.RegisterValidation("points", validatePointsValue)
	}
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// validateUsername 用户名规则：字母开头，只含字母、数字和下划线
func validateUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}

// validateCondition 成色枚举
func validateCondition(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "like-new", "excellent", "good", "fair":
		return true
	}
	return false
}

// validatePointsValue 积分价值允许范围 1-100
func validatePointsValue(fl validator.FieldLevel) bool {
	value := fl.Field().Int()
	return value >= 1 && value <= 100
}
