package controllers

import (
	"strings"

	"rewear_go/services"
	"rewear_go/utils"

	"github.com/gin-gonic/gin"
)

// AuthController 认证控制器
type AuthController struct{}

// NewAuthController 创建认证控制器实例
func NewAuthController() *AuthController {
	return &AuthController{}
}

// Register 用户注册
func (ac *AuthController) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err.Error())
		return
	}

	user, token, err := authService.Register(&req)
	if err != nil {
		utils.Error(c, 400, utils.CodeError, err.Error())
		return
	}

	utils.Created(c, gin.H{
		"user":  user,
		"token": token,
	})
}

// Login 用户登录
func (ac *AuthController) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err.Error())
		return
	}

	user, token, err := authService.Login(&req, c.ClientIP())
	if err != nil {
		utils.Unauthorized(c, err.Error())
		return
	}

	utils.Success(c, gin.H{
		"user":  user,
		"token": token,
	})
}

// RefreshToken 刷新token
func (ac *AuthController) RefreshToken(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		utils.Unauthorized(c, "Token is required")
		return
	}

	newToken, err := authService.RefreshToken(token)
	if err != nil {
		utils.Unauthorized(c, err.Error())
		return
	}

	utils.Success(c, gin.H{"token": newToken})
}

// Logout 用户登出
func (ac *AuthController) Logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		utils.Unauthorized(c, "Token is required")
		return
	}

	if err := authService.Logout(token); err != nil {
		utils.Error(c, 400, utils.CodeError, err.Error())
		return
	}

	utils.SuccessWithMessage(c, "Logged out", nil)
}

// bearerToken 从Authorization头取出token
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
