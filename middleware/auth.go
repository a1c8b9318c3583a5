package middleware

import (
	"net/http"
	"strings"

	"rewear_go/config"
	"rewear_go/models"
	"rewear_go/services"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware JWT认证中间件
// 验证通过后把 user_id/username/role 写入上下文供控制器使用。
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is required"})
			return
		}

		// 已登出的token直接拒绝
		if services.IsTokenBlacklisted(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has been revoked"})
			return
		}

		claims, err := config.GetJWTService().ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// OptionalAuthMiddleware 可选认证：带了有效token就识别身份，没带或无效也放行
// 用于公开接口上区分物主视角（如物主查看自己未过审的物品详情）。
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" || services.IsTokenBlacklisted(token) {
			c.Next()
			return
		}

		if claims, err := config.GetJWTService().ValidateToken(token); err == nil {
			c.Set("user_id", claims.UserID)
			c.Set("username", claims.Username)
			c.Set("role", claims.Role)
		}
		c.Next()
	}
}

// AdminMiddleware 管理员检查中间件（需在AuthMiddleware之后）
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// extractToken 从请求中取出token（Header优先，其次query，便于websocket握手）
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
