package controllers

import (
	"strconv"

	"rewear_go/utils"
	"rewear_go/websocket"

	"github.com/gin-gonic/gin"
)

// UserController 用户控制器
type UserController struct{}

// NewUserController 创建用户控制器实例
func NewUserController() *UserController {
	return &UserController{}
}

// GetUserProfile 获取用户公开信息
func (uc *UserController) GetUserProfile(c *gin.Context) {
	user, err := authService.GetUser(c.Param("id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	// 公开视图不暴露邮箱
	utils.Success(c, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"avatar":     user.Avatar,
		"bio":        user.Bio,
		"created_at": user.CreatedAt,
	})
}

// GetMyPoints 获取当前用户积分余额（只读访问器）
func (uc *UserController) GetMyPoints(c *gin.Context) {
	userID := c.GetString("user_id")

	balance, err := authService.GetPointBalance(userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.Success(c, gin.H{"points": balance})
}

// GetMyLedger 获取当前用户积分流水
func (uc *UserController) GetMyLedger(c *gin.Context) {
	userID := c.GetString("user_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	ledgers, err := authService.GetPointLedger(userID, limit)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.Success(c, ledgers)
}

// GetOnlineUsers 获取在线用户ID列表
func (uc *UserController) GetOnlineUsers(c *gin.Context) {
	utils.Success(c, websocket.OnlineUserIDs())
}
