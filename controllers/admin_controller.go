package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rewear_go/config"
	"rewear_go/services"
	"rewear_go/utils"

	"github.com/gin-gonic/gin"
)

// AdminController 管理面板控制器
// 路由层已套AdminMiddleware，这里仍把角色传给服务层做最终裁决。
type AdminController struct{}

// NewAdminController 创建管理控制器实例
func NewAdminController() *AdminController {
	return &AdminController{}
}

// ListItems 按审核状态列出物品（默认待审核队列）
func (ac *AdminController) ListItems(c *gin.Context) {
	page, limit := pagination(c)

	filter := &services.ItemFilter{
		ApprovalStatus: c.DefaultQuery("approval_status", "pending"),
		Sort:           "created_at_asc", // 先进先审
	}
	if filter.ApprovalStatus == "all" {
		filter.ApprovalStatus = ""
	}

	items, total, err := itemService.QueryItems(filter, page, limit)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.Paginate(c, items, total, page, limit)
}

// ApproveItem 审核通过
func (ac *AdminController) ApproveItem(c *gin.Context) {
	item, err := exchangeService.ModerateItem(c.Param("id"), "approve", c.GetString("role"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "Item approved", item)
}

// RejectItem 审核拒绝
func (ac *AdminController) RejectItem(c *gin.Context) {
	item, err := exchangeService.ModerateItem(c.Param("id"), "reject", c.GetString("role"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "Item rejected", item)
}

// DeleteItem 管理员删除物品
func (ac *AdminController) DeleteItem(c *gin.Context) {
	err := exchangeService.DeleteItem(c.Param("id"), c.GetString("user_id"), c.GetString("role"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "Item deleted", nil)
}

// GetStats 管理面板统计数据
func (ac *AdminController) GetStats(c *gin.Context) {
	// 1. 尝试从Redis缓存获取
	cacheKey := "admin:stats"
	if config.RedisClient != nil {
		cached, err := config.RedisClient.Get(c.Request.Context(), cacheKey).Result()
		if err == nil {
			var stats services.AdminStats
			if json.Unmarshal([]byte(cached), &stats) == nil {
				utils.Success(c, stats)
				return
			}
		}
	}

	// 2. 从数据库统计
	stats, err := exchangeService.GetAdminStats()
	if err != nil {
		utils.InternalError(c, fmt.Sprintf("Failed to compute stats: %v", err))
		return
	}

	// 3. 异步缓存（1分钟，面板刷新频繁）
	go func() {
		if config.RedisClient != nil {
			data, _ := json.Marshal(stats)
			config.RedisClient.Set(context.Background(), cacheKey, data, time.Minute)
		}
	}()

	utils.Success(c, stats)
}
