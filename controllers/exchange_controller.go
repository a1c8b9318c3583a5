package controllers

import (
	"time"

	"rewear_go/utils"

	"github.com/gin-gonic/gin"
)

// ExchangeController 交换控制器
// 换物请求与积分兑换两条获取路径都在这里。
type ExchangeController struct{}

// NewExchangeController 创建交换控制器实例
func NewExchangeController() *ExchangeController {
	return &ExchangeController{}
}

// SwapRequestBody 换物请求参数
type SwapRequestBody struct {
	Note string `json:"note" binding:"max=500"`
}

// RequestSwap 发起换物请求
// @Summary 发起换物请求
// @Description 对他人的公开物品发起换物协商，仅通知物主，不锁定物品
// @Tags exchange
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "物品ID"
// @Param request body SwapRequestBody false "留言"
// @Router /api/items/{id}/swap-request [post]
func (ec *ExchangeController) RequestSwap(c *gin.Context) {
	userID := c.GetString("user_id")
	itemID := c.Param("id")

	var body SwapRequestBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.ValidationFailed(c, err.Error())
			return
		}
	}

	swapReq, err := exchangeService.RequestSwap(itemID, userID, body.Note)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.Created(c, swapReq)
}

// RedeemItem 积分兑换物品
// @Summary 积分兑换
// @Description 用积分兑换他人的公开物品：扣积分、物主入账、物品置为已换出，整体原子
// @Tags exchange
// @Produce json
// @Security Bearer
// @Param id path string true "物品ID"
// @Router /api/items/{id}/redeem [post]
func (ec *ExchangeController) RedeemItem(c *gin.Context) {
	userID := c.GetString("user_id")
	itemID := c.Param("id")

	// 兑换接口限流，挡住脚本连点
	if !utils.APIRateLimit(c, userID, 10, time.Minute) {
		utils.Error(c, 429, utils.CodeError, "操作过于频繁，请稍后再试")
		return
	}

	result, err := exchangeService.RedeemWithPoints(itemID, userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.Success(c, result)
}

// GetMySwapRequests 获取发给我的换物请求
func (ec *ExchangeController) GetMySwapRequests(c *gin.Context) {
	userID := c.GetString("user_id")

	reqs, err := exchangeService.GetSwapRequestsForOwner(userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.Success(c, reqs)
}
