package controllers

import (
	"strconv"

	"rewear_go/models"
	"rewear_go/services"
	"rewear_go/utils"

	"github.com/gin-gonic/gin"
)

// 控制器共享的服务单例（ItemService会启动统计worker，不能按请求创建）
var (
	itemService     = services.NewItemService()
	exchangeService = services.NewExchangeService()
	authService     = services.NewAuthService()
)

// ItemController 物品控制器
type ItemController struct{}

// NewItemController 创建物品控制器实例
func NewItemController() *ItemController {
	return &ItemController{}
}

// BrowseItems 公开浏览物品列表
// @Summary 浏览物品
// @Description 分页浏览公开物品（仅审核通过且可交换）
// @Tags items
// @Produce json
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Param category query string false "类别筛选"
// @Param condition query string false "成色筛选"
// @Param sort query string false "排序: created_at_asc / created_at_desc"
// @Success 200 {object} utils.PageResponse
// @Router /api/items [get]
func (ic *ItemController) BrowseItems(c *gin.Context) {
	page, limit := pagination(c)

	filter := &services.ItemFilter{
		UploaderID: c.Query("uploader_id"),
		Category:   c.Query("category"),
		Condition:  c.Query("condition"),
		Search:     c.Query("search"),
		Sort:       c.DefaultQuery("sort", "created_at_desc"),
	}

	items, total, err := itemService.BrowseItems(filter, page, limit)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.Paginate(c, items, total, page, limit)
}

// SearchItems 搜索物品
// @Summary 搜索物品
// @Description 按标题/描述/标签子串搜索公开物品
// @Tags items
// @Produce json
// @Param q query string true "关键词"
// @Router /api/items/search [get]
func (ic *ItemController) SearchItems(c *gin.Context) {
	keyword := c.Query("q")
	if keyword == "" {
		utils.ValidationFailed(c, "搜索关键词不能为空")
		return
	}

	page, limit := pagination(c)
	items, total, err := itemService.SearchItems(keyword, page, limit)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.Paginate(c, items, total, page, limit)
}

// GetHotItems 获取热门物品
func (ic *ItemController) GetHotItems(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	items, err := itemService.GetHotItems(limit)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.Success(c, items)
}

// GetHotKeywords 获取热搜词
func (ic *ItemController) GetHotKeywords(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	keywords, err := itemService.GetHotKeywords(limit)
	if err != nil {
		utils.InternalError(c, "Failed to get hot keywords")
		return
	}

	utils.Success(c, keywords)
}

// GetItem 获取物品详情
// @Summary 获取物品详情
// @Description 根据物品ID获取详细信息，附带同类推荐
// @Tags items
// @Produce json
// @Param id path string true "物品ID"
// @Router /api/items/{id} [get]
func (ic *ItemController) GetItem(c *gin.Context) {
	itemID := c.Param("id")
	viewerID := c.GetString("user_id")

	item, err := itemService.GetItem(itemID, viewerID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	// 未公开的物品只有物主和管理员能看详情
	if !item.IsVisible() && viewerID != item.UploaderID && c.GetString("role") != models.RoleAdmin {
		utils.NotFound(c, "Item not found")
		return
	}

	// 同类推荐
	similar, _ := itemService.GetSimilarItems(item.ID, item.Category, 4)

	utils.Success(c, gin.H{
		"item":    item,
		"similar": similar,
	})
}

// GetMyItems 获取我的物品列表（包含未过审的）
func (ic *ItemController) GetMyItems(c *gin.Context) {
	userID := c.GetString("user_id")
	page, limit := pagination(c)

	filter := &services.ItemFilter{
		UploaderID:     userID,
		ApprovalStatus: c.Query("approval_status"),
		Sort:           "created_at_desc",
	}

	items, total, err := itemService.QueryItems(filter, page, limit)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.Paginate(c, items, total, page, limit)
}

// CreateItem 创建物品
// @Summary 创建物品
// @Description 发布新物品，进入待审核状态
// @Tags items
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body services.CreateItemRequest true "物品信息"
// @Router /api/items [post]
func (ic *ItemController) CreateItem(c *gin.Context) {
	userID := c.GetString("user_id")
	username := c.GetString("username")

	var req services.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err.Error())
		return
	}

	item, err := itemService.CreateItem(userID, username, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.Created(c, item)
}

// UpdateItem 更新物品
func (ic *ItemController) UpdateItem(c *gin.Context) {
	userID := c.GetString("user_id")
	itemID := c.Param("id")

	var req services.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationFailed(c, err.Error())
		return
	}

	item, err := itemService.UpdateItem(userID, itemID, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.Success(c, item)
}

// DeleteItem 删除物品（物主本人）
func (ic *ItemController) DeleteItem(c *gin.Context) {
	userID := c.GetString("user_id")
	role := c.GetString("role")
	itemID := c.Param("id")

	if err := exchangeService.DeleteItem(itemID, userID, role); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "Item deleted", nil)
}

// pagination 解析分页参数
func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
