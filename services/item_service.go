package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"rewear_go/config"
	"rewear_go/models"

	"gorm.io/gorm"
)

var redisCtx = context.Background()

// ItemService 物品目录服务
// 只负责持有与查询物品集合，业务规则（审核、换物、兑换）在 ExchangeService。
type ItemService struct {
	// 浏览统计队列
	viewStatsQueue chan *ItemViewStat
}

// ItemViewStat 物品浏览统计
type ItemViewStat struct {
	ItemID    string
	UserID    string
	Timestamp time.Time
}

// NewItemService 创建物品目录服务实例
func NewItemService() *ItemService {
	is := &ItemService{
		viewStatsQueue: make(chan *ItemViewStat, 2000),
	}

	// 启动统计worker池
	is.startStatsWorkers()

	return is
}

// ==================== 请求结构 ====================

// CreateItemRequest 创建物品请求
type CreateItemRequest struct {
	Title       string   `json:"title" binding:"required,max=200"`
	Description string   `json:"description" binding:"required"`
	Category    string   `json:"category" binding:"required,max=50"`
	Type        string   `json:"type" binding:"omitempty,max=50"`
	Size        string   `json:"size" binding:"required,max=20"`
	Condition   string   `json:"condition" binding:"required,condition"`
	Tags        []string `json:"tags"`
	Images      []string `json:"images" binding:"required"` // 1-5张，多于5张直接拒绝
	PointsValue int      `json:"points_value" binding:"required,points"`
}

// UpdateItemRequest 更新物品请求
// 积分价值、物主身份、审核与可用状态创建后不可通过更新修改；
// 用指针字段区分"未提交"和"提交了不可变字段"，后者直接报错而不是静默丢弃。
type UpdateItemRequest struct {
	Title       string   `json:"title" binding:"omitempty,max=200"`
	Description string   `json:"description"`
	Category    string   `json:"category" binding:"omitempty,max=50"`
	Type        string   `json:"type" binding:"omitempty,max=50"`
	Size        string   `json:"size" binding:"omitempty,max=20"`
	Condition   string   `json:"condition" binding:"omitempty,condition"`
	Tags        []string `json:"tags"`
	Images      []string `json:"images"`

	// 不可变字段：提交了与当前值不同的内容视为非法状态变更
	PointsValue    *int    `json:"points_value"`
	UploaderID     *string `json:"uploader_id"`
	ApprovalStatus *string `json:"approval_status"`
	Status         *string `json:"status"`
}

// ItemFilter 物品查询条件
type ItemFilter struct {
	UploaderID     string
	ApprovalStatus string
	Status         string
	Category       string
	Condition      string
	Search         string // 标题/描述/标签 大小写不敏感子串匹配
	VisibleOnly    bool   // 仅公开可见（approved + available）
	Sort           string // created_at_asc（默认，插入序） / created_at_desc
}

// ==================== CRUD操作 ====================

// CreateItem 创建物品
// 新物品审核状态为pending，可用状态为available，上传者昵称为创建时快照。
func (is *ItemService) CreateItem(userID, username string, req *CreateItemRequest) (*models.Item, error) {
	// 1. 校验必填字段（binding之外的服务层兜底）
	if strings.TrimSpace(req.Title) == "" {
		return nil, NewValidationError("title", "不能为空")
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, NewValidationError("description", "不能为空")
	}
	if strings.TrimSpace(req.Category) == "" {
		return nil, NewValidationError("category", "不能为空")
	}
	if strings.TrimSpace(req.Size) == "" {
		return nil, NewValidationError("size", "不能为空")
	}
	if !models.IsValidCondition(req.Condition) {
		return nil, NewValidationError("condition", "必须是 like-new/excellent/good/fair 之一")
	}

	// 2. 校验图片数量：至少1张，最多5张（多于5张拒绝而不是截断）
	if len(req.Images) == 0 {
		return nil, NewValidationError("images", "至少需要1张图片")
	}
	if len(req.Images) > models.MaxItemImages {
		return nil, NewValidationError("images", fmt.Sprintf("最多%d张图片", models.MaxItemImages))
	}
	for _, ref := range req.Images {
		if strings.TrimSpace(ref) == "" {
			return nil, NewValidationError("images", "图片引用不能为空")
		}
	}

	// 3. 校验积分价值范围
	if req.PointsValue < 1 || req.PointsValue > 100 {
		return nil, NewValidationError("points_value", "必须在1-100之间")
	}

	// 4. 创建物品
	item := models.Item{
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		Category:       req.Category,
		Type:           req.Type,
		Size:           req.Size,
		Condition:      req.Condition,
		UploaderID:     userID,
		UploaderName:   username,
		PointsValue:    req.PointsValue,
		Status:         models.ItemStatusAvailable,
		ApprovalStatus: models.ApprovalPending,
	}
	item.PackJSON(req.Tags, req.Images)

	if err := config.DB.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	// 5. 异步清除缓存并记录事件
	go clearItemCaches(item.ID)
	go publishItemEvent("item_created", item.ID, userID)

	return &item, nil
}

// GetItem 获取物品详情
func (is *ItemService) GetItem(itemID, viewerID string) (*models.Item, error) {
	// 1. 尝试从Redis缓存获取
	cacheKey := fmt.Sprintf("item:%s", itemID)
	if config.RedisClient != nil {
		cached, err := config.RedisClient.Get(redisCtx, cacheKey).Result()
		if err == nil {
			var item models.Item
			if json.Unmarshal([]byte(cached), &item) == nil {
				is.recordView(itemID, viewerID)
				return &item, nil
			}
		}
	}

	// 2. 从数据库查询
	var item models.Item
	if err := config.DB.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	// 3. 异步记录浏览统计
	is.recordView(itemID, viewerID)

	// 4. 异步缓存到Redis
	go func() {
		if config.RedisClient != nil {
			data, _ := json.Marshal(item)
			config.RedisClient.Set(redisCtx, cacheKey, data, 10*time.Minute)
		}
	}()

	return &item, nil
}

// UpdateItem 更新物品
// 只有物主可更新；不允许改动物主、积分价值或审核状态。
func (is *ItemService) UpdateItem(userID, itemID string, req *UpdateItemRequest) (*models.Item, error) {
	// 1. 查找物品
	var item models.Item
	if err := config.DB.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	// 2. 检查权限
	if item.UploaderID != userID {
		return nil, forbiddenf("only the uploader can update this item")
	}

	// 3. 已换出的物品不再允许编辑
	if item.Status == models.ItemStatusSwapped {
		return nil, invariantf("item has been swapped")
	}

	// 4. 拒绝对不可变字段的修改
	if req.PointsValue != nil && *req.PointsValue != item.PointsValue {
		return nil, invariantf("points_value cannot be changed after creation")
	}
	if req.UploaderID != nil && *req.UploaderID != item.UploaderID {
		return nil, invariantf("uploader cannot be changed")
	}
	if req.ApprovalStatus != nil && *req.ApprovalStatus != item.ApprovalStatus {
		return nil, invariantf("approval_status can only change through moderation")
	}
	if req.Status != nil && *req.Status != item.Status {
		return nil, invariantf("status can only change through an exchange")
	}

	// 5. 构建更新map
	updates := make(map[string]interface{})
	if strings.TrimSpace(req.Title) != "" {
		updates["title"] = strings.TrimSpace(req.Title)
	}
	if strings.TrimSpace(req.Description) != "" {
		updates["description"] = strings.TrimSpace(req.Description)
	}
	if req.Category != "" {
		updates["category"] = req.Category
	}
	if req.Type != "" {
		updates["type"] = req.Type
	}
	if req.Size != "" {
		updates["size"] = req.Size
	}
	if req.Condition != "" {
		if !models.IsValidCondition(req.Condition) {
			return nil, NewValidationError("condition", "必须是 like-new/excellent/good/fair 之一")
		}
		updates["condition"] = req.Condition
	}
	if req.Tags != nil {
		tagsJSON, _ := json.Marshal(req.Tags)
		updates["tags"] = string(tagsJSON)
	}
	if req.Images != nil {
		if len(req.Images) == 0 {
			return nil, NewValidationError("images", "至少需要1张图片")
		}
		if len(req.Images) > models.MaxItemImages {
			return nil, NewValidationError("images", fmt.Sprintf("最多%d张图片", models.MaxItemImages))
		}
		imagesJSON, _ := json.Marshal(req.Images)
		updates["images"] = string(imagesJSON)
	}

	// 6. 更新数据库
	if len(updates) > 0 {
		if err := config.DB.Model(&item).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update item: %w", err)
		}
	}

	// 7. 重新查询更新后的数据
	if err := config.DB.First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}

	// 8. 异步清除缓存
	go clearItemCaches(itemID)

	return &item, nil
}

// ==================== 查询方法 ====================

// QueryItems 条件查询物品列表
// 结果默认按插入序（created_at升序），同一条件重复查询返回相同序列。
func (is *ItemService) QueryItems(filter *ItemFilter, page, limit int) ([]models.Item, int64, error) {
	query := config.DB.Model(&models.Item{})

	// 应用筛选条件
	if filter.UploaderID != "" {
		query = query.Where("uploader_id = ?", filter.UploaderID)
	}
	if filter.ApprovalStatus != "" {
		query = query.Where("approval_status = ?", filter.ApprovalStatus)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.VisibleOnly {
		query = query.Where("approval_status = ? AND status = ?",
			models.ApprovalApproved, models.ItemStatusAvailable)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Condition != "" {
		query = query.Where("`condition` = ?", filter.Condition)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(tags) LIKE ?",
			pattern, pattern, pattern)
	}

	// 获取总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	// 排序：默认插入序
	order := "created_at ASC, id ASC"
	if filter.Sort == "created_at_desc" {
		order = "created_at DESC, id DESC"
	}

	// 获取数据
	var items []models.Item
	q := query.Order(order)
	if limit > 0 {
		q = q.Limit(limit).Offset((page - 1) * limit)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query items: %w", err)
	}

	return items, total, nil
}

// BrowseItems 公开浏览列表（仅 approved + available）
func (is *ItemService) BrowseItems(filter *ItemFilter, page, limit int) ([]models.Item, int64, error) {
	// 1. 构建缓存key（只有无搜索词的首屏才值得缓存）
	cacheable := config.RedisClient != nil && filter.Search == "" && filter.UploaderID == ""
	cacheKey := fmt.Sprintf("browse:items:%s:%s:%s:%d:%d",
		filter.Category, filter.Condition, filter.Sort, page, limit)

	// 2. 尝试从Redis获取
	if cacheable {
		cached, err := config.RedisClient.Get(redisCtx, cacheKey).Result()
		if err == nil {
			var result struct {
				Items []models.Item `json:"items"`
				Total int64         `json:"total"`
			}
			if json.Unmarshal([]byte(cached), &result) == nil {
				return result.Items, result.Total, nil
			}
		}
	}

	// 3. 数据库查询
	f := *filter
	f.VisibleOnly = true
	items, total, err := is.QueryItems(&f, page, limit)
	if err != nil {
		return nil, 0, err
	}

	// 4. 异步缓存结果
	if cacheable {
		go func() {
			result := struct {
				Items []models.Item `json:"items"`
				Total int64         `json:"total"`
			}{items, total}
			data, _ := json.Marshal(result)
			config.RedisClient.Set(redisCtx, cacheKey, data, 5*time.Minute)
		}()
	}

	return items, total, nil
}

// SearchItems 公开搜索（标题/描述/标签），并记录热搜词
func (is *ItemService) SearchItems(keyword string, page, limit int) ([]models.Item, int64, error) {
	go is.recordSearchKeyword(keyword)

	filter := &ItemFilter{Search: keyword, VisibleOnly: true}
	return is.QueryItems(filter, page, limit)
}

// GetHotItems 获取热门物品（按浏览量）
func (is *ItemService) GetHotItems(limit int) ([]models.Item, error) {
	cacheKey := "hot:items"

	// 1. 尝试从Redis获取
	if config.RedisClient != nil {
		cached, err := config.RedisClient.Get(redisCtx, cacheKey).Result()
		if err == nil {
			var items []models.Item
			if json.Unmarshal([]byte(cached), &items) == nil {
				return items, nil
			}
		}
	}

	// 2. 从数据库获取
	var items []models.Item
	if err := config.DB.
		Where("approval_status = ? AND status = ?", models.ApprovalApproved, models.ItemStatusAvailable).
		Order("view_count DESC, created_at DESC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to get hot items: %w", err)
	}

	// 3. 异步缓存
	go func() {
		if config.RedisClient != nil {
			data, _ := json.Marshal(items)
			config.RedisClient.Set(redisCtx, cacheKey, data, 10*time.Minute)
		}
	}()

	return items, nil
}

// GetSimilarItems 获取同类相似物品（详情页推荐位）
func (is *ItemService) GetSimilarItems(itemID, category string, limit int) ([]models.Item, error) {
	var items []models.Item
	if err := config.DB.
		Where("approval_status = ? AND status = ?", models.ApprovalApproved, models.ItemStatusAvailable).
		Where("category = ? AND id != ?", category, itemID).
		Order("view_count DESC, created_at DESC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to get similar items: %w", err)
	}
	return items, nil
}

// ==================== Worker相关方法 ====================

// startStatsWorkers 启动统计worker池
func (is *ItemService) startStatsWorkers() {
	for i := 0; i < 3; i++ {
		go is.processViewStats()
	}
}

// recordView 投递浏览统计（队列满则丢弃，不阻塞请求）
func (is *ItemService) recordView(itemID, viewerID string) {
	select {
	case is.viewStatsQueue <- &ItemViewStat{ItemID: itemID, UserID: viewerID, Timestamp: time.Now()}:
	default:
	}
}

// processViewStats 处理浏览统计
func (is *ItemService) processViewStats() {
	for stat := range is.viewStatsQueue {
		// 更新数据库（使用原子操作）
		config.DB.Exec("UPDATE items SET view_count = view_count + 1 WHERE id = ?", stat.ItemID)

		// 更新Redis排行榜
		if config.RedisClient != nil {
			config.RedisClient.ZIncrBy(redisCtx, "rank:item:views", 1, stat.ItemID)
			config.RedisClient.Expire(redisCtx, "rank:item:views", 7*24*time.Hour)
		}
	}
}

// ==================== 辅助方法 ====================

// clearItemCaches 清除物品相关缓存
func clearItemCaches(itemID string) {
	if config.RedisClient == nil {
		return
	}

	config.RedisClient.Del(redisCtx, fmt.Sprintf("item:%s", itemID), "hot:items")

	// 清除浏览页缓存（模糊匹配）
	keys, _ := config.RedisClient.Keys(redisCtx, "browse:items:*").Result()
	if len(keys) > 0 {
		config.RedisClient.Del(redisCtx, keys...)
	}
}

// recordSearchKeyword 记录搜索关键词
func (is *ItemService) recordSearchKeyword(keyword string) {
	if config.RedisClient == nil || keyword == "" {
		return
	}

	config.RedisClient.ZIncrBy(redisCtx, "search:hot", 1, strings.ToLower(keyword))
	config.RedisClient.Expire(redisCtx, "search:hot", 24*time.Hour)
}

// GetHotKeywords 获取热搜词
func (is *ItemService) GetHotKeywords(limit int) ([]string, error) {
	if config.RedisClient == nil {
		return []string{}, nil
	}

	keywords, err := config.RedisClient.ZRevRange(redisCtx, "search:hot", 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	return keywords, nil
}
