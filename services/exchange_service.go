package services

import (
	"errors"
	"fmt"
	"time"

	"rewear_go/config"
	"rewear_go/models"
	"rewear_go/websocket"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ExchangeService 交换引擎
// 负责审核流转、换物请求与积分兑换事务；物品状态只能经由这里改变。
type ExchangeService struct{}

// NewExchangeService 创建交换引擎实例
func NewExchangeService() *ExchangeService {
	return &ExchangeService{}
}

// RedemptionResult 积分兑换结果
type RedemptionResult struct {
	Item             *models.Item `json:"item"`
	RequesterID      string       `json:"requester_id"`
	RequesterBalance int          `json:"requester_balance"`
	OwnerID          string       `json:"owner_id"`
	OwnerBalance     int          `json:"owner_balance"`
	PointsSpent      int          `json:"points_spent"`
}

// ==================== 审核 ====================

// ModerateItem 审核物品（approve/reject）
// 只有管理员可操作；pending是唯一可流出的状态，approved/rejected为终态。
func (es *ExchangeService) ModerateItem(itemID, decision, actorRole string) (*models.Item, error) {
	// 1. 权限检查
	if actorRole != models.RoleAdmin {
		return nil, forbiddenf("only admins can moderate items")
	}

	// 2. 决定目标状态
	var target string
	switch decision {
	case "approve":
		target = models.ApprovalApproved
	case "reject":
		target = models.ApprovalRejected
	default:
		return nil, NewValidationError("decision", "必须是 approve 或 reject")
	}

	// 3. 查找物品
	var item models.Item
	if err := config.DB.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	// 4. 条件更新：只有pending状态能转出，RowsAffected=0说明已被并发审核过
	result := config.DB.Model(&models.Item{}).
		Where("id = ? AND approval_status = ?", itemID, models.ApprovalPending).
		Update("approval_status", target)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to moderate item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// 可能被并发审核过，重新读取拿到真实状态
		config.DB.First(&item, "id = ?", itemID)
		return nil, invariantf("item is not pending moderation (current: %s)", item.ApprovalStatus)
	}

	// 5. 重新查询
	if err := config.DB.First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}

	// 6. 清缓存、发事件、推送给物主
	go clearItemCaches(itemID)
	go publishItemEvent("item_"+target, itemID, item.UploaderID)
	go websocket.NotifyUser(item.UploaderID, &websocket.Notification{
		Type:   "moderation_decision",
		ItemID: itemID,
		Data: map[string]interface{}{
			"title":           item.Title,
			"approval_status": item.ApprovalStatus,
		},
	})

	return &item, nil
}

// ==================== 换物请求 ====================

// RequestSwap 发起换物请求
// 仅记录协商开始并通知物主，不改变物品状态（不预留，避免多人同时感兴趣时互相卡死）。
func (es *ExchangeService) RequestSwap(itemID, requesterID, note string) (*models.SwapRequest, error) {
	// 1. 查找物品
	var item models.Item
	if err := config.DB.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	// 2. 不允许对自己的物品发起
	if item.UploaderID == requesterID {
		return nil, forbiddenf("cannot request a swap on your own item")
	}

	// 3. 必须审核通过且可交换
	if item.ApprovalStatus != models.ApprovalApproved {
		return nil, invariantf("item is not approved (current: %s)", item.ApprovalStatus)
	}
	if item.Status != models.ItemStatusAvailable {
		return nil, invariantf("item is not available (current: %s)", item.Status)
	}

	// 4. 创建请求
	swapReq := models.SwapRequest{
		ItemID:      itemID,
		RequesterID: requesterID,
		OwnerID:     item.UploaderID,
		Note:        note,
		Status:      "pending",
	}
	if err := config.DB.Create(&swapReq).Error; err != nil {
		return nil, fmt.Errorf("failed to create swap request: %w", err)
	}

	// 5. 通知物主
	go websocket.NotifyUser(item.UploaderID, &websocket.Notification{
		Type:   "swap_request",
		ItemID: itemID,
		Data: map[string]interface{}{
			"swap_request_id": swapReq.ID,
			"requester_id":    requesterID,
			"title":           item.Title,
			"note":            note,
		},
	})
	go publishItemEvent("swap_requested", itemID, requesterID)

	return &swapReq, nil
}

// GetSwapRequestsForOwner 获取发给某物主的换物请求列表
func (es *ExchangeService) GetSwapRequestsForOwner(ownerID string) ([]models.SwapRequest, error) {
	var reqs []models.SwapRequest
	if err := config.DB.
		Preload("Item").
		Preload("Requester").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("failed to get swap requests: %w", err)
	}
	return reqs, nil
}

// ==================== 积分兑换 ====================

// RedeemWithPoints 积分兑换物品
// 系统里唯一真正改变归属的事务：扣请求者积分、加物主积分、物品置为swapped，
// 三步在同一数据库事务内完成，条件更新保证同一物品的并发兑换只有一个成功。
func (es *ExchangeService) RedeemWithPoints(itemID, requesterID string) (*RedemptionResult, error) {
	var redemption *RedemptionResult

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		// 1. 查找物品
		var item models.Item
		if err := tx.First(&item, "id = ?", itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get item: %w", err)
		}

		// 2. 前置校验
		if item.UploaderID == requesterID {
			return forbiddenf("cannot redeem your own item")
		}
		if item.ApprovalStatus != models.ApprovalApproved {
			return invariantf("item is not approved (current: %s)", item.ApprovalStatus)
		}
		if item.Status != models.ItemStatusAvailable {
			return invariantf("item is not available (current: %s)", item.Status)
		}

		// 3. 占用物品：只有available能转为swapped，抢不到说明被并发兑换
		flip := tx.Model(&models.Item{}).
			Where("id = ? AND status = ?", itemID, models.ItemStatusAvailable).
			Update("status", models.ItemStatusSwapped)
		if flip.Error != nil {
			return fmt.Errorf("failed to update item status: %w", flip.Error)
		}
		if flip.RowsAffected == 0 {
			return invariantf("item was redeemed concurrently")
		}

		// 4. 扣除请求者积分：余额不足时RowsAffected=0，事务回滚
		debit := tx.Exec(
			"UPDATE users SET points = points - ? WHERE id = ? AND points >= ?",
			item.PointsValue, requesterID, item.PointsValue)
		if debit.Error != nil {
			return fmt.Errorf("failed to debit points: %w", debit.Error)
		}
		if debit.RowsAffected == 0 {
			return ErrInsufficientPoints
		}

		// 5. 物主入账
		credit := tx.Exec(
			"UPDATE users SET points = points + ? WHERE id = ?",
			item.PointsValue, item.UploaderID)
		if credit.Error != nil {
			return fmt.Errorf("failed to credit points: %w", credit.Error)
		}
		if credit.RowsAffected == 0 {
			return fmt.Errorf("owner account missing for item %s", itemID)
		}

		// 6. 写积分流水
		var requester, owner models.User
		if err := tx.First(&requester, "id = ?", requesterID).Error; err != nil {
			return fmt.Errorf("failed to load requester: %w", err)
		}
		if err := tx.First(&owner, "id = ?", item.UploaderID).Error; err != nil {
			return fmt.Errorf("failed to load owner: %w", err)
		}

		ledgers := []models.PointLedger{
			{
				UserID:       requesterID,
				Change:       -item.PointsValue,
				BalanceAfter: requester.Points,
				EventType:    models.LedgerRedeemDebit,
				ItemID:       itemID,
			},
			{
				UserID:       owner.ID,
				Change:       item.PointsValue,
				BalanceAfter: owner.Points,
				EventType:    models.LedgerRedeemCredit,
				ItemID:       itemID,
			},
		}
		if err := tx.Create(&ledgers).Error; err != nil {
			return fmt.Errorf("failed to write point ledger: %w", err)
		}

		// 7. 组装结果
		if err := tx.First(&item, "id = ?", itemID).Error; err != nil {
			return err
		}
		redemption = &RedemptionResult{
			Item:             &item,
			RequesterID:      requesterID,
			RequesterBalance: requester.Points,
			OwnerID:          owner.ID,
			OwnerBalance:     owner.Points,
			PointsSpent:      item.PointsValue,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 事务提交后再清缓存、发事件、推送
	go clearItemCaches(itemID)
	go publishItemEvent("item_redeemed", itemID, requesterID)
	go websocket.NotifyUser(redemption.OwnerID, &websocket.Notification{
		Type:   "item_redeemed",
		ItemID: itemID,
		Data: map[string]interface{}{
			"requester_id":  requesterID,
			"points_earned": redemption.PointsSpent,
		},
	})

	return redemption, nil
}

// ==================== 删除 ====================

// DeleteItem 删除物品（硬删除）
// 物主或管理员可删除；随物品一并移除其换物请求。
func (es *ExchangeService) DeleteItem(itemID, actorID, actorRole string) error {
	// 1. 查找物品
	var item models.Item
	if err := config.DB.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get item: %w", err)
	}

	// 2. 权限检查
	if item.UploaderID != actorID && actorRole != models.RoleAdmin {
		return forbiddenf("only the uploader or an admin can delete this item")
	}

	// 3. 硬删除物品及其换物请求
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", itemID).Delete(&models.SwapRequest{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Item{}, "id = ?", itemID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	// 4. 清缓存、发事件
	go clearItemCaches(itemID)
	go publishItemEvent("item_deleted", itemID, actorID)

	return nil
}

// ==================== 统计 ====================

// AdminStats 管理面板统计
type AdminStats struct {
	PendingCount  int64            `json:"pending_count"`
	ApprovedCount int64            `json:"approved_count"`
	RejectedCount int64            `json:"rejected_count"`
	SwappedCount  int64            `json:"swapped_count"`
	TotalItems    int64            `json:"total_items"`
	TotalUsers    int64            `json:"total_users"`
	ByCategory    map[string]int64 `json:"by_category"`
}

// GetAdminStats 获取管理面板统计数据
func (es *ExchangeService) GetAdminStats() (*AdminStats, error) {
	stats := &AdminStats{ByCategory: make(map[string]int64)}

	counts := map[string]*int64{
		models.ApprovalPending:  &stats.PendingCount,
		models.ApprovalApproved: &stats.ApprovedCount,
		models.ApprovalRejected: &stats.RejectedCount,
	}
	for status, dst := range counts {
		if err := config.DB.Model(&models.Item{}).
			Where("approval_status = ?", status).Count(dst).Error; err != nil {
			return nil, fmt.Errorf("failed to count items: %w", err)
		}
	}
	if err := config.DB.Model(&models.Item{}).
		Where("status = ?", models.ItemStatusSwapped).Count(&stats.SwappedCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count swapped items: %w", err)
	}
	if err := config.DB.Model(&models.Item{}).Count(&stats.TotalItems).Error; err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	if err := config.DB.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	// 类别分布
	type categoryCount struct {
		Category string
		Count    int64
	}
	var rows []categoryCount
	if err := config.DB.Model(&models.Item{}).
		Select("category, COUNT(*) as count").
		Group("category").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to group by category: %w", err)
	}
	for _, row := range rows {
		stats.ByCategory[row.Category] = row.Count
	}

	return stats, nil
}

// ==================== 事件 ====================

// publishItemEvent 将物品事件写入Redis Stream（用于离线分析）
func publishItemEvent(event, itemID, actorID string) {
	if config.RedisClient == nil {
		return
	}

	config.RedisClient.XAdd(redisCtx, &redis.XAddArgs{
		Stream: "item_events",
		Values: map[string]interface{}{
			"event":     event,
			"item_id":   itemID,
			"actor_id":  actorID,
			"timestamp": time.Now().Unix(),
		},
	})
	config.RedisClient.XTrimMaxLen(redisCtx, "item_events", 100000)
}
