package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// 物品可用状态
const (
	ItemStatusAvailable = "available" // 可交换
	ItemStatusPending   = "pending"   // 交换中（预留，当前流程不会设置）
	ItemStatusSwapped   = "swapped"   // 已换出（终态）
)

// 物品审核状态
const (
	ApprovalPending  = "pending"  // 待审核
	ApprovalApproved = "approved" // 审核通过（终态）
	ApprovalRejected = "rejected" // 审核拒绝（终态）
)

// 积分流水事件类型
const (
	LedgerSignupBonus  = "signup_bonus"  // 注册赠送
	LedgerRedeemDebit  = "redeem_debit"  // 兑换扣除
	LedgerRedeemCredit = "redeem_credit" // 兑换入账
)

// MaxItemImages 单个物品最多图片数
const MaxItemImages = 5

// Item 衣物物品模型
type Item struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title          string    `gorm:"type:varchar(200);not null;index" json:"title"`
	Description    string    `gorm:"type:text;not null" json:"description"`
	Category       string    `gorm:"type:varchar(50);index;not null" json:"category"`
	Type           string    `gorm:"type:varchar(50)" json:"type"`
	Size           string    `gorm:"type:varchar(20);not null" json:"size"`
	Condition      string    `gorm:"type:varchar(20);not null;comment:like-new,excellent,good,fair" json:"condition"`
	Tags           string    `gorm:"type:text;comment:JSON数组字符串" json:"-"`
	Images         string    `gorm:"type:text;not null;comment:JSON数组字符串,1-5张,顺序即展示顺序" json:"-"`
	UploaderID     string    `gorm:"type:varchar(36);index;not null" json:"uploader_id"`
	UploaderName   string    `gorm:"type:varchar(50);not null;comment:创建时的快照,改名不回填" json:"uploader_name"`
	PointsValue    int       `gorm:"not null;comment:1-100,创建后不可变" json:"points_value"`
	Status         string    `gorm:"type:varchar(20);default:available;index;comment:available,pending,swapped" json:"status"`
	ApprovalStatus string    `gorm:"type:varchar(20);default:pending;index;comment:pending,approved,rejected" json:"approval_status"`
	ViewCount      int64     `gorm:"default:0" json:"view_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// 关联关系
	Uploader     User          `gorm:"foreignKey:UploaderID" json:"uploader,omitempty"`
	SwapRequests []SwapRequest `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"swap_requests,omitempty"`

	// JSON展开字段（不落库）
	TagList   []string `gorm:"-" json:"tags"`
	ImageList []string `gorm:"-" json:"images"`
}

// SwapRequest 换物请求模型
// 仅记录协商开始并通知物主，不预留物品（完成流程另行实现）。
type SwapRequest struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ItemID      string    `gorm:"type:varchar(36);index;not null" json:"item_id"`
	RequesterID string    `gorm:"type:varchar(36);index;not null" json:"requester_id"`
	OwnerID     string    `gorm:"type:varchar(36);index;not null" json:"owner_id"`
	Note        string    `gorm:"type:varchar(500)" json:"note,omitempty"`
	Status      string    `gorm:"type:varchar(20);default:pending" json:"status"`
	CreatedAt   time.Time `json:"created_at"`

	// 关联关系
	Item      Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Requester User `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
}

// PointLedger 积分流水模型
type PointLedger struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID       string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Change       int       `gorm:"not null" json:"change"`
	BalanceAfter int       `gorm:"not null" json:"balance_after"`
	EventType    string    `gorm:"type:varchar(30);not null" json:"event_type"`
	ItemID       string    `gorm:"type:varchar(36);index" json:"item_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (Item) TableName() string {
	return "items"
}

func (SwapRequest) TableName() string {
	return "swap_requests"
}

func (PointLedger) TableName() string {
	return "point_ledgers"
}

// BeforeCreate 创建前钩子
func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = generateUUID()
	}
	return nil
}

func (sr *SwapRequest) BeforeCreate(tx *gorm.DB) error {
	if sr.ID == "" {
		sr.ID = generateUUID()
	}
	return nil
}

func (pl *PointLedger) BeforeCreate(tx *gorm.DB) error {
	if pl.ID == "" {
		pl.ID = generateUUID()
	}
	return nil
}

// AfterFind 查询后钩子，展开JSON字段
func (i *Item) AfterFind(tx *gorm.DB) error {
	i.unpackJSON()
	return nil
}

// PackJSON 将切片字段序列化进落库字段
func (i *Item) PackJSON(tags, images []string) {
	tagsJSON, _ := json.Marshal(tags)
	imagesJSON, _ := json.Marshal(images)
	i.Tags = string(tagsJSON)
	i.Images = string(imagesJSON)
	i.TagList = tags
	i.ImageList = images
}

// unpackJSON 将落库字段反序列化到展开字段
func (i *Item) unpackJSON() {
	i.TagList = []string{}
	i.ImageList = []string{}
	if i.Tags != "" {
		_ = json.Unmarshal([]byte(i.Tags), &i.TagList)
	}
	if i.Images != "" {
		_ = json.Unmarshal([]byte(i.Images), &i.ImageList)
	}
}

// IsVisible 是否公开可见：审核通过且可交换
func (i *Item) IsVisible() bool {
	return i.ApprovalStatus == ApprovalApproved && i.Status == ItemStatusAvailable
}

// IsValidCondition 校验成色枚举
func IsValidCondition(condition string) bool {
	switch condition {
	case "like-new", "excellent", "good", "fair":
		return true
	}
	return false
}
