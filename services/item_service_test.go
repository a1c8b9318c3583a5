package services

import (
	"testing"

	"rewear_go/config"
	"rewear_go/models"

	"github.com/stretchr/testify/require"
)

func validCreateRequest() *CreateItemRequest {
	return &CreateItemRequest{
		Title:       "牛仔外套",
		Description: "经典款牛仔外套，穿过几次",
		Category:    "outerwear",
		Type:        "jacket",
		Size:        "L",
		Condition:   "excellent",
		Tags:        []string{"denim", "casual"},
		Images:      []string{"1700000001_a.jpg", "1700000002_b.jpg"},
		PointsValue: 40,
	}
}

// ==================== 创建 ====================

// 新物品进入待审核队列，不出现在公开列表
func TestCreateItemStartsPending(t *testing.T) {
	setupTestDB(t)
	is := NewItemService()
	owner := createTestUser(t, "creator", models.RoleMember, 0)

	item, err := is.CreateItem(owner.ID, owner.Username, validCreateRequest())
	require.NoError(t, err)
	require.NotEmpty(t, item.ID)
	require.Equal(t, models.ApprovalPending, item.ApprovalStatus)
	require.Equal(t, models.ItemStatusAvailable, item.Status)
	require.Equal(t, owner.ID, item.UploaderID)
	require.Equal(t, owner.Username, item.UploaderName)
	require.Equal(t, []string{"denim", "casual"}, item.TagList)
	require.Equal(t, []string{"1700000001_a.jpg", "1700000002_b.jpg"}, item.ImageList)

	items, total, err := is.BrowseItems(&ItemFilter{}, 1, 20)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, items)
}

func TestCreateItemValidation(t *testing.T) {
	setupTestDB(t)
	is := NewItemService()
	owner := createTestUser(t, "validator", models.RoleMember, 0)

	cases := []struct {
		name   string
		mutate func(*CreateItemRequest)
	}{
		{"empty title", func(r *CreateItemRequest) { r.Title = "   " }},
		{"empty description", func(r *CreateItemRequest) { r.Description = "" }},
		{"empty category", func(r *CreateItemRequest) { r.Category = "" }},
		{"empty size", func(r *CreateItemRequest) { r.Size = "" }},
		{"bad condition", func(r *CreateItemRequest) { r.Condition = "worn-out" }},
		{"no images", func(r *CreateItemRequest) { r.Images = nil }},
		{"too many images", func(r *CreateItemRequest) {
			r.Images = []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg", "f.jpg"}
		}},
		{"blank image ref", func(r *CreateItemRequest) { r.Images = []string{"a.jpg", " "} }},
		{"points too low", func(r *CreateItemRequest) { r.PointsValue = 0 }},
		{"points too high", func(r *CreateItemRequest) { r.PointsValue = 101 }},
	}

	for _, tc := range cases {
		req := validCreateRequest()
		tc.mutate(req)
		_, err := is.CreateItem(owner.ID, owner.Username, req)
		require.True(t, IsValidationError(err), "case %q should fail validation, got %v", tc.name, err)
	}

	// 无效请求不留下任何记录
	var count int64
	require.NoError(t, config.DB.Model(&models.Item{}).Count(&count).Error)
	require.Zero(t, count)
}

// 五张图片是允许的上限
func TestCreateItemMaxImages(t *testing.T) {
	setupTestDB(t)
	is := NewItemService()
	owner := createTestUser(t, "five_images", models.RoleMember, 0)

	req := validCreateRequest()
	req.Images = []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"}
	item, err := is.CreateItem(owner.ID, owner.Username, req)
	require.NoError(t, err)
	require.Len(t, item.ImageList, models.MaxItemImages)
}

// ==================== 可见性 ====================

// 公开列表只包含 approved + available 的物品
func TestBrowseItemsOnlyVisible(t *testing.T) {
	setupTestDB(t)
	is := NewItemService()
	owner := createTestUser(t, "browse_owner", models.RoleMember, 0)

	createTestItem(t, owner, 10, models.ApprovalPending, models.ItemStatusAvailable)
	visible := createTestItem(t, owner, 10, models.ApprovalApproved, models.ItemStatusAvailable)
	createTestItem(t, owner, 10, models.ApprovalApproved, models.ItemStatusSwapped)
	createTestItem(t, owner, 10, models.ApprovalRejected, models.ItemStatusAvailable)

	items, total, err := is.BrowseItems(&ItemFilter{}, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	require.Equal(t, visible.ID, items[0].ID)
}

func TestGetItemNotFound(t *testing.T) {
	setupTestDB(t)
	is := NewItemService()

	_, err := is.GetItem("no-such-item", "")
	require.ErrorIs(t, err, ErrNotFound)
}

// ==================== 查询 ====================

// 同一条件重复查询返回相同序列，升降序互为镜像
func TestQueryItemsStableOrder(t *testing.T) {
	setupTestDB(t)
	is := NewItemService()
	owner := createTestUser(t, "order_owner", models.RoleMember, 0)

	for i := 0; i < 5; i++ {
		createTestItem(t, owner, 10, models.ApprovalApproved, models.ItemStatusAvailable)
	}

	first, _, err := is.QueryItems(&ItemFilter{}, 1, 20)
	require.NoError(t, err)
	second, _, err := is.QueryItems(&ItemFilter{}, 1, 20)
	require.NoError(t, err)
	require.Len(t, first, 5)

	ids := func(items []models.Item) []string {
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = it.ID
		}
		return out
	}
	require.Equal(t, ids(first), ids(second))

	desc, _, err := is.QueryItems(&ItemFilter{Sort: "created_at_desc"}, 1, 20)
	require.NoError(t, err)
	descIDs := ids(desc)
	ascIDs := ids(first)
	for i := range ascIDs {
		require.Equal(t, ascIDs[i], descIDs[len(descIDs)-1-i])
	}
}

func TestSearchItemsCaseInsensitive(t *testing.T) {
	setupTestDB(t)
	is := NewItemService()
	owner := createTestUser(t, "search_owner", models.RoleMember, 0)

	coat := &models.Item{
		Title: "Vintage Denim Jacket", Description: "classic fit", Category: "outerwear",
		Size: "M", Condition: "good", UploaderID: owner.ID, UploaderName: owner.Username,
		PointsValue: 20, Status: models.ItemStatusAvailable, ApprovalStatus: models.ApprovalApproved,
	}
	coat.PackJSON([]string{"denim"}, []string{"a.jpg"})
	require.NoError(t, config.DB.Create(coat).Error)

	dress := &models.Item{
		Title: "夏季连衣裙", Description: "碎花图案，适合夏天", Category: "dress",
		Size: "S", Condition: "excellent", UploaderID: owner.ID, UploaderName: owner.Username,
		PointsValue: 25, Status: models.ItemStatusAvailable, ApprovalStatus: models.ApprovalApproved,
	}
	dress.PackJSON([]string{"floral"}, []string{"b.jpg"})
	require.NoError(t, config.DB.Create(dress).Error)

	// 标题匹配，大小写不敏感
	items, total, err := is.SearchItems("DENIM", 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, coat.ID, items[0].ID)

	// 描述匹配
	items, _, err = is.SearchItems("碎花", 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, dress.ID, items[0].ID)

	// 标签匹配
	items, _, err = is.SearchItems("floral", 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, dress.ID, items[0].ID)

	// 无命中
	_, total, err = is.SearchItems("winter boots", 1, 20)
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestGetSimilarItemsExcludesSelf(t *testing.T) {
	setupTestDB(t)
	is := NewItemService()
	owner := createTestUser(t, "similar_owner", models.RoleMember, 0)

	target := createTestItem(t, owner, 10, models.ApprovalApproved, models.ItemStatusAvailable)
	peer := createTestItem(t, owner, 10, models.ApprovalApproved, models.ItemStatusAvailable)
	createTestItem(t, owner, 10, models.ApprovalPending, models.ItemStatusAvailable)

	similar, err := is.GetSimilarItems(target.ID, target.Category, 4)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	require.Equal(t, peer.ID, similar[0].ID)
}

// ==================== 更新 ====================

func TestUpdateItemOwnerOnly(t *testing.T) {
	setupTestDB(t)
	is := NewItemService()
	owner := createTestUser(t, "upd_owner", models.RoleMember, 0)
	stranger := createTestUser(t, "upd_stranger", models.RoleMember, 0)
	item := createTestItem(t, owner, 30, models.ApprovalApproved, models.ItemStatusAvailable)

	_, err := is.UpdateItem(stranger.ID, item.ID, &UpdateItemRequest{Title: "hijacked"})
	require.ErrorIs(t, err, ErrForbidden)

	updated, err := is.UpdateItem(owner.ID, item.ID, &UpdateItemRequest{
		Title:     "秋季风衣",
		Condition: "like-new",
		Tags:      []string{"trench"},
	})
	require.NoError(t, err)
	require.Equal(t, "秋季风衣", updated.Title)
	require.Equal(t, "like-new", updated.Condition)
	require.Equal(t, []string{"trench"}, updated.TagList)

	// 未提交的字段保持原样
	require.Equal(t, 30, updated.PointsValue)
	require.Equal(t, models.ApprovalApproved, updated.ApprovalStatus)
}

func TestUpdateItemRejectsSwapped(t *testing.T) {
	setupTestDB(t)
	is := NewItemService()
	owner := createTestUser(t, "upd_swapped", models.RoleMember, 0)
	item := createTestItem(t, owner, 30, models.ApprovalApproved, models.ItemStatusSwapped)

	_, err := is.UpdateItem(owner.ID, item.ID, &UpdateItemRequest{Title: "too late"})
	require.ErrorIs(t, err, ErrInvariantViolation)
}

// 不可变字段提交了不同的值必须报错，而不是静默丢弃
func TestUpdateItemImmutableFields(t *testing.T) {
	setupTestDB(t)
	is := NewItemService()
	owner := createTestUser(t, "upd_immutable", models.RoleMember, 0)
	item := createTestItem(t, owner, 30, models.ApprovalApproved, models.ItemStatusAvailable)

	newPoints := 99
	_, err := is.UpdateItem(owner.ID, item.ID, &UpdateItemRequest{PointsValue: &newPoints})
	require.ErrorIs(t, err, ErrInvariantViolation)

	hijacker := "someone-else"
	_, err = is.UpdateItem(owner.ID, item.ID, &UpdateItemRequest{UploaderID: &hijacker})
	require.ErrorIs(t, err, ErrInvariantViolation)

	rejected := models.ApprovalRejected
	_, err = is.UpdateItem(owner.ID, item.ID, &UpdateItemRequest{ApprovalStatus: &rejected})
	require.ErrorIs(t, err, ErrInvariantViolation)

	swapped := models.ItemStatusSwapped
	_, err = is.UpdateItem(owner.ID, item.ID, &UpdateItemRequest{Status: &swapped})
	require.ErrorIs(t, err, ErrInvariantViolation)

	// 一个字段非法时整个更新不落库
	got := reloadItem(t, item.ID)
	require.Equal(t, 30, got.PointsValue)
	require.Equal(t, owner.ID, got.UploaderID)
	require.Equal(t, models.ApprovalApproved, got.ApprovalStatus)
	require.Equal(t, models.ItemStatusAvailable, got.Status)

	// 回显当前值不算变更
	samePoints := 30
	updated, err := is.UpdateItem(owner.ID, item.ID, &UpdateItemRequest{
		Title:       "换季大衣",
		PointsValue: &samePoints,
	})
	require.NoError(t, err)
	require.Equal(t, "换季大衣", updated.Title)
	require.Equal(t, 30, updated.PointsValue)
}

func TestUpdateItemImageLimit(t *testing.T) {
	setupTestDB(t)
	is := NewItemService()
	owner := createTestUser(t, "upd_images", models.RoleMember, 0)
	item := createTestItem(t, owner, 30, models.ApprovalApproved, models.ItemStatusAvailable)

	_, err := is.UpdateItem(owner.ID, item.ID, &UpdateItemRequest{
		Images: []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg", "f.jpg"},
	})
	require.True(t, IsValidationError(err))

	_, err = is.UpdateItem(owner.ID, item.ID, &UpdateItemRequest{Images: []string{}})
	require.True(t, IsValidationError(err))
}
