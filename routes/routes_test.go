package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"rewear_go/config"
	"rewear_go/middleware"
	"rewear_go/models"
	"rewear_go/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := middleware.InitLogger("release"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// setupRouter 每个测试用独立内存数据库，Redis关闭走降级路径
func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Item{},
		&models.SwapRequest{},
		&models.PointLedger{},
	))
	config.DB = db
	config.RedisClient = nil

	r := gin.New()
	SetupRoutes(r)
	return r
}

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type pagedResponse struct {
	Code  int             `json:"code"`
	Data  json.RawMessage `json:"data"`
	Total int64           `json:"total"`
}

func httpDo(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeAPI(t *testing.T, w *httptest.ResponseRecorder, out interface{}) apiResponse {
	t.Helper()

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	if out != nil {
		require.NoError(t, json.Unmarshal(resp.Data, out))
	}
	return resp
}

// registerUser 通过注册接口创建用户并拿到token
func registerUser(t *testing.T, r *gin.Engine, username string) (*models.User, string) {
	t.Helper()

	w := httpDo(r, "POST", "/api/auth/register", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "super-secret-1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var payload struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}
	decodeAPI(t, w, &payload)
	require.NotEmpty(t, payload.Token)
	return &payload.User, payload.Token
}

// adminToken 直接建管理员账号并签发token（注册接口不开放admin角色）
func adminToken(t *testing.T, username string) string {
	t.Helper()

	admin := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "not-a-real-hash",
		Role:     models.RoleAdmin,
	}
	require.NoError(t, config.DB.Create(admin).Error)

	token, err := config.GetJWTService().GenerateToken(admin.ID, admin.Username, admin.Role)
	require.NoError(t, err)
	return token
}

func newItemBody(points int) gin.H {
	return gin.H{
		"title":        "牛仔外套",
		"description":  "经典款牛仔外套",
		"category":     "outerwear",
		"type":         "jacket",
		"size":         "L",
		"condition":    "excellent",
		"tags":         []string{"denim"},
		"images":       []string{"1700000001_a.jpg"},
		"points_value": points,
	}
}

// 完整生命周期：发布 → 审核 → 换物请求 → 积分兑换
func TestItemExchangeFlow(t *testing.T) {
	r := setupRouter(t)

	owner, ownerToken := registerUser(t, r, "flow_owner")
	_, requesterToken := registerUser(t, r, "flow_requester")
	admToken := adminToken(t, "flow_admin")

	// 1. 物主发布物品，进入待审核
	w := httpDo(r, "POST", "/api/items", ownerToken, newItemBody(30))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var item models.Item
	decodeAPI(t, w, &item)
	require.Equal(t, models.ApprovalPending, item.ApprovalStatus)
	require.Equal(t, owner.ID, item.UploaderID)

	// 2. 公开列表此时为空
	w = httpDo(r, "GET", "/api/items", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var paged pagedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paged))
	require.Zero(t, paged.Total)

	// 3. 未过审的物品，陌生访客看不到详情，物主自己能看到
	w = httpDo(r, "GET", "/api/items/"+item.ID, "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	w = httpDo(r, "GET", "/api/items/"+item.ID, ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// 4. 管理员在待审核队列里看到它并通过
	w = httpDo(r, "GET", "/api/admin/items", admToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paged))
	require.EqualValues(t, 1, paged.Total)

	w = httpDo(r, "PUT", "/api/admin/items/"+item.ID+"/approve", admToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 重复审核返回冲突
	w = httpDo(r, "PUT", "/api/admin/items/"+item.ID+"/reject", admToken, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	var conflict apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conflict))
	require.Equal(t, 40900, conflict.Code)

	// 5. 过审后出现在公开列表
	w = httpDo(r, "GET", "/api/items", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paged))
	require.EqualValues(t, 1, paged.Total)

	// 6. 换物请求只通知物主，不锁定物品
	w = httpDo(r, "POST", "/api/items/"+item.ID+"/swap-request", requesterToken, gin.H{"note": "周末交换？"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httpDo(r, "GET", "/api/swap-requests", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var swapReqs []models.SwapRequest
	decodeAPI(t, w, &swapReqs)
	require.Len(t, swapReqs, 1)

	// 7. 积分兑换：双方余额原子变动，物品置为已换出
	w = httpDo(r, "POST", "/api/items/"+item.ID+"/redeem", requesterToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var redemption services.RedemptionResult
	decodeAPI(t, w, &redemption)
	require.Equal(t, 30, redemption.PointsSpent)
	require.Equal(t, services.SignupBonusPoints-30, redemption.RequesterBalance)
	require.Equal(t, services.SignupBonusPoints+30, redemption.OwnerBalance)
	require.Equal(t, models.ItemStatusSwapped, redemption.Item.Status)

	w = httpDo(r, "GET", "/api/users/me/points", requesterToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var points struct {
		Points int `json:"points"`
	}
	decodeAPI(t, w, &points)
	require.Equal(t, services.SignupBonusPoints-30, points.Points)

	// 8. 已换出的物品不能再次兑换，也从公开列表消失
	w = httpDo(r, "POST", "/api/items/"+item.ID+"/redeem", requesterToken, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	w = httpDo(r, "GET", "/api/items", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paged))
	require.Zero(t, paged.Total)

	// 9. 管理面板统计
	w = httpDo(r, "GET", "/api/admin/stats", admToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats services.AdminStats
	decodeAPI(t, w, &stats)
	require.EqualValues(t, 1, stats.ApprovedCount)
	require.EqualValues(t, 1, stats.SwappedCount)
}

func TestCreateItemRequiresAuth(t *testing.T) {
	r := setupRouter(t)

	w := httpDo(r, "POST", "/api/items", "", newItemBody(30))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httpDo(r, "POST", "/api/items", "not-a-valid-token", newItemBody(30))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateItemValidationOverHTTP(t *testing.T) {
	r := setupRouter(t)
	_, token := registerUser(t, r, "http_validator")

	// 成色枚举由binding拦截
	body := newItemBody(30)
	body["condition"] = "worn-out"
	w := httpDo(r, "POST", "/api/items", token, body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// 积分价值超出范围由binding拦截
	body = newItemBody(101)
	w = httpDo(r, "POST", "/api/items", token, body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// 图片超限由服务层拦截
	body = newItemBody(30)
	body["images"] = []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg", "f.jpg"}
	w = httpDo(r, "POST", "/api/items", token, body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 42200, resp.Code)
}

// 用户名规则：字母开头，只含字母、数字和下划线
func TestRegisterUsernameRule(t *testing.T) {
	r := setupRouter(t)

	w := httpDo(r, "POST", "/api/auth/register", "", gin.H{
		"username": "1starts_with_digit",
		"email":    "digit@example.com",
		"password": "super-secret-1",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = httpDo(r, "POST", "/api/auth/register", "", gin.H{
		"username": "has-hyphen",
		"email":    "hyphen@example.com",
		"password": "super-secret-1",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	registerUser(t, r, "fine_name_42")
}

func TestAdminRoutesRejectMembers(t *testing.T) {
	r := setupRouter(t)
	_, token := registerUser(t, r, "plain_member")

	w := httpDo(r, "GET", "/api/admin/items", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = httpDo(r, "GET", "/api/admin/stats", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

// 余额不足时兑换失败，返回专门的业务码
func TestRedeemInsufficientPointsOverHTTP(t *testing.T) {
	r := setupRouter(t)

	owner, _ := registerUser(t, r, "rich_owner")
	_, poorToken := registerUser(t, r, "poor_requester")

	// 直接落库一件超出新人积分的物品
	item := &models.Item{
		Title: "限量球鞋", Description: "全新未穿", Category: "shoes",
		Size: "42", Condition: "like-new", UploaderID: owner.ID, UploaderName: owner.Username,
		PointsValue: 100, Status: models.ItemStatusAvailable, ApprovalStatus: models.ApprovalApproved,
	}
	item.PackJSON(nil, []string{"a.jpg"})
	require.NoError(t, config.DB.Create(item).Error)

	// 先花掉一部分积分，制造余额不足
	cheap := &models.Item{
		Title: "帆布包", Description: "日常通勤", Category: "bags",
		Size: "onesize", Condition: "good", UploaderID: owner.ID, UploaderName: owner.Username,
		PointsValue: 50, Status: models.ItemStatusAvailable, ApprovalStatus: models.ApprovalApproved,
	}
	cheap.PackJSON(nil, []string{"b.jpg"})
	require.NoError(t, config.DB.Create(cheap).Error)

	w := httpDo(r, "POST", "/api/items/"+cheap.ID+"/redeem", poorToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httpDo(r, "POST", "/api/items/"+item.ID+"/redeem", poorToken, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 42600, resp.Code)

	// 物品未被占用
	var got models.Item
	require.NoError(t, config.DB.First(&got, "id = ?", item.ID).Error)
	require.Equal(t, models.ItemStatusAvailable, got.Status)
}
