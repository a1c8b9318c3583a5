package services

import (
	"fmt"
	"testing"

	"rewear_go/config"
	"rewear_go/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 每个测试用独立的内存数据库，避免互相干扰
func setupTestDB(t *testing.T) {
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
}

func createTestUser(t *testing.T, username, role string, points int) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "not-a-real-hash",
		Role:     role,
		Points:   points,
	}
	require.NoError(t, config.DB.Create(user).Error)
	return user
}

func createTestItem(t *testing.T, owner *models.User, points int, approval, status string) *models.Item {
	t.Helper()

	item := &models.Item{
		Title:          "羊毛大衣",
		Description:    "冬季羊毛大衣，九成新",
		Category:       "outerwear",
		Size:           "M",
		Condition:      "good",
		UploaderID:     owner.ID,
		UploaderName:   owner.Username,
		PointsValue:    points,
		Status:         status,
		ApprovalStatus: approval,
	}
	item.PackJSON([]string{"wool", "winter"}, []string{"1700000000_a.jpg"})
	require.NoError(t, config.DB.Create(item).Error)
	return item
}

func reloadUser(t *testing.T, id string) *models.User {
	t.Helper()

	var user models.User
	require.NoError(t, config.DB.First(&user, "id = ?", id).Error)
	return &user
}

func reloadItem(t *testing.T, id string) *models.Item {
	t.Helper()

	var item models.Item
	require.NoError(t, config.DB.First(&item, "id = ?", id).Error)
	return &item
}
