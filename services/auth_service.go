package services

import (
	"errors"
	"fmt"
	"time"

	"rewear_go/config"
	"rewear_go/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SignupBonusPoints 注册赠送积分，让新会员有能力发起第一次兑换
const SignupBonusPoints = 100

// AuthService 认证服务
// 交换核心只依赖它提供的身份信息（用户ID、昵称、角色、积分余额）。
type AuthService struct {
	jwtService *config.JWTService
}

// NewAuthService 创建认证服务实例
func NewAuthService() *AuthService {
	return &AuthService{
		jwtService: config.GetJWTService(),
	}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,username"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=100"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ==================== 注册相关方法 ====================

// Register 用户注册
func (as *AuthService) Register(req *RegisterRequest) (*models.User, string, error) {
	// 1. 检查用户名是否已存在
	var existing models.User
	if err := config.DB.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		return nil, "", errors.New("username already taken")
	}

	// 2. 检查邮箱是否已存在
	if err := config.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return nil, "", errors.New("email already registered")
	}

	// 3. 加密密码
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	// 4. 创建用户并赠送注册积分（同一事务内写流水）
	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashed),
		Role:     models.RoleMember,
		Points:   SignupBonusPoints,
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		ledger := models.PointLedger{
			UserID:       user.ID,
			Change:       SignupBonusPoints,
			BalanceAfter: SignupBonusPoints,
			EventType:    models.LedgerSignupBonus,
		}
		return tx.Create(&ledger).Error
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	// 5. 签发token
	token, err := as.jwtService.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return &user, token, nil
}

// ==================== 登录相关方法 ====================

// Login 用户登录
func (as *AuthService) Login(req *LoginRequest, clientIP string) (*models.User, string, error) {
	// 1. 登录失败限流（Redis可用时，按邮箱和来源IP双维度）
	if blocked := as.isLoginBlocked(req.Email, clientIP); blocked {
		return nil, "", errors.New("too many failed attempts, try again later")
	}

	// 2. 查找用户
	var user models.User
	if err := config.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		as.recordLoginFailure(req.Email, clientIP)
		return nil, "", errors.New("invalid email or password")
	}

	// 3. 校验密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		as.recordLoginFailure(req.Email, clientIP)
		return nil, "", errors.New("invalid email or password")
	}

	// 4. 更新登录信息
	now := time.Now()
	config.DB.Model(&user).Updates(map[string]interface{}{
		"last_login":  &now,
		"login_count": gorm.Expr("login_count + 1"),
	})

	// 5. 签发token
	token, err := as.jwtService.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return &user, token, nil
}

// RefreshToken 刷新token
func (as *AuthService) RefreshToken(tokenString string) (string, error) {
	return as.jwtService.RefreshToken(tokenString)
}

// Logout 用户登出：将token拉黑直到其自然过期
func (as *AuthService) Logout(tokenString string) error {
	if config.RedisClient == nil {
		return nil
	}

	claims, err := as.jwtService.ValidateToken(tokenString)
	if err != nil {
		return errors.New("invalid token")
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}

	key := fmt.Sprintf("blacklist:token:%s", tokenString)
	return config.RedisClient.Set(redisCtx, key, "1", ttl).Err()
}

// IsTokenBlacklisted 检查token是否已登出
func IsTokenBlacklisted(tokenString string) bool {
	if config.RedisClient == nil {
		return false
	}

	key := fmt.Sprintf("blacklist:token:%s", tokenString)
	exists, _ := config.RedisClient.Exists(redisCtx, key).Result()
	return exists > 0
}

// ==================== 用户信息 ====================

// GetUser 获取用户公开信息
func (as *AuthService) GetUser(userID string) (*models.User, error) {
	var user models.User
	if err := config.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetPointBalance 获取用户当前积分余额（只读访问器）
func (as *AuthService) GetPointBalance(userID string) (int, error) {
	user, err := as.GetUser(userID)
	if err != nil {
		return 0, err
	}
	return user.Points, nil
}

// GetPointLedger 获取用户积分流水
func (as *AuthService) GetPointLedger(userID string, limit int) ([]models.PointLedger, error) {
	var ledgers []models.PointLedger
	if err := config.DB.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&ledgers).Error; err != nil {
		return nil, fmt.Errorf("failed to get point ledger: %w", err)
	}
	return ledgers, nil
}

// ==================== 登录限流 ====================

// loginFailureKeys 登录失败计数的Redis key（邮箱维度 + 来源IP维度）
func loginFailureKeys(email, clientIP string) []string {
	return []string{
		fmt.Sprintf("login:failures:email:%s", email),
		fmt.Sprintf("login:failures:ip:%s", clientIP),
	}
}

// isLoginBlocked 检查是否因连续失败被临时封禁
// 同一邮箱或同一来源IP连续失败5次即封禁，挡住换邮箱撞库的脚本。
func (as *AuthService) isLoginBlocked(email, clientIP string) bool {
	if config.RedisClient == nil {
		return false
	}

	for _, key := range loginFailureKeys(email, clientIP) {
		count, err := config.RedisClient.Get(redisCtx, key).Int()
		if err == nil && count >= 5 {
			return true
		}
	}
	return false
}

// recordLoginFailure 记录一次登录失败
func (as *AuthService) recordLoginFailure(email, clientIP string) {
	if config.RedisClient == nil {
		return
	}

	for _, key := range loginFailureKeys(email, clientIP) {
		count, _ := config.RedisClient.Incr(redisCtx, key).Result()
		if count == 1 {
			config.RedisClient.Expire(redisCtx, key, 15*time.Minute)
		}
	}
}
