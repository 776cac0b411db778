package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/cache"
	"github.com/Bmariten/afripulse-v2-sub001/internal/config"
	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	"github.com/Bmariten/afripulse-v2-sub001/internal/logger"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"
	"github.com/Bmariten/afripulse-v2-sub001/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

// AuthService 认证服务
type AuthService struct {
	cfg          config.JWTConfig
	userRepo     repository.UserRepository
	affiliateSvc *AffiliateService
	cache        *cache.Store
	policy       config.PasswordPolicyConfig
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg config.JWTConfig, userRepo repository.UserRepository, affiliateSvc *AffiliateService, cacheStore *cache.Store) *AuthService {
	return &AuthService{
		cfg:          cfg,
		userRepo:     userRepo,
		affiliateSvc: affiliateSvc,
		cache:        cacheStore,
	}
}

// SetPasswordPolicy 设置注册与初始化管理员时使用的密码策略
func (s *AuthService) SetPasswordPolicy(policy config.PasswordPolicyConfig) {
	s.policy = policy
}

// HashPassword 使用 bcrypt 加密密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// JWTClaims JWT 声明
type JWTClaims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateJWT 生成 JWT Token
func (s *AuthService) GenerateJWT(user *models.User) (string, time.Time, error) {
	hours := s.cfg.ExpireHours
	if hours <= 0 {
		hours = 24
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	claims := JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 解析 JWT Token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid && claims.UserID != 0 {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// SellerSignup 卖家注册资料
type SellerSignup struct {
	BusinessName    string
	BusinessEmail   string
	BusinessPhone   string
	BusinessAddress string
	TaxID           string
}

// RegisterInput 注册输入；管理员账号不能自助注册
type RegisterInput struct {
	Email       string
	Password    string
	Role        string
	DisplayName string
	Seller      SellerSignup
	Affiliate   RegisterAffiliateInput
}

// Register 注册用户并创建角色档案
func (s *AuthService) Register(input RegisterInput) (*models.User, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(s.policy, input.Password); err != nil {
		return nil, err
	}
	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = constants.RoleCustomer
	}
	switch role {
	case constants.RoleCustomer, constants.RoleSeller, constants.RoleAffiliate:
	default:
		return nil, ErrInvalidRole
	}
	if role == constants.RoleSeller && strings.TrimSpace(input.Seller.BusinessName) == "" {
		return nil, ErrSellerProfileInvalid
	}
	existing, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}
	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		Status:       constants.UserStatusActive,
	}
	err = s.userRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.userRepo.WithTx(tx)
		if err := repo.Create(user); err != nil {
			return err
		}
		switch role {
		case constants.RoleSeller:
			return repo.CreateSellerProfile(&models.SellerProfile{
				UserID:                user.ID,
				BusinessName:          strings.TrimSpace(input.Seller.BusinessName),
				BusinessEmail:         strings.TrimSpace(input.Seller.BusinessEmail),
				BusinessPhone:         strings.TrimSpace(input.Seller.BusinessPhone),
				BusinessAddress:       strings.TrimSpace(input.Seller.BusinessAddress),
				TaxID:                 strings.TrimSpace(input.Seller.TaxID),
				DefaultCommissionRate: models.MustMoney(constants.DefaultCommissionRate),
			})
		case constants.RoleAffiliate:
			_, err := s.affiliateSvc.CreateProfile(tx, user.ID, input.Affiliate)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("user_registered", "user_id", user.ID, "role", role)
	return user, nil
}

// Login 邮箱密码登录
func (s *AuthService) Login(email, password string) (*models.User, string, time.Time, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if user == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if user.Status != constants.UserStatusActive {
		return nil, "", time.Time{}, ErrUserDisabled
	}
	token, expiresAt, err := s.GenerateJWT(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	now := time.Now()
	if err := s.userRepo.TouchLogin(user.ID, now); err != nil {
		logger.Warnw("user_touch_login_failed", "user_id", user.ID, "error", err)
	}
	user.LastLoginAt = &now
	_ = s.cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))
	return user, token, expiresAt, nil
}

// ResolveAuthState 校验令牌对应账号仍可用，优先读缓存
func (s *AuthService) ResolveAuthState(ctx context.Context, userID uint) (*cache.UserAuthState, error) {
	state, err := s.cache.GetUserAuthState(ctx, userID)
	if err != nil {
		logger.Warnw("auth_state_cache_read_failed", "user_id", userID, "error", err)
	}
	if state == nil {
		user, err := s.userRepo.GetByID(userID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
		state = cache.BuildUserAuthState(user)
		_ = s.cache.SetUserAuthState(ctx, state)
	}
	if state.Status != constants.UserStatusActive {
		return nil, ErrUserDisabled
	}
	return state, nil
}

// GetUser 获取用户
func (s *AuthService) GetUser(userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// SetUserStatus 管理员启用或禁用账号，角色不可变更
func (s *AuthService) SetUserStatus(userID uint, status string) error {
	status = strings.TrimSpace(status)
	if status != constants.UserStatusActive && status != constants.UserStatusDisabled {
		return ErrInvalidUserStatus
	}
	if _, err := s.GetUser(userID); err != nil {
		return err
	}
	if err := s.userRepo.UpdateStatus(userID, status); err != nil {
		return err
	}
	return s.cache.DelUserAuthState(context.Background(), userID)
}

// EnsureAdmin 初始化管理员账号，已存在时跳过
func (s *AuthService) EnsureAdmin(email, password string) (*models.User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	existing, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Role != constants.RoleAdmin {
			return nil, ErrEmailExists
		}
		return existing, nil
	}
	if err := validatePassword(s.policy, password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	admin := &models.User{
		Email:        normalized,
		PasswordHash: hash,
		Role:         constants.RoleAdmin,
		DisplayName:  "Administrator",
		Status:       constants.UserStatusActive,
	}
	if err := s.userRepo.Create(admin); err != nil {
		return nil, err
	}
	logger.Infow("admin_bootstrapped", "user_id", admin.ID)
	return admin, nil
}

// GetSellerProfile 卖家档案
func (s *AuthService) GetSellerProfile(userID uint) (*models.SellerProfile, error) {
	profile, err := s.userRepo.GetSellerProfile(userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrSellerProfileAbsent
	}
	return profile, nil
}

// UpdateSellerProfile 更新卖家档案
func (s *AuthService) UpdateSellerProfile(userID uint, input SellerSignup) (*models.SellerProfile, error) {
	profile, err := s.GetSellerProfile(userID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(input.BusinessName); name != "" {
		profile.BusinessName = name
	}
	profile.BusinessEmail = strings.TrimSpace(input.BusinessEmail)
	profile.BusinessPhone = strings.TrimSpace(input.BusinessPhone)
	profile.BusinessAddress = strings.TrimSpace(input.BusinessAddress)
	profile.TaxID = strings.TrimSpace(input.TaxID)
	if err := s.userRepo.UpdateSellerProfile(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// IsAuthError 是否为认证类错误
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrUserDisabled) || errors.Is(err, ErrUserNotFound)
}
