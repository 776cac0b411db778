package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/models"

	"gorm.io/gorm"
)

// UserRepository 用户与卖家档案数据访问接口
type UserRepository interface {
	GetByEmail(email string) (*models.User, error)
	GetByID(id uint) (*models.User, error)
	Create(user *models.User) error
	TouchLogin(id uint, at time.Time) error
	UpdateStatus(id uint, status string) error
	GetSellerProfile(userID uint) (*models.SellerProfile, error)
	CreateSellerProfile(profile *models.SellerProfile) error
	UpdateSellerProfile(profile *models.SellerProfile) error
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) UserRepository
}

// GormUserRepository GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserRepository) WithTx(tx *gorm.DB) UserRepository {
	if tx == nil {
		return r
	}
	return &GormUserRepository{db: tx}
}

// Transaction 执行事务
func (r *GormUserRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByEmail 根据邮箱获取用户（邮箱统一小写）
func (r *GormUserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByID 根据 ID 获取用户
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Create 创建用户
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// TouchLogin 记录登录时间
func (r *GormUserRepository) TouchLogin(id uint, at time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}

// UpdateStatus 更新账号状态；角色字段没有更新入口
func (r *GormUserRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("status", status).Error
}

// GetSellerProfile 按用户获取卖家档案
func (r *GormUserRepository) GetSellerProfile(userID uint) (*models.SellerProfile, error) {
	var profile models.SellerProfile
	if err := r.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// CreateSellerProfile 创建卖家档案
func (r *GormUserRepository) CreateSellerProfile(profile *models.SellerProfile) error {
	return r.db.Omit("User").Create(profile).Error
}

// UpdateSellerProfile 更新卖家档案
func (r *GormUserRepository) UpdateSellerProfile(profile *models.SellerProfile) error {
	return r.db.Omit("User").Save(profile).Error
}
