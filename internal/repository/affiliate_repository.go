package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AffiliateRepository 推广数据访问接口
type AffiliateRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AffiliateRepository

	GetProfileByID(id uint) (*models.AffiliateProfile, error)
	GetProfileByUserID(userID uint) (*models.AffiliateProfile, error)
	GetProfileByCode(code string) (*models.AffiliateProfile, error)
	ListProfilesByIDs(ids []uint) ([]models.AffiliateProfile, error)
	CreateProfile(profile *models.AffiliateProfile) error
	UpdateProfile(id uint, updates map[string]interface{}) error

	GetLinkByCode(code string) (*models.AffiliateLink, error)
	GetLinkByProfileAndProduct(profileID uint, productID *uint) (*models.AffiliateLink, error)
	CreateLink(link *models.AffiliateLink) error
	ListLinks(profileID uint) ([]models.AffiliateLink, error)
	IncrementLinkClicks(linkID uint) error
	RecordLinkConversion(linkID uint, earnings decimal.Decimal) error

	CreateClick(click *models.AffiliateClick) error
	HasRecentClick(linkID uint, visitorKey string, since time.Time) (bool, error)

	CreateCommissions(rows []models.AffiliateCommission) error
	ListCommissions(filter AffiliateCommissionListFilter) ([]models.AffiliateCommission, int64, error)
	ListCommissionsByOrder(orderID uint) ([]models.AffiliateCommission, error)
	UpdateCommissionsByOrder(orderID uint, fromStatuses []string, updates map[string]interface{}) (int64, error)
	MarkPendingCommissionsAvailable(before, now time.Time) (int64, error)
	SumCommission(profileID uint, statuses []string) (decimal.Decimal, error)
}

// GormAffiliateRepository GORM 推广仓储
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广仓储
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) AffiliateRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAffiliateRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

func (r *GormAffiliateRepository) firstProfile(query *gorm.DB) (*models.AffiliateProfile, error) {
	var profile models.AffiliateProfile
	if err := query.First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetProfileByID 按ID获取推广档案
func (r *GormAffiliateRepository) GetProfileByID(id uint) (*models.AffiliateProfile, error) {
	if id == 0 {
		return nil, nil
	}
	return r.firstProfile(r.db.Where("id = ?", id))
}

// GetProfileByUserID 按用户ID获取推广档案
func (r *GormAffiliateRepository) GetProfileByUserID(userID uint) (*models.AffiliateProfile, error) {
	if userID == 0 {
		return nil, nil
	}
	return r.firstProfile(r.db.Where("user_id = ?", userID))
}

// GetProfileByCode 按推广码获取档案
func (r *GormAffiliateRepository) GetProfileByCode(code string) (*models.AffiliateProfile, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	return r.firstProfile(r.db.Where("affiliate_code = ?", normalized))
}

// ListProfilesByIDs 批量获取推广档案
func (r *GormAffiliateRepository) ListProfilesByIDs(ids []uint) ([]models.AffiliateProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var profiles []models.AffiliateProfile
	if err := r.db.Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// CreateProfile 创建推广档案
func (r *GormAffiliateRepository) CreateProfile(profile *models.AffiliateProfile) error {
	return r.db.Omit("User").Create(profile).Error
}

// UpdateProfile 更新推广档案字段
func (r *GormAffiliateRepository) UpdateProfile(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.AffiliateProfile{}).Where("id = ?", id).Updates(updates).Error
}

// GetLinkByCode 按链接码获取推广链接
func (r *GormAffiliateRepository) GetLinkByCode(code string) (*models.AffiliateLink, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var link models.AffiliateLink
	if err := r.db.Where("code = ?", normalized).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// GetLinkByProfileAndProduct 查找推广用户在某商品上的链接，productID 为 nil 表示全站链接
func (r *GormAffiliateRepository) GetLinkByProfileAndProduct(profileID uint, productID *uint) (*models.AffiliateLink, error) {
	query := r.db.Where("affiliate_profile_id = ?", profileID)
	if productID == nil {
		query = query.Where("product_id IS NULL")
	} else {
		query = query.Where("product_id = ?", *productID)
	}
	var link models.AffiliateLink
	if err := query.First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// CreateLink 创建推广链接
func (r *GormAffiliateRepository) CreateLink(link *models.AffiliateLink) error {
	return r.db.Omit(clause.Associations).Create(link).Error
}

// ListLinks 推广用户的链接
func (r *GormAffiliateRepository) ListLinks(profileID uint) ([]models.AffiliateLink, error) {
	var links []models.AffiliateLink
	if err := r.db.Where("affiliate_profile_id = ?", profileID).Order("id desc").Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// IncrementLinkClicks 点击数 +1
func (r *GormAffiliateRepository) IncrementLinkClicks(linkID uint) error {
	return r.db.Model(&models.AffiliateLink{}).Where("id = ?", linkID).
		UpdateColumn("clicks", gorm.Expr("clicks + 1")).Error
}

// RecordLinkConversion 记录一次转化与佣金收益
func (r *GormAffiliateRepository) RecordLinkConversion(linkID uint, earnings decimal.Decimal) error {
	return r.db.Model(&models.AffiliateLink{}).Where("id = ?", linkID).
		UpdateColumns(map[string]interface{}{
			"conversions": gorm.Expr("conversions + 1"),
			"earnings":    gorm.Expr("earnings + ?", earnings.Round(2).StringFixed(2)),
		}).Error
}

// CreateClick 写入点击记录
func (r *GormAffiliateRepository) CreateClick(click *models.AffiliateClick) error {
	return r.db.Create(click).Error
}

// HasRecentClick 同一访客在窗口期内是否已点击同一链接
func (r *GormAffiliateRepository) HasRecentClick(linkID uint, visitorKey string, since time.Time) (bool, error) {
	var count int64
	if err := r.db.Model(&models.AffiliateClick{}).
		Where("affiliate_link_id = ? AND visitor_key = ? AND created_at >= ?", linkID, visitorKey, since).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateCommissions 批量写入佣金记录
func (r *GormAffiliateRepository) CreateCommissions(rows []models.AffiliateCommission) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Create(&rows).Error
}

// ListCommissions 佣金列表
func (r *GormAffiliateRepository) ListCommissions(filter AffiliateCommissionListFilter) ([]models.AffiliateCommission, int64, error) {
	query := r.db.Model(&models.AffiliateCommission{})
	if filter.AffiliateProfileID != 0 {
		query = query.Where("affiliate_profile_id = ?", filter.AffiliateProfileID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.AffiliateCommission
	if err := applyPagination(query.Order("id desc"), filter.Page, filter.PageSize).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListCommissionsByOrder 订单下的佣金记录
func (r *GormAffiliateRepository) ListCommissionsByOrder(orderID uint) ([]models.AffiliateCommission, error) {
	var rows []models.AffiliateCommission
	if err := r.db.Where("order_id = ?", orderID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateCommissionsByOrder 按订单批量流转佣金状态
func (r *GormAffiliateRepository) UpdateCommissionsByOrder(orderID uint, fromStatuses []string, updates map[string]interface{}) (int64, error) {
	query := r.db.Model(&models.AffiliateCommission{}).Where("order_id = ?", orderID)
	if len(fromStatuses) > 0 {
		query = query.Where("status IN ?", fromStatuses)
	}
	result := query.Updates(updates)
	return result.RowsAffected, result.Error
}

// MarkPendingCommissionsAvailable 确认期已过的佣金转为可结算
func (r *GormAffiliateRepository) MarkPendingCommissionsAvailable(before, now time.Time) (int64, error) {
	result := r.db.Model(&models.AffiliateCommission{}).
		Where("status = ? AND confirm_at IS NOT NULL AND confirm_at <= ?", constants.AffiliateCommissionStatusPendingConfirm, before).
		Updates(map[string]interface{}{
			"status":       constants.AffiliateCommissionStatusAvailable,
			"available_at": now,
			"updated_at":   now,
		})
	return result.RowsAffected, result.Error
}

// SumCommission 汇总佣金金额
func (r *GormAffiliateRepository) SumCommission(profileID uint, statuses []string) (decimal.Decimal, error) {
	if profileID == 0 {
		return decimal.Zero, nil
	}
	query := r.db.Model(&models.AffiliateCommission{}).Where("affiliate_profile_id = ?", profileID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := query.Select("COALESCE(SUM(commission_amount), 0) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}
