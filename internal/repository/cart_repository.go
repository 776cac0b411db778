package repository

import (
	"errors"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository 购物车数据访问接口
type CartRepository interface {
	GetByUser(userID uint) (*models.Cart, error)
	GetOrCreateByUser(userID uint) (*models.Cart, error)
	ListItems(cartID uint) ([]models.CartItem, error)
	GetItem(cartID, productID uint) (*models.CartItem, error)
	AddQuantity(item *models.CartItem) error
	SetQuantity(cartID, productID uint, quantity int) (int64, error)
	DeleteItem(cartID, productID uint) (int64, error)
	Clear(cartID uint) error
	ClaimCheckout(cartID uint, until, now time.Time) (bool, error)
	BindCheckoutOrder(cartID, orderID uint) error
	ReleaseCheckout(cartID, orderID uint) (int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCartRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByUser 获取用户购物车，不存在返回 nil
func (r *GormCartRepository) GetByUser(userID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cart, nil
}

// GetOrCreateByUser 懒创建购物车；并发创建依赖 user_id 唯一索引去重
func (r *GormCartRepository) GetOrCreateByUser(userID uint) (*models.Cart, error) {
	cart := models.Cart{UserID: userID}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&cart).Error; err != nil {
		return nil, err
	}
	return r.GetByUser(userID)
}

// ListItems 购物车项，连带商品当前信息（已删除商品不加载）
func (r *GormCartRepository) ListItems(cartID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.Preload("Product").
		Where("cart_id = ?", cartID).
		Order("product_id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem 获取购物车项
func (r *GormCartRepository) GetItem(cartID, productID uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.Where("cart_id = ? AND product_id = ?", cartID, productID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// AddQuantity 原子 upsert：已存在则数量累加，归因字段仅在为空时写入
func (r *GormCartRepository) AddQuantity(item *models.CartItem) error {
	if item == nil {
		return nil
	}
	now := time.Now()
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = now
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":             gorm.Expr("cart_items.quantity + excluded.quantity"),
			"affiliate_profile_id": gorm.Expr("COALESCE(cart_items.affiliate_profile_id, excluded.affiliate_profile_id)"),
			"affiliate_link_id":    gorm.Expr("COALESCE(cart_items.affiliate_link_id, excluded.affiliate_link_id)"),
			"attributed_at":        gorm.Expr("COALESCE(cart_items.attributed_at, excluded.attributed_at)"),
			"updated_at":           item.UpdatedAt,
		}),
	}).Create(item).Error
}

// SetQuantity 覆盖数量，返回影响行数
func (r *GormCartRepository) SetQuantity(cartID, productID uint, quantity int) (int64, error) {
	result := r.db.Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// DeleteItem 删除购物车项
func (r *GormCartRepository) DeleteItem(cartID, productID uint) (int64, error) {
	result := r.db.Where("cart_id = ? AND product_id = ?", cartID, productID).Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

// Clear 清空购物车
func (r *GormCartRepository) Clear(cartID uint) error {
	return r.db.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

// ClaimCheckout 占用购物车用于结算；已有未过期的占用时返回 false
func (r *GormCartRepository) ClaimCheckout(cartID uint, until, now time.Time) (bool, error) {
	result := r.db.Model(&models.Cart{}).
		Where("id = ? AND (checkout_claimed_until IS NULL OR checkout_claimed_until < ?)", cartID, now).
		Updates(map[string]interface{}{
			"checkout_claimed_until": until,
			"checkout_order_id":      gorm.Expr("NULL"),
			"updated_at":             now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// BindCheckoutOrder 记录占用购物车的订单
func (r *GormCartRepository) BindCheckoutOrder(cartID, orderID uint) error {
	return r.db.Model(&models.Cart{}).
		Where("id = ?", cartID).
		UpdateColumn("checkout_order_id", orderID).Error
}

// ReleaseCheckout 释放由指定订单持有的占用
func (r *GormCartRepository) ReleaseCheckout(cartID, orderID uint) (int64, error) {
	result := r.db.Model(&models.Cart{}).
		Where("id = ? AND checkout_order_id = ?", cartID, orderID).
		Updates(map[string]interface{}{
			"checkout_claimed_until": gorm.Expr("NULL"),
			"checkout_order_id":      gorm.Expr("NULL"),
			"updated_at":             time.Now(),
		})
	return result.RowsAffected, result.Error
}
