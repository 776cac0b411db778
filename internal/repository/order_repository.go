package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	GetByPaymentRef(paymentRef string) (*models.Order, error)
	SetPendingPaymentRef(id uint, paymentRef string) (int64, error)
	ListItems(orderID uint) ([]models.OrderItem, error)
	List(filter OrderListFilter) ([]models.Order, int64, error)
	ListSellerItems(filter SellerOrderItemFilter) ([]models.OrderItem, int64, error)
	CountForeignItems(orderID, sellerID uint) (int64, error)
	CompareAndSetStatus(id uint, from, to string, updates map[string]interface{}) (int64, error)
	MarkInventoryReleased(id uint) (int64, error)
	ListExpiredPendingIDs(now time.Time, limit int) ([]uint, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) OrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Transaction 执行事务
func (r *GormOrderRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建订单与订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Omit(clause.Associations).Create(&items).Error; err != nil {
			return err
		}
	}
	order.Items = items
	return nil
}

// GetByID 根据 ID 获取订单（含订单项）
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate 加锁读取订单（不含订单项）
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderNo 根据订单号获取订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").Where("order_no = ?", strings.TrimSpace(orderNo)).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByPaymentRef 根据支付流水号获取订单
func (r *GormOrderRepository) GetByPaymentRef(paymentRef string) (*models.Order, error) {
	ref := strings.TrimSpace(paymentRef)
	if ref == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Preload("Items").Where("payment_ref = ?", ref).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// SetPendingPaymentRef 为待支付订单写入网关流水号
func (r *GormOrderRepository) SetPendingPaymentRef(id uint, paymentRef string) (int64, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, constants.OrderStatusPending).
		Updates(map[string]interface{}{
			"payment_ref": paymentRef,
			"updated_at":  time.Now(),
		})
	return result.RowsAffected, result.Error
}

// ListItems 订单项
func (r *GormOrderRepository) ListItems(orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.db.Where("order_id = ?", orderID).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// List 订单列表
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if orderNo := strings.TrimSpace(filter.OrderNo); orderNo != "" {
		query = query.Where("order_no = ?", orderNo)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []models.Order
	if err := applyPagination(query.Preload("Items").Order("id desc"), filter.Page, filter.PageSize).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListSellerItems 卖家维度的订单项
func (r *GormOrderRepository) ListSellerItems(filter SellerOrderItemFilter) ([]models.OrderItem, int64, error) {
	query := r.db.Model(&models.OrderItem{}).Where("order_items.seller_id = ?", filter.SellerID)
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Joins("JOIN orders ON orders.id = order_items.order_id").Where("orders.status = ?", status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.OrderItem
	if err := applyPagination(query.Order("order_items.id desc"), filter.Page, filter.PageSize).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// CountForeignItems 统计订单中不属于该卖家的订单项
func (r *GormOrderRepository) CountForeignItems(orderID, sellerID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.OrderItem{}).
		Where("order_id = ? AND seller_id <> ?", orderID, sellerID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CompareAndSetStatus 仅当当前状态为 from 时更新为 to
func (r *GormOrderRepository) CompareAndSetStatus(id uint, from, to string, updates map[string]interface{}) (int64, error) {
	values := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range updates {
		values[k] = v
	}
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	return result.RowsAffected, result.Error
}

// MarkInventoryReleased 标记库存已回补，返回 0 表示此前已回补
func (r *GormOrderRepository) MarkInventoryReleased(id uint) (int64, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND inventory_released = ?", id, false).
		UpdateColumn("inventory_released", true)
	return result.RowsAffected, result.Error
}

// ListExpiredPendingIDs 超过保留期仍未支付的订单
func (r *GormOrderRepository) ListExpiredPendingIDs(now time.Time, limit int) ([]uint, error) {
	var ids []uint
	query := r.db.Model(&models.Order{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", constants.OrderStatusPending, now).
		Order("expires_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
