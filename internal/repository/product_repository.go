package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository 商品与商品图片数据访问接口
type ProductRepository interface {
	List(filter ProductListFilter) ([]models.Product, int64, error)
	GetByID(id uint) (*models.Product, error)
	GetByIDForUpdate(id uint) (*models.Product, error)
	GetBySlug(slug string) (*models.Product, error)
	ListByIDs(ids []uint) ([]models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	UpdateFields(id uint, updates map[string]interface{}) error
	Delete(id uint) error
	CountBySlug(slug string, excludeID uint) (int64, error)
	ReserveInventory(productID uint, quantity int) (int64, error)
	ReleaseInventory(productID uint, quantity int) (int64, error)
	AdjustInventory(productID uint, delta int) (int64, error)

	ListImages(productID uint) ([]models.ProductImage, error)
	GetImage(productID, imageID uint) (*models.ProductImage, error)
	CreateImage(image *models.ProductImage) error
	DeleteImage(image *models.ProductImage) error
	ClearPrimaryImage(productID uint) error
	MarkPrimaryImage(imageID uint) error
	CountPrimaryImages(productID uint) (int64, error)

	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ProductRepository
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// Transaction 执行事务
func (r *GormProductRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// List 商品列表
func (r *GormProductRepository) List(filter ProductListFilter) ([]models.Product, int64, error) {
	query := r.db.Model(&models.Product{})
	if filter.SellerID != 0 {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.OnlyPurchasable {
		query = query.Where("is_approved = ? AND status = ?", true, constants.ProductStatusActive)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where(fmt.Sprintf("name %s ?", likeOperator(r.db)), "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var products []models.Product
	if err := applyPagination(query.Order("id desc"), filter.Page, filter.PageSize).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetByID 获取商品，不存在返回 nil
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	return r.first(r.db, "id = ?", id)
}

// GetByIDForUpdate 加行锁读取商品（sqlite 下忽略锁子句）
func (r *GormProductRepository) GetByIDForUpdate(id uint) (*models.Product, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

// GetBySlug 按 slug 获取商品
func (r *GormProductRepository) GetBySlug(slug string) (*models.Product, error) {
	return r.first(r.db, "slug = ?", strings.TrimSpace(slug))
}

func (r *GormProductRepository) first(query *gorm.DB, cond string, arg interface{}) (*models.Product, error) {
	var product models.Product
	if err := query.Where(cond, arg).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// ListByIDs 批量获取商品
func (r *GormProductRepository) ListByIDs(ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	if err := r.db.Where("id IN ?", ids).Order("id asc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// Update 保存商品
func (r *GormProductRepository) Update(product *models.Product) error {
	return r.db.Save(product).Error
}

// UpdateFields 按字段更新商品
func (r *GormProductRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Product{}).Where("id = ?", id).Updates(updates).Error
}

// Delete 软删除商品
func (r *GormProductRepository) Delete(id uint) error {
	return r.db.Delete(&models.Product{}, id).Error
}

// CountBySlug 统计 slug 占用数量
func (r *GormProductRepository) CountBySlug(slug string, excludeID uint) (int64, error) {
	var count int64
	query := r.db.Unscoped().Model(&models.Product{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ReserveInventory 条件扣减库存：仅在可售且库存充足时生效，返回影响行数
func (r *GormProductRepository) ReserveInventory(productID uint, quantity int) (int64, error) {
	if productID == 0 || quantity <= 0 {
		return 0, errors.New("invalid inventory reserve params")
	}
	result := r.db.Model(&models.Product{}).
		Where("id = ? AND is_approved = ? AND status = ? AND inventory_count >= ?",
			productID, true, constants.ProductStatusActive, quantity).
		UpdateColumn("inventory_count", gorm.Expr("inventory_count - ?", quantity))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReleaseInventory 回补库存（含已软删除商品）
func (r *GormProductRepository) ReleaseInventory(productID uint, quantity int) (int64, error) {
	if productID == 0 || quantity <= 0 {
		return 0, errors.New("invalid inventory release params")
	}
	result := r.db.Unscoped().Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("inventory_count", gorm.Expr("inventory_count + ?", quantity))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// AdjustInventory 卖家调整库存，调整后不得为负
func (r *GormProductRepository) AdjustInventory(productID uint, delta int) (int64, error) {
	if productID == 0 || delta == 0 {
		return 0, errors.New("invalid inventory adjust params")
	}
	result := r.db.Model(&models.Product{}).
		Where("id = ? AND inventory_count + ? >= 0", productID, delta).
		UpdateColumn("inventory_count", gorm.Expr("inventory_count + ?", delta))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListImages 商品图片，主图优先
func (r *GormProductRepository) ListImages(productID uint) ([]models.ProductImage, error) {
	var images []models.ProductImage
	if err := r.db.Where("product_id = ?", productID).
		Order("is_primary desc").Order("display_order asc").Order("id asc").
		Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

// GetImage 获取商品下的图片
func (r *GormProductRepository) GetImage(productID, imageID uint) (*models.ProductImage, error) {
	var image models.ProductImage
	if err := r.db.Where("id = ? AND product_id = ?", imageID, productID).First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &image, nil
}

// CreateImage 新增图片
func (r *GormProductRepository) CreateImage(image *models.ProductImage) error {
	return r.db.Create(image).Error
}

// DeleteImage 删除图片
func (r *GormProductRepository) DeleteImage(image *models.ProductImage) error {
	if image == nil || image.ID == 0 {
		return nil
	}
	return r.db.Delete(&models.ProductImage{}, image.ID).Error
}

// ClearPrimaryImage 取消商品当前主图
func (r *GormProductRepository) ClearPrimaryImage(productID uint) error {
	return r.db.Model(&models.ProductImage{}).
		Where("product_id = ? AND is_primary = ?", productID, true).
		UpdateColumn("is_primary", false).Error
}

// MarkPrimaryImage 设为主图
func (r *GormProductRepository) MarkPrimaryImage(imageID uint) error {
	return r.db.Model(&models.ProductImage{}).
		Where("id = ?", imageID).
		UpdateColumn("is_primary", true).Error
}

// CountPrimaryImages 统计主图数量
func (r *GormProductRepository) CountPrimaryImages(productID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.ProductImage{}).
		Where("product_id = ? AND is_primary = ?", productID, true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
