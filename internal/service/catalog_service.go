package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"
	"github.com/Bmariten/afripulse-v2-sub001/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// CatalogService 商品目录服务
type CatalogService struct {
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
}

// NewCatalogService 创建商品目录服务
func NewCatalogService(productRepo repository.ProductRepository, userRepo repository.UserRepository) *CatalogService {
	return &CatalogService{
		productRepo: productRepo,
		userRepo:    userRepo,
	}
}

// GetPurchasable 仅返回审核通过且上架中的商品
func (s *CatalogService) GetPurchasable(productID uint) (*models.Product, error) {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if !product.IsPurchasable() {
		return nil, fmt.Errorf("%w: product %d", ErrProductUnavailable, productID)
	}
	return product, nil
}

// ReserveInventory 在事务内条件扣减库存，失败时区分下架与库存不足
func (s *CatalogService) ReserveInventory(tx *gorm.DB, productID uint, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	repo := s.productRepo.WithTx(tx)
	affected, err := repo.ReserveInventory(productID, quantity)
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}
	product, err := repo.GetByID(productID)
	if err != nil {
		return err
	}
	if product == nil || !product.IsPurchasable() {
		return fmt.Errorf("%w: product %d", ErrProductUnavailable, productID)
	}
	return fmt.Errorf("%w: product %d", ErrInsufficientStock, productID)
}

// ReleaseInventory 回补库存
func (s *CatalogService) ReleaseInventory(tx *gorm.DB, productID uint, quantity int) error {
	if productID == 0 || quantity <= 0 {
		return nil
	}
	_, err := s.productRepo.WithTx(tx).ReleaseInventory(productID, quantity)
	return err
}

// ListPurchasable 前台商品列表（按创建时间倒序）
func (s *CatalogService) ListPurchasable(category string, page, pageSize int) ([]models.Product, int64, error) {
	return s.productRepo.List(repository.ProductListFilter{
		Page:            page,
		PageSize:        pageSize,
		Category:        category,
		OnlyPurchasable: true,
	})
}

// ProductDetail 商品详情
type ProductDetail struct {
	Product *models.Product       `json:"product"`
	Images  []models.ProductImage `json:"images"`
}

// GetProductDetail 前台商品详情
func (s *CatalogService) GetProductDetail(productID uint) (*ProductDetail, error) {
	product, err := s.GetPurchasable(productID)
	if err != nil {
		return nil, err
	}
	images, err := s.productRepo.ListImages(productID)
	if err != nil {
		return nil, err
	}
	return &ProductDetail{Product: product, Images: images}, nil
}

// CreateProductInput 卖家创建商品
type CreateProductInput struct {
	Name           string
	Slug           string
	Description    string
	Category       string
	Price          models.Money
	DiscountPrice  *models.Money
	InventoryCount int
}

// CreateProduct 卖家创建商品，初始为待审核
func (s *CatalogService) CreateProduct(sellerID uint, input CreateProductInput) (*models.Product, error) {
	if err := s.requireSeller(sellerID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidProductData
	}
	if err := validatePricing(input.Price, input.DiscountPrice); err != nil {
		return nil, err
	}
	if input.InventoryCount < 0 {
		return nil, ErrInvalidInventory
	}
	slug, err := s.resolveSlug(input.Slug, name, 0)
	if err != nil {
		return nil, err
	}
	product := &models.Product{
		SellerID:       sellerID,
		Name:           name,
		Slug:           slug,
		Description:    strings.TrimSpace(input.Description),
		Category:       strings.TrimSpace(input.Category),
		Price:          input.Price,
		DiscountPrice:  input.DiscountPrice,
		InventoryCount: input.InventoryCount,
		Status:         constants.ProductStatusPending,
		IsApproved:     false,
	}
	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProductInput 卖家更新商品，nil 字段不修改
type UpdateProductInput struct {
	Name          *string
	Description   *string
	Category      *string
	Price         *models.Money
	DiscountPrice *models.Money
	ClearDiscount bool
}

// UpdateProduct 卖家更新商品；已成交订单的快照不受影响
func (s *CatalogService) UpdateProduct(sellerID, productID uint, input UpdateProductInput) (*models.Product, error) {
	product, err := s.ownedProduct(sellerID, productID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrInvalidProductData
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		updates["category"] = strings.TrimSpace(*input.Category)
	}
	price := product.Price
	if input.Price != nil {
		price = *input.Price
		updates["price"] = price
	}
	discount := product.DiscountPrice
	if input.ClearDiscount {
		discount = nil
		updates["discount_price"] = nil
	} else if input.DiscountPrice != nil {
		discount = input.DiscountPrice
		updates["discount_price"] = *discount
	}
	if err := validatePricing(price, discount); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return product, nil
	}
	updates["updated_at"] = time.Now()
	if err := s.productRepo.UpdateFields(productID, updates); err != nil {
		return nil, err
	}
	return s.productRepo.GetByID(productID)
}

// AdjustInventory 卖家增减库存，不会与结算扣减互相覆盖
func (s *CatalogService) AdjustInventory(sellerID, productID uint, delta int) (*models.Product, error) {
	if _, err := s.ownedProduct(sellerID, productID); err != nil {
		return nil, err
	}
	if delta == 0 {
		return s.productRepo.GetByID(productID)
	}
	affected, err := s.productRepo.AdjustInventory(productID, delta)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrInvalidInventory
	}
	return s.productRepo.GetByID(productID)
}

// SetListingStatus 卖家上下架；被标记的商品需管理员处理
func (s *CatalogService) SetListingStatus(sellerID, productID uint, active bool) error {
	product, err := s.ownedProduct(sellerID, productID)
	if err != nil {
		return err
	}
	if product.Status == constants.ProductStatusFlagged {
		return ErrProductStatus
	}
	status := constants.ProductStatusInactive
	if active {
		if !product.IsApproved {
			return ErrProductStatus
		}
		status = constants.ProductStatusActive
	}
	return s.productRepo.UpdateFields(productID, map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	})
}

// DeleteProduct 卖家删除商品（软删除，订单项保留快照）
func (s *CatalogService) DeleteProduct(sellerID, productID uint) error {
	if _, err := s.ownedProduct(sellerID, productID); err != nil {
		return err
	}
	return s.productRepo.Delete(productID)
}

// ListSellerProducts 卖家商品列表
func (s *CatalogService) ListSellerProducts(sellerID uint, status string, page, pageSize int) ([]models.Product, int64, error) {
	return s.productRepo.List(repository.ProductListFilter{
		Page:     page,
		PageSize: pageSize,
		SellerID: sellerID,
		Status:   status,
	})
}

// ListForModeration 管理员按状态与名称关键字查看商品
func (s *CatalogService) ListForModeration(status, search string, page, pageSize int) ([]models.Product, int64, error) {
	return s.productRepo.List(repository.ProductListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   status,
		Search:   search,
	})
}

// Moderate 管理员审核：通过即上架，驳回即标记
func (s *CatalogService) Moderate(productID uint, approve bool) error {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	updates := map[string]interface{}{
		"is_approved": approve,
		"status":      constants.ProductStatusActive,
		"updated_at":  time.Now(),
	}
	if !approve {
		updates["status"] = constants.ProductStatusFlagged
	}
	return s.productRepo.UpdateFields(productID, updates)
}

// SetStatus 管理员直接设置商品状态
func (s *CatalogService) SetStatus(productID uint, status string) error {
	status = strings.TrimSpace(status)
	switch status {
	case constants.ProductStatusPending, constants.ProductStatusActive, constants.ProductStatusFlagged, constants.ProductStatusInactive:
	default:
		return ErrProductStatus
	}
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	return s.productRepo.UpdateFields(productID, map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	})
}

// AddImageInput 新增商品图片
type AddImageInput struct {
	URL          string
	AltText      string
	DisplayOrder int
	IsPrimary    bool
}

// AddImage 新增图片；商品的第一张图片自动成为主图
func (s *CatalogService) AddImage(sellerID, productID uint, input AddImageInput) (*models.ProductImage, error) {
	url := strings.TrimSpace(input.URL)
	if url == "" {
		return nil, ErrImageInvalid
	}
	var image *models.ProductImage
	err := s.productRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.productRepo.WithTx(tx)
		product, err := repo.GetByIDForUpdate(productID)
		if err != nil {
			return err
		}
		if product == nil {
			return ErrProductNotFound
		}
		if product.SellerID != sellerID {
			return ErrForbidden
		}
		primaries, err := repo.CountPrimaryImages(productID)
		if err != nil {
			return err
		}
		primary := input.IsPrimary || primaries == 0
		if primary && primaries > 0 {
			if err := repo.ClearPrimaryImage(productID); err != nil {
				return err
			}
		}
		image = &models.ProductImage{
			ProductID:    productID,
			URL:          url,
			AltText:      strings.TrimSpace(input.AltText),
			IsPrimary:    primary,
			DisplayOrder: input.DisplayOrder,
		}
		return repo.CreateImage(image)
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

// SetPrimaryImage 切换主图
func (s *CatalogService) SetPrimaryImage(sellerID, productID, imageID uint) error {
	return s.productRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.productRepo.WithTx(tx)
		if _, err := ownedProductWith(repo, sellerID, productID); err != nil {
			return err
		}
		image, err := repo.GetImage(productID, imageID)
		if err != nil {
			return err
		}
		if image == nil {
			return ErrImageNotFound
		}
		if image.IsPrimary {
			return nil
		}
		if err := repo.ClearPrimaryImage(productID); err != nil {
			return err
		}
		return repo.MarkPrimaryImage(imageID)
	})
}

// DeleteImage 删除图片；删除主图时按展示顺序提升下一张
func (s *CatalogService) DeleteImage(sellerID, productID, imageID uint) error {
	return s.productRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.productRepo.WithTx(tx)
		if _, err := ownedProductWith(repo, sellerID, productID); err != nil {
			return err
		}
		image, err := repo.GetImage(productID, imageID)
		if err != nil {
			return err
		}
		if image == nil {
			return ErrImageNotFound
		}
		if err := repo.DeleteImage(image); err != nil {
			return err
		}
		if !image.IsPrimary {
			return nil
		}
		rest, err := repo.ListImages(productID)
		if err != nil {
			return err
		}
		if len(rest) == 0 {
			return nil
		}
		return repo.MarkPrimaryImage(rest[0].ID)
	})
}

// ListImages 商品图片
func (s *CatalogService) ListImages(productID uint) ([]models.ProductImage, error) {
	return s.productRepo.ListImages(productID)
}

func (s *CatalogService) requireSeller(sellerID uint) error {
	if sellerID == 0 {
		return ErrForbidden
	}
	if s.userRepo == nil {
		return nil
	}
	profile, err := s.userRepo.GetSellerProfile(sellerID)
	if err != nil {
		return err
	}
	if profile == nil {
		return ErrSellerProfileAbsent
	}
	return nil
}

func (s *CatalogService) ownedProduct(sellerID, productID uint) (*models.Product, error) {
	return ownedProductWith(s.productRepo, sellerID, productID)
}

func ownedProductWith(repo repository.ProductRepository, sellerID, productID uint) (*models.Product, error) {
	product, err := repo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if product.SellerID != sellerID {
		return nil, ErrForbidden
	}
	return product, nil
}

func (s *CatalogService) resolveSlug(requested, name string, excludeID uint) (string, error) {
	explicit := strings.TrimSpace(requested) != ""
	base := slugify(requested)
	if base == "" {
		base = slugify(name)
	}
	if base == "" {
		base = "product"
	}
	count, err := s.productRepo.CountBySlug(base, excludeID)
	if err != nil {
		return "", err
	}
	if count == 0 {
		return base, nil
	}
	if explicit {
		return "", ErrSlugExists
	}
	return base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6], nil
}

func slugify(value string) string {
	slug := slugUnsafe.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	return strings.Trim(slug, "-")
}

func validatePricing(price models.Money, discount *models.Money) error {
	if !price.IsPositive() {
		return ErrInvalidPrice
	}
	if discount != nil && (!discount.IsPositive() || !discount.LessThan(price.Decimal)) {
		return ErrInvalidPrice
	}
	return nil
}
