package service

import (
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/models"
	"github.com/Bmariten/afripulse-v2-sub001/internal/repository"

	"gorm.io/gorm"
)

const defaultMaxCartLineQuantity = 99

// CartLine 购物车项展示（连带商品当前状态）
type CartLine struct {
	ProductID          uint         `json:"product_id"`
	ProductName        string       `json:"product_name"`
	Quantity           int          `json:"quantity"`
	UnitPrice          models.Money `json:"unit_price"`
	LineTotal          models.Money `json:"line_total"`
	InventoryCount     int          `json:"inventory_count"`
	Available          bool         `json:"available"`
	InsufficientStock  bool         `json:"insufficient_stock"`
	AffiliateProfileID *uint        `json:"affiliate_profile_id,omitempty"`
	AttributedAt       *time.Time   `json:"attributed_at,omitempty"`
}

// CartView 购物车视图
type CartView struct {
	CartID         uint         `json:"cart_id"`
	Items          []CartLine   `json:"items"`
	EstimatedTotal models.Money `json:"estimated_total"`
}

// AddCartItemInput 加购输入
type AddCartItemInput struct {
	UserID       uint
	ProductID    uint
	Quantity     int
	AffiliateRef string
}

// CartService 购物车服务
type CartService struct {
	cartRepo     repository.CartRepository
	productRepo  repository.ProductRepository
	affiliateSvc *AffiliateService
	maxQuantity  int
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, affiliateSvc *AffiliateService, maxQuantity int) *CartService {
	if maxQuantity <= 0 {
		maxQuantity = defaultMaxCartLineQuantity
	}
	return &CartService{
		cartRepo:     cartRepo,
		productRepo:  productRepo,
		affiliateSvc: affiliateSvc,
		maxQuantity:  maxQuantity,
	}
}

// AddItem 加购；同一商品数量累加，推广归因只在首次写入
func (s *CartService) AddItem(input AddCartItemInput) (*models.CartItem, error) {
	if input.UserID == 0 {
		return nil, ErrForbidden
	}
	if input.Quantity <= 0 || input.Quantity > s.maxQuantity {
		return nil, ErrInvalidQuantity
	}
	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	var attribution *Attribution
	if s.affiliateSvc != nil {
		attribution, err = s.affiliateSvc.ResolveAttribution(input.UserID, input.ProductID, input.AffiliateRef)
		if err != nil {
			return nil, err
		}
	}

	var saved *models.CartItem
	err = s.cartRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.cartRepo.WithTx(tx)
		cart, err := repo.GetOrCreateByUser(input.UserID)
		if err != nil {
			return err
		}
		existing, err := repo.GetItem(cart.ID, input.ProductID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Quantity+input.Quantity > s.maxQuantity {
			return ErrInvalidQuantity
		}
		now := time.Now()
		item := &models.CartItem{
			CartID:    cart.ID,
			ProductID: input.ProductID,
			Quantity:  input.Quantity,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if attribution != nil {
			profileID := attribution.AffiliateProfileID
			attributedAt := attribution.AttributedAt
			item.AffiliateProfileID = &profileID
			item.AffiliateLinkID = attribution.AffiliateLinkID
			item.AttributedAt = &attributedAt
		}
		if err := repo.AddQuantity(item); err != nil {
			return err
		}
		saved, err = repo.GetItem(cart.ID, input.ProductID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// SetQuantity 覆盖数量，0 表示删除
func (s *CartService) SetQuantity(userID, productID uint, quantity int) error {
	if quantity < 0 || quantity > s.maxQuantity {
		return ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.RemoveItem(userID, productID)
	}
	cart, err := s.cartRepo.GetByUser(userID)
	if err != nil {
		return err
	}
	if cart == nil {
		return ErrCartItemNotFound
	}
	affected, err := s.cartRepo.SetQuantity(cart.ID, productID, quantity)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// RemoveItem 删除购物车项
func (s *CartService) RemoveItem(userID, productID uint) error {
	cart, err := s.cartRepo.GetByUser(userID)
	if err != nil {
		return err
	}
	if cart == nil {
		return ErrCartItemNotFound
	}
	affected, err := s.cartRepo.DeleteItem(cart.ID, productID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// Clear 清空购物车，仅在订单落库且扣款完成后由结算调用
func (s *CartService) Clear(cartID uint) error {
	if cartID == 0 {
		return nil
	}
	return s.cartRepo.Clear(cartID)
}

// List 购物车列表，按当前商品状态标记不可购买项
func (s *CartService) List(userID uint) (*CartView, error) {
	view := &CartView{Items: []CartLine{}}
	cart, err := s.cartRepo.GetByUser(userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return view, nil
	}
	view.CartID = cart.ID
	items, err := s.cartRepo.ListItems(cart.ID)
	if err != nil {
		return nil, err
	}
	total := models.Money{}
	for _, item := range items {
		line := CartLine{
			ProductID:          item.ProductID,
			Quantity:           item.Quantity,
			AffiliateProfileID: item.AffiliateProfileID,
			AttributedAt:       item.AttributedAt,
		}
		if item.Product != nil {
			line.ProductName = item.Product.Name
			line.UnitPrice = item.Product.UnitPrice()
			line.LineTotal = line.UnitPrice.MulQty(item.Quantity)
			line.InventoryCount = item.Product.InventoryCount
			line.Available = item.Product.IsPurchasable()
			line.InsufficientStock = item.Product.InventoryCount < item.Quantity
		}
		if line.Available {
			total = total.Add(line.LineTotal)
		}
		view.Items = append(view.Items, line)
	}
	view.EstimatedTotal = total
	return view, nil
}
