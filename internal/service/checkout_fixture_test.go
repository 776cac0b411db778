package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/cache"
	"github.com/Bmariten/afripulse-v2-sub001/internal/config"
	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	"github.com/Bmariten/afripulse-v2-sub001/internal/events"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"
	"github.com/Bmariten/afripulse-v2-sub001/internal/payment"
	"github.com/Bmariten/afripulse-v2-sub001/internal/queue"
	"github.com/Bmariten/afripulse-v2-sub001/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// marketplaceFixture 结算相关服务的完整装配，共用一个内存数据库
type marketplaceFixture struct {
	db         *gorm.DB
	products   *repository.GormProductRepository
	carts      *repository.GormCartRepository
	orderRepo  *repository.GormOrderRepository
	affiliates *repository.GormAffiliateRepository
	users      *repository.GormUserRepository

	catalog   *CatalogService
	cart      *CartService
	affiliate *AffiliateService
	orders    *OrderService
	checkout  *CheckoutService
	auth      *AuthService
	recorder  *events.Recorder

	dispatcher  *OrderEventDispatcher
	queueClient *queue.Client
	checkoutCfg config.CheckoutConfig
}

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	// 共享缓存模式下并发写会互相锁表，测试中串行化连接
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func setupMarketplaceFixture(t *testing.T, gateway payment.Gateway) *marketplaceFixture {
	t.Helper()
	db := openServiceTestDB(t)
	if gateway == nil {
		gateway = payment.OfflineGateway{}
	}
	f := &marketplaceFixture{
		db:         db,
		products:   repository.NewProductRepository(db),
		carts:      repository.NewCartRepository(db),
		orderRepo:  repository.NewOrderRepository(db),
		affiliates: repository.NewAffiliateRepository(db),
		users:      repository.NewUserRepository(db),
		recorder:   &events.Recorder{},
	}
	cacheStore := cache.NewStore(nil)
	f.queueClient = queue.NewClient(nil)
	f.dispatcher = NewOrderEventDispatcher(f.queueClient, f.recorder)
	f.checkoutCfg = config.CheckoutConfig{
		Currency:              "USD",
		ReservationTTLMinutes: 15,
		PaymentTimeoutSeconds: 1,
		ReserveMaxAttempts:    3,
		ReserveBackoffMillis:  5,
	}

	f.catalog = NewCatalogService(f.products, f.users)
	f.affiliate = NewAffiliateService(f.affiliates, f.products, cacheStore, config.AffiliateConfig{
		AttributionWindowDays: 30,
		ClickDedupeMinutes:    10,
		ConfirmDays:           7,
		DefaultCommissionRate: 10,
	})
	f.cart = NewCartService(f.carts, f.products, f.affiliate, 50)
	f.orders = NewOrderService(f.orderRepo, f.catalog, f.affiliate, f.dispatcher, 50)
	f.checkout = f.newCheckout(f.orderRepo, f.orders, gateway)
	f.auth = NewAuthService(config.JWTConfig{SecretKey: "test-secret", ExpireHours: 1, Issuer: "marketplace"}, f.users, f.affiliate, cacheStore)
	return f
}

// newCheckout 用替换的订单仓库或订单服务装配结算引擎
func (f *marketplaceFixture) newCheckout(orderRepo repository.OrderRepository, orders *OrderService, gateway payment.Gateway) *CheckoutService {
	return NewCheckoutService(CheckoutDeps{
		CartRepo:    f.carts,
		ProductRepo: f.products,
		OrderRepo:   orderRepo,
		Catalog:     f.catalog,
		Cart:        f.cart,
		Affiliate:   f.affiliate,
		Orders:      orders,
		Gateway:     gateway,
		QueueClient: f.queueClient,
		Dispatcher:  f.dispatcher,
		Config:      f.checkoutCfg,
	})
}

func (f *marketplaceFixture) createUser(t *testing.T, email, role string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		Status:       constants.UserStatusActive,
	}
	require.NoError(t, f.users.Create(user))
	if role == constants.RoleSeller {
		require.NoError(t, f.users.CreateSellerProfile(&models.SellerProfile{UserID: user.ID, BusinessName: "Shop " + email}))
	}
	return user
}

func (f *marketplaceFixture) createProduct(t *testing.T, sellerID uint, slug, price string, inventory int) *models.Product {
	t.Helper()
	product := &models.Product{
		SellerID:       sellerID,
		Name:           "Product " + slug,
		Slug:           slug,
		Price:          models.MustMoney(price),
		InventoryCount: inventory,
		Status:         constants.ProductStatusActive,
		IsApproved:     true,
	}
	require.NoError(t, f.products.Create(product))
	return product
}

func (f *marketplaceFixture) createAffiliate(t *testing.T, email, code, rate string) *models.AffiliateProfile {
	t.Helper()
	user := f.createUser(t, email, constants.RoleAffiliate)
	profile := &models.AffiliateProfile{
		UserID:         user.ID,
		AffiliateCode:  code,
		CommissionRate: models.MustMoney(rate),
		Status:         constants.AffiliateStatusActive,
	}
	require.NoError(t, f.affiliates.CreateProfile(profile))
	return profile
}

func (f *marketplaceFixture) inventory(t *testing.T, productID uint) int {
	t.Helper()
	product, err := f.products.GetByID(productID)
	require.NoError(t, err)
	require.NotNil(t, product)
	return product.InventoryCount
}

func (f *marketplaceFixture) cartItems(t *testing.T, userID uint) []models.CartItem {
	t.Helper()
	cart, err := f.carts.GetByUser(userID)
	require.NoError(t, err)
	if cart == nil {
		return nil
	}
	items, err := f.carts.ListItems(cart.ID)
	require.NoError(t, err)
	return items
}

func (f *marketplaceFixture) countOrders(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	return count
}

func (f *marketplaceFixture) addToCart(t *testing.T, userID, productID uint, qty int, ref string) {
	t.Helper()
	_, err := f.cart.AddItem(AddCartItemInput{UserID: userID, ProductID: productID, Quantity: qty, AffiliateRef: ref})
	require.NoError(t, err)
}

func checkoutInput(userID uint, method string) CheckoutInput {
	return CheckoutInput{
		UserID:          userID,
		ShippingAddress: "12 Harbour Road, Mombasa",
		PaymentMethod:   method,
	}
}
