package provider

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Bmariten/afripulse-v2-sub001/internal/authz"
	"github.com/Bmariten/afripulse-v2-sub001/internal/cache"
	"github.com/Bmariten/afripulse-v2-sub001/internal/config"
	"github.com/Bmariten/afripulse-v2-sub001/internal/events"
	"github.com/Bmariten/afripulse-v2-sub001/internal/logger"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"
	"github.com/Bmariten/afripulse-v2-sub001/internal/payment"
	"github.com/Bmariten/afripulse-v2-sub001/internal/queue"
	"github.com/Bmariten/afripulse-v2-sub001/internal/repository"
	"github.com/Bmariten/afripulse-v2-sub001/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	Cache       *cache.Store
	QueueClient *queue.Client
	Publisher   events.Publisher
	Gateway     payment.Gateway

	// Repositories
	UserRepo      repository.UserRepository
	ProductRepo   repository.ProductRepository
	CartRepo      repository.CartRepository
	OrderRepo     repository.OrderRepository
	AffiliateRepo repository.AffiliateRepository

	// Services
	AuthzService     *authz.Service
	AuthService      *service.AuthService
	CatalogService   *service.CatalogService
	AffiliateService *service.AffiliateService
	CartService      *service.CartService
	OrderService     *service.OrderService
	CheckoutService  *service.CheckoutService
	Dispatcher       *service.OrderEventDispatcher
}

// NewContainer 初始化容器：打开数据库、迁移表结构并装配全部服务
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	db, err := models.OpenDB(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.LogLevel, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database failed: %w", err)
	}
	return NewContainerWithDB(cfg, db)
}

// NewContainerWithDB 基于已打开的数据库装配容器
func NewContainerWithDB(cfg *config.Config, db *gorm.DB) (*Container, error) {
	gateway, err := payment.NewGateway(cfg.Payment)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:      cfg,
		DB:          db,
		Cache:       cache.NewStore(&cfg.Redis),
		QueueClient: queue.NewClient(&cfg.Queue),
		Publisher:   events.NewPublisher(cfg.Kafka),
		Gateway:     gateway,
	}
	if c.Cache.Enabled() {
		logger.Infow("provider_cache_enabled", "prefix", cfg.Redis.Prefix)
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	if err := c.initServices(); err != nil {
		return nil, err
	}

	// 3. 预置管理员
	if err := c.ensureAdmin(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories() {
	c.UserRepo = repository.NewUserRepository(c.DB)
	c.ProductRepo = repository.NewProductRepository(c.DB)
	c.CartRepo = repository.NewCartRepository(c.DB)
	c.OrderRepo = repository.NewOrderRepository(c.DB)
	c.AffiliateRepo = repository.NewAffiliateRepository(c.DB)
}

func (c *Container) initServices() error {
	authzService, err := authz.NewService(c.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return err
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		return err
	}

	cfg := c.Config
	c.Dispatcher = service.NewOrderEventDispatcher(c.QueueClient, c.Publisher)
	c.CatalogService = service.NewCatalogService(c.ProductRepo, c.UserRepo)
	c.AffiliateService = service.NewAffiliateService(c.AffiliateRepo, c.ProductRepo, c.Cache, cfg.Affiliate)
	c.CartService = service.NewCartService(c.CartRepo, c.ProductRepo, c.AffiliateService, cfg.Checkout.MaxQuantityPerCartLine)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.CatalogService, c.AffiliateService, c.Dispatcher, cfg.Checkout.SweepBatchSize)
	c.CheckoutService = service.NewCheckoutService(service.CheckoutDeps{
		CartRepo:    c.CartRepo,
		ProductRepo: c.ProductRepo,
		OrderRepo:   c.OrderRepo,
		Catalog:     c.CatalogService,
		Cart:        c.CartService,
		Affiliate:   c.AffiliateService,
		Orders:      c.OrderService,
		Gateway:     c.Gateway,
		QueueClient: c.QueueClient,
		Dispatcher:  c.Dispatcher,
		Config:      cfg.Checkout,
	})
	c.AuthService = service.NewAuthService(cfg.JWT, c.UserRepo, c.AffiliateService, c.Cache)
	c.AuthService.SetPasswordPolicy(cfg.PasswordPolicy)
	return nil
}

func (c *Container) ensureAdmin() error {
	email := strings.TrimSpace(c.Config.Admin.Email)
	if email == "" || c.Config.Admin.Password == "" {
		return nil
	}
	admin, err := c.AuthService.EnsureAdmin(email, c.Config.Admin.Password)
	if err != nil {
		logger.Errorw("provider_ensure_admin_failed", "email", email, "error", err)
		return err
	}
	logger.Infow("provider_admin_ready", "admin_id", admin.ID)
	return nil
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_failed", "error", err)
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			logger.Warnw("provider_close_publisher_failed", "error", err)
		}
	}
	if client := c.Cache.Client(); client != nil {
		if err := client.Close(); err != nil {
			logger.Warnw("provider_close_cache_failed", "error", err)
		}
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
