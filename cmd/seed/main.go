package main

import (
	"errors"

	"github.com/Bmariten/afripulse-v2-sub001/internal/config"
	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	"github.com/Bmariten/afripulse-v2-sub001/internal/logger"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"
	"github.com/Bmariten/afripulse-v2-sub001/internal/provider"
	"github.com/Bmariten/afripulse-v2-sub001/internal/service"
)

const seedPassword = "Password123"

type seedProduct struct {
	Slug      string
	Name      string
	Category  string
	Price     string
	Discount  string
	Inventory int
	ImageURL  string
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()

	container, err := provider.NewContainer(cfg)
	if err != nil {
		stdLog.Fatalf("Failed to build container: %v", err)
	}
	defer container.Close()

	// 卖家
	seller, err := ensureUser(container, service.RegisterInput{
		Email:       "seller@example.com",
		Password:    seedPassword,
		Role:        constants.RoleSeller,
		DisplayName: "Accra Weaves",
		Seller: service.SellerSignup{
			BusinessName:    "Accra Weaves",
			BusinessEmail:   "shop@accraweaves.example.com",
			BusinessAddress: "Makola Market, Accra",
		},
	})
	if err != nil {
		stdLog.Fatalf("Failed to seed seller: %v", err)
	}

	// 推广用户与顾客
	affiliate, err := ensureUser(container, service.RegisterInput{
		Email:     "affiliate@example.com",
		Password:  seedPassword,
		Role:      constants.RoleAffiliate,
		Affiliate: service.RegisterAffiliateInput{Website: "https://style.example.com", Niche: "fashion"},
	})
	if err != nil {
		stdLog.Fatalf("Failed to seed affiliate: %v", err)
	}
	if _, err := ensureUser(container, service.RegisterInput{
		Email:    "customer@example.com",
		Password: seedPassword,
	}); err != nil {
		stdLog.Fatalf("Failed to seed customer: %v", err)
	}

	// 商品：创建后直接审核上架
	products := []seedProduct{
		{Slug: "kente-scarf", Name: "Kente Scarf", Category: "textiles", Price: "25.00", Inventory: 40, ImageURL: "https://cdn.example.com/kente.jpg"},
		{Slug: "shea-butter-jar", Name: "Shea Butter Jar", Category: "beauty", Price: "12.50", Discount: "9.99", Inventory: 120, ImageURL: "https://cdn.example.com/shea.jpg"},
		{Slug: "bolga-basket", Name: "Bolga Basket", Category: "home", Price: "38.00", Inventory: 15, ImageURL: "https://cdn.example.com/basket.jpg"},
	}
	var firstProductID uint
	for _, item := range products {
		input := service.CreateProductInput{
			Name:           item.Name,
			Slug:           item.Slug,
			Category:       item.Category,
			Price:          models.MustMoney(item.Price),
			InventoryCount: item.Inventory,
		}
		if item.Discount != "" {
			discount := models.MustMoney(item.Discount)
			input.DiscountPrice = &discount
		}
		product, err := container.CatalogService.CreateProduct(seller.ID, input)
		if errors.Is(err, service.ErrSlugExists) {
			stdLog.Printf("Product %s already exists, skipped", item.Name)
			continue
		}
		if err != nil {
			stdLog.Fatalf("Failed to create product %s: %v", item.Name, err)
		}
		if _, err := container.CatalogService.AddImage(seller.ID, product.ID, service.AddImageInput{URL: item.ImageURL, AltText: item.Name}); err != nil {
			stdLog.Fatalf("Failed to add image for %s: %v", item.Name, err)
		}
		if err := container.CatalogService.Moderate(product.ID, true); err != nil {
			stdLog.Fatalf("Failed to approve %s: %v", item.Name, err)
		}
		if firstProductID == 0 {
			firstProductID = product.ID
		}
		stdLog.Printf("Seeded product %s (id=%d)", product.Name, product.ID)
	}

	if firstProductID != 0 {
		link, err := container.AffiliateService.CreateLink(affiliate.ID, &firstProductID)
		if err != nil {
			stdLog.Fatalf("Failed to create affiliate link: %v", err)
		}
		stdLog.Printf("Affiliate link code: %s", link.Code)
	}
	stdLog.Printf("Seed completed, accounts use password %s", seedPassword)
}

// ensureUser 注册账号；已存在时登录取回
func ensureUser(c *provider.Container, input service.RegisterInput) (*models.User, error) {
	user, err := c.AuthService.Register(input)
	if errors.Is(err, service.ErrEmailExists) {
		existing, _, _, loginErr := c.AuthService.Login(input.Email, input.Password)
		return existing, loginErr
	}
	return user, err
}
