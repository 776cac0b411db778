package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Bmariten/afripulse-v2-sub001/internal/config"
	adminhandlers "github.com/Bmariten/afripulse-v2-sub001/internal/http/handlers/admin"
	publichandlers "github.com/Bmariten/afripulse-v2-sub001/internal/http/handlers/public"
	"github.com/Bmariten/afripulse-v2-sub001/internal/http/response"
	"github.com/Bmariten/afripulse-v2-sub001/internal/logger"
	"github.com/Bmariten/afripulse-v2-sub001/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	if strings.EqualFold(cfg.Server.Mode, gin.ReleaseMode) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "mp"
	}
	redisClient := c.Cache.Client()
	authRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:auth", redisPrefix),
		WindowSeconds: cfg.RateLimit.WindowSeconds,
		MaxRequests:   cfg.RateLimit.MaxRequests,
		BlockSeconds:  cfg.RateLimit.BlockSeconds,
		Message:       "too many attempts, please retry later",
	}
	clickRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:click", redisPrefix),
		WindowSeconds: cfg.RateLimit.WindowSeconds,
		MaxRequests:   cfg.RateLimit.MaxRequests,
	}
	checkoutRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:checkout", redisPrefix),
		WindowSeconds: cfg.RateLimit.WindowSeconds,
		MaxRequests:   cfg.RateLimit.MaxRequests,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger.L()))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", RateLimitMiddleware(redisClient, authRule, KeyByIP), publicHandler.Register)
			auth.POST("/login", RateLimitMiddleware(redisClient, authRule, KeyByIPAndJSONField("email")), publicHandler.Login)
		}
		apiV1.GET("/products", publicHandler.ListProducts)
		apiV1.GET("/products/:id", publicHandler.GetProduct)
		apiV1.POST("/clicks/:code", RateLimitMiddleware(redisClient, clickRule, KeyByIP), publicHandler.TrackClick)

		// 登录后接口，按角色路由授权
		authed := apiV1.Group("")
		authed.Use(JWTAuthMiddleware(c.AuthService), RoleAuthzMiddleware(c.AuthzService))
		{
			authed.GET("/me", publicHandler.Me)

			authed.GET("/cart", publicHandler.GetCart)
			authed.DELETE("/cart", publicHandler.ClearCart)
			authed.POST("/cart/items", publicHandler.AddCartItem)
			authed.PATCH("/cart/items/:product_id", publicHandler.UpdateCartItem)
			authed.DELETE("/cart/items/:product_id", publicHandler.RemoveCartItem)

			authed.POST("/checkout", RateLimitMiddleware(redisClient, checkoutRule, keyByUserID), publicHandler.Checkout)
			authed.GET("/orders", publicHandler.ListOrders)
			authed.GET("/orders/:id", publicHandler.GetOrder)
			authed.POST("/orders/:id/cancel", publicHandler.CancelOrder)
		}

		seller := authed.Group("/seller")
		{
			seller.GET("/profile", publicHandler.GetSellerProfile)
			seller.PUT("/profile", publicHandler.UpdateSellerProfile)
			seller.GET("/products", publicHandler.ListSellerProducts)
			seller.POST("/products", publicHandler.CreateProduct)
			seller.PATCH("/products/:id", publicHandler.UpdateProduct)
			seller.DELETE("/products/:id", publicHandler.DeleteProduct)
			seller.POST("/products/:id/inventory", publicHandler.AdjustInventory)
			seller.PATCH("/products/:id/listing", publicHandler.SetListing)
			seller.POST("/products/:id/images", publicHandler.AddProductImage)
			seller.PUT("/products/:id/images/:image_id/primary", publicHandler.SetPrimaryImage)
			seller.DELETE("/products/:id/images/:image_id", publicHandler.DeleteProductImage)
			seller.GET("/order-items", publicHandler.ListSellerOrderItems)
			seller.GET("/orders/:id", publicHandler.GetSellerOrder)
			seller.POST("/orders/:id/ship", publicHandler.ShipOrder)
			seller.POST("/orders/:id/deliver", publicHandler.DeliverOrder)
		}

		affiliate := authed.Group("/affiliate")
		{
			affiliate.GET("/profile", publicHandler.GetAffiliateProfile)
			affiliate.PUT("/profile", publicHandler.UpdateAffiliateProfile)
			affiliate.GET("/links", publicHandler.ListAffiliateLinks)
			affiliate.POST("/links", publicHandler.CreateAffiliateLink)
			affiliate.GET("/commissions", publicHandler.ListCommissions)
			affiliate.GET("/summary", publicHandler.CommissionSummary)
		}

		// 管理端接口
		admin := authed.Group("/admin")
		{
			admin.GET("/products", adminHandler.ListProducts)
			admin.PATCH("/products/:id/moderation", adminHandler.ModerateProduct)
			admin.PATCH("/products/:id/status", adminHandler.SetProductStatus)

			admin.GET("/orders", adminHandler.ListOrders)
			admin.GET("/orders/:id", adminHandler.GetOrder)
			admin.POST("/orders/:id/transition", adminHandler.TransitionOrder)
			admin.POST("/payments/confirm", adminHandler.ConfirmPayment)

			admin.PATCH("/users/:id/status", adminHandler.SetUserStatus)
			admin.PATCH("/affiliates/:id/status", adminHandler.SetAffiliateStatus)
			admin.PATCH("/affiliates/:id/commission-rate", adminHandler.SetAffiliateCommissionRate)
			admin.POST("/commissions/settle", adminHandler.SettleCommissions)

			admin.GET("/authz/roles", adminHandler.ListAuthzRoles)
			admin.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
			admin.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
			admin.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
		}
	}

	r.NoRoute(func(ctx *gin.Context) {
		response.NotFound(ctx, "route not found")
	})

	return r
}
