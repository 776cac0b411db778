package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/config"
	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	"github.com/Bmariten/afripulse-v2-sub001/internal/logger"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"
	"github.com/Bmariten/afripulse-v2-sub001/internal/provider"
	"github.com/Bmariten/afripulse-v2-sub001/internal/service"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/google/uuid"
)

type benchResult struct {
	succeeded  int64
	outOfStock int64
	failed     int64
}

func main() {
	buyers := flag.Int("buyers", 50, "并发买家数量")
	inventory := flag.Int("inventory", 20, "商品初始库存")
	quantity := flag.Int("quantity", 1, "每个买家购买数量")
	dsn := flag.String("dsn", "", "数据库 DSN，默认使用临时内存 sqlite")
	flag.Parse()

	cfg := config.Load()
	logger.Init("release", cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()

	if *dsn != "" {
		cfg.Database.DSN = *dsn
	} else {
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = fmt.Sprintf("file:bench_%s?mode=memory&cache=shared", uuid.NewString())
		cfg.Database.Pool.MaxOpenConns = 1
	}
	cfg.Payment.Provider = constants.PaymentProviderSandbox
	cfg.Queue.Enabled = false
	cfg.Kafka.Enabled = false

	container, err := provider.NewContainer(cfg)
	if err != nil {
		stdLog.Fatalf("build container failed: %v", err)
	}
	defer container.Close()

	productID, err := setupProduct(container, *inventory)
	if err != nil {
		stdLog.Fatalf("setup product failed: %v", err)
	}
	buyerIDs := make([]uint, 0, *buyers)
	for i := 0; i < *buyers; i++ {
		user, err := container.AuthService.Register(service.RegisterInput{
			Email:    fmt.Sprintf("bench-buyer-%d-%s@example.com", i, uuid.NewString()[:8]),
			Password: "BenchPass123",
		})
		if err != nil {
			stdLog.Fatalf("register buyer failed: %v", err)
		}
		if _, err := container.CartService.AddItem(service.AddCartItemInput{UserID: user.ID, ProductID: productID, Quantity: *quantity}); err != nil {
			stdLog.Fatalf("add cart item failed: %v", err)
		}
		buyerIDs = append(buyerIDs, user.ID)
	}

	histogram := hdrhistogram.New(1, 60_000_000, 3)
	var histMu sync.Mutex
	var result benchResult
	var wg sync.WaitGroup
	start := make(chan struct{})
	for _, buyerID := range buyerIDs {
		wg.Add(1)
		go func(buyerID uint) {
			defer wg.Done()
			<-start
			began := time.Now()
			_, err := container.CheckoutService.Checkout(context.Background(), service.CheckoutInput{
				UserID:          buyerID,
				ShippingAddress: "1 Bench Street",
				PaymentMethod:   "card_bench",
			})
			latency := time.Since(began)
			histMu.Lock()
			_ = histogram.RecordValue(latency.Microseconds())
			histMu.Unlock()
			switch {
			case err == nil:
				atomic.AddInt64(&result.succeeded, 1)
			case errors.Is(err, service.ErrInsufficientStock), errors.Is(err, service.ErrProductUnavailable):
				atomic.AddInt64(&result.outOfStock, 1)
			default:
				atomic.AddInt64(&result.failed, 1)
				logger.Warnw("bench_checkout_failed", "buyer_id", buyerID, "error", err)
			}
		}(buyerID)
	}
	wallStart := time.Now()
	close(start)
	wg.Wait()
	wall := time.Since(wallStart)

	var product models.Product
	if err := container.DB.First(&product, productID).Error; err != nil {
		stdLog.Fatalf("reload product failed: %v", err)
	}
	sold := int(result.succeeded) * *quantity

	fmt.Printf("buyers=%d inventory=%d quantity=%d wall=%s\n", *buyers, *inventory, *quantity, wall)
	fmt.Printf("succeeded=%d out_of_stock=%d failed=%d remaining=%d\n", result.succeeded, result.outOfStock, result.failed, product.InventoryCount)
	fmt.Printf("latency mean=%s p50=%s p95=%s p99=%s max=%s\n",
		micros(int64(histogram.Mean())),
		micros(histogram.ValueAtQuantile(50)),
		micros(histogram.ValueAtQuantile(95)),
		micros(histogram.ValueAtQuantile(99)),
		micros(histogram.Max()),
	)
	if product.InventoryCount < 0 || sold+product.InventoryCount != *inventory {
		fmt.Printf("INVENTORY MISMATCH: sold=%d remaining=%d initial=%d\n", sold, product.InventoryCount, *inventory)
		os.Exit(1)
	}
}

func micros(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}

// setupProduct 创建卖家与一个已上架商品
func setupProduct(c *provider.Container, inventory int) (uint, error) {
	seller, err := c.AuthService.Register(service.RegisterInput{
		Email:    fmt.Sprintf("bench-seller-%s@example.com", uuid.NewString()[:8]),
		Password: "BenchPass123",
		Role:     constants.RoleSeller,
		Seller:   service.SellerSignup{BusinessName: "Bench Goods"},
	})
	if err != nil {
		return 0, err
	}
	product, err := c.CatalogService.CreateProduct(seller.ID, service.CreateProductInput{
		Name:           "Bench Item",
		Price:          models.MustMoney("10.00"),
		InventoryCount: inventory,
	})
	if err != nil {
		return 0, err
	}
	if err := c.CatalogService.Moderate(product.ID, true); err != nil {
		return 0, err
	}
	return product.ID, nil
}
