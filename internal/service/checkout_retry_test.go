package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"
	"github.com/Bmariten/afripulse-v2-sub001/internal/payment"
	"github.com/Bmariten/afripulse-v2-sub001/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// conflictingOrderRepo 前 conflicts 次事务在执行完全部写入后以序列化冲突回滚
type conflictingOrderRepo struct {
	repository.OrderRepository
	conflicts int

	mu    sync.Mutex
	calls int
}

func (r *conflictingOrderRepo) Transaction(fn func(tx *gorm.DB) error) error {
	r.mu.Lock()
	r.calls++
	call := r.calls
	r.mu.Unlock()
	return r.OrderRepository.Transaction(func(tx *gorm.DB) error {
		if err := fn(tx); err != nil {
			return err
		}
		if call <= r.conflicts {
			return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
		}
		return nil
	})
}

func (r *conflictingOrderRepo) attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// failingOrderRepo 所有状态流转事务都失败
type failingOrderRepo struct {
	repository.OrderRepository
}

func (failingOrderRepo) Transaction(func(tx *gorm.DB) error) error {
	return errors.New("connection reset by peer")
}

func TestCheckoutRetriesTransientCommitConflict(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	seller := f.createUser(t, "seller@example.com", constants.RoleSeller)
	customer := f.createUser(t, "buyer@example.com", constants.RoleCustomer)
	product := f.createProduct(t, seller.ID, "retry", "6.00", 4)
	f.addToCart(t, customer.ID, product.ID, 2, "")

	repo := &conflictingOrderRepo{OrderRepository: f.orderRepo, conflicts: 2}
	checkout := f.newCheckout(repo, f.orders, payment.OfflineGateway{})

	order, err := checkout.Checkout(context.Background(), checkoutInput(customer.ID, "cash"))
	require.NoError(t, err)
	assert.Equal(t, 3, repo.attempts())
	assert.Equal(t, constants.OrderStatusPaid, order.Status)
	assert.Equal(t, int64(1), f.countOrders(t))
	assert.Equal(t, 2, f.inventory(t, product.ID))
	assert.Empty(t, f.cartItems(t, customer.ID))
}

func TestCheckoutRetryIsBounded(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	seller := f.createUser(t, "seller@example.com", constants.RoleSeller)
	customer := f.createUser(t, "buyer@example.com", constants.RoleCustomer)
	product := f.createProduct(t, seller.ID, "retry-bounded", "6.00", 4)
	f.addToCart(t, customer.ID, product.ID, 2, "")

	repo := &conflictingOrderRepo{OrderRepository: f.orderRepo, conflicts: 100}
	checkout := f.newCheckout(repo, f.orders, payment.OfflineGateway{})

	_, err := checkout.Checkout(context.Background(), checkoutInput(customer.ID, "cash"))
	require.ErrorIs(t, err, ErrInternalCommitFailure)
	assert.Equal(t, f.checkoutCfg.ReserveMaxAttempts, repo.attempts())
	assert.Zero(t, f.countOrders(t))
	assert.Equal(t, 4, f.inventory(t, product.ID))
	assert.Len(t, f.cartItems(t, customer.ID), 1)

	// 回滚同时撤销了购物车占用
	order, err := f.checkout.Checkout(context.Background(), checkoutInput(customer.ID, "cash"))
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusPaid, order.Status)
}

func TestCheckoutDoesNotRetryNonTransientError(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	seller := f.createUser(t, "seller@example.com", constants.RoleSeller)
	customer := f.createUser(t, "buyer@example.com", constants.RoleCustomer)
	product := f.createProduct(t, seller.ID, "no-retry", "6.00", 4)
	f.addToCart(t, customer.ID, product.ID, 1, "")

	checkout := f.newCheckout(failingOrderRepo{OrderRepository: f.orderRepo}, f.orders, payment.OfflineGateway{})
	_, err := checkout.Checkout(context.Background(), checkoutInput(customer.ID, "cash"))
	require.ErrorIs(t, err, ErrInternalCommitFailure)
	assert.Zero(t, f.countOrders(t))
	assert.Equal(t, 4, f.inventory(t, product.ID))
}

func TestCheckoutDeclineWithFailedCompensation(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	seller := f.createUser(t, "seller@example.com", constants.RoleSeller)
	customer := f.createUser(t, "buyer@example.com", constants.RoleCustomer)
	product := f.createProduct(t, seller.ID, "stuck-decline", "6.00", 4)
	f.addToCart(t, customer.ID, product.ID, 1, "")

	brokenOrders := NewOrderService(failingOrderRepo{OrderRepository: f.orderRepo}, f.catalog, f.affiliate, f.dispatcher, 50)
	checkout := f.newCheckout(f.orderRepo, brokenOrders, payment.SandboxGateway{})

	_, err := checkout.Checkout(context.Background(), checkoutInput(customer.ID, "decline_card"))
	require.ErrorIs(t, err, ErrInternalCommitFailure)
	assert.False(t, errors.Is(err, ErrPaymentRejected))

	var order models.Order
	require.NoError(t, f.db.First(&order).Error)
	assert.Equal(t, constants.OrderStatusPending, order.Status)
	assert.False(t, order.InventoryReleased)
	assert.Equal(t, 3, f.inventory(t, product.ID))

	// 遗留的待支付订单由过期扫描回收
	f.orders.now = func() time.Time { return time.Now().Add(time.Hour) }
	expired, err := f.orders.ExpireOrder(order.ID)
	require.NoError(t, err)
	assert.True(t, expired)
	assert.Equal(t, 4, f.inventory(t, product.ID))
}

func TestCheckoutApprovedButNotMarkedPaid(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	seller := f.createUser(t, "seller@example.com", constants.RoleSeller)
	customer := f.createUser(t, "buyer@example.com", constants.RoleCustomer)
	product := f.createProduct(t, seller.ID, "stuck-paid", "6.00", 4)
	f.addToCart(t, customer.ID, product.ID, 1, "")

	brokenOrders := NewOrderService(failingOrderRepo{OrderRepository: f.orderRepo}, f.catalog, f.affiliate, f.dispatcher, 50)
	checkout := f.newCheckout(f.orderRepo, brokenOrders, payment.OfflineGateway{})

	_, err := checkout.Checkout(context.Background(), checkoutInput(customer.ID, "cash"))
	require.ErrorIs(t, err, ErrInternalCommitFailure)
	assert.Equal(t, int64(1), f.countOrders(t))
	assert.Len(t, f.cartItems(t, customer.ID), 1)
}
