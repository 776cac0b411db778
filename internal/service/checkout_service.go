package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/config"
	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	"github.com/Bmariten/afripulse-v2-sub001/internal/logger"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"
	"github.com/Bmariten/afripulse-v2-sub001/internal/payment"
	"github.com/Bmariten/afripulse-v2-sub001/internal/queue"
	"github.com/Bmariten/afripulse-v2-sub001/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultCurrency           = "USD"
	defaultReserveMaxAttempts = 3
)

// CheckoutInput 结算输入
type CheckoutInput struct {
	UserID          uint
	ShippingAddress string
	BillingAddress  string
	PaymentMethod   string
	Notes           string
}

// CheckoutService 结算引擎：校验、预占库存、落单、扣款
type CheckoutService struct {
	cartRepo     repository.CartRepository
	productRepo  repository.ProductRepository
	orderRepo    repository.OrderRepository
	catalog      *CatalogService
	cartSvc      *CartService
	affiliateSvc *AffiliateService
	orderSvc     *OrderService
	gateway      payment.Gateway
	queueClient  *queue.Client
	dispatcher   *OrderEventDispatcher
	cfg          config.CheckoutConfig
	now          func() time.Time
}

// CheckoutDeps 结算引擎依赖
type CheckoutDeps struct {
	CartRepo    repository.CartRepository
	ProductRepo repository.ProductRepository
	OrderRepo   repository.OrderRepository
	Catalog     *CatalogService
	Cart        *CartService
	Affiliate   *AffiliateService
	Orders      *OrderService
	Gateway     payment.Gateway
	QueueClient *queue.Client
	Dispatcher  *OrderEventDispatcher
	Config      config.CheckoutConfig
}

// NewCheckoutService 创建结算引擎
func NewCheckoutService(deps CheckoutDeps) *CheckoutService {
	return &CheckoutService{
		cartRepo:     deps.CartRepo,
		productRepo:  deps.ProductRepo,
		orderRepo:    deps.OrderRepo,
		catalog:      deps.Catalog,
		cartSvc:      deps.Cart,
		affiliateSvc: deps.Affiliate,
		orderSvc:     deps.Orders,
		gateway:      deps.Gateway,
		queueClient:  deps.QueueClient,
		dispatcher:   deps.Dispatcher,
		cfg:          deps.Config,
		now:          time.Now,
	}
}

func (s *CheckoutService) currency() string {
	if c := strings.ToUpper(strings.TrimSpace(s.cfg.Currency)); c != "" {
		return c
	}
	return defaultCurrency
}

func (s *CheckoutService) maxAttempts() int {
	if s.cfg.ReserveMaxAttempts <= 0 {
		return defaultReserveMaxAttempts
	}
	return s.cfg.ReserveMaxAttempts
}

// Checkout 把购物车转为订单；任何一步失败都不会留下部分订单或未回补的库存
func (s *CheckoutService) Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	if input.UserID == 0 {
		return nil, ErrForbidden
	}
	shipping := strings.TrimSpace(input.ShippingAddress)
	if shipping == "" {
		return nil, ErrShippingAddress
	}

	// Validating
	cart, items, err := s.loadCart(input.UserID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if _, err := s.catalog.GetPurchasable(item.ProductID); err != nil {
			if errors.Is(err, ErrProductNotFound) {
				return nil, fmt.Errorf("%w: product %d", ErrProductUnavailable, item.ProductID)
			}
			return nil, err
		}
	}

	// Reserving + Committing
	order, err := s.commitWithRetry(ctx, input, cart.ID)
	if err != nil {
		return nil, err
	}
	logger.Infow("checkout_order_committed",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"user_id", input.UserID,
		"total_amount", order.TotalAmount.String(),
		"items", len(order.Items),
	)
	s.dispatcher.Dispatch(constants.OrderEventCreated, order, "")

	// Charging
	return s.charge(ctx, cart.ID, order, input.PaymentMethod)
}

func (s *CheckoutService) loadCart(userID uint) (*models.Cart, []models.CartItem, error) {
	cart, err := s.cartRepo.GetByUser(userID)
	if err != nil {
		return nil, nil, err
	}
	if cart == nil {
		return nil, nil, ErrEmptyCart
	}
	items, err := s.cartRepo.ListItems(cart.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(items) == 0 {
		return nil, nil, ErrEmptyCart
	}
	return cart, items, nil
}

func (s *CheckoutService) commitWithRetry(ctx context.Context, input CheckoutInput, cartID uint) (*models.Order, error) {
	backoff := s.cfg.ReserveBackoff()
	for attempt := 1; ; attempt++ {
		order, err := s.commit(input, cartID)
		if err == nil {
			return order, nil
		}
		if isCheckoutBusinessError(err) {
			return nil, err
		}
		if !repository.IsRetryableConflict(err) || attempt >= s.maxAttempts() {
			logger.Errorw("checkout_commit_failed", "user_id", input.UserID, "attempt", attempt, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrInternalCommitFailure, err)
		}
		logger.Warnw("checkout_commit_conflict_retry", "user_id", input.UserID, "attempt", attempt, "error", err)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

// commit 在同一事务内占用购物车，按商品ID升序预占库存并写入订单、订单项与佣金
// 购物车项在占用之后重新读取，并发的第二次结算拿不到占用
func (s *CheckoutService) commit(input CheckoutInput, cartID uint) (*models.Order, error) {
	var order *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		now := s.now()
		expiresAt := now.Add(s.cfg.ReservationTTL())
		cartRepo := s.cartRepo.WithTx(tx)
		claimed, err := cartRepo.ClaimCheckout(cartID, expiresAt, now)
		if err != nil {
			return err
		}
		if !claimed {
			return ErrCheckoutInProgress
		}
		items, err := cartRepo.ListItems(cartID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}
		sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

		productRepo := s.productRepo.WithTx(tx)
		orderItems := make([]models.OrderItem, 0, len(items))
		total := models.Money{}
		commissionTotal := models.Money{}

		for _, item := range items {
			if err := s.catalog.ReserveInventory(tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			product, err := productRepo.GetByID(item.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return fmt.Errorf("%w: product %d", ErrProductUnavailable, item.ProductID)
			}
			unitPrice := product.UnitPrice()
			subtotal := unitPrice.MulQty(item.Quantity)
			productID := product.ID
			orderItem := models.OrderItem{
				ProductID:    &productID,
				SellerID:     product.SellerID,
				ProductName:  product.Name,
				PricePerUnit: unitPrice,
				Quantity:     item.Quantity,
				Subtotal:     subtotal,
				CreatedAt:    now,
			}
			if s.affiliateSvc != nil {
				profile, err := s.affiliateSvc.ValidateAttribution(tx, item, input.UserID, now)
				if err != nil {
					return err
				}
				if profile != nil {
					affiliateID := profile.ID
					orderItem.AffiliateID = &affiliateID
					orderItem.AffiliateLinkID = item.AffiliateLinkID
					orderItem.CommissionRate = profile.CommissionRate
					orderItem.CommissionAmount = s.affiliateSvc.ComputeCommission(profile, subtotal)
				}
			}
			total = total.Add(subtotal)
			commissionTotal = commissionTotal.Add(orderItem.CommissionAmount)
			orderItems = append(orderItems, orderItem)
		}

		billing := strings.TrimSpace(input.BillingAddress)
		if billing == "" {
			billing = strings.TrimSpace(input.ShippingAddress)
		}
		customerID := input.UserID
		order = &models.Order{
			OrderNo:         generateOrderNo(now),
			CustomerID:      &customerID,
			Status:          constants.OrderStatusPending,
			Currency:        s.currency(),
			TotalAmount:     total,
			CommissionTotal: commissionTotal,
			ShippingAddress: strings.TrimSpace(input.ShippingAddress),
			BillingAddress:  billing,
			PaymentMethod:   truncate(input.PaymentMethod, 64),
			Notes:           strings.TrimSpace(input.Notes),
			ExpiresAt:       &expiresAt,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.orderRepo.WithTx(tx).Create(order, orderItems); err != nil {
			return err
		}
		if err := cartRepo.BindCheckoutOrder(cartID, order.ID); err != nil {
			return err
		}
		if s.affiliateSvc != nil {
			return s.affiliateSvc.RecordCommissions(tx, order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// charge 事务外扣款；拒绝、出错或超时都会取消订单并回补库存，购物车保留并解除占用
func (s *CheckoutService) charge(ctx context.Context, cartID uint, order *models.Order, methodRef string) (*models.Order, error) {
	chargeCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout())
	defer cancel()
	result, err := s.gateway.Charge(chargeCtx, payment.ChargeRequest{
		OrderNo:   order.OrderNo,
		Amount:    order.TotalAmount.Decimal,
		Currency:  order.Currency,
		MethodRef: methodRef,
	})
	if err == nil && result.Outcome == payment.OutcomeDeclined {
		err = fmt.Errorf("declined: %s", result.Reason)
	}
	if err != nil {
		logger.Warnw("checkout_payment_rejected", "order_id", order.ID, "order_no", order.OrderNo, "error", err)
		if _, cancelErr := s.orderSvc.CancelWithReason(order.ID, constants.CancelReasonPaymentRejected); cancelErr != nil {
			logger.Errorw("checkout_compensation_failed",
				"order_id", order.ID,
				"order_no", order.OrderNo,
				"payment_error", err,
				"error", cancelErr,
			)
			return nil, fmt.Errorf("%w: order %d left pending after payment failure: %v", ErrInternalCommitFailure, order.ID, cancelErr)
		}
		s.releaseCart(cartID, order)
		return nil, fmt.Errorf("%w: %v", ErrPaymentRejected, err)
	}

	switch result.Outcome {
	case payment.OutcomeApproved:
		paid, err := s.orderSvc.MarkPaid(order.ID, result.Reference)
		if err != nil {
			logger.Errorw("checkout_mark_paid_failed",
				"order_id", order.ID,
				"order_no", order.OrderNo,
				"payment_ref", result.Reference,
				"error", err,
			)
			return nil, fmt.Errorf("%w: order %d charged but not marked paid: %v", ErrInternalCommitFailure, order.ID, err)
		}
		s.clearCart(cartID, order)
		return paid, nil
	case payment.OutcomePending:
		if ref := strings.TrimSpace(result.Reference); ref != "" {
			if err := s.orderSvc.RecordPaymentRef(order.ID, ref); err != nil {
				logger.Errorw("checkout_payment_ref_save_failed",
					"order_id", order.ID,
					"order_no", order.OrderNo,
					"payment_ref", ref,
					"error", err,
				)
				return nil, fmt.Errorf("%w: order %d pending without payment reference: %v", ErrInternalCommitFailure, order.ID, err)
			}
			order.PaymentRef = ref
		}
		delay := time.Until(*order.ExpiresAt)
		if err := s.queueClient.EnqueueReservationExpire(order.ID, delay); err != nil {
			logger.Warnw("reservation_expire_enqueue_failed", "order_id", order.ID, "error", err)
		}
		s.clearCart(cartID, order)
		return order, nil
	default:
		logger.Errorw("checkout_payment_outcome_unknown", "order_id", order.ID, "outcome", string(result.Outcome))
		if _, cancelErr := s.orderSvc.CancelWithReason(order.ID, constants.CancelReasonPaymentRejected); cancelErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInternalCommitFailure, cancelErr)
		}
		s.releaseCart(cartID, order)
		return nil, ErrPaymentRejected
	}
}

func (s *CheckoutService) clearCart(cartID uint, order *models.Order) {
	if err := s.cartSvc.Clear(cartID); err != nil {
		logger.Warnw("checkout_cart_clear_failed", "cart_id", cartID, "order_id", order.ID, "error", err)
	}
	s.releaseCart(cartID, order)
}

// releaseCart 解除结算占用；失败时占用在保留期结束后自然失效
func (s *CheckoutService) releaseCart(cartID uint, order *models.Order) {
	if _, err := s.cartRepo.ReleaseCheckout(cartID, order.ID); err != nil {
		logger.Warnw("checkout_cart_release_failed", "cart_id", cartID, "order_id", order.ID, "error", err)
	}
}

func isCheckoutBusinessError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrCheckoutInProgress) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrProductUnavailable) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrInvalidQuantity)
}

func generateOrderNo(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("MP%s%s", now.Format("20060102150405"), suffix)
}
