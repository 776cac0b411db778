package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	"github.com/Bmariten/afripulse-v2-sub001/internal/logger"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"
	"github.com/Bmariten/afripulse-v2-sub001/internal/repository"

	"gorm.io/gorm"
)

const defaultSweepBatchSize = 100

var errTransitionSkipped = errors.New("order transition skipped")

// Actor 调用方身份
type Actor struct {
	UserID uint
	Role   string
}

// IsAdmin 是否管理员
func (a Actor) IsAdmin() bool {
	return a.Role == constants.RoleAdmin
}

// TransitionOptions 状态流转附带信息
type TransitionOptions struct {
	Reason         string
	TrackingNumber string
	PaymentRef     string
	// guard 在加锁读取订单后执行，返回 errTransitionSkipped 表示无需处理
	guard func(order *models.Order, now time.Time) error
}

// OrderService 订单服务
type OrderService struct {
	orderRepo    repository.OrderRepository
	catalog      *CatalogService
	affiliateSvc *AffiliateService
	dispatcher   *OrderEventDispatcher
	sweepBatch   int
	now          func() time.Time
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, catalog *CatalogService, affiliateSvc *AffiliateService, dispatcher *OrderEventDispatcher, sweepBatch int) *OrderService {
	if sweepBatch <= 0 {
		sweepBatch = defaultSweepBatchSize
	}
	return &OrderService{
		orderRepo:    orderRepo,
		catalog:      catalog,
		affiliateSvc: affiliateSvc,
		dispatcher:   dispatcher,
		sweepBatch:   sweepBatch,
		now:          time.Now,
	}
}

// Transition 按合法边流转订单状态
func (s *OrderService) Transition(orderID uint, newStatus string) (*models.Order, error) {
	return s.TransitionWith(orderID, newStatus, TransitionOptions{})
}

// TransitionWith 流转订单状态；取消时回补库存且只回补一次
func (s *OrderService) TransitionWith(orderID uint, newStatus string, opts TransitionOptions) (*models.Order, error) {
	to := strings.TrimSpace(newStatus)
	if !isOrderStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, newStatus)
	}
	var (
		updated *models.Order
		now     = s.now()
	)
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		order, err := repo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if opts.guard != nil {
			if err := opts.guard(order, now); err != nil {
				return err
			}
		}
		from := order.Status
		if !canTransition(from, to) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
		}
		updates := map[string]interface{}{}
		if column := statusTimeColumn(to); column != "" {
			updates[column] = now
		}
		switch to {
		case constants.OrderStatusPaid:
			if ref := strings.TrimSpace(opts.PaymentRef); ref != "" {
				updates["payment_ref"] = ref
			}
		case constants.OrderStatusShipped:
			if tracking := strings.TrimSpace(opts.TrackingNumber); tracking != "" {
				updates["tracking_number"] = tracking
			}
		case constants.OrderStatusCancelled:
			updates["cancel_reason"] = truncate(opts.Reason, 64)
		}
		affected, err := repo.CompareAndSetStatus(orderID, from, to, updates)
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s changed concurrently", ErrIllegalTransition, from)
		}
		switch to {
		case constants.OrderStatusCancelled:
			if err := s.releaseReservation(tx, orderID); err != nil {
				return err
			}
			if s.affiliateSvc != nil {
				if err := s.affiliateSvc.RejectForOrder(tx, orderID, "order_cancelled:"+opts.Reason, now); err != nil {
					return err
				}
			}
		case constants.OrderStatusDelivered:
			if s.affiliateSvc != nil {
				if err := s.affiliateSvc.ScheduleConfirmation(tx, orderID, now); err != nil {
					return err
				}
			}
		}
		updated, err = repo.GetByID(orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("order_status_changed", "order_id", orderID, "order_no", updated.OrderNo, "status", to, "reason", opts.Reason)
	if to == constants.OrderStatusPaid && s.affiliateSvc != nil {
		if err := s.affiliateSvc.RecordConversions(updated.Items); err != nil {
			logger.Warnw("affiliate_conversion_record_failed", "order_id", orderID, "error", err)
		}
	}
	s.dispatcher.Dispatch(eventTypeForStatus(to), updated, opts.Reason)
	return updated, nil
}

// releaseReservation 回补订单占用的库存，由 inventory_released 标记保证只执行一次
func (s *OrderService) releaseReservation(tx *gorm.DB, orderID uint) error {
	repo := s.orderRepo.WithTx(tx)
	affected, err := repo.MarkInventoryReleased(orderID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return nil
	}
	items, err := repo.ListItems(orderID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		if err := s.catalog.ReleaseInventory(tx, *item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// MarkPaid 扣款成功后标记已支付
func (s *OrderService) MarkPaid(orderID uint, paymentRef string) (*models.Order, error) {
	return s.TransitionWith(orderID, constants.OrderStatusPaid, TransitionOptions{PaymentRef: paymentRef})
}

// RecordPaymentRef 保存异步网关返回的流水号，供后续回调按流水号确认
func (s *OrderService) RecordPaymentRef(orderID uint, paymentRef string) error {
	affected, err := s.orderRepo.SetPendingPaymentRef(orderID, paymentRef)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: order %d is no longer pending", ErrIllegalTransition, orderID)
	}
	return nil
}

// ConfirmPayment 按网关流水号确认待支付订单
func (s *OrderService) ConfirmPayment(paymentRef string) (*models.Order, error) {
	order, err := s.orderRepo.GetByPaymentRef(paymentRef)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return s.MarkPaid(order.ID, order.PaymentRef)
}

// CancelWithReason 以指定原因取消订单
func (s *OrderService) CancelWithReason(orderID uint, reason string) (*models.Order, error) {
	return s.TransitionWith(orderID, constants.OrderStatusCancelled, TransitionOptions{Reason: reason})
}

// Cancel 取消订单：顾客只能取消自己的待支付订单，管理员可取消待支付与已支付订单
func (s *OrderService) Cancel(actor Actor, orderID uint) (*models.Order, error) {
	reason := constants.CancelReasonCustomer
	opts := TransitionOptions{Reason: reason}
	if actor.IsAdmin() {
		opts.Reason = constants.CancelReasonAdmin
	} else {
		opts.guard = func(order *models.Order, _ time.Time) error {
			if order.CustomerID == nil || *order.CustomerID != actor.UserID {
				return ErrForbidden
			}
			if order.Status != constants.OrderStatusPending {
				return fmt.Errorf("%w: customers may only cancel pending orders", ErrIllegalTransition)
			}
			return nil
		}
	}
	return s.TransitionWith(orderID, constants.OrderStatusCancelled, opts)
}

// Ship 发货：管理员或订单全部商品所属的卖家
func (s *OrderService) Ship(actor Actor, orderID uint, trackingNumber string) (*models.Order, error) {
	if err := s.authorizeFulfillment(actor, orderID); err != nil {
		return nil, err
	}
	return s.TransitionWith(orderID, constants.OrderStatusShipped, TransitionOptions{TrackingNumber: trackingNumber})
}

// Deliver 确认签收：管理员或订单全部商品所属的卖家
func (s *OrderService) Deliver(actor Actor, orderID uint) (*models.Order, error) {
	if err := s.authorizeFulfillment(actor, orderID); err != nil {
		return nil, err
	}
	return s.TransitionWith(orderID, constants.OrderStatusDelivered, TransitionOptions{})
}

func (s *OrderService) authorizeFulfillment(actor Actor, orderID uint) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role != constants.RoleSeller {
		return ErrForbidden
	}
	items, err := s.orderRepo.ListItems(orderID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return ErrOrderNotFound
	}
	foreign, err := s.orderRepo.CountForeignItems(orderID, actor.UserID)
	if err != nil {
		return err
	}
	if foreign > 0 {
		return ErrForbidden
	}
	return nil
}

// ExpireOrder 取消超过保留期仍未支付的订单；非待支付或未到期时为空操作
func (s *OrderService) ExpireOrder(orderID uint) (bool, error) {
	_, err := s.TransitionWith(orderID, constants.OrderStatusCancelled, TransitionOptions{
		Reason: constants.CancelReasonReservationExpired,
		guard: func(order *models.Order, now time.Time) error {
			if order.Status != constants.OrderStatusPending {
				return errTransitionSkipped
			}
			if order.ExpiresAt == nil || order.ExpiresAt.After(now) {
				return errTransitionSkipped
			}
			return nil
		},
	})
	if errors.Is(err, errTransitionSkipped) || errors.Is(err, ErrOrderNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SweepExpired 批量回收过期的待支付订单
func (s *OrderService) SweepExpired(ctx context.Context) (int, error) {
	ids, err := s.orderRepo.ListExpiredPendingIDs(s.now(), s.sweepBatch)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		ok, err := s.ExpireOrder(id)
		if err != nil {
			logger.Warnw("order_expire_failed", "order_id", id, "error", err)
			continue
		}
		if ok {
			expired++
		}
	}
	if expired > 0 {
		logger.Infow("order_expiry_sweep_done", "expired", expired, "scanned", len(ids))
	}
	return expired, nil
}

// GetForActor 按权限查看订单；卖家只看到自己的订单项
func (s *OrderService) GetForActor(actor Actor, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	switch {
	case actor.IsAdmin():
		return order, nil
	case actor.Role == constants.RoleSeller:
		own := make([]models.OrderItem, 0, len(order.Items))
		for _, item := range order.Items {
			if item.SellerID == actor.UserID {
				own = append(own, item)
			}
		}
		if len(own) == 0 {
			return nil, ErrOrderNotFound
		}
		order.Items = own
		return order, nil
	default:
		if order.CustomerID == nil || *order.CustomerID != actor.UserID {
			return nil, ErrOrderNotFound
		}
		return order, nil
	}
}

// ListCustomerOrders 顾客订单列表
func (s *OrderService) ListCustomerOrders(customerID uint, status string, page, pageSize int) ([]models.Order, int64, error) {
	if customerID == 0 {
		return nil, 0, ErrForbidden
	}
	return s.orderRepo.List(repository.OrderListFilter{
		Page:       page,
		PageSize:   pageSize,
		CustomerID: customerID,
		Status:     status,
	})
}

// ListOrders 管理员订单列表
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

// ListSellerItems 卖家订单项
func (s *OrderService) ListSellerItems(sellerID uint, status string, page, pageSize int) ([]models.OrderItem, int64, error) {
	return s.orderRepo.ListSellerItems(repository.SellerOrderItemFilter{
		Page:     page,
		PageSize: pageSize,
		SellerID: sellerID,
		Status:   status,
	})
}
