package admin

import (
	"strconv"
	"strings"

	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	handlershared "github.com/Bmariten/afripulse-v2-sub001/internal/http/handlers/shared"
	"github.com/Bmariten/afripulse-v2-sub001/internal/http/response"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"
	"github.com/Bmariten/afripulse-v2-sub001/internal/repository"

	"github.com/gin-gonic/gin"
)

type orderTransitionPayload struct {
	Status         string `json:"status" binding:"required"`
	TrackingNumber string `json:"tracking_number"`
	PaymentRef     string `json:"payment_ref"`
}

type paymentConfirmPayload struct {
	PaymentRef string `json:"payment_ref" binding:"required"`
}

// ListOrders 管理端订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)

	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid created_from", nil)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid created_to", nil)
		return
	}
	var customerID uint
	if raw := strings.TrimSpace(c.Query("customer_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			customerID = uint(parsed)
		}
	}

	orders, total, err := h.OrderService.ListOrders(repository.OrderListFilter{
		Page:        page,
		PageSize:    pageSize,
		CustomerID:  customerID,
		Status:      strings.TrimSpace(c.Query("status")),
		OrderNo:     strings.TrimSpace(c.Query("order_no")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "list orders failed", err)
		return
	}
	response.SuccessWithPage(c, orders, handlershared.BuildPagination(page, pageSize, total))
}

// GetOrder 管理端订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.GetForActor(actor, id)
	if err != nil {
		respondMapped(c, err, "load order failed")
		return
	}
	response.Success(c, order)
}

// TransitionOrder 管理员推进订单状态，合法性由状态机校验
func (h *Handler) TransitionOrder(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req orderTransitionPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}

	var (
		order *models.Order
		err   error
	)
	status := strings.ToLower(strings.TrimSpace(req.Status))
	switch status {
	case constants.OrderStatusPaid:
		order, err = h.OrderService.MarkPaid(id, req.PaymentRef)
	case constants.OrderStatusShipped:
		order, err = h.OrderService.Ship(actor, id, req.TrackingNumber)
	case constants.OrderStatusDelivered:
		order, err = h.OrderService.Deliver(actor, id)
	case constants.OrderStatusCancelled:
		order, err = h.OrderService.Cancel(actor, id)
	default:
		order, err = h.OrderService.Transition(id, status)
	}
	if err != nil {
		respondMapped(c, err, "transition order failed")
		return
	}
	requestLog(c).Infow("admin_order_transitioned", "order_id", id, "status", status)
	response.Success(c, order)
}

// ConfirmPayment 按网关流水号确认异步支付的订单
func (h *Handler) ConfirmPayment(c *gin.Context) {
	var req paymentConfirmPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	order, err := h.OrderService.ConfirmPayment(req.PaymentRef)
	if err != nil {
		respondMapped(c, err, "confirm payment failed")
		return
	}
	requestLog(c).Infow("admin_payment_confirmed", "order_id", order.ID, "payment_ref", order.PaymentRef)
	response.Success(c, order)
}
