package public

import (
	"strings"

	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	handlershared "github.com/Bmariten/afripulse-v2-sub001/internal/http/handlers/shared"
	"github.com/Bmariten/afripulse-v2-sub001/internal/http/response"
	"github.com/Bmariten/afripulse-v2-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckoutRequest 结算请求
type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" binding:"required"`
	BillingAddress  string `json:"billing_address"`
	PaymentMethod   string `json:"payment_method"`
	Notes           string `json:"notes"`
}

// Checkout 将购物车转为订单
func (h *Handler) Checkout(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "shipping address required", nil)
		return
	}
	order, err := h.CheckoutService.Checkout(c.Request.Context(), service.CheckoutInput{
		UserID:          uid,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		respondMapped(c, err, "checkout failed")
		return
	}
	response.Success(c, order)
}

// ListOrders 顾客订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	orders, total, err := h.OrderService.ListCustomerOrders(uid, strings.TrimSpace(c.Query("status")), page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "list orders failed", err)
		return
	}
	response.SuccessWithPage(c, orders, handlershared.BuildPagination(page, pageSize, total))
}

// buyerActor 买家视角：无论账号角色，只按下单人身份访问
func buyerActor(c *gin.Context) (service.Actor, bool) {
	uid, ok := getUserID(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{UserID: uid, Role: constants.RoleCustomer}, true
}

// GetOrder 订单详情，仅本人可见
func (h *Handler) GetOrder(c *gin.Context) {
	actor, ok := buyerActor(c)
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

// CancelOrder 顾客取消自己的待支付订单
func (h *Handler) CancelOrder(c *gin.Context) {
	actor, ok := buyerActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.Cancel(actor, id)
	if err != nil {
		respondMapped(c, err, "cancel order failed")
		return
	}
	response.Success(c, order)
}
