package public

import (
	"strings"

	"github.com/Bmariten/afripulse-v2-sub001/internal/http/response"
	"github.com/Bmariten/afripulse-v2-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

// AddCartItemRequest 加购请求
type AddCartItemRequest struct {
	ProductID    uint   `json:"product_id" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required"`
	AffiliateRef string `json:"affiliate_ref"`
}

// UpdateCartItemRequest 修改数量请求
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// GetCart 当前购物车
func (h *Handler) GetCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	view, err := h.CartService.List(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "load cart failed", err)
		return
	}
	response.Success(c, view)
}

// AddCartItem 加入购物车；推广码可来自请求体或 ref 查询参数
func (h *Handler) AddCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	ref := strings.TrimSpace(req.AffiliateRef)
	if ref == "" {
		ref = strings.TrimSpace(c.Query("ref"))
	}
	item, err := h.CartService.AddItem(service.AddCartItemInput{
		UserID:       uid,
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		AffiliateRef: ref,
	})
	if err != nil {
		respondMapped(c, err, "add cart item failed")
		return
	}
	response.Success(c, item)
}

// UpdateCartItem 修改购物车数量
func (h *Handler) UpdateCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	productID, ok := parseID(c, "product_id")
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	if err := h.CartService.SetQuantity(uid, productID, req.Quantity); err != nil {
		respondMapped(c, err, "update cart item failed")
		return
	}
	response.Success(c, nil)
}

// RemoveCartItem 移除购物车商品
func (h *Handler) RemoveCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	productID, ok := parseID(c, "product_id")
	if !ok {
		return
	}
	if err := h.CartService.RemoveItem(uid, productID); err != nil {
		respondMapped(c, err, "remove cart item failed")
		return
	}
	response.Success(c, nil)
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	view, err := h.CartService.List(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "load cart failed", err)
		return
	}
	if view.CartID != 0 {
		if err := h.CartService.Clear(view.CartID); err != nil {
			respondError(c, response.CodeInternal, "clear cart failed", err)
			return
		}
	}
	response.Success(c, nil)
}
