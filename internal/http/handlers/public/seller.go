package public

import (
	"errors"
	"io"
	"strings"

	handlershared "github.com/Bmariten/afripulse-v2-sub001/internal/http/handlers/shared"
	"github.com/Bmariten/afripulse-v2-sub001/internal/http/response"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"
	"github.com/Bmariten/afripulse-v2-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

// SellerProfileRequest 卖家资料
type SellerProfileRequest struct {
	BusinessName    string `json:"business_name" binding:"required"`
	BusinessEmail   string `json:"business_email"`
	BusinessPhone   string `json:"business_phone"`
	BusinessAddress string `json:"business_address"`
	TaxID           string `json:"tax_id"`
}

// CreateProductRequest 创建商品
type CreateProductRequest struct {
	Name           string        `json:"name" binding:"required"`
	Slug           string        `json:"slug"`
	Description    string        `json:"description"`
	Category       string        `json:"category"`
	Price          models.Money  `json:"price"`
	DiscountPrice  *models.Money `json:"discount_price"`
	InventoryCount int           `json:"inventory_count"`
}

// UpdateProductRequest 更新商品，未传字段保持不变
type UpdateProductRequest struct {
	Name          *string       `json:"name"`
	Description   *string       `json:"description"`
	Category      *string       `json:"category"`
	Price         *models.Money `json:"price"`
	DiscountPrice *models.Money `json:"discount_price"`
	ClearDiscount bool          `json:"clear_discount"`
}

// AdjustInventoryRequest 库存增减
type AdjustInventoryRequest struct {
	Delta int `json:"delta"`
}

// ListingRequest 上下架
type ListingRequest struct {
	Active bool `json:"active"`
}

// AddImageRequest 新增商品图片
type AddImageRequest struct {
	URL          string `json:"url" binding:"required"`
	AltText      string `json:"alt_text"`
	DisplayOrder int    `json:"display_order"`
	IsPrimary    bool   `json:"is_primary"`
}

// ShipRequest 发货
type ShipRequest struct {
	TrackingNumber string `json:"tracking_number"`
}

// GetSellerProfile 卖家资料
func (h *Handler) GetSellerProfile(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	profile, err := h.AuthService.GetSellerProfile(uid)
	if err != nil {
		respondMapped(c, err, "load seller profile failed")
		return
	}
	response.Success(c, profile)
}

// UpdateSellerProfile 更新卖家资料
func (h *Handler) UpdateSellerProfile(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req SellerProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	profile, err := h.AuthService.UpdateSellerProfile(uid, service.SellerSignup{
		BusinessName:    req.BusinessName,
		BusinessEmail:   req.BusinessEmail,
		BusinessPhone:   req.BusinessPhone,
		BusinessAddress: req.BusinessAddress,
		TaxID:           req.TaxID,
	})
	if err != nil {
		respondMapped(c, err, "update seller profile failed")
		return
	}
	response.Success(c, profile)
}

// ListSellerProducts 卖家自己的商品
func (h *Handler) ListSellerProducts(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	products, total, err := h.CatalogService.ListSellerProducts(uid, strings.TrimSpace(c.Query("status")), page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "list products failed", err)
		return
	}
	response.SuccessWithPage(c, products, handlershared.BuildPagination(page, pageSize, total))
}

// CreateProduct 创建商品，进入待审核
func (h *Handler) CreateProduct(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	product, err := h.CatalogService.CreateProduct(uid, service.CreateProductInput{
		Name:           req.Name,
		Slug:           req.Slug,
		Description:    req.Description,
		Category:       req.Category,
		Price:          req.Price,
		DiscountPrice:  req.DiscountPrice,
		InventoryCount: req.InventoryCount,
	})
	if err != nil {
		respondMapped(c, err, "create product failed")
		return
	}
	response.Success(c, product)
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	product, err := h.CatalogService.UpdateProduct(uid, id, service.UpdateProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		ClearDiscount: req.ClearDiscount,
	})
	if err != nil {
		respondMapped(c, err, "update product failed")
		return
	}
	response.Success(c, product)
}

// DeleteProduct 删除商品
func (h *Handler) DeleteProduct(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.CatalogService.DeleteProduct(uid, id); err != nil {
		respondMapped(c, err, "delete product failed")
		return
	}
	response.Success(c, nil)
}

// AdjustInventory 补货或扣减库存
func (h *Handler) AdjustInventory(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req AdjustInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	product, err := h.CatalogService.AdjustInventory(uid, id, req.Delta)
	if err != nil {
		respondMapped(c, err, "adjust inventory failed")
		return
	}
	response.Success(c, product)
}

// SetListing 上下架
func (h *Handler) SetListing(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	if err := h.CatalogService.SetListingStatus(uid, id, req.Active); err != nil {
		respondMapped(c, err, "update listing failed")
		return
	}
	response.Success(c, nil)
}

// AddProductImage 新增图片
func (h *Handler) AddProductImage(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req AddImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	image, err := h.CatalogService.AddImage(uid, id, service.AddImageInput{
		URL:          req.URL,
		AltText:      req.AltText,
		DisplayOrder: req.DisplayOrder,
		IsPrimary:    req.IsPrimary,
	})
	if err != nil {
		respondMapped(c, err, "add image failed")
		return
	}
	response.Success(c, image)
}

// SetPrimaryImage 设为主图
func (h *Handler) SetPrimaryImage(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	imageID, ok := parseID(c, "image_id")
	if !ok {
		return
	}
	if err := h.CatalogService.SetPrimaryImage(uid, id, imageID); err != nil {
		respondMapped(c, err, "set primary image failed")
		return
	}
	response.Success(c, nil)
}

// DeleteProductImage 删除图片
func (h *Handler) DeleteProductImage(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	imageID, ok := parseID(c, "image_id")
	if !ok {
		return
	}
	if err := h.CatalogService.DeleteImage(uid, id, imageID); err != nil {
		respondMapped(c, err, "delete image failed")
		return
	}
	response.Success(c, nil)
}

// ListSellerOrderItems 卖家待履约订单项
func (h *Handler) ListSellerOrderItems(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	items, total, err := h.OrderService.ListSellerItems(uid, strings.TrimSpace(c.Query("status")), page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "list order items failed", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// GetSellerOrder 卖家视角的订单详情
func (h *Handler) GetSellerOrder(c *gin.Context) {
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

// ShipOrder 发货
func (h *Handler) ShipOrder(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req ShipRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	order, err := h.OrderService.Ship(actor, id, req.TrackingNumber)
	if err != nil {
		respondMapped(c, err, "ship order failed")
		return
	}
	response.Success(c, order)
}

// DeliverOrder 确认签收
func (h *Handler) DeliverOrder(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.Deliver(actor, id)
	if err != nil {
		respondMapped(c, err, "deliver order failed")
		return
	}
	response.Success(c, order)
}
