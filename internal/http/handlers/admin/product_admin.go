package admin

import (
	"strings"

	handlershared "github.com/Bmariten/afripulse-v2-sub001/internal/http/handlers/shared"
	"github.com/Bmariten/afripulse-v2-sub001/internal/http/response"

	"github.com/gin-gonic/gin"
)

type moderationPayload struct {
	Approve bool `json:"approve"`
}

type productStatusPayload struct {
	Status string `json:"status" binding:"required"`
}

// ListProducts 审核队列与商品列表，status 为空时返回全部，q 按名称模糊匹配
func (h *Handler) ListProducts(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	products, total, err := h.CatalogService.ListForModeration(
		strings.TrimSpace(c.Query("status")),
		strings.TrimSpace(c.Query("q")),
		page, pageSize,
	)
	if err != nil {
		respondError(c, response.CodeInternal, "list products failed", err)
		return
	}
	response.SuccessWithPage(c, products, handlershared.BuildPagination(page, pageSize, total))
}

// ModerateProduct 审核通过或驳回
func (h *Handler) ModerateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req moderationPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	if err := h.CatalogService.Moderate(id, req.Approve); err != nil {
		respondMapped(c, err, "moderate product failed")
		return
	}
	requestLog(c).Infow("admin_product_moderated", "product_id", id, "approve", req.Approve)
	response.Success(c, nil)
}

// SetProductStatus 直接设置商品状态（含标记违规）
func (h *Handler) SetProductStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req productStatusPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	if err := h.CatalogService.SetStatus(id, strings.TrimSpace(req.Status)); err != nil {
		respondMapped(c, err, "update product status failed")
		return
	}
	requestLog(c).Infow("admin_product_status_updated", "product_id", id, "status", req.Status)
	response.Success(c, nil)
}
