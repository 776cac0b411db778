package public

import (
	"strings"

	handlershared "github.com/Bmariten/afripulse-v2-sub001/internal/http/handlers/shared"
	"github.com/Bmariten/afripulse-v2-sub001/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListProducts 前台商品列表，仅返回可购买商品
func (h *Handler) ListProducts(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	category := strings.TrimSpace(c.Query("category"))
	products, total, err := h.CatalogService.ListPurchasable(category, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "list products failed", err)
		return
	}
	response.SuccessWithPage(c, products, handlershared.BuildPagination(page, pageSize, total))
}

// GetProduct 商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := h.CatalogService.GetProductDetail(id)
	if err != nil {
		respondMapped(c, err, "load product failed")
		return
	}
	response.Success(c, detail)
}
