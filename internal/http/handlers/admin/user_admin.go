package admin

import (
	"strings"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/http/response"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"

	"github.com/gin-gonic/gin"
)

type statusPayload struct {
	Status string `json:"status" binding:"required"`
}

type commissionRatePayload struct {
	Rate models.Money `json:"rate"`
}

// SetUserStatus 启用或禁用账号
func (h *Handler) SetUserStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req statusPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	if err := h.AuthService.SetUserStatus(id, strings.TrimSpace(req.Status)); err != nil {
		respondMapped(c, err, "update user status failed")
		return
	}
	requestLog(c).Infow("admin_user_status_updated", "user_id", id, "status", req.Status)
	response.Success(c, nil)
}

// SetAffiliateStatus 启用或禁用推广用户
func (h *Handler) SetAffiliateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req statusPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	if err := h.AffiliateService.SetStatus(id, strings.TrimSpace(req.Status)); err != nil {
		respondMapped(c, err, "update affiliate status failed")
		return
	}
	requestLog(c).Infow("admin_affiliate_status_updated", "affiliate_profile_id", id, "status", req.Status)
	response.Success(c, nil)
}

// SetAffiliateCommissionRate 调整佣金比例（百分比）
func (h *Handler) SetAffiliateCommissionRate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req commissionRatePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	if err := h.AffiliateService.SetCommissionRate(id, req.Rate); err != nil {
		respondMapped(c, err, "update commission rate failed")
		return
	}
	requestLog(c).Infow("admin_affiliate_rate_updated", "affiliate_profile_id", id, "rate", req.Rate.String())
	response.Success(c, nil)
}

// SettleCommissions 立即结算到期佣金
func (h *Handler) SettleCommissions(c *gin.Context) {
	settled, err := h.AffiliateService.SettleCommissions(time.Now())
	if err != nil {
		respondError(c, response.CodeInternal, "settle commissions failed", err)
		return
	}
	response.Success(c, gin.H{"settled": settled})
}
