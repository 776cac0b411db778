package public

import (
	"errors"
	"io"
	"strings"

	handlershared "github.com/Bmariten/afripulse-v2-sub001/internal/http/handlers/shared"
	"github.com/Bmariten/afripulse-v2-sub001/internal/http/response"
	"github.com/Bmariten/afripulse-v2-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	visitorHeader = "X-Visitor-ID"
	visitorCookie = "visitor_id"
)

// AffiliateProfileRequest 推广资料
type AffiliateProfileRequest struct {
	Website     string `json:"website"`
	Niche       string `json:"niche"`
	PayoutEmail string `json:"payout_email"`
}

// CreateLinkRequest 生成推广链接；product_id 为空时为店铺通用链接
type CreateLinkRequest struct {
	ProductID *uint `json:"product_id"`
}

// TrackClick 推广链接点击上报
func (h *Handler) TrackClick(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		respondError(c, response.CodeBadRequest, "invalid code", nil)
		return
	}
	visitor := strings.TrimSpace(c.GetHeader(visitorHeader))
	if visitor == "" {
		if cookie, err := c.Cookie(visitorCookie); err == nil {
			visitor = strings.TrimSpace(cookie)
		}
	}
	result, err := h.AffiliateService.TrackClick(c.Request.Context(), service.TrackClickInput{
		Code:       code,
		VisitorKey: visitor,
		ClientIP:   c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		Referrer:   c.Request.Referer(),
	})
	if err != nil {
		respondMapped(c, err, "track click failed")
		return
	}
	response.Success(c, gin.H{
		"code":       result.Link.Code,
		"product_id": result.Link.ProductID,
		"counted":    result.Counted,
	})
}

// GetAffiliateProfile 推广资料
func (h *Handler) GetAffiliateProfile(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	profile, err := h.AffiliateService.GetProfileByUser(uid)
	if err != nil {
		respondMapped(c, err, "load affiliate profile failed")
		return
	}
	response.Success(c, profile)
}

// UpdateAffiliateProfile 更新推广资料
func (h *Handler) UpdateAffiliateProfile(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req AffiliateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	profile, err := h.AffiliateService.UpdateProfile(uid, service.RegisterAffiliateInput{
		Website:     req.Website,
		Niche:       req.Niche,
		PayoutEmail: req.PayoutEmail,
	})
	if err != nil {
		respondMapped(c, err, "update affiliate profile failed")
		return
	}
	response.Success(c, profile)
}

// ListAffiliateLinks 推广链接列表
func (h *Handler) ListAffiliateLinks(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	links, err := h.AffiliateService.ListLinks(uid)
	if err != nil {
		respondMapped(c, err, "list links failed")
		return
	}
	response.Success(c, links)
}

// CreateAffiliateLink 生成推广链接
func (h *Handler) CreateAffiliateLink(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	link, err := h.AffiliateService.CreateLink(uid, req.ProductID)
	if err != nil {
		respondMapped(c, err, "create link failed")
		return
	}
	response.Success(c, link)
}

// ListCommissions 佣金明细
func (h *Handler) ListCommissions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	records, total, err := h.AffiliateService.ListCommissions(uid, strings.TrimSpace(c.Query("status")), page, pageSize)
	if err != nil {
		respondMapped(c, err, "list commissions failed")
		return
	}
	response.SuccessWithPage(c, records, handlershared.BuildPagination(page, pageSize, total))
}

// CommissionSummary 佣金汇总
func (h *Handler) CommissionSummary(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	summary, err := h.AffiliateService.Summary(uid)
	if err != nil {
		respondMapped(c, err, "load summary failed")
		return
	}
	response.Success(c, summary)
}
