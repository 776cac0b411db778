package public

import (
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	"github.com/Bmariten/afripulse-v2-sub001/internal/http/response"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"
	"github.com/Bmariten/afripulse-v2-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

// RegisterRequest 注册请求；role 为空时注册为顾客
type RegisterRequest struct {
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	Role            string `json:"role"`
	DisplayName     string `json:"display_name"`
	BusinessName    string `json:"business_name"`
	BusinessEmail   string `json:"business_email"`
	BusinessPhone   string `json:"business_phone"`
	BusinessAddress string `json:"business_address"`
	TaxID           string `json:"tax_id"`
	Website         string `json:"website"`
	Niche           string `json:"niche"`
	PayoutEmail     string `json:"payout_email"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse 登录凭证
type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Register 注册账号并直接签发令牌
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	user, err := h.AuthService.Register(service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		DisplayName: req.DisplayName,
		Seller: service.SellerSignup{
			BusinessName:    req.BusinessName,
			BusinessEmail:   req.BusinessEmail,
			BusinessPhone:   req.BusinessPhone,
			BusinessAddress: req.BusinessAddress,
			TaxID:           req.TaxID,
		},
		Affiliate: service.RegisterAffiliateInput{
			Website:     req.Website,
			Niche:       req.Niche,
			PayoutEmail: req.PayoutEmail,
		},
	})
	if err != nil {
		respondMapped(c, err, "register failed")
		return
	}
	token, expiresAt, err := h.AuthService.GenerateJWT(user)
	if err != nil {
		respondError(c, response.CodeInternal, "token generation failed", err)
		return
	}
	response.Success(c, TokenResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

// Login 邮箱密码登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	user, token, expiresAt, err := h.AuthService.Login(req.Email, req.Password)
	if err != nil {
		respondMapped(c, err, "login failed")
		return
	}
	response.Success(c, TokenResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

// Me 当前账号与角色档案
func (h *Handler) Me(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	user, err := h.AuthService.GetUser(uid)
	if err != nil {
		respondMapped(c, err, "load user failed")
		return
	}
	data := gin.H{"user": user}
	switch user.Role {
	case constants.RoleSeller:
		if profile, err := h.AuthService.GetSellerProfile(uid); err == nil {
			data["seller_profile"] = profile
		}
	case constants.RoleAffiliate:
		if profile, err := h.AffiliateService.GetProfileByUser(uid); err == nil {
			data["affiliate_profile"] = profile
		}
	}
	response.Success(c, data)
}
