package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Bmariten/afripulse-v2-sub001/internal/cache"
	"github.com/Bmariten/afripulse-v2-sub001/internal/config"
	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	"github.com/Bmariten/afripulse-v2-sub001/internal/logger"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"
	"github.com/Bmariten/afripulse-v2-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultAttributionWindow = 30 * 24 * time.Hour
	defaultClickDedupeWindow = 10 * time.Minute
	defaultConfirmPeriod     = 7 * 24 * time.Hour
	maxCodeAttempts          = 5
)

// Attribution 加购时捕获的推广归因
type Attribution struct {
	AffiliateProfileID uint
	AffiliateLinkID    *uint
	AttributedAt       time.Time
}

// AffiliateService 推广服务
type AffiliateService struct {
	affiliateRepo repository.AffiliateRepository
	productRepo   repository.ProductRepository
	cache         *cache.Store
	cfg           config.AffiliateConfig
	now           func() time.Time
}

// NewAffiliateService 创建推广服务
func NewAffiliateService(affiliateRepo repository.AffiliateRepository, productRepo repository.ProductRepository, cacheStore *cache.Store, cfg config.AffiliateConfig) *AffiliateService {
	return &AffiliateService{
		affiliateRepo: affiliateRepo,
		productRepo:   productRepo,
		cache:         cacheStore,
		cfg:           cfg,
		now:           time.Now,
	}
}

func (s *AffiliateService) attributionWindow() time.Duration {
	if s.cfg.AttributionWindowDays <= 0 {
		return defaultAttributionWindow
	}
	return time.Duration(s.cfg.AttributionWindowDays) * 24 * time.Hour
}

func (s *AffiliateService) clickDedupeWindow() time.Duration {
	if s.cfg.ClickDedupeMinutes <= 0 {
		return defaultClickDedupeWindow
	}
	return time.Duration(s.cfg.ClickDedupeMinutes) * time.Minute
}

func (s *AffiliateService) confirmPeriod() time.Duration {
	if s.cfg.ConfirmDays <= 0 {
		return defaultConfirmPeriod
	}
	return time.Duration(s.cfg.ConfirmDays) * 24 * time.Hour
}

func (s *AffiliateService) defaultRate() models.Money {
	if s.cfg.DefaultCommissionRate > 0 {
		return models.NewMoneyFromDecimal(decimal.NewFromFloat(s.cfg.DefaultCommissionRate))
	}
	return models.MustMoney(constants.DefaultCommissionRate)
}

// ResolveAttribution 解析推广引用（链接码或推广码），无效引用返回 nil
func (s *AffiliateService) ResolveAttribution(buyerID, productID uint, affiliateRef string) (*Attribution, error) {
	ref := strings.TrimSpace(affiliateRef)
	if ref == "" {
		return nil, nil
	}
	var linkID *uint
	var profile *models.AffiliateProfile
	link, err := s.affiliateRepo.GetLinkByCode(ref)
	if err != nil {
		return nil, err
	}
	if link != nil {
		if link.ProductID != nil && *link.ProductID != productID {
			logger.Debugw("affiliate_ref_product_mismatch", "link_id", link.ID, "product_id", productID)
			return nil, nil
		}
		profile, err = s.affiliateRepo.GetProfileByID(link.AffiliateProfileID)
		if err != nil {
			return nil, err
		}
		id := link.ID
		linkID = &id
	} else {
		profile, err = s.affiliateRepo.GetProfileByCode(ref)
		if err != nil {
			return nil, err
		}
	}
	if profile == nil || profile.Status != constants.AffiliateStatusActive {
		return nil, nil
	}
	if buyerID != 0 && profile.UserID == buyerID {
		return nil, nil
	}
	return &Attribution{
		AffiliateProfileID: profile.ID,
		AffiliateLinkID:    linkID,
		AttributedAt:       s.now(),
	}, nil
}

// ValidateAttribution 结算时校验加购时捕获的归因，过期或失效返回 nil
func (s *AffiliateService) ValidateAttribution(tx *gorm.DB, item models.CartItem, buyerID uint, now time.Time) (*models.AffiliateProfile, error) {
	if item.AffiliateProfileID == nil || *item.AffiliateProfileID == 0 || item.AttributedAt == nil {
		return nil, nil
	}
	if now.After(item.AttributedAt.Add(s.attributionWindow())) {
		return nil, nil
	}
	profile, err := s.affiliateRepo.WithTx(tx).GetProfileByID(*item.AffiliateProfileID)
	if err != nil {
		return nil, err
	}
	if profile == nil || profile.Status != constants.AffiliateStatusActive {
		return nil, nil
	}
	if buyerID != 0 && profile.UserID == buyerID {
		return nil, nil
	}
	return profile, nil
}

// ComputeCommission 按成交时的佣金比例计算佣金，无推广用户时为 0
func (s *AffiliateService) ComputeCommission(profile *models.AffiliateProfile, subtotal models.Money) models.Money {
	if profile == nil || !profile.CommissionRate.IsPositive() || !subtotal.IsPositive() {
		return models.Money{}
	}
	return subtotal.Percent(profile.CommissionRate)
}

// RegisterAffiliateInput 推广用户注册资料
type RegisterAffiliateInput struct {
	Website     string
	Niche       string
	PayoutEmail string
}

// CreateProfile 为用户创建推广档案，可绑定外部事务
func (s *AffiliateService) CreateProfile(tx *gorm.DB, userID uint, input RegisterAffiliateInput) (*models.AffiliateProfile, error) {
	repo := s.affiliateRepo.WithTx(tx)
	existing, err := repo.GetProfileByUserID(userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAffiliateExists
	}
	code, err := s.uniqueCode(func(code string) (bool, error) {
		profile, err := repo.GetProfileByCode(code)
		return profile != nil, err
	})
	if err != nil {
		return nil, err
	}
	profile := &models.AffiliateProfile{
		UserID:         userID,
		AffiliateCode:  code,
		CommissionRate: s.defaultRate(),
		Status:         constants.AffiliateStatusActive,
		Website:        strings.TrimSpace(input.Website),
		Niche:          strings.TrimSpace(input.Niche),
		PayoutEmail:    strings.TrimSpace(input.PayoutEmail),
	}
	if err := repo.CreateProfile(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// GetProfileByUser 获取用户的推广档案
func (s *AffiliateService) GetProfileByUser(userID uint) (*models.AffiliateProfile, error) {
	profile, err := s.affiliateRepo.GetProfileByUserID(userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrAffiliateNotFound
	}
	return profile, nil
}

// UpdateProfile 推广用户更新自己的资料，佣金比例仅管理员可改
func (s *AffiliateService) UpdateProfile(userID uint, input RegisterAffiliateInput) (*models.AffiliateProfile, error) {
	profile, err := s.GetProfileByUser(userID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"website":      strings.TrimSpace(input.Website),
		"niche":        strings.TrimSpace(input.Niche),
		"payout_email": strings.TrimSpace(input.PayoutEmail),
		"updated_at":   s.now(),
	}
	if err := s.affiliateRepo.UpdateProfile(profile.ID, updates); err != nil {
		return nil, err
	}
	return s.affiliateRepo.GetProfileByID(profile.ID)
}

// SetCommissionRate 管理员调整佣金比例，只影响之后的成交
func (s *AffiliateService) SetCommissionRate(profileID uint, rate models.Money) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidCommissionRate
	}
	profile, err := s.affiliateRepo.GetProfileByID(profileID)
	if err != nil {
		return err
	}
	if profile == nil {
		return ErrAffiliateNotFound
	}
	return s.affiliateRepo.UpdateProfile(profileID, map[string]interface{}{
		"commission_rate": rate,
		"updated_at":      s.now(),
	})
}

// SetStatus 管理员启用或停用推广用户
func (s *AffiliateService) SetStatus(profileID uint, status string) error {
	status = strings.TrimSpace(status)
	if status != constants.AffiliateStatusActive && status != constants.AffiliateStatusDisabled {
		return ErrAffiliateStatus
	}
	profile, err := s.affiliateRepo.GetProfileByID(profileID)
	if err != nil {
		return err
	}
	if profile == nil {
		return ErrAffiliateNotFound
	}
	return s.affiliateRepo.UpdateProfile(profileID, map[string]interface{}{
		"status":     status,
		"updated_at": s.now(),
	})
}

// CreateLink 生成推广链接，同一商品重复调用返回已有链接
func (s *AffiliateService) CreateLink(userID uint, productID *uint) (*models.AffiliateLink, error) {
	profile, err := s.GetProfileByUser(userID)
	if err != nil {
		return nil, err
	}
	if profile.Status != constants.AffiliateStatusActive {
		return nil, ErrAffiliateDisabled
	}
	if productID != nil {
		product, err := s.productRepo.GetByID(*productID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, ErrProductNotFound
		}
	}
	existing, err := s.affiliateRepo.GetLinkByProfileAndProduct(profile.ID, productID)
	if err != nil || existing != nil {
		return existing, err
	}
	code, err := s.uniqueCode(func(code string) (bool, error) {
		link, err := s.affiliateRepo.GetLinkByCode(code)
		return link != nil, err
	})
	if err != nil {
		return nil, err
	}
	link := &models.AffiliateLink{
		AffiliateProfileID: profile.ID,
		ProductID:          productID,
		Code:               code,
	}
	if err := s.affiliateRepo.CreateLink(link); err != nil {
		// 并发创建时以唯一索引为准
		if again, getErr := s.affiliateRepo.GetLinkByProfileAndProduct(profile.ID, productID); getErr == nil && again != nil {
			return again, nil
		}
		return nil, err
	}
	return link, nil
}

// ListLinks 推广用户的链接与统计
func (s *AffiliateService) ListLinks(userID uint) ([]models.AffiliateLink, error) {
	profile, err := s.GetProfileByUser(userID)
	if err != nil {
		return nil, err
	}
	return s.affiliateRepo.ListLinks(profile.ID)
}

// TrackClickInput 点击上报
type TrackClickInput struct {
	Code       string
	VisitorKey string
	ClientIP   string
	UserAgent  string
	Referrer   string
}

// TrackClickResult 点击上报结果
type TrackClickResult struct {
	Link    *models.AffiliateLink
	Counted bool
}

// TrackClick 记录推广点击；同一访客在去重窗口内只计一次
func (s *AffiliateService) TrackClick(ctx context.Context, input TrackClickInput) (*TrackClickResult, error) {
	link, err := s.affiliateRepo.GetLinkByCode(input.Code)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrAffiliateLinkNotFound
	}
	profile, err := s.affiliateRepo.GetProfileByID(link.AffiliateProfileID)
	if err != nil {
		return nil, err
	}
	if profile == nil || profile.Status != constants.AffiliateStatusActive {
		return &TrackClickResult{Link: link}, nil
	}
	visitor := strings.TrimSpace(input.VisitorKey)
	if visitor == "" {
		visitor = strings.TrimSpace(input.ClientIP)
	}
	duplicate, err := s.isDuplicateClick(ctx, link.ID, visitor)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return &TrackClickResult{Link: link}, nil
	}

	now := s.now()
	err = s.affiliateRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.affiliateRepo.WithTx(tx)
		if err := repo.CreateClick(&models.AffiliateClick{
			AffiliateLinkID:    link.ID,
			AffiliateProfileID: link.AffiliateProfileID,
			VisitorKey:         visitor,
			ClientIP:           truncate(input.ClientIP, 64),
			UserAgent:          truncate(input.UserAgent, 1024),
			Referrer:           truncate(input.Referrer, 1024),
			CreatedAt:          now,
		}); err != nil {
			return err
		}
		return repo.IncrementLinkClicks(link.ID)
	})
	if err != nil {
		return nil, err
	}
	link.Clicks++
	return &TrackClickResult{Link: link, Counted: true}, nil
}

func (s *AffiliateService) isDuplicateClick(ctx context.Context, linkID uint, visitor string) (bool, error) {
	if visitor == "" {
		return false, nil
	}
	window := s.clickDedupeWindow()
	if s.cache.Enabled() {
		stored, err := s.cache.SetNX(ctx, fmt.Sprintf("affiliate:click:%d:%s", linkID, visitor), window)
		if err == nil {
			return !stored, nil
		}
		logger.Warnw("affiliate_click_dedupe_cache_failed", "link_id", linkID, "error", err)
	}
	return s.affiliateRepo.HasRecentClick(linkID, visitor, s.now().Add(-window))
}

// CommissionSummary 佣金汇总
type CommissionSummary struct {
	PendingConfirm models.Money `json:"pending_confirm"`
	Available      models.Money `json:"available"`
}

// ListCommissions 推广用户的佣金记录
func (s *AffiliateService) ListCommissions(userID uint, status string, page, pageSize int) ([]models.AffiliateCommission, int64, error) {
	profile, err := s.GetProfileByUser(userID)
	if err != nil {
		return nil, 0, err
	}
	return s.affiliateRepo.ListCommissions(repository.AffiliateCommissionListFilter{
		Page:               page,
		PageSize:           pageSize,
		AffiliateProfileID: profile.ID,
		Status:             status,
	})
}

// Summary 推广用户佣金汇总
func (s *AffiliateService) Summary(userID uint) (*CommissionSummary, error) {
	profile, err := s.GetProfileByUser(userID)
	if err != nil {
		return nil, err
	}
	pending, err := s.affiliateRepo.SumCommission(profile.ID, []string{constants.AffiliateCommissionStatusPendingConfirm})
	if err != nil {
		return nil, err
	}
	available, err := s.affiliateRepo.SumCommission(profile.ID, []string{constants.AffiliateCommissionStatusAvailable})
	if err != nil {
		return nil, err
	}
	return &CommissionSummary{
		PendingConfirm: models.NewMoneyFromDecimal(pending),
		Available:      models.NewMoneyFromDecimal(available),
	}, nil
}

// RecordCommissions 为订单中已归因的订单项写入待确认佣金
func (s *AffiliateService) RecordCommissions(tx *gorm.DB, order *models.Order) error {
	if order == nil {
		return nil
	}
	rows := make([]models.AffiliateCommission, 0)
	for _, item := range order.Items {
		if item.AffiliateID == nil || !item.CommissionAmount.IsPositive() {
			continue
		}
		rows = append(rows, models.AffiliateCommission{
			AffiliateProfileID: *item.AffiliateID,
			OrderID:            order.ID,
			OrderItemID:        item.ID,
			BaseAmount:         item.Subtotal,
			RatePercent:        item.CommissionRate,
			CommissionAmount:   item.CommissionAmount,
			Status:             constants.AffiliateCommissionStatusPendingConfirm,
		})
	}
	return s.affiliateRepo.WithTx(tx).CreateCommissions(rows)
}

// RecordConversions 订单支付后累加链接转化数与收益
func (s *AffiliateService) RecordConversions(items []models.OrderItem) error {
	earnings := make(map[uint]decimal.Decimal)
	order := make([]uint, 0)
	for _, item := range items {
		if item.AffiliateLinkID == nil || *item.AffiliateLinkID == 0 {
			continue
		}
		id := *item.AffiliateLinkID
		if _, ok := earnings[id]; !ok {
			order = append(order, id)
		}
		earnings[id] = earnings[id].Add(item.CommissionAmount.Decimal)
	}
	for _, id := range order {
		if err := s.affiliateRepo.RecordLinkConversion(id, earnings[id]); err != nil {
			return err
		}
	}
	return nil
}

// ScheduleConfirmation 订单签收后开始确认期
func (s *AffiliateService) ScheduleConfirmation(tx *gorm.DB, orderID uint, deliveredAt time.Time) error {
	confirmAt := deliveredAt.Add(s.confirmPeriod())
	_, err := s.affiliateRepo.WithTx(tx).UpdateCommissionsByOrder(orderID,
		[]string{constants.AffiliateCommissionStatusPendingConfirm},
		map[string]interface{}{
			"confirm_at": confirmAt,
			"updated_at": deliveredAt,
		})
	return err
}

// RejectForOrder 订单取消后佣金失效
func (s *AffiliateService) RejectForOrder(tx *gorm.DB, orderID uint, reason string, now time.Time) error {
	_, err := s.affiliateRepo.WithTx(tx).UpdateCommissionsByOrder(orderID,
		[]string{constants.AffiliateCommissionStatusPendingConfirm},
		map[string]interface{}{
			"status":         constants.AffiliateCommissionStatusRejected,
			"invalid_reason": truncate(reason, 255),
			"updated_at":     now,
		})
	return err
}

// SettleCommissions 确认期已过的佣金转为可结算
func (s *AffiliateService) SettleCommissions(now time.Time) (int64, error) {
	return s.affiliateRepo.MarkPendingCommissionsAvailable(now, now)
}

func (s *AffiliateService) uniqueCode(taken func(code string) (bool, error)) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := generateAffiliateCode()
		exists, err := taken(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrAffiliateCodeExhausted
}

func generateAffiliateCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:constants.AffiliateCodeLength])
}

// truncate 按字节上限截断，截断点回退到字符边界
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
