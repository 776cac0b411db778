package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/config"
	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrRequestInvalid = errors.New("payment request invalid")
	ErrGatewayFailure = errors.New("payment gateway failure")
)

// Outcome 扣款结果
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeDeclined Outcome = "declined"
	// OutcomePending 网关异步确认，订单保持待支付直到回调或保留期到期
	OutcomePending Outcome = "pending"
)

// ChargeRequest 扣款请求
type ChargeRequest struct {
	OrderNo   string
	Amount    decimal.Decimal
	Currency  string
	MethodRef string
}

// ChargeResult 扣款结果
type ChargeResult struct {
	Outcome   Outcome
	Reference string
	Reason    string
}

// Gateway 支付网关；返回 error 视为扣款失败
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// NewGateway 按配置选择网关
func NewGateway(cfg config.PaymentConfig) (Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", constants.PaymentProviderOffline:
		return OfflineGateway{}, nil
	case constants.PaymentProviderSandbox:
		return SandboxGateway{Latency: time.Duration(cfg.SandboxLatencyMS) * time.Millisecond}, nil
	case constants.PaymentProviderDeferred:
		return DeferredGateway{}, nil
	default:
		return nil, fmt.Errorf("unsupported payment provider: %s", cfg.Provider)
	}
}

func validate(req ChargeRequest) error {
	if strings.TrimSpace(req.OrderNo) == "" || !req.Amount.IsPositive() {
		return ErrRequestInvalid
	}
	return nil
}

// OfflineGateway 线下收款（货到付款等），直接确认
type OfflineGateway struct{}

// Charge 直接批准
func (OfflineGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if err := validate(req); err != nil {
		return ChargeResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}
	return ChargeResult{Outcome: OutcomeApproved, Reference: "offline_" + uuid.NewString()}, nil
}

// DeferredGateway 异步确认的网关，扣款结果由后续回调写入
type DeferredGateway struct{}

// Charge 返回待确认
func (DeferredGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if err := validate(req); err != nil {
		return ChargeResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}
	return ChargeResult{Outcome: OutcomePending, Reference: "deferred_" + uuid.NewString()}, nil
}

// SandboxGateway 测试网关：按支付方式前缀决定结果
//
//	decline_* 拒绝，error_* 返回网关错误，timeout_* 阻塞至 ctx 结束，其余批准
type SandboxGateway struct {
	Latency time.Duration
}

// Charge 模拟扣款
func (g SandboxGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if err := validate(req); err != nil {
		return ChargeResult{}, err
	}
	method := strings.ToLower(strings.TrimSpace(req.MethodRef))
	if strings.HasPrefix(method, "timeout_") {
		<-ctx.Done()
		return ChargeResult{}, ctx.Err()
	}
	if g.Latency > 0 {
		timer := time.NewTimer(g.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ChargeResult{}, ctx.Err()
		case <-timer.C:
		}
	}
	switch {
	case strings.HasPrefix(method, "decline_"):
		return ChargeResult{Outcome: OutcomeDeclined, Reason: "card_declined"}, nil
	case strings.HasPrefix(method, "error_"):
		return ChargeResult{}, fmt.Errorf("%w: sandbox processor unavailable", ErrGatewayFailure)
	default:
		return ChargeResult{Outcome: OutcomeApproved, Reference: "sandbox_" + uuid.NewString()}, nil
	}
}
