package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/config"

	"github.com/shopspring/decimal"
)

func sandboxRequest(method string) ChargeRequest {
	return ChargeRequest{OrderNo: "MP-TEST", Amount: decimal.NewFromInt(20), Currency: "USD", MethodRef: method}
}

func TestSandboxGatewayOutcomes(t *testing.T) {
	gw := SandboxGateway{}
	ctx := context.Background()

	res, err := gw.Charge(ctx, sandboxRequest("card_visa"))
	if err != nil || res.Outcome != OutcomeApproved || res.Reference == "" {
		t.Fatalf("expected approval, got %+v err=%v", res, err)
	}
	res, err = gw.Charge(ctx, sandboxRequest("decline_insufficient_funds"))
	if err != nil || res.Outcome != OutcomeDeclined {
		t.Fatalf("expected decline, got %+v err=%v", res, err)
	}
	if _, err = gw.Charge(ctx, sandboxRequest("error_down")); !errors.Is(err, ErrGatewayFailure) {
		t.Fatalf("expected gateway failure, got %v", err)
	}
}

func TestSandboxGatewayTimeoutHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := SandboxGateway{}.Charge(ctx, sandboxRequest("timeout_slow"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestChargeRejectsNonPositiveAmount(t *testing.T) {
	req := sandboxRequest("card")
	req.Amount = decimal.Zero
	if _, err := (OfflineGateway{}).Charge(context.Background(), req); !errors.Is(err, ErrRequestInvalid) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestNewGatewayByProvider(t *testing.T) {
	gw, err := NewGateway(config.PaymentConfig{Provider: ""})
	if _, ok := gw.(OfflineGateway); err != nil || !ok {
		t.Fatalf("empty provider should be offline, got %T err=%v", gw, err)
	}
	gw, err = NewGateway(config.PaymentConfig{Provider: "sandbox", SandboxLatencyMS: 5})
	sandbox, ok := gw.(SandboxGateway)
	if err != nil || !ok || sandbox.Latency != 5*time.Millisecond {
		t.Fatalf("unexpected sandbox gateway %#v err=%v", gw, err)
	}
	gw, err = NewGateway(config.PaymentConfig{Provider: "Deferred"})
	if _, ok := gw.(DeferredGateway); err != nil || !ok {
		t.Fatalf("expected deferred gateway, got %T err=%v", gw, err)
	}
	if _, err := NewGateway(config.PaymentConfig{Provider: "wire"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
