package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/config"
	"github.com/Bmariten/afripulse-v2-sub001/internal/logger"

	"go.uber.org/zap"
)

const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

const (
	defaultShutdownTimeout = 15 * time.Second
	// 停机时给进行中的扣款与补偿留出的余量
	shutdownChargeMargin = 5 * time.Second
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// ParseMode 校验启动模式，空值视为 all
func ParseMode(raw string) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want all, api or worker)", raw)
	}
}

// normalizeOptions 补齐默认参数；模式非法时保留原值由 Run 报错
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = shutdownTimeout(opts.Config)
	}
	if mode, err := ParseMode(opts.Mode); err == nil {
		opts.Mode = mode
	}
	return opts
}

// shutdownTimeout 不短于支付超时加余量，避免停机打断已预占库存的结算
func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg == nil {
		return defaultShutdownTimeout
	}
	timeout := defaultShutdownTimeout
	if cfg.Server.ShutdownTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	}
	if floor := cfg.Checkout.PaymentTimeout() + shutdownChargeMargin; timeout < floor {
		timeout = floor
	}
	return timeout
}
