package app

import (
	"testing"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/config"
)

func TestParseMode(t *testing.T) {
	cases := map[string]string{
		"":       ModeAll,
		"all":    ModeAll,
		" API ":  ModeAPI,
		"worker": ModeWorker,
	}
	for raw, want := range cases {
		got, err := ParseMode(raw)
		if err != nil {
			t.Fatalf("ParseMode(%q) unexpected error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseMode(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := ParseMode("scheduler"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestShutdownTimeoutCoversPaymentTimeout(t *testing.T) {
	if got := shutdownTimeout(nil); got != defaultShutdownTimeout {
		t.Fatalf("nil config want %s got %s", defaultShutdownTimeout, got)
	}

	cfg := &config.Config{}
	cfg.Server.ShutdownTimeoutSeconds = 20
	cfg.Checkout.PaymentTimeoutSeconds = 5
	if got := shutdownTimeout(cfg); got != 20*time.Second {
		t.Fatalf("configured timeout want 20s got %s", got)
	}

	cfg.Checkout.PaymentTimeoutSeconds = 30
	if got := shutdownTimeout(cfg); got != 35*time.Second {
		t.Fatalf("timeout must cover payment timeout plus margin, want 35s got %s", got)
	}
}

func TestNormalizeOptionsDefaults(t *testing.T) {
	opts := normalizeOptions(Options{Config: &config.Config{}, Mode: "Worker"})
	if opts.Logger == nil {
		t.Fatalf("logger should default")
	}
	if opts.Mode != ModeWorker {
		t.Fatalf("mode want worker got %s", opts.Mode)
	}
	if opts.ShutdownTimeout != defaultShutdownTimeout {
		t.Fatalf("shutdown timeout want %s got %s", defaultShutdownTimeout, opts.ShutdownTimeout)
	}

	kept := normalizeOptions(Options{Mode: "bogus", ShutdownTimeout: time.Second})
	if kept.Mode != "bogus" || kept.ShutdownTimeout != time.Second {
		t.Fatalf("invalid mode and explicit timeout should be kept, got %s %s", kept.Mode, kept.ShutdownTimeout)
	}
	if err := Run(Options{Config: &config.Config{}, Mode: "bogus"}); err == nil {
		t.Fatalf("Run should reject unknown mode")
	}
}
