package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/config"
	"github.com/Bmariten/afripulse-v2-sub001/internal/logger"
	"github.com/Bmariten/afripulse-v2-sub001/internal/queue"

	"github.com/hibiken/asynq"
)

const defaultSettleInterval = 10 * time.Minute

// Service 后台任务服务：asynq 消费者与周期性扫描
// 队列未启用时只运行周期任务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer

	sweepInterval  time.Duration
	settleInterval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService 创建后台任务服务
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if consumer == nil || consumer.Container == nil {
		return nil, errors.New("consumer is nil")
	}
	s := &Service{
		name:           "worker",
		consumer:       consumer,
		sweepInterval:  cfg.Checkout.SweepInterval(),
		settleInterval: defaultSettleInterval,
	}
	if cfg.Affiliate.SettleIntervalSeconds > 0 {
		s.settleInterval = time.Duration(cfg.Affiliate.SettleIntervalSeconds) * time.Second
	}
	if cfg.Queue.Enabled {
		opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
		s.server = asynq.NewServer(opt, serverCfg)
		s.mux = asynq.NewServeMux()
		consumer.Register(s.mux)
	}
	return s, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务，阻塞直到 ctx 结束或队列服务退出
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.consumer == nil {
		return errors.New("worker not initialized")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	if s.consumer.OrderService != nil {
		s.runLoop(loopCtx, "order_expiry_sweep", s.sweepInterval, s.sweepExpiredOnce)
	}
	if s.consumer.AffiliateService != nil {
		s.runLoop(loopCtx, "affiliate_settle", s.settleInterval, s.settleCommissionsOnce)
	}

	if s.server != nil {
		if err := s.server.Start(s.mux); err != nil {
			cancel()
			return err
		}
	}
	<-loopCtx.Done()
	return nil
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	if s.server != nil {
		s.server.Shutdown()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) runLoop(ctx context.Context, name string, interval time.Duration, runOnce func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runOnce(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Debugw("worker_loop_stopped", "loop", name)
				return
			case <-ticker.C:
				runOnce(ctx)
			}
		}
	}()
}

func (s *Service) sweepExpiredOnce(ctx context.Context) {
	if _, err := s.consumer.OrderService.SweepExpired(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warnw("worker_order_expiry_sweep_failed", "error", err)
	}
}

func (s *Service) settleCommissionsOnce(_ context.Context) {
	settled, err := s.consumer.AffiliateService.SettleCommissions(time.Now())
	if err != nil {
		logger.Warnw("worker_affiliate_settle_failed", "error", err)
		return
	}
	if settled > 0 {
		logger.Infow("worker_affiliate_settled", "count", settled)
	}
}
