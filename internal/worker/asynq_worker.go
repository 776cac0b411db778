package worker

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Bmariten/afripulse-v2-sub001/internal/events"
	"github.com/Bmariten/afripulse-v2-sub001/internal/logger"
	"github.com/Bmariten/afripulse-v2-sub001/internal/provider"
	"github.com/Bmariten/afripulse-v2-sub001/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderReservationExpire, c.handleReservationExpire)
	mux.HandleFunc(queue.TaskOrderEventPublish, c.handleOrderEventPublish)
}

func (c *Consumer) handleReservationExpire(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil || c.OrderService == nil {
		logger.Debugw("worker_reservation_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderReservationExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_reservation_expire_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_reservation_expire_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	expired, err := c.OrderService.ExpireOrder(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_reservation_expire_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if expired {
		logger.Infow("worker_reservation_expired", "order_id", payload.OrderID)
	} else {
		logger.Debugw("worker_reservation_expire_skip", "order_id", payload.OrderID)
	}
	return nil
}

func (c *Consumer) handleOrderEventPublish(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil || c.Publisher == nil {
		logger.Debugw("worker_order_event_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var event events.OrderEvent
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		logger.Warnw("worker_order_event_unmarshal_failed", "error", err)
		return err
	}
	if strings.TrimSpace(event.Type) == "" || event.OrderID == 0 {
		logger.Debugw("worker_order_event_skip_invalid_payload", "order_id", event.OrderID, "type", event.Type)
		return nil
	}
	if err := c.Publisher.Publish(ctx, event); err != nil {
		logger.Warnw("worker_order_event_publish_failed", "order_id", event.OrderID, "type", event.Type, "error", err)
		return err
	}
	return nil
}
