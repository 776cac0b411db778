package service

import (
	"context"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/events"
	"github.com/Bmariten/afripulse-v2-sub001/internal/logger"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"
	"github.com/Bmariten/afripulse-v2-sub001/internal/queue"
)

const orderEventPublishTimeout = 3 * time.Second

// OrderEventDispatcher 订单事件分发：启用队列时异步投递，否则直接发布
type OrderEventDispatcher struct {
	queueClient *queue.Client
	publisher   events.Publisher
}

// NewOrderEventDispatcher 创建订单事件分发器
func NewOrderEventDispatcher(queueClient *queue.Client, publisher events.Publisher) *OrderEventDispatcher {
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	return &OrderEventDispatcher{
		queueClient: queueClient,
		publisher:   publisher,
	}
}

// BuildOrderEvent 由订单构建事件
func BuildOrderEvent(eventType string, order *models.Order, reason string, at time.Time) events.OrderEvent {
	return events.OrderEvent{
		Type:       eventType,
		OrderID:    order.ID,
		OrderNo:    order.OrderNo,
		CustomerID: order.CustomerID,
		Status:     order.Status,
		Total:      order.TotalAmount.String(),
		Currency:   order.Currency,
		Reason:     reason,
		OccurredAt: at,
	}
}

// Dispatch 分发订单事件；失败只记录日志，不影响订单流程
func (d *OrderEventDispatcher) Dispatch(eventType string, order *models.Order, reason string) {
	if d == nil || order == nil || eventType == "" {
		return
	}
	event := BuildOrderEvent(eventType, order, reason, time.Now())
	if d.queueClient.Enabled() {
		err := d.queueClient.EnqueueOrderEvent(event)
		if err == nil {
			return
		}
		logger.Warnw("order_event_enqueue_failed", "order_id", order.ID, "type", eventType, "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), orderEventPublishTimeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, event); err != nil {
		logger.Warnw("order_event_publish_failed", "order_id", order.ID, "type", eventType, "error", err)
	}
}
