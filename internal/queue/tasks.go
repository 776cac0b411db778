package queue

import (
	"encoding/json"

	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	"github.com/Bmariten/afripulse-v2-sub001/internal/events"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderReservationExpire 待支付订单库存保留到期
	TaskOrderReservationExpire = constants.TaskOrderReservationExpire
	// TaskOrderEventPublish 订单事件投递
	TaskOrderEventPublish = constants.TaskOrderEventPublish
)

// OrderReservationExpirePayload 保留到期任务载荷
type OrderReservationExpirePayload struct {
	OrderID uint `json:"order_id"`
}

// NewOrderReservationExpireTask 创建保留到期任务
func NewOrderReservationExpireTask(payload OrderReservationExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderReservationExpire, body), nil
}

// NewOrderEventTask 创建订单事件投递任务
func NewOrderEventTask(event events.OrderEvent) (*asynq.Task, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderEventPublish, body), nil
}
