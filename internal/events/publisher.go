package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/config"
	"github.com/Bmariten/afripulse-v2-sub001/internal/logger"

	"github.com/segmentio/kafka-go"
)

const defaultPublishTimeout = 5 * time.Second

// OrderEvent 订单生命周期事件
type OrderEvent struct {
	Type       string    `json:"type"`
	OrderID    uint      `json:"order_id"`
	OrderNo    string    `json:"order_no"`
	CustomerID *uint     `json:"customer_id,omitempty"`
	Status     string    `json:"status"`
	Total      string    `json:"total_amount"`
	Currency   string    `json:"currency"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// NewPublisher 按配置创建发布器，未启用 Kafka 时返回仅记录日志的实现
func NewPublisher(cfg config.KafkaConfig) Publisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		return LogPublisher{}
	}
	timeout := defaultPublishTimeout
	if cfg.PublishTimeoutMS > 0 {
		timeout = time.Duration(cfg.PublishTimeoutMS) * time.Millisecond
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			WriteTimeout:           timeout,
		},
		timeout: timeout,
	}
}

// KafkaPublisher 以订单号为 key 写入 Kafka，保证同一订单事件有序
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

// Publish 发布事件
func (p *KafkaPublisher) Publish(ctx context.Context, event OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal event failed: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderNo),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
		Time: event.OccurredAt,
	}); err != nil {
		return fmt.Errorf("kafka: write %s failed: %w", event.Type, err)
	}
	return nil
}

// Close 关闭写入器
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher 仅输出日志
type LogPublisher struct{}

// Publish 记录事件
func (LogPublisher) Publish(_ context.Context, event OrderEvent) error {
	logger.Debugw("order_event", "type", event.Type, "order_no", event.OrderNo, "status", event.Status)
	return nil
}

// Close 无需释放资源
func (LogPublisher) Close() error { return nil }

// Recorder 在内存中收集事件，用于测试断言
type Recorder struct {
	mu     sync.Mutex
	Events []OrderEvent
}

// Publish 记录事件
func (r *Recorder) Publish(_ context.Context, event OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, event)
	return nil
}

// Close 无需释放资源
func (r *Recorder) Close() error { return nil }

// Types 已记录事件的类型序列
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		types = append(types, e.Type)
	}
	return types
}
