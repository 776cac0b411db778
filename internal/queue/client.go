package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/config"
	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	"github.com/Bmariten/afripulse-v2-sub001/internal/events"

	"github.com/hibiken/asynq"
)

// Client 队列客户端封装；未启用时所有投递为空操作
type Client struct {
	client *asynq.Client
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) *Client {
	if cfg == nil || !cfg.Enabled {
		return &Client{}
	}
	return &Client{client: asynq.NewClient(buildRedisOpt(cfg))}
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueueReservationExpire 在保留期结束时检查订单，按订单去重
func (c *Client) EnqueueReservationExpire(orderID uint, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	if delay < 0 {
		delay = 0
	}
	task, err := NewOrderReservationExpireTask(OrderReservationExpirePayload{OrderID: orderID})
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task,
		asynq.Queue(constants.QueueCritical),
		asynq.ProcessIn(delay),
		asynq.TaskID(fmt.Sprintf("reservation-expire-%d", orderID)),
		asynq.MaxRetry(5),
	)
	return err
}

// EnqueueOrderEvent 投递订单事件
func (c *Client) EnqueueOrderEvent(event events.OrderEvent) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewOrderEventTask(event)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, asynq.Queue(constants.QueueDefault), asynq.MaxRetry(10))
	return err
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{constants.QueueCritical: 6, constants.QueueDefault: 3}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return buildRedisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = fmt.Sprintf("%s:%d", host, port)
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
