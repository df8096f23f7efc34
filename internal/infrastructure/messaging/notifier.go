// Package messaging 订单通知分发（RabbitMQ）
package messaging

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	orderapp "github.com/xiebiao/b2b-order/internal/application/order"
	"github.com/xiebiao/b2b-order/pkg/circuitbreaker"
)

// 路由键
const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

// publisher mq.Publisher中通知需要的部分
type publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// MQNotifier 通过消息代理通知下游（实时推送、邮件等由下游负责）
// 设计说明：
// 1. 消息代理不可用时熔断，快速失败，不拖慢提交后钩子
// 2. amqp Channel不是并发安全的，发布时加锁串行化
type MQNotifier struct {
	pub     publisher
	breaker *circuitbreaker.Breaker
	mu      sync.Mutex
}

// NewMQNotifier 创建通知分发
func NewMQNotifier(pub publisher, breaker *circuitbreaker.Breaker) *MQNotifier {
	return &MQNotifier{pub: pub, breaker: breaker}
}

var _ orderapp.Notifier = (*MQNotifier)(nil)

func (n *MQNotifier) NotifyOrderPlaced(ctx context.Context, e orderapp.OrderPlacedEvent) error {
	return n.publish(ctx, EventOrderPlaced, e)
}

func (n *MQNotifier) NotifyStatusChanged(ctx context.Context, e orderapp.StatusChangedEvent) error {
	return n.publish(ctx, EventOrderStatusChanged, e)
}

func (n *MQNotifier) publish(ctx context.Context, eventType string, payload interface{}) error {
	return n.breaker.Execute(ctx, func(ctx context.Context) error {
		n.mu.Lock()
		defer n.mu.Unlock()
		return n.pub.Publish(ctx, eventType, payload)
	})
}

// LogNotifier 未启用消息代理时只记录日志
type LogNotifier struct{}

var _ orderapp.Notifier = LogNotifier{}

func (LogNotifier) NotifyOrderPlaced(ctx context.Context, e orderapp.OrderPlacedEvent) error {
	entry := log.WithFields(log.Fields{
		"event":        EventOrderPlaced,
		"order_number": e.OrderNumber,
		"total":        e.TotalAmount,
	})
	if len(e.LowStock) > 0 {
		entry = entry.WithField("low_stock", e.LowStock)
	}
	entry.Info("新订单通知")
	return nil
}

func (LogNotifier) NotifyStatusChanged(ctx context.Context, e orderapp.StatusChangedEvent) error {
	log.WithFields(log.Fields{
		"event":        EventOrderStatusChanged,
		"order_number": e.OrderNumber,
		"from":         e.From,
		"to":           e.To,
	}).Info("订单状态通知")
	return nil
}
