// Package mq 提供基于RabbitMQ的事件发布
//
// 事件以JSON信封发布到topic类型的Exchange，路由键即事件类型（如order.placed），
// 下游按需绑定队列订阅。
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/xiebiao/b2b-order/pkg/metrics"
)

// Envelope 事件信封
type Envelope struct {
	MessageID  string          `json:"message_id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// channel amqp.Channel中发布所需的部分
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher 消息发布者
// amqp.Channel不是并发安全的，调用方需自行串行化或使用单独的Publisher
type Publisher struct {
	conn     *amqp.Connection
	channel  channel
	exchange string
	timeout  time.Duration
}

// NewPublisher 连接RabbitMQ并声明持久化的topic Exchange
func NewPublisher(url, exchange string, timeout time.Duration) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("连接RabbitMQ失败: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建Channel失败: %w", err)
	}

	// Durable=true，RabbitMQ重启后Exchange不会丢失
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("声明Exchange失败: %w", err)
	}

	log.WithField("exchange", exchange).Info("消息发布者已创建")

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		timeout:  timeout,
	}, nil
}

// Publish 发布事件
// 消息持久化（DeliveryMode=2），MessageID用于下游去重
func (p *Publisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("消息序列化失败: %w", err)
	}

	env := Envelope{
		MessageID:  uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("消息序列化失败: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, eventType, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    env.MessageID,
		Type:         eventType,
		Body:         data,
		DeliveryMode: amqp.Persistent,
		Timestamp:    env.OccurredAt,
	})
	metrics.RecordMessagePublished(p.exchange, eventType, err)
	if err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}

	log.WithFields(log.Fields{
		"exchange":   p.exchange,
		"type":       eventType,
		"message_id": env.MessageID,
	}).Debug("消息已发布")
	return nil
}

// Close 关闭发布者
func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
