package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	deadline bool
	err      error
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange = exchange
	f.key = key
	f.msg = msg
	_, f.deadline = ctx.Deadline()
	return f.err
}

func (f *fakeChannel) Close() error { return nil }

type orderPlaced struct {
	OrderNumber string `json:"order_number"`
	Total       int64  `json:"total"`
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{channel: ch, exchange: "b2b.events", timeout: time.Second}

	err := p.Publish(context.Background(), "order.placed", orderPlaced{OrderNumber: "OD240101ABC123", Total: 60000})
	require.NoError(t, err)

	assert.Equal(t, "b2b.events", ch.exchange)
	assert.Equal(t, "order.placed", ch.key)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.True(t, ch.deadline)

	var env Envelope
	require.NoError(t, json.Unmarshal(ch.msg.Body, &env))
	assert.Equal(t, "order.placed", env.Type)
	assert.Equal(t, ch.msg.MessageId, env.MessageID)

	var payload orderPlaced
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "OD240101ABC123", payload.OrderNumber)
}

func TestPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{err: amqp.ErrClosed}
	p := &Publisher{channel: ch, exchange: "b2b.events"}

	err := p.Publish(context.Background(), "order.placed", orderPlaced{})
	assert.True(t, errors.Is(err, amqp.ErrClosed))
}
