package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderapp "github.com/xiebiao/b2b-order/internal/application/order"
	"github.com/xiebiao/b2b-order/pkg/circuitbreaker"
)

type fakePublisher struct {
	err       error
	published []string
	payloads  []interface{}
}

func (p *fakePublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, eventType)
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestMQNotifier_PublishesWithRoutingKey(t *testing.T) {
	pub := &fakePublisher{}
	n := NewMQNotifier(pub, circuitbreaker.New("notify-test-ok", circuitbreaker.Config{}))

	require.NoError(t, n.NotifyOrderPlaced(context.Background(), orderapp.OrderPlacedEvent{OrderNumber: "OD250101ABCDEF"}))
	require.NoError(t, n.NotifyStatusChanged(context.Background(), orderapp.StatusChangedEvent{OrderNumber: "OD250101ABCDEF"}))

	assert.Equal(t, []string{EventOrderPlaced, EventOrderStatusChanged}, pub.published)
	placed, ok := pub.payloads[0].(orderapp.OrderPlacedEvent)
	require.True(t, ok)
	assert.Equal(t, "OD250101ABCDEF", placed.OrderNumber)
}

func TestMQNotifier_BreakerOpensOnBrokerFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection refused")}
	breaker := circuitbreaker.New("notify-test-trip", circuitbreaker.Config{
		Timeout:     time.Minute,
		ReadyToTrip: func(c circuitbreaker.Counts) bool { return c.ConsecutiveFailures >= 2 },
	})
	n := NewMQNotifier(pub, breaker)
	ctx := context.Background()

	assert.Error(t, n.NotifyOrderPlaced(ctx, orderapp.OrderPlacedEvent{}))
	assert.Error(t, n.NotifyOrderPlaced(ctx, orderapp.OrderPlacedEvent{}))

	err := n.NotifyOrderPlaced(ctx, orderapp.OrderPlacedEvent{})
	assert.ErrorIs(t, err, circuitbreaker.ErrOpenState)
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())
}

func TestLogNotifier_NeverFails(t *testing.T) {
	var n LogNotifier
	assert.NoError(t, n.NotifyOrderPlaced(context.Background(), orderapp.OrderPlacedEvent{
		LowStock: []orderapp.LowStockItem{{ProductID: 1, Inventory: 2, Threshold: 5}},
	}))
	assert.NoError(t, n.NotifyStatusChanged(context.Background(), orderapp.StatusChangedEvent{}))
}
