package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInitMetrics_Idempotent(t *testing.T) {
	InitMetrics()
	InitMetrics()

	assert.NotNil(t, HTTPRequestsTotal)
	assert.NotNil(t, OrdersPlacedTotal)
	assert.NotNil(t, InventoryQueueDepth)
}

func TestRecordOrderPlaced(t *testing.T) {
	InitMetrics()
	before := testutil.ToFloat64(OrdersPlacedTotal)

	RecordOrderPlaced(120 * time.Millisecond)
	RecordOrderPlaced(80 * time.Millisecond)

	assert.Equal(t, before+2, testutil.ToFloat64(OrdersPlacedTotal))
}

func TestRecordOrderFailed_ByCode(t *testing.T) {
	RecordOrderFailed("ORDER_MIN_AMOUNT_NOT_MET")
	RecordOrderFailed("ORDER_MIN_AMOUNT_NOT_MET")
	RecordOrderFailed("PRODUCT_NOT_FOUND")

	assert.Equal(t, float64(2), testutil.ToFloat64(OrdersFailedTotal.WithLabelValues("ORDER_MIN_AMOUNT_NOT_MET")))
	assert.Equal(t, float64(1), testutil.ToFloat64(OrdersFailedTotal.WithLabelValues("PRODUCT_NOT_FOUND")))
}

func TestRecordCacheLookup(t *testing.T) {
	RecordCacheLookup("product", true)
	RecordCacheLookup("product", false)
	RecordCacheLookup("product", true)

	assert.Equal(t, float64(2), testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("product", "hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("product", "miss")))
}

func TestObserveDrain_SetsDepth(t *testing.T) {
	ObserveDrain(50*time.Millisecond, 7)
	assert.Equal(t, float64(7), testutil.ToFloat64(InventoryQueueDepth))

	ObserveDrain(10*time.Millisecond, 0)
	assert.Equal(t, float64(0), testutil.ToFloat64(InventoryQueueDepth))
}

func TestRecordMessagePublished(t *testing.T) {
	RecordMessagePublished("b2b.events", "order.placed", nil)
	RecordMessagePublished("b2b.events", "order.placed", errors.New("channel closed"))

	assert.Equal(t, float64(1), testutil.ToFloat64(MessagesPublishedTotal.WithLabelValues("b2b.events", "order.placed", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(MessagesPublishedTotal.WithLabelValues("b2b.events", "order.placed", "failure")))
}
