package order

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

var now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestOrder() *Order {
	return NewOrder("OD240315ABCDEF", 1, []Item{
		{ProductID: 1, Quantity: 10, Price: 1999},
		{ProductID: 2, Quantity: 3, Price: 5000},
	}, ShippingAddress{Name: "张三"}, PaymentBankTransfer, "", "ext-1", now)
}

func TestNewOrder(t *testing.T) {
	o := newTestOrder()

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, int64(19990+15000), o.TotalAmount)
	require.Len(t, o.History, 1)
	assert.Equal(t, StatusPending, o.History[0].ToStatus)
	assert.Empty(t, o.History[0].FromStatus)
	assert.Equal(t, []uint{1, 2}, o.ProductIDs())
}

func TestTransitionTo_HappyPath(t *testing.T) {
	o := newTestOrder()

	steps := []struct {
		to       Status
		tracking string
	}{
		{StatusPaid, ""},
		{StatusPreparing, ""},
		{StatusShipped, "SF1234567890"},
		{StatusDelivered, ""},
	}
	for _, step := range steps {
		h, err := o.TransitionTo(step.to, "admin-1", "", step.tracking, now)
		require.NoError(t, err)
		assert.Equal(t, step.to, h.ToStatus)
	}

	assert.Equal(t, StatusDelivered, o.Status)
	assert.Len(t, o.History, 5)
	assert.Equal(t, "SF1234567890", o.History[3].TrackingNumber)
}

func TestTransitionTo_Cancel(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusPaid, StatusPreparing, StatusShipped} {
		t.Run(string(from), func(t *testing.T) {
			o := &Order{Status: from}
			h, err := o.TransitionTo(StatusCancelled, "ext-1", "客户取消", "", now)
			require.NoError(t, err)
			assert.Equal(t, from, h.FromStatus)
			assert.Equal(t, "客户取消", h.Reason)
		})
	}
}

func TestTransitionTo_Rejected(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
	}{
		{"已签收不能取消", StatusDelivered, StatusCancelled},
		{"已取消不能再取消", StatusCancelled, StatusCancelled},
		{"不能跳过支付", StatusPending, StatusShipped},
		{"不能回退", StatusShipped, StatusPaid},
		{"未知状态", StatusPending, Status("REFUNDED")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Status: tt.from}
			_, err := o.TransitionTo(tt.to, "admin-1", "", "TRACK", now)
			assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)
			assert.Equal(t, tt.from, o.Status)
		})
	}
}

func TestTransitionTo_ShippedRequiresTracking(t *testing.T) {
	o := &Order{Status: StatusPreparing}
	_, err := o.TransitionTo(StatusShipped, "admin-1", "", "", now)
	assert.ErrorIs(t, err, apperrors.ErrTrackingNumberRequired)
	assert.Equal(t, StatusPreparing, o.Status)
}

func TestGenerateOrderNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^OD240315[A-Z0-9]{6}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		n := GenerateOrderNumber("od", now)
		assert.Regexp(t, pattern, n)
		seen[n] = struct{}{}
	}
	assert.Greater(t, len(seen), 90)
}

func TestNewPaymentInstructions(t *testing.T) {
	account := BankAccount{BankName: "招商银行", AccountNumber: "6225880000000000"}

	o := newTestOrder()
	pi := NewPaymentInstructions(o, account, 3)
	require.NotNil(t, pi.DueDate)
	assert.Equal(t, now.AddDate(0, 0, 3), *pi.DueDate)
	assert.Equal(t, "招商银行", pi.Account.BankName)
	assert.Equal(t, o.TotalAmount, pi.Amount)

	o.PaymentMethod = PaymentCard
	pi = NewPaymentInstructions(o, account, 3)
	assert.Nil(t, pi.Account)
	assert.Nil(t, pi.DueDate)
	assert.Equal(t, o.TotalAmount, pi.Amount)
}
