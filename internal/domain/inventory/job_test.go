package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

func TestJob_Apply(t *testing.T) {
	tests := []struct {
		name    string
		op      Operation
		value   int
		current int
		want    int
	}{
		{"设置", OpSet, 42, 7, 42},
		{"设置为0", OpSet, 0, 7, 0},
		{"增加", OpIncrement, 5, 7, 12},
		{"扣减", OpDecrement, 3, 7, 4},
		{"扣减到0", OpDecrement, 7, 7, 0},
		{"扣减超过库存按0处理", OpDecrement, 50, 7, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &Job{Operation: tt.op, Value: tt.value}
			assert.Equal(t, tt.want, j.Apply(tt.current))
		})
	}
}

func TestJob_Validate(t *testing.T) {
	assert.NoError(t, (&Job{ProductID: 1, Operation: OpSet, Value: 0}).Validate())
	assert.NoError(t, (&Job{ProductID: 1, Operation: OpIncrement, Value: 3}).Validate())

	invalid := []*Job{
		{Operation: OpSet, Value: 1},
		{ProductID: 1, Operation: "multiply", Value: 2},
		{ProductID: 1, Operation: OpDecrement, Value: -1},
		{ProductID: 1, Operation: OpIncrement, Value: 0},
	}
	for _, j := range invalid {
		assert.ErrorIs(t, j.Validate(), apperrors.ErrInvalidInventoryJob)
	}
}

func TestJob_EncodeDecode(t *testing.T) {
	orderID := uint(9)
	j := &Job{
		ID:         "job-1",
		ProductID:  3,
		Operation:  OpIncrement,
		Value:      4,
		OrderID:    &orderID,
		Timestamp:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		RetryCount: 2,
	}

	data, err := j.Encode()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, j, got)

	_, err = Decode([]byte("{broken"))
	assert.Error(t, err)
}
