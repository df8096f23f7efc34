package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

func TestRecomputeStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    Status
		inventory int
		want      Status
	}{
		{"库存归零变为缺货", StatusActive, 0, StatusOutOfStock},
		{"补货后自动恢复上架", StatusOutOfStock, 5, StatusActive},
		{"人工下架保持不变", StatusInactive, 0, StatusInactive},
		{"下架商品补货不自动上架", StatusInactive, 10, StatusInactive},
		{"正常库存保持上架", StatusActive, 3, StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Product{Status: tt.status}
			p.SetInventory(tt.inventory)
			assert.Equal(t, tt.want, p.Status)
		})
	}
}

func TestSetInventory_FloorsAtZero(t *testing.T) {
	p := &Product{Status: StatusActive, Inventory: 3}
	p.SetInventory(-7)
	assert.Equal(t, 0, p.Inventory)
	assert.Equal(t, StatusOutOfStock, p.Status)
}

func TestDecrement(t *testing.T) {
	p := &Product{ID: 1, Status: StatusActive, Inventory: 10}

	require.NoError(t, p.Decrement(10))
	assert.Equal(t, 0, p.Inventory)
	assert.Equal(t, StatusOutOfStock, p.Status)

	err := p.Decrement(1)
	require.ErrorIs(t, err, apperrors.ErrInsufficientInventory)
	details := apperrors.GetAppError(err).Details
	assert.Equal(t, 0, details["available"])
	assert.Equal(t, 1, details["requested"])
}

func TestCheckQuantity(t *testing.T) {
	p := &Product{ID: 7, Inventory: 100, MinOrderQuantity: 10, MaxOrderQuantity: 50}

	assert.NoError(t, p.CheckQuantity(10))
	assert.NoError(t, p.CheckQuantity(50))
	assert.ErrorIs(t, p.CheckQuantity(9), apperrors.ErrQuantityOutOfRange)
	assert.ErrorIs(t, p.CheckQuantity(51), apperrors.ErrQuantityOutOfRange)

	p.Inventory = 20
	assert.ErrorIs(t, p.CheckQuantity(30), apperrors.ErrInsufficientInventory)

	p.MaxOrderQuantity = 0
	p.Inventory = 1000
	assert.NoError(t, p.CheckQuantity(999))
}

func TestIsLowStock(t *testing.T) {
	assert.True(t, (&Product{Inventory: 5, LowStockThreshold: 5}).IsLowStock())
	assert.False(t, (&Product{Inventory: 6, LowStockThreshold: 5}).IsLowStock())
	assert.False(t, (&Product{Inventory: 0}).IsLowStock())
}

func TestUnitPrice(t *testing.T) {
	p := &Product{
		BasePrice: 1999,
		PriceTiers: []PriceTier{
			{MinQuantity: 10, DiscountRate: decimal.RequireFromString("0.05")},
			{MinQuantity: 100, DiscountRate: decimal.RequireFromString("0.10")},
			{MinQuantity: 10, DiscountRate: decimal.RequireFromString("0.15"), Role: "VIP"},
		},
	}

	tests := []struct {
		name     string
		quantity int
		role     string
		want     int64
	}{
		{"未达阶梯按原价", 9, "BUYER", 1999},
		{"第一档九五折", 10, "BUYER", 1899},
		{"第二档九折", 100, "BUYER", 1799},
		{"VIP专属阶梯优先", 10, "VIP", 1699},
		{"VIP取最大折扣", 100, "VIP", 1699},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UnitPrice(p, tt.quantity, tt.role))
		})
	}
}

func TestUnitPrice_RoundsHalfUp(t *testing.T) {
	p := &Product{
		BasePrice:  15,
		PriceTiers: []PriceTier{{MinQuantity: 1, DiscountRate: decimal.RequireFromString("0.1")}},
	}
	// 15 × 0.9 = 13.5 → 14
	assert.Equal(t, int64(14), UnitPrice(p, 1, ""))
}
