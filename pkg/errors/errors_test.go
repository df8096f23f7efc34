package errors

import (
	"errors"
	"net/http"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := ErrInsufficientInventory.WithDetails(map[string]any{
		"product_id": uint(7),
		"available":  0,
		"requested":  1,
	})

	assert.True(t, errors.Is(err, ErrInsufficientInventory))
	assert.False(t, errors.Is(err, ErrProductNotFound))
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.Equal(t, 0, err.Details["available"])

	// 预定义错误不被修改
	assert.Nil(t, ErrInsufficientInventory.Details)
}

func TestWrap_KeepsCause(t *testing.T) {
	err := Wrap(syscall.ECONNREFUSED, "查询商品失败")

	assert.True(t, errors.Is(err, syscall.ECONNREFUSED))
	assert.Equal(t, CodeInternal, err.Code)
	assert.False(t, IsBusiness(err))
}

func TestGetAppError(t *testing.T) {
	t.Run("AppError原样返回", func(t *testing.T) {
		appErr := GetAppError(ErrOrderNotFound)
		assert.Same(t, ErrOrderNotFound, appErr)
	})

	t.Run("普通错误包装为内部错误", func(t *testing.T) {
		appErr := GetAppError(errors.New("boom"))
		require.NotNil(t, appErr)
		assert.Equal(t, CodeInternal, appErr.Code)
		assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	})
}

func TestIsBusiness(t *testing.T) {
	assert.True(t, IsBusiness(ErrMinAmountNotMet))
	assert.True(t, IsBusiness(ErrProductNotFound))
	assert.False(t, IsBusiness(ErrTransactionTimeout))
	assert.False(t, IsBusiness(errors.New("plain")))
}
