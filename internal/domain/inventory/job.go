// Package inventory 定义库存调整任务
//
// 库存调整（补货、盘点修正、退货、取消订单回补）不走下单事务，
// 而是入队后由持有分布式锁的worker逐个应用到商品库存。
package inventory

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

// Operation 调整操作
type Operation string

const (
	OpSet       Operation = "set"
	OpIncrement Operation = "increment"
	OpDecrement Operation = "decrement"
)

// Valid 是否是支持的操作
func (op Operation) Valid() bool {
	switch op {
	case OpSet, OpIncrement, OpDecrement:
		return true
	}
	return false
}

// Job 库存调整任务
type Job struct {
	ID         string    `json:"id"`
	ProductID  uint      `json:"product_id"`
	Operation  Operation `json:"operation"`
	Value      int       `json:"value"`
	OrderID    *uint     `json:"order_id,omitempty"` // 来源订单（取消回补时填写）
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RetryCount int       `json:"retry_count"`
}

// Validate 校验任务参数
func (j *Job) Validate() error {
	if j.ProductID == 0 {
		return apperrors.ErrInvalidInventoryJob.WithMessage("商品ID不能为空")
	}
	if !j.Operation.Valid() {
		return apperrors.ErrInvalidInventoryJob.WithDetails(map[string]any{"operation": j.Operation})
	}
	if j.Value < 0 {
		return apperrors.ErrInvalidInventoryJob.WithMessage("调整数量不能为负数")
	}
	if j.Operation != OpSet && j.Value == 0 {
		return apperrors.ErrInvalidInventoryJob.WithMessage("调整数量必须大于0")
	}
	return nil
}

// Apply 计算调整后的库存，扣减不会低于0
func (j *Job) Apply(current int) int {
	switch j.Operation {
	case OpSet:
		return j.Value
	case OpIncrement:
		return current + j.Value
	case OpDecrement:
		if j.Value >= current {
			return 0
		}
		return current - j.Value
	}
	return current
}

// Encode 序列化为队列中的JSON
func (j *Job) Encode() ([]byte, error) {
	return json.Marshal(j)
}

// Decode 从队列中的JSON解析
func Decode(data []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("解析库存任务失败: %w", err)
	}
	return &j, nil
}
