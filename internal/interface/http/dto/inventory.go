package dto

// EnqueueInventoryJobRequest 库存调整任务
// set: 直接设置库存；increment/decrement: 增减（扣减不会低于0）
type EnqueueInventoryJobRequest struct {
	ProductID uint   `json:"product_id" binding:"required,min=1" example:"1"`
	Operation string `json:"operation" binding:"required,oneof=set increment decrement" example:"increment"`
	Value     *int   `json:"value" binding:"required,min=0" example:"100"`
	OrderID   *uint  `json:"order_id" binding:"omitempty,min=1"`
	Reason    string `json:"reason" binding:"max=255" example:"月度补货"`
}

// EnqueueInventoryJobResponse 入队结果
type EnqueueInventoryJobResponse struct {
	JobID string `json:"job_id" example:"6f1c2a7e-8d5b-4f43-9a51-0c3e2b7d9f10"`
}
