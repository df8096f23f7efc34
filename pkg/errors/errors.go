package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError 自定义应用错误
// 设计说明：
// 1. Code是机器可读的错误码（如PRODUCT_NOT_FOUND），客户端据此判断错误类型
// 2. Status是对应的HTTP状态码，由response包直接使用
// 3. Message是用户友好的提示信息
// 4. Details携带可操作的上下文（如可用库存与请求数量）
// 5. Err是内部错误，仅记录到日志，不返回给客户端
type AppError struct {
	Code    string         `json:"code"`
	Status  int            `json:"-"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码匹配
// 带Details的新实例与预定义错误拥有相同Code时，errors.Is返回true
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Err == nil
}

// WithDetails 返回附带上下文信息的副本（不修改预定义错误）
func (e *AppError) WithDetails(details map[string]any) *AppError {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	for k, v := range details {
		cp.Details[k] = v
	}
	return &cp
}

// WithMessage 返回替换了提示信息的副本
func (e *AppError) WithMessage(message string) *AppError {
	cp := *e
	cp.Message = message
	return &cp
}

// New 创建新的AppError
func New(code string, status int, message string) *AppError {
	return &AppError{
		Code:    code,
		Status:  status,
		Message: message,
	}
}

// Wrap 包装系统错误（如数据库错误、网络错误）
// 原始错误保留在Err中，重试器依赖它判断是否为瞬时故障
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Status:  http.StatusInternalServerError,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapDB 包装数据库错误
func WrapDB(err error, message string) *AppError {
	return &AppError{
		Code:    CodeDatabaseError,
		Status:  http.StatusInternalServerError,
		Message: message,
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================

const (
	// 系统级错误
	CodeInternal           = "INTERNAL_ERROR"
	CodeDatabaseError      = "DATABASE_ERROR"
	CodeCacheError         = "CACHE_ERROR"
	CodeQueueUnavailable   = "QUEUE_UNAVAILABLE"
	CodeTransactionTimeout = "TRANSACTION_TIMEOUT"

	// 认证授权
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodeAuthenticationInvalid  = "AUTHENTICATION_INVALID"
	CodeForbidden              = "FORBIDDEN"
	CodeRateLimitExceeded      = "RATE_LIMIT_EXCEEDED"

	// 资源不存在
	CodeProductNotFound = "PRODUCT_NOT_FOUND"
	CodeOrderNotFound   = "ORDER_NOT_FOUND"
	CodeUserNotFound    = "USER_NOT_FOUND"

	// 业务规则
	CodeInsufficientInventory   = "PRODUCT_INSUFFICIENT_INVENTORY"
	CodeMinAmountNotMet         = "ORDER_MIN_AMOUNT_NOT_MET"
	CodeQuantityOutOfRange      = "ORDER_QUANTITY_OUT_OF_RANGE"
	CodeInvalidStatusTransition = "ORDER_INVALID_STATUS_TRANSITION"
	CodeTrackingNumberRequired  = "ORDER_TRACKING_NUMBER_REQUIRED"
	CodeOrderNumberConflict     = "ORDER_NUMBER_CONFLICT"
	CodeInvalidInventoryJob     = "INVENTORY_INVALID_JOB"

	// 参数错误
	CodeInvalidParams = "INVALID_PARAMS"
)

// =========================================
// 预定义错误
// =========================================

var (
	ErrInternal           = New(CodeInternal, http.StatusInternalServerError, "系统内部错误")
	ErrDatabaseError      = New(CodeDatabaseError, http.StatusInternalServerError, "数据库错误")
	ErrCacheError         = New(CodeCacheError, http.StatusInternalServerError, "缓存服务错误")
	ErrQueueUnavailable   = New(CodeQueueUnavailable, http.StatusServiceUnavailable, "库存队列暂不可用")
	ErrTransactionTimeout = New(CodeTransactionTimeout, http.StatusGatewayTimeout, "事务执行超时")

	ErrAuthenticationRequired = New(CodeAuthenticationRequired, http.StatusUnauthorized, "请先登录")
	ErrAuthenticationInvalid  = New(CodeAuthenticationInvalid, http.StatusUnauthorized, "登录凭证无效或已过期")
	ErrForbidden              = New(CodeForbidden, http.StatusForbidden, "无权限访问")
	ErrRateLimitExceeded      = New(CodeRateLimitExceeded, http.StatusTooManyRequests, "请求过于频繁")

	ErrProductNotFound = New(CodeProductNotFound, http.StatusNotFound, "商品不存在或已下架")
	ErrOrderNotFound   = New(CodeOrderNotFound, http.StatusNotFound, "订单不存在")
	ErrUserNotFound    = New(CodeUserNotFound, http.StatusNotFound, "用户不存在")

	ErrInsufficientInventory   = New(CodeInsufficientInventory, http.StatusConflict, "库存不足")
	ErrMinAmountNotMet         = New(CodeMinAmountNotMet, http.StatusUnprocessableEntity, "未达到最低起订金额")
	ErrQuantityOutOfRange      = New(CodeQuantityOutOfRange, http.StatusUnprocessableEntity, "订购数量超出允许范围")
	ErrInvalidStatusTransition = New(CodeInvalidStatusTransition, http.StatusConflict, "订单状态不允许此操作")
	ErrTrackingNumberRequired  = New(CodeTrackingNumberRequired, http.StatusUnprocessableEntity, "发货时必须填写物流单号")
	ErrOrderNumberConflict     = New(CodeOrderNumberConflict, http.StatusConflict, "订单号生成冲突，请重试")
	ErrInvalidInventoryJob     = New(CodeInvalidInventoryJob, http.StatusBadRequest, "库存任务参数错误")

	ErrInvalidParams = New(CodeInvalidParams, http.StatusBadRequest, "参数错误")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}

// IsBusiness 判断是否为业务规则错误（4xx，且不包装底层故障）
func IsBusiness(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Status >= 400 && appErr.Status < 500
}
