// Package metrics 提供基于Prometheus的指标收集
//
// 指标分组：
//   - HTTP：请求数、耗时、处理中的请求数
//   - 下单：成功数、按错误码统计的失败数、耗时、状态流转
//   - 库存队列：入队数、处理结果、队列长度、单轮排空耗时
//   - 缓存：命中/未命中、失效次数
//   - 存储重试、提交后钩子失败、熔断器、消息发布
//
// 命名规范：Counter以_total结尾，Histogram以单位结尾（_seconds）。
// 避免高基数标签：订单号、用户ID绝不作为标签。
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "b2b"

var (
	once sync.Once

	// HTTP请求

	HTTPRequestsTotal      *prometheus.CounterVec   // method, path, status
	HTTPRequestDuration    *prometheus.HistogramVec // method, path
	HTTPRequestsInProgress prometheus.Gauge

	// 下单

	OrdersPlacedTotal      prometheus.Counter
	OrdersFailedTotal      *prometheus.CounterVec // code
	OrderPlacementDuration prometheus.Histogram
	OrderTransitionsTotal  *prometheus.CounterVec // from, to

	// 库存调整队列

	InventoryJobsEnqueuedTotal  *prometheus.CounterVec // operation
	InventoryJobsProcessedTotal *prometheus.CounterVec // result: applied/requeued/dead
	InventoryQueueDepth         prometheus.Gauge
	InventoryDrainDuration      prometheus.Histogram

	// 缓存

	CacheLookupsTotal       *prometheus.CounterVec // cache, result: hit/miss
	CacheInvalidationsTotal prometheus.Counter

	// 存储重试与提交后钩子

	StoreRetriesTotal *prometheus.CounterVec // operation
	HookFailuresTotal *prometheus.CounterVec // hook

	// 熔断器
	// 0=CLOSED, 1=OPEN, 2=HALF_OPEN

	CircuitBreakerState    *prometheus.GaugeVec   // name
	CircuitBreakerRequests *prometheus.CounterVec // name, result: success/failure/rejected

	// 消息发布

	MessagesPublishedTotal *prometheus.CounterVec // exchange, routing_key, result
)

// InitMetrics 注册所有指标到默认Registry（可重复调用）
func InitMetrics() {
	once.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP请求总数",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP请求耗时（秒）",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
	}, []string{"method", "path"})

	HTTPRequestsInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_progress",
		Help:      "正在处理的HTTP请求数",
	})

	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_placed_total",
		Help:      "下单成功总数",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_failed_total",
		Help:      "下单失败总数（按错误码）",
	}, []string{"code"})

	// 下单事务包含行锁等待，跨地域部署时可能达到秒级
	OrderPlacementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "order_placement_duration_seconds",
		Help:      "下单耗时（秒）",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_status_transitions_total",
		Help:      "订单状态流转次数",
	}, []string{"from", "to"})

	InventoryJobsEnqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_jobs_enqueued_total",
		Help:      "库存调整任务入队总数",
	}, []string{"operation"})

	InventoryJobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_jobs_processed_total",
		Help:      "库存调整任务处理结果",
	}, []string{"result"})

	InventoryQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "inventory_queue_depth",
		Help:      "库存调整队列当前长度",
	})

	InventoryDrainDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "inventory_drain_duration_seconds",
		Help:      "单轮排空耗时（秒）",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 30},
	})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "缓存查询次数",
	}, []string{"cache", "result"})

	CacheInvalidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_invalidations_total",
		Help:      "缓存失效的商品数",
	})

	StoreRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_retries_total",
		Help:      "存储操作重试次数",
	}, []string{"operation"})

	HookFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "postcommit_hook_failures_total",
		Help:      "提交后钩子失败次数",
	}, []string{"hook"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
	}, []string{"name"})

	CircuitBreakerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_requests_total",
		Help:      "熔断器请求总数",
	}, []string{"name", "result"})

	MessagesPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_published_total",
		Help:      "消息发布总数",
	}, []string{"exchange", "routing_key", "result"})
}

// =========================================
// 业务记录函数
// =========================================

// ObserveHTTPRequest 记录一次HTTP请求
func ObserveHTTPRequest(method, path string, status int, elapsed time.Duration) {
	InitMetrics()
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// RecordOrderPlaced 下单成功
func RecordOrderPlaced(elapsed time.Duration) {
	InitMetrics()
	OrdersPlacedTotal.Inc()
	OrderPlacementDuration.Observe(elapsed.Seconds())
}

// RecordOrderFailed 下单失败
func RecordOrderFailed(code string) {
	InitMetrics()
	OrdersFailedTotal.WithLabelValues(code).Inc()
}

// RecordTransition 订单状态流转
func RecordTransition(from, to string) {
	InitMetrics()
	OrderTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordJobEnqueued 库存任务入队
func RecordJobEnqueued(operation string) {
	InitMetrics()
	InventoryJobsEnqueuedTotal.WithLabelValues(operation).Inc()
}

// RecordJobProcessed 库存任务处理结果
func RecordJobProcessed(result string) {
	InitMetrics()
	InventoryJobsProcessedTotal.WithLabelValues(result).Inc()
}

// ObserveDrain 一轮排空结束
func ObserveDrain(elapsed time.Duration, depth int64) {
	InitMetrics()
	InventoryDrainDuration.Observe(elapsed.Seconds())
	InventoryQueueDepth.Set(float64(depth))
}

// RecordCacheLookup 缓存命中/未命中
func RecordCacheLookup(cache string, hit bool) {
	InitMetrics()
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

// RecordCacheInvalidation 缓存失效
func RecordCacheInvalidation(products int) {
	InitMetrics()
	CacheInvalidationsTotal.Add(float64(products))
}

// RecordStoreRetry 存储操作重试
func RecordStoreRetry(operation string) {
	InitMetrics()
	StoreRetriesTotal.WithLabelValues(operation).Inc()
}

// RecordHookFailure 提交后钩子失败
func RecordHookFailure(hook string) {
	InitMetrics()
	HookFailuresTotal.WithLabelValues(hook).Inc()
}

// SetCircuitBreakerState 熔断器状态变化
func SetCircuitBreakerState(name string, state int) {
	InitMetrics()
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordCircuitBreakerRequest 熔断器请求结果
func RecordCircuitBreakerRequest(name, result string) {
	InitMetrics()
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// RecordMessagePublished 消息发布结果
func RecordMessagePublished(exchange, routingKey string, err error) {
	InitMetrics()
	result := "success"
	if err != nil {
		result = "failure"
	}
	MessagesPublishedTotal.WithLabelValues(exchange, routingKey, result).Inc()
}
