package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/b2b-order/pkg/metrics"
)

// Metrics HTTP指标中间件
// path使用路由模板（/api/v1/orders/:id），避免按订单ID产生高基数标签
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.InitMetrics()
		metrics.HTTPRequestsInProgress.Inc()
		defer metrics.HTTPRequestsInProgress.Dec()

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
