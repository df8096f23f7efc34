// Package router 注册HTTP路由
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/xiebiao/b2b-order/internal/interface/http/handler"
	"github.com/xiebiao/b2b-order/internal/interface/http/middleware"
	"github.com/xiebiao/b2b-order/pkg/response"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Order     *handler.OrderHandler
	Inventory *handler.InventoryHandler
	Product   *handler.ProductHandler
	Audit     *handler.AuditHandler
	Auth      *middleware.AuthMiddleware
}

// Options 路由选项
type Options struct {
	Mode          string // debug | release | test
	EnableSwagger bool
}

// New 创建Gin引擎并注册全部路由
//
//	GET   /ping
//	GET   /metrics
//	GET   /swagger/*any
//	POST  /api/v1/orders                 买家
//	GET   /api/v1/orders/:id             买家（仅本人）/管理员
//	PATCH /api/v1/orders/:id/status      管理员；买家只能取消
//	POST  /api/v1/inventory/jobs         管理员
//	GET   /api/v1/products/:id           公开
//	GET   /api/v1/products/:id/inventory 公开
//	GET   /api/v1/audit-logs             管理员
func New(opts Options, h Handlers) *gin.Engine {
	switch opts.Mode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(opts.Mode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Tracing(), middleware.Logger(), middleware.Metrics())

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 访问 http://localhost:8080/swagger/index.html 查看API文档
	if opts.EnableSwagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	{
		products := v1.Group("/products")
		{
			products.GET("/:id", h.Product.GetProduct)
			products.GET("/:id/inventory", h.Product.GetInventory)
		}

		orders := v1.Group("/orders")
		orders.Use(h.Auth.RequireAuth())
		{
			orders.POST("", h.Order.PlaceOrder)
			orders.GET("/:id", h.Order.GetOrder)
			orders.PATCH("/:id/status", h.Order.UpdateStatus)
		}

		admin := v1.Group("")
		admin.Use(h.Auth.RequireAuth(), h.Auth.RequireAdmin())
		{
			admin.POST("/inventory/jobs", h.Inventory.EnqueueJob)
			admin.GET("/audit-logs", h.Audit.List)
		}
	}

	return r
}
