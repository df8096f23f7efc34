//go:build wireinject
// +build wireinject

// Wire依赖注入配置文件
//
// 生成：wire gen ./cmd/api
// 生成的wire_gen.go中的InitializeApp与bootstrap.NewAPI构造出相同的依赖图，
// main.go默认使用手动组装，修改依赖时两边保持一致。

package main

import (
	"github.com/google/wire"

	auditapp "github.com/xiebiao/b2b-order/internal/application/audit"
	inventoryapp "github.com/xiebiao/b2b-order/internal/application/inventory"
	orderapp "github.com/xiebiao/b2b-order/internal/application/order"
	productapp "github.com/xiebiao/b2b-order/internal/application/product"
	"github.com/xiebiao/b2b-order/internal/bootstrap"
	"github.com/xiebiao/b2b-order/internal/domain/product"
	"github.com/xiebiao/b2b-order/internal/domain/tx"
	"github.com/xiebiao/b2b-order/internal/domain/user"
	"github.com/xiebiao/b2b-order/internal/infrastructure/config"
	"github.com/xiebiao/b2b-order/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/b2b-order/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/b2b-order/internal/interface/http/handler"
	"github.com/xiebiao/b2b-order/internal/interface/http/middleware"
)

// infrastructureSet 基础设施层依赖
var infrastructureSet = wire.NewSet(
	bootstrap.ProvideDB,
	bootstrap.ProvideRedis,
	bootstrap.ProvideTxManager,
	wire.Bind(new(tx.Manager), new(*mysql.TxManager)),
	bootstrap.ProvideProductCache,
	wire.Bind(new(product.Cache), new(*redis.ProductCache)),
	wire.Bind(new(product.CacheInvalidator), new(*redis.ProductCache)),
	bootstrap.ProvideHookRunner,
	bootstrap.ProvideRetryPolicy,
	bootstrap.ProvideNotifier,
)

// repositorySet 仓储层依赖
var repositorySet = wire.NewSet(
	mysql.NewProductRepository,
	mysql.NewOrderRepository,
	mysql.NewUserRepository,
	mysql.NewAuditRepository,
)

// domainSet 领域层依赖
var domainSet = wire.NewSet(
	user.NewService,
)

// applicationSet 应用层依赖
var applicationSet = wire.NewSet(
	bootstrap.ProvideOrderOptions,
	orderapp.NewPlaceOrderUseCase,
	orderapp.NewGetOrderUseCase,
	orderapp.NewUpdateStatusUseCase,
	bootstrap.ProvideAdjustmentQueue,
	wire.Bind(new(orderapp.RestockQueue), new(*inventoryapp.AdjustmentQueue)),
	productapp.NewQueryService,
	auditapp.NewListLogsUseCase,
)

// middlewareSet 中间件依赖
var middlewareSet = wire.NewSet(
	bootstrap.ProvideJWTManager,
	middleware.NewAuthMiddleware,
)

// handlerSet HTTP处理器依赖
var handlerSet = wire.NewSet(
	handler.NewOrderHandler,
	handler.NewInventoryHandler,
	handler.NewProductHandler,
	handler.NewAuditHandler,
)

// InitializeApp 初始化整个应用
// 返回的cleanup按创建的逆序关闭通知、Redis、数据库
func InitializeApp(cfg *config.Config) (*bootstrap.App, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		applicationSet,
		middlewareSet,
		handlerSet,
		bootstrap.ProvideRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
