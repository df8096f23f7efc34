// Package bootstrap 组装进程依赖（api与worker共用）
//
// 依赖链：Config → DB/Redis → Repository → Service → UseCase → Handler
// cmd/api/wire.go用这些Provider声明Wire注入器，main.go按同样的顺序手动调用。
package bootstrap

import (
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	auditapp "github.com/xiebiao/b2b-order/internal/application/audit"
	inventoryapp "github.com/xiebiao/b2b-order/internal/application/inventory"
	orderapp "github.com/xiebiao/b2b-order/internal/application/order"
	"github.com/xiebiao/b2b-order/internal/application/postcommit"
	productapp "github.com/xiebiao/b2b-order/internal/application/product"
	"github.com/xiebiao/b2b-order/internal/domain/order"
	"github.com/xiebiao/b2b-order/internal/domain/user"
	"github.com/xiebiao/b2b-order/internal/infrastructure/config"
	"github.com/xiebiao/b2b-order/internal/infrastructure/messaging"
	"github.com/xiebiao/b2b-order/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/b2b-order/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/b2b-order/internal/interface/http/handler"
	"github.com/xiebiao/b2b-order/internal/interface/http/middleware"
	"github.com/xiebiao/b2b-order/internal/interface/http/router"
	"github.com/xiebiao/b2b-order/pkg/circuitbreaker"
	"github.com/xiebiao/b2b-order/pkg/jwt"
	"github.com/xiebiao/b2b-order/pkg/mq"
	"github.com/xiebiao/b2b-order/pkg/retry"
)

// App api进程需要管理生命周期的组件
type App struct {
	Config *config.Config
	Engine *gin.Engine
	Queue  *inventoryapp.AdjustmentQueue
	Hooks  *postcommit.Runner
}

// NewApp 组装App
func NewApp(cfg *config.Config, engine *gin.Engine, queue *inventoryapp.AdjustmentQueue, hooks *postcommit.Runner) *App {
	return &App{Config: cfg, Engine: engine, Queue: queue, Hooks: hooks}
}

// ProvideDB 数据库连接，cleanup关闭连接池
func ProvideDB(cfg *config.Config) (*gorm.DB, func(), error) {
	db, err := mysql.NewDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

// ProvideRedis Redis客户端，cleanup关闭连接
func ProvideRedis(cfg *config.Config) (*goredis.Client, func(), error) {
	client, err := redis.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { client.Close() }, nil
}

// ProvideTxManager 事务管理器
func ProvideTxManager(db *gorm.DB, cfg *config.Config) *mysql.TxManager {
	return mysql.NewTxManager(db, cfg.Database.TxTimeout)
}

// ProvideProductCache 商品读缓存
func ProvideProductCache(client *goredis.Client, cfg *config.Config) *redis.ProductCache {
	return redis.NewProductCache(client, cfg.Cache.KeyPrefix, cfg.Cache.ProductTTL, cfg.Cache.InventoryTTL)
}

// ProvideJobQueue 库存任务列表
func ProvideJobQueue(client *goredis.Client, cfg *config.Config) *redis.JobQueue {
	return redis.NewJobQueue(client, cfg.Queue.KeyPrefix)
}

// ProvideDrainLock 排空锁
func ProvideDrainLock(client *goredis.Client, cfg *config.Config) *redis.Mutex {
	return redis.NewDrainLock(client, cfg.Queue.KeyPrefix, cfg.Queue.LockTTL)
}

// ProvideHookRunner 提交后钩子执行器
func ProvideHookRunner() *postcommit.Runner {
	return postcommit.NewRunner(postcommit.DefaultAsyncTimeout)
}

// ProvideRetryPolicy 存储重试策略
func ProvideRetryPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
	}
}

// ProvideOrderOptions 下单规则
func ProvideOrderOptions(cfg *config.Config, policy retry.Policy) orderapp.Options {
	bt := cfg.Order.BankTransfer
	return orderapp.Options{
		MinAmount:    cfg.Order.MinAmount,
		NumberPrefix: cfg.Order.NumberPrefix,
		BankAccount: order.BankAccount{
			BankName:      bt.BankName,
			AccountNumber: bt.AccountNumber,
			AccountHolder: bt.AccountHolder,
		},
		DueDays:         bt.DueDays,
		RestockOnCancel: cfg.Order.RestockOnCancel,
		Retry:           policy,
	}
}

// ProvideQueueOptions 库存队列参数
func ProvideQueueOptions(cfg *config.Config, policy retry.Policy) inventoryapp.Options {
	return inventoryapp.Options{
		MaxRetries:      cfg.Queue.MaxRetries,
		MaxJobsPerDrain: cfg.Queue.MaxJobsPerDrain,
		Retry:           policy,
	}
}

// ProvideNotifier 通知分发
// 启用MQ时发布到RabbitMQ（熔断保护），否则只写日志
func ProvideNotifier(cfg *config.Config) (orderapp.Notifier, func(), error) {
	if !cfg.MQ.Enabled {
		log.Info("未启用消息通知，订单事件只写日志")
		return messaging.LogNotifier{}, func() {}, nil
	}

	pub, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.PublishTimeout)
	if err != nil {
		return nil, nil, err
	}
	breaker := circuitbreaker.New("notifier", circuitbreaker.Config{
		ReadyToTrip: func(c circuitbreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			log.WithFields(log.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("熔断器状态变化")
		},
	})
	cleanup := func() {
		if err := pub.Close(); err != nil {
			log.WithError(err).Warn("关闭消息发布者失败")
		}
	}
	return messaging.NewMQNotifier(pub, breaker), cleanup, nil
}

// ProvideJWTManager 令牌校验
func ProvideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer)
}

// ProvideAdjustmentQueue 库存调整队列（api与worker共用）
func ProvideAdjustmentQueue(db *gorm.DB, client *goredis.Client, cfg *config.Config, hooks *postcommit.Runner) *inventoryapp.AdjustmentQueue {
	return inventoryapp.NewAdjustmentQueue(
		ProvideJobQueue(client, cfg),
		ProvideDrainLock(client, cfg),
		ProvideTxManager(db, cfg),
		mysql.NewProductRepository(db),
		mysql.NewAuditRepository(db),
		ProvideProductCache(client, cfg),
		hooks,
		ProvideQueueOptions(cfg, ProvideRetryPolicy(cfg)),
	)
}

// ProvideRouter Gin引擎
func ProvideRouter(
	cfg *config.Config,
	orderHandler *handler.OrderHandler,
	inventoryHandler *handler.InventoryHandler,
	productHandler *handler.ProductHandler,
	auditHandler *handler.AuditHandler,
	auth *middleware.AuthMiddleware,
) *gin.Engine {
	return router.New(router.Options{
		Mode:          cfg.Server.Mode,
		EnableSwagger: cfg.Server.Mode != gin.ReleaseMode,
	}, router.Handlers{
		Order:     orderHandler,
		Inventory: inventoryHandler,
		Product:   productHandler,
		Audit:     auditHandler,
		Auth:      auth,
	})
}

// NewAPI 手动组装api进程（与cmd/api/wire.go声明的依赖图一致）
func NewAPI(cfg *config.Config) (*App, func(), error) {
	db, closeDB, err := ProvideDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	client, closeRedis, err := ProvideRedis(cfg)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	notifier, closeNotifier, err := ProvideNotifier(cfg)
	if err != nil {
		closeRedis()
		closeDB()
		return nil, nil, err
	}

	txManager := ProvideTxManager(db, cfg)
	products := mysql.NewProductRepository(db)
	orders := mysql.NewOrderRepository(db)
	audits := mysql.NewAuditRepository(db)
	users := user.NewService(mysql.NewUserRepository(db))
	cache := ProvideProductCache(client, cfg)
	hooks := ProvideHookRunner()
	policy := ProvideRetryPolicy(cfg)
	orderOpts := ProvideOrderOptions(cfg, policy)

	queue := ProvideAdjustmentQueue(db, client, cfg, hooks)
	placeOrder := orderapp.NewPlaceOrderUseCase(txManager, products, orders, users, audits, cache, notifier, hooks, orderOpts)
	getOrder := orderapp.NewGetOrderUseCase(orders, users, orderOpts)
	updateStatus := orderapp.NewUpdateStatusUseCase(txManager, orders, users, audits, notifier, queue, hooks, orderOpts)

	engine := ProvideRouter(cfg,
		handler.NewOrderHandler(placeOrder, getOrder, updateStatus),
		handler.NewInventoryHandler(queue),
		handler.NewProductHandler(productapp.NewQueryService(products, cache)),
		handler.NewAuditHandler(auditapp.NewListLogsUseCase(audits)),
		middleware.NewAuthMiddleware(ProvideJWTManager(cfg)),
	)

	cleanup := func() {
		closeNotifier()
		closeRedis()
		closeDB()
	}
	return NewApp(cfg, engine, queue, hooks), cleanup, nil
}
