package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/xiebiao/b2b-order/internal/bootstrap"
	"github.com/xiebiao/b2b-order/internal/infrastructure/config"
	"github.com/xiebiao/b2b-order/pkg/logger"
	"github.com/xiebiao/b2b-order/pkg/metrics"
	"github.com/xiebiao/b2b-order/pkg/tracing"
)

// @title        B2B下单与库存服务
// @version      1.0
// @description  企业采购下单、订单状态流转、库存调整队列
// @BasePath     /api/v1
// @securityDefinitions.apikey BearerAuth
// @in           header
// @name         Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	if _, err := logger.Setup(logger.Config{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	}); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}

	log.WithFields(log.Fields{
		"port":     cfg.Server.Port,
		"mode":     cfg.Server.Mode,
		"database": fmt.Sprintf("%s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName),
		"redis":    cfg.Redis.Addr(),
	}).Info("配置加载成功")

	metrics.InitMetrics()

	shutdownTracer, err := tracing.Init(context.Background(), tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		log.Fatalf("初始化链路追踪失败: %v", err)
	}

	app, cleanup, err := bootstrap.NewAPI(cfg)
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}

	// 进程内的库存队列worker（多实例部署时由分布式锁保证同一时间只有一个在排空）
	workerCtx, stopWorker := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	if cfg.Queue.WorkerEnabled {
		workers.Add(1)
		go func() {
			defer workers.Done()
			app.Queue.Run(workerCtx, cfg.Queue.PollInterval)
		}()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("HTTP服务已启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("启动服务失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("正在关闭服务...")

	// 关闭顺序：停止接收请求 → 停止worker → 等待提交后钩子 → 关闭连接 → 刷新Span
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("HTTP服务关闭失败")
	}

	stopWorker()
	workers.Wait()
	app.Hooks.Wait()
	cleanup()

	if err := shutdownTracer(ctx); err != nil {
		log.WithError(err).Warn("关闭链路追踪失败")
	}
	log.Info("服务已退出")
}
