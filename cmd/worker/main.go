// worker 库存调整队列的独立进程与运维命令
//
//	worker run               按间隔持续排空队列
//	worker drain             排空一次后退出
//	worker migrate up        执行全部未应用的迁移
//	worker migrate down -n 1 回滚n个版本
//	worker migrate version   查看当前版本
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/xiebiao/b2b-order/internal/bootstrap"
	"github.com/xiebiao/b2b-order/internal/domain/inventory"
	"github.com/xiebiao/b2b-order/internal/infrastructure/config"
	"github.com/xiebiao/b2b-order/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/b2b-order/pkg/logger"
	"github.com/xiebiao/b2b-order/pkg/metrics"
)

func main() {
	app := &cli.App{
		Name:  "worker",
		Usage: "库存调整队列worker与数据库迁移",
		Before: func(c *cli.Context) error {
			metrics.InitMetrics()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "按poll_interval持续排空队列，收到SIGINT/SIGTERM后退出",
				Action: runWorker,
			},
			{
				Name:   "drain",
				Usage:  "排空一次队列",
				Action: drainOnce,
			},
			{
				Name:  "migrate",
				Usage: "数据库迁移",
				Subcommands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "执行全部未应用的迁移",
						Action: migrateUp,
					},
					{
						Name:  "down",
						Usage: "回滚迁移",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "steps", Aliases: []string{"n"}, Value: 1, Usage: "回滚的版本数"},
						},
						Action: migrateDown,
					},
					{
						Name:   "version",
						Usage:  "当前迁移版本",
						Action: migrateVersion,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("worker执行失败")
	}
}

// loadConfig 加载配置并初始化日志
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if _, err := logger.Setup(logger.Config{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// worker 排空队列需要的依赖
type worker struct {
	cfg     *config.Config
	run     func(ctx context.Context)
	drain   func(ctx context.Context) error
	cleanup func()
}

func newWorker() (*worker, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, closeDB, err := bootstrap.ProvideDB(cfg)
	if err != nil {
		return nil, err
	}
	client, closeRedis, err := bootstrap.ProvideRedis(cfg)
	if err != nil {
		closeDB()
		return nil, err
	}

	hooks := bootstrap.ProvideHookRunner()
	queue := bootstrap.ProvideAdjustmentQueue(db, client, cfg, hooks)

	return &worker{
		cfg: cfg,
		run: func(ctx context.Context) { queue.Run(ctx, cfg.Queue.PollInterval) },
		drain: func(ctx context.Context) error {
			result, err := queue.Drain(ctx)
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{
				"processed":     result.Processed,
				"requeued":      result.Requeued,
				"dead_lettered": result.DeadLettered,
				"remaining":     result.Remaining,
			}).Info("排空完成")
			return nil
		},
		cleanup: func() {
			hooks.Wait()
			closeRedis()
			closeDB()
		},
	}, nil
}

func runWorker(c *cli.Context) error {
	w, err := newWorker()
	if err != nil {
		return err
	}
	defer w.cleanup()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w.run(ctx)
	return nil
}

func drainOnce(c *cli.Context) error {
	w, err := newWorker()
	if err != nil {
		return err
	}
	defer w.cleanup()

	err = w.drain(c.Context)
	if errors.Is(err, inventory.ErrLockHeld) {
		log.Warn("其他worker正在排空队列，本次跳过")
		return nil
	}
	return err
}

func newMigrator() (*mysql.Migrator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return mysql.NewMigrator(cfg.Database.MigrateURL())
}

func migrateUp(c *cli.Context) error {
	m, err := newMigrator()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		return err
	}
	log.Info("迁移完成")
	return nil
}

func migrateDown(c *cli.Context) error {
	steps := c.Int("steps")
	if steps < 1 {
		return cli.Exit("steps必须大于0", 2)
	}

	m, err := newMigrator()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(steps); err != nil {
		return err
	}
	log.WithField("steps", steps).Info("回滚完成")
	return nil
}

func migrateVersion(c *cli.Context) error {
	m, err := newMigrator()
	if err != nil {
		return err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "version=%d dirty=%t\n", version, dirty)
	return nil
}
