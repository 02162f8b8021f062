// Package app 提供应用程序的初始化和配置功能.
package app

import (
	contextPkg "context"
	"fmt"
	"os"

	"github.com/yeisme/filegate/pkg/configs"
	"github.com/yeisme/filegate/pkg/context"
	"github.com/yeisme/filegate/pkg/internal/jobs"
	"github.com/yeisme/filegate/pkg/internal/storage"
	"github.com/yeisme/filegate/pkg/log"
	"github.com/yeisme/filegate/pkg/metrics"
	"github.com/yeisme/filegate/pkg/scheduler"
	"github.com/yeisme/filegate/pkg/tracing"
)

// App 聚合摄取管线的进程级资源：配置、存储、调度器与指标服务.
type App struct {
	config  *configs.AppConfig
	manager *storage.Manager
	sched   *scheduler.Scheduler

	// ctx 携带存储管理器，所有 service 从这里装配
	ctx contextPkg.Context

	stopMetrics func()
}

// NewApp 完成进程初始化. 初始化失败直接退出，半初始化的进程没有运行价值.
func NewApp(configPath string) *App {
	ctx := contextPkg.Background()

	if err := configs.InitConfig(configPath); err != nil {
		fmt.Printf("Error initializing config: %v\n", err)
		os.Exit(1)
	}

	log.Init()

	config := configs.GetConfig()
	if err := tracing.InitTracer(config.Tracing); err != nil {
		fmt.Printf("Error initializing tracing: %v\n", err)
		os.Exit(1)
	}

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		fmt.Printf("Error initializing metrics: %v\n", err)
		os.Exit(1)
	}

	manager, err := storage.Init(ctx)
	if err != nil {
		fmt.Printf("Error initializing storage: %v\n", err)
		os.Exit(1)
	}

	ctx = context.WithStorageManager(ctx, manager)

	a := &App{
		config:  config,
		manager: manager,
		ctx:     ctx,
	}

	if config.Metrics.Enabled {
		stop, err := metrics.StartMetricsServer(config.Metrics)
		if err != nil {
			log.Logger().Error().Err(err).Msg("start metrics server failed")
		} else {
			a.stopMetrics = stop
		}
	}

	return a
}

// Context 返回携带存储管理器的基础 context.
func (a *App) Context() contextPkg.Context {
	return a.ctx
}

// Config 返回已加载的应用配置.
func (a *App) Config() *configs.AppConfig {
	return a.config
}

// Manager 返回存储管理器.
func (a *App) Manager() *storage.Manager {
	return a.manager
}

// StartScheduler 创建调度器并注册定时任务（暂存清理、配额对账、归档同步）.
func (a *App) StartScheduler() error {
	sched, err := scheduler.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	if err := jobs.RegisterCronJobs(sched, a.manager); err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}

	sched.Start()
	a.sched = sched

	for _, info := range sched.GetJobInfos() {
		log.Logger().Info().
			Str("job", info.Name).
			Str("cron", info.CronExpr).
			Time("next_run", info.NextRun).
			Msg("cron job scheduled")
	}

	return nil
}

// Shutdown 按启动的反序释放资源.
func (a *App) Shutdown() {
	if a.sched != nil {
		if err := a.sched.Shutdown(); err != nil {
			log.Logger().Warn().Err(err).Msg("scheduler shutdown failed")
		}
	}

	if a.stopMetrics != nil {
		a.stopMetrics()
	}

	if err := tracing.ShutdownTracer(contextPkg.Background()); err != nil {
		log.Logger().Warn().Err(err).Msg("tracer shutdown failed")
	}

	a.manager.Close()
}
