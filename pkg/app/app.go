// Package app 提供应用程序的初始化和运行：HTTP 服务与后台工作者在同一个 errgroup 中.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/advstorage/pkg/api"
	"github.com/yeisme/advstorage/pkg/configs"
	"github.com/yeisme/advstorage/pkg/internal/service"
	"github.com/yeisme/advstorage/pkg/internal/storage"
	"github.com/yeisme/advstorage/pkg/log"
	"github.com/yeisme/advstorage/pkg/metrics"
	"github.com/yeisme/advstorage/pkg/scheduler"
	"github.com/yeisme/advstorage/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Engine *gin.Engine

	config  *configs.AppConfig
	storage *storage.Manager
	sched   *scheduler.Scheduler
	svc     *service.Service
	logger  zerolog.Logger
}

// NewApp 读取配置并初始化全部依赖，失败时释放已打开的资源.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	// 初始化配置
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	config := configs.GetConfig()

	// 初始化追踪
	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// 初始化监控
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	if !config.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	a := &App{config: config, logger: *l}

	configs.OnReload(func(cfg *configs.AppConfig, err error) {
		if err != nil {
			a.logger.Error().Err(err).Msg("config reload rejected, keeping previous config")
			return
		}

		a.logger.Info().Str("file", configs.GetViper().ConfigFileUsed()).
			Msg("config reloaded, storage layout and host settings keep their startup values")
	})

	manager, err := storage.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	a.storage = manager

	if a.sched, err = scheduler.NewScheduler(); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	if a.svc, err = service.New(ctx, config, manager, a.sched, *l); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("init advanced storage: %w", err)
	}

	a.Engine = api.NewEngine(api.Deps{
		Config:    config,
		Storage:   manager,
		Scheduler: a.sched,
		Service:   a.svc,
	})

	if err := metrics.StartMetricsServer(config.Metrics, a.Engine); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("start metrics: %w", err)
	}

	return a, nil
}

// Run 运行 HTTP 服务、调度器与后台工作者，直到 ctx 取消或任一部分失败.
func (a *App) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
	}

	a.sched.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("addr", addr).Msg("http server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return a.svc.Run(gctx)
	})

	err := g.Wait()

	a.close(context.WithoutCancel(ctx))

	return err
}

// close 按依赖的逆序释放资源.
func (a *App) close(ctx context.Context) {
	if a.svc != nil {
		a.svc.Stop()
	}

	if a.sched != nil {
		if err := a.sched.Shutdown(); err != nil {
			a.logger.Warn().Err(err).Msg("scheduler shutdown failed")
		}
	}

	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("storage close failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := tracing.ShutdownTracer(shutdownCtx); err != nil {
		a.logger.Warn().Err(err).Msg("tracer shutdown failed")
	}
}
