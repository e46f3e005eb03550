// Package service 组装高级存储的各个部件，并向 HTTP 层提供用例级操作.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/yeisme/advstorage/pkg/cache"
	"github.com/yeisme/advstorage/pkg/configs"
	"github.com/yeisme/advstorage/pkg/internal/catalog"
	"github.com/yeisme/advstorage/pkg/internal/deleter"
	"github.com/yeisme/advstorage/pkg/internal/indexer"
	"github.com/yeisme/advstorage/pkg/internal/jobs"
	"github.com/yeisme/advstorage/pkg/internal/ownership"
	"github.com/yeisme/advstorage/pkg/internal/storage"
	"github.com/yeisme/advstorage/pkg/internal/storagearea"
	"github.com/yeisme/advstorage/pkg/layout"
	nlog "github.com/yeisme/advstorage/pkg/log"
	"github.com/yeisme/advstorage/pkg/queue"
	"github.com/yeisme/advstorage/pkg/scheduler"
)

// ErrDisabled 高级存储未启用时调用插件接口.
var ErrDisabled = errors.New("advanced storage is disabled")

// Service 高级存储服务.
type Service struct {
	enabled bool
	reg     *layout.Registry
	events  *queue.Emitter
	area    *storagearea.Area
	catalog *catalog.Catalog
	indexer *indexer.Indexer
	deleter *deleter.Deleter
	runner  *jobs.Runner
	logger  zerolog.Logger
}

// New 按配置组装服务并迁移目录表.sched 用于迁移任务和维护任务，不能为 nil.
//
// advanced_storage.enable 为 false 时只保留宿主的旧版布局：不读取命名方案与多存储配置，
// 也不创建索引器和延迟删除器.
func New(ctx context.Context, cfg *configs.AppConfig, mgr *storage.Manager,
	sched *scheduler.Scheduler, logger zerolog.Logger) (*Service, error) {
	if cfg == nil || mgr == nil || sched == nil {
		return nil, fmt.Errorf("service: config, storage manager and scheduler are required")
	}

	s := &Service{
		enabled: cfg.AdvancedStorage.Enable,
		logger:  nlog.WithComponent(logger, "advanced-storage"),
	}

	reg, err := newRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	reg.SetLogger(nlog.WithComponent(logger, "layout"))
	s.reg = reg

	// mgr.MQ 为 nil 指针时不能直接作为接口传入
	var pub queue.Publisher
	if mgr.MQ != nil {
		pub = mgr.MQ
	}

	s.events = queue.NewEmitter(pub, cfg.Events)

	owners := ownership.NewStore(mgr.KV)

	s.area = storagearea.New(reg, storagearea.Options{
		Sync:   cfg.Host.SyncStorageArea,
		Owners: owners,
		Events: s.events,
		Logger: logger,
	})

	s.catalog = catalog.New(mgr.DB.DB, s.area, owners, s.events, logger)
	if err := s.catalog.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}

	if s.enabled && cfg.AdvancedStorage.Indexer.Enable {
		s.indexer = indexer.New(indexer.ConfigFrom(cfg.AdvancedStorage.Indexer), mgr.KV, s.catalog, logger)
		s.area.SetIndexer(s.indexer)
	}

	if s.enabled && cfg.AdvancedStorage.DelayedDeletion.Enable {
		s.deleter = deleter.New(mgr.Queue, reg, cfg.AdvancedStorage.DelayedDeletion.GetThrottleDelay(), logger)
		s.area.SetDeleter(s.deleter)
	}

	s.runner = jobs.NewRunner(sched, s.events, logger)
	if retention := cfg.AdvancedStorage.GetJobHistoryRetention(); retention > 0 {
		s.runner.WithHistory(cache.New[jobs.Info](mgr.KV, jobs.HistoryNamespace, retention))
	}

	if err := jobs.RegisterCronJobs(sched, s.area); err != nil {
		return nil, fmt.Errorf("register cron jobs: %w", err)
	}

	s.logger.Info().
		Bool("enabled", s.enabled).
		Str("naming_scheme", reg.NamingScheme()).
		Strs("storages", reg.StorageIDs()).
		Bool("indexer", s.indexer != nil).
		Bool("delayed_deletion", s.deleter != nil).
		Msg("advanced storage initialized")

	return s, nil
}

func newRegistry(cfg *configs.AppConfig) (*layout.Registry, error) {
	if cfg.AdvancedStorage.Enable {
		return layout.NewRegistryFromConfig(cfg.AdvancedStorage, cfg.Host)
	}

	legacy := configs.AdvancedStorageConfig{NamingScheme: layout.DefaultNamingScheme}

	return layout.NewRegistryFromConfig(legacy, cfg.Host)
}

// Run 启动后台工作者并阻塞到 ctx 取消，然后等待它们退出.
func (s *Service) Run(ctx context.Context) error {
	if s.indexer != nil {
		s.indexer.Start(ctx)
	}

	if s.deleter != nil {
		s.deleter.Start(ctx)
	}

	<-ctx.Done()

	s.Stop()

	return nil
}

// Stop 停止后台工作者，可重复调用.
func (s *Service) Stop() {
	if s.indexer != nil {
		s.indexer.Stop()
	}

	if s.deleter != nil {
		s.deleter.Stop()
	}
}

// Enabled 是否启用了高级存储.
func (s *Service) Enabled() bool { return s.enabled }

// Registry 返回存储位置注册表.
func (s *Service) Registry() *layout.Registry { return s.reg }

// Catalog 返回宿主目录.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Jobs 返回任务执行器.
func (s *Service) Jobs() *jobs.Runner { return s.runner }
