// Package indexer 周期性扫描配置的目录，把其中的 DICOM 文件采纳到宿主中.
//
// 每个文件的修改时间、大小和是否为 DICOM 保存在 KV 命名空间 advst-indexer-path 中；
// 文件变化时先放弃旧实例再重新采纳，文件消失时放弃对应实例.
// 多个进程同时扫描同一目录时不做协调，遗漏的记录在下一轮补上.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/yeisme/advstorage/pkg/configs"
	"github.com/yeisme/advstorage/pkg/internal/storage/kv"
	"github.com/yeisme/advstorage/pkg/layout"
	nlog "github.com/yeisme/advstorage/pkg/log"
)

// Namespace KV 中索引记录的命名空间.
const Namespace = "advst-indexer-path"

// Adopter 宿主侧的采纳接口.
type Adopter interface {
	AdoptFile(ctx context.Context, path string, takeOwnership bool) (layout.AdoptResult, error)
	AbandonFile(ctx context.Context, path string) error
}

// Config 索引器配置.
type Config struct {
	Folders           []string
	Interval          time.Duration
	ThrottleDelay     time.Duration
	ParsedExtensions  []string
	SkippedExtensions []string
	TakeOwnership     bool
	Watch             bool
}

// ConfigFrom 从应用配置构建索引器配置.
func ConfigFrom(c configs.IndexerConfig) Config {
	return Config{
		Folders:           c.Folders,
		Interval:          c.GetInterval(),
		ThrottleDelay:     c.GetThrottleDelay(),
		ParsedExtensions:  c.ParsedExtensions,
		SkippedExtensions: c.SkippedExtensions,
		TakeOwnership:     c.TakeOwnership,
		Watch:             c.Watch,
	}
}

// Indexer 目录索引器.
type Indexer struct {
	cfg     Config
	records *kv.Namespace
	adopter Adopter
	logger  zerolog.Logger
	limiter *rate.Limiter
	wake    chan struct{}
	watcher atomic.Pointer[dirWatcher]

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New 创建索引器.
func New(cfg Config, store kv.KVStore, adopter Adopter, logger zerolog.Logger) *Indexer {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Duration(configs.DefaultIndexerInterval) * time.Second
	}

	logger = nlog.WithComponent(logger, "indexer")

	idx := &Indexer{
		cfg:     cfg,
		records: kv.NewNamespace(store, Namespace).WithLogger(logger),
		adopter: adopter,
		logger:  logger,
		wake:    make(chan struct{}, 1),
	}

	if cfg.ThrottleDelay > 0 {
		idx.limiter = rate.NewLimiter(rate.Every(cfg.ThrottleDelay), 1)
	}

	return idx
}

// Start 在后台运行索引循环，重复调用无效.
func (i *Indexer) Start(ctx context.Context) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	i.cancel = cancel
	i.done = make(chan struct{})
	i.running = true

	go func(done chan struct{}) {
		defer close(done)

		if err := i.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			i.logger.Error().Err(err).Msg("indexer stopped with error")
		}

		i.mu.Lock()
		i.running = false
		i.mu.Unlock()
	}(i.done)
}

// Stop 取消后台循环并等待退出.
func (i *Indexer) Stop() {
	i.mu.Lock()
	cancel, done := i.cancel, i.done
	i.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// IsRunning 后台循环是否在运行.
func (i *Indexer) IsRunning() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.running
}

// Run 阻塞运行索引循环直到 ctx 取消.
func (i *Indexer) Run(ctx context.Context) error {
	if i.cfg.Watch {
		stop, err := i.watch(ctx)
		if err != nil {
			i.logger.Warn().Err(err).Msg("folder watch disabled")
		} else {
			defer stop()
		}
	}

	i.logger.Info().Strs("folders", i.cfg.Folders).Dur("interval", i.cfg.Interval).Msg("indexer started")

	for {
		if err := i.Sweep(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			i.logger.Error().Err(err).Msg("indexer sweep failed")
		}

		timer := time.NewTimer(i.cfg.Interval)

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-i.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// IsFileIndexed 路径是否已有索引记录.
func (i *Indexer) IsFileIndexed(ctx context.Context, path string) (bool, error) {
	return i.records.Exists(ctx, path)
}

// MarkAsDeletedByHost 标记宿主已删除该文件对应的资源，之后文件消失时不再放弃采纳.
func (i *Indexer) MarkAsDeletedByHost(ctx context.Context, path string) error {
	rec, ok, err := i.load(ctx, path)
	if err != nil || !ok {
		return err
	}

	rec.DeletedByHost = true

	return i.store(ctx, path, rec)
}

func (i *Indexer) load(ctx context.Context, path string) (IndexedPath, bool, error) {
	data, err := i.records.Get(ctx, path)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return IndexedPath{}, false, nil
	}

	if err != nil {
		return IndexedPath{}, false, fmt.Errorf("load indexed path %s: %w", path, err)
	}

	rec, err := ParseIndexedPath(data)
	if err != nil {
		return IndexedPath{}, false, err
	}

	return rec, true, nil
}

func (i *Indexer) store(ctx context.Context, path string, rec IndexedPath) error {
	data, err := rec.Marshal()
	if err != nil {
		return err
	}

	return i.records.Set(ctx, path, data, 0)
}

// throttle 两个文件之间的等待.
func (i *Indexer) throttle(ctx context.Context) error {
	if i.limiter == nil {
		return ctx.Err()
	}

	return i.limiter.Wait(ctx)
}
