// Package storage 聚合服务使用的存储资源：目录数据库、KV、延迟删除队列和事件 MQ.
//
// Example:
//
// 初始化
//
//	ctx := context.Background()
//	mgr, err := storage.Init(ctx)
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
// 获取存储客户端
//
//	dbClient := mgr.GetDBClient()
//	kvClient := mgr.GetKVClient()
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yeisme/advstorage/pkg/configs"
	dbc "github.com/yeisme/advstorage/pkg/internal/storage/db"
	"github.com/yeisme/advstorage/pkg/internal/storage/fifo"
	"github.com/yeisme/advstorage/pkg/internal/storage/kv"
	"github.com/yeisme/advstorage/pkg/internal/storage/mq"
	nlog "github.com/yeisme/advstorage/pkg/log"
)

// DeletionQueueName 延迟删除队列名.
const DeletionQueueName = "advst-delayed-deletion"

// Manager 聚合所有存储资源.MQ 仅在启用事件时存在.
type Manager struct {
	DB    *dbc.Client
	KV    *kv.Client
	MQ    *mq.Client
	Queue fifo.Queue
}

var (
	mgr     *Manager
	mgrErr  error
	mgrOnce sync.Once
)

// Init 初始化默认存储，使用全局配置.重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	mgrOnce.Do(func() {
		mgr, mgrErr = Open(ctx, configs.GetConfig())
		if mgrErr == nil {
			nlog.Component("storage").Info().Msg("storage manager initialized")
		}
	})

	return mgr, mgrErr
}

// Open 按给定配置打开全部存储资源，失败时关闭已打开的部分.
func Open(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	m := &Manager{}

	dbi, err := dbc.New(ctx, &cfg.DB, cfg.Metrics.Enabled)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	m.DB = dbi

	if m.KV, err = kv.NewKVClient(ctx, &cfg.KV, dbi.DB); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("open kv: %w", err)
	}

	qt := fifo.Type(cfg.AdvancedStorage.DelayedDeletion.Queue)

	var qcfg any

	switch qt {
	case fifo.TypeRedis:
		qcfg = &cfg.KV.Redis
		if shared := sharedRedis(m.KV); shared != nil {
			qcfg = shared
		}
	case fifo.TypeDB:
		qcfg = dbi.DB
	}

	if m.Queue, err = fifo.New(ctx, qt, DeletionQueueName, qcfg); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("open deletion queue: %w", err)
	}

	if cfg.Events.Enabled {
		if m.MQ, err = mq.Open(ctx, &cfg.MQ, &cfg.Metrics); err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("open mq: %w", err)
		}
	}

	return m, nil
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kv.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端，未启用事件时为 nil.
func (m *Manager) GetMQClient() *mq.Client {
	return m.MQ
}

// GetQueue 获取延迟删除队列.
func (m *Manager) GetQueue() fifo.Queue {
	return m.Queue
}

// Close 关闭全部资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.Queue != nil {
		errs = append(errs, m.Queue.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}
