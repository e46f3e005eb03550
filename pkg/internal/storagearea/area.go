// Package storagearea 实现宿主的存储区回调：按布局写入、读取和删除附件文件.
//
// 写入时根据命名模板与当前写入池决定路径，返回的记录作为附件自定义数据由宿主保存；
// 读取与删除都从该记录还原出绝对路径.
package storagearea

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yeisme/advstorage/pkg/internal/ownership"
	"github.com/yeisme/advstorage/pkg/layout"
	nlog "github.com/yeisme/advstorage/pkg/log"
	"github.com/yeisme/advstorage/pkg/queue"
)

var (
	// ErrAlreadyExists 目标路径已存在文件.
	ErrAlreadyExists = errors.New("file already exists")
	// ErrDirectoryOverFile 父目录的某一级是普通文件.
	ErrDirectoryOverFile = errors.New("directory over file")
	// ErrCannotWrite 写入失败.
	ErrCannotWrite = errors.New("cannot write file")
	// ErrInexistentFile 文件不存在或不是普通文件.
	ErrInexistentFile = errors.New("inexistent file")
)

// IndexTracker 由目录索引器实现，宿主删除文件时通知它.
type IndexTracker interface {
	MarkAsDeletedByHost(ctx context.Context, path string) error
	IsFileIndexed(ctx context.Context, path string) (bool, error)
	IsRunning() bool
}

// DeletionScheduler 由延迟删除器实现.
type DeletionScheduler interface {
	ScheduleFileDeletion(ctx context.Context, path string) error
	PendingDeletionFilesCount(ctx context.Context) (int64, error)
	IsRunning() bool
}

// Options 存储区可选依赖.
type Options struct {
	// Sync 写入后 fsync.
	Sync bool
	// Owners 采纳文件的归属记录，为空时删除不清理归属.
	Owners *ownership.Store
	// Events 事件发布器，可为 nil.
	Events *queue.Emitter
	Logger zerolog.Logger
}

// Area 存储区.
type Area struct {
	reg    *layout.Registry
	sync   bool
	owners *ownership.Store
	events *queue.Emitter
	logger zerolog.Logger

	mu      sync.Mutex
	indexer IndexTracker
	deleter DeletionScheduler
}

// New 创建存储区.
func New(reg *layout.Registry, opts Options) *Area {
	return &Area{
		reg:    reg,
		sync:   opts.Sync,
		owners: opts.Owners,
		events: opts.Events,
		logger: nlog.WithComponent(opts.Logger, "storage-area"),
	}
}

// Registry 返回存储位置注册表.
func (a *Area) Registry() *layout.Registry {
	return a.reg
}

// SetIndexer 设置目录索引器，nil 表示停用.
func (a *Area) SetIndexer(idx IndexTracker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.indexer = idx
}

// SetDeleter 设置延迟删除器，nil 表示立即删除.
func (a *Area) SetDeleter(d DeletionScheduler) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.deleter = d
}

// Indexer 返回当前索引器，可能为 nil.
func (a *Area) Indexer() IndexTracker {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.indexer
}

// Deleter 返回当前延迟删除器，可能为 nil.
func (a *Area) Deleter() DeletionScheduler {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.deleter
}
