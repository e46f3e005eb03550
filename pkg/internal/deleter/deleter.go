// Package deleter 在后台逐个删除存储区中的文件，避免删除大量实例时阻塞请求.
//
// 待删除路径保存在持久化 FIFO 队列中，进程重启后继续处理.
package deleter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/yeisme/advstorage/pkg/internal/storage/fifo"
	"github.com/yeisme/advstorage/pkg/layout"
	"github.com/yeisme/advstorage/pkg/metrics"
)

// idleWait 队列清空后等待的时间.
const idleWait = time.Second

// Deleter 延迟删除器.
type Deleter struct {
	queue   fifo.Queue
	reg     *layout.Registry
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New 创建删除器，throttle 为两次删除之间的最小间隔，0 表示不限速.
func New(queue fifo.Queue, reg *layout.Registry, throttle time.Duration, logger zerolog.Logger) *Deleter {
	d := &Deleter{
		queue:  queue,
		reg:    reg,
		logger: logger.With().Str("component", "deleter").Logger(),
	}

	if throttle > 0 {
		d.limiter = rate.NewLimiter(rate.Every(throttle), 1)
	}

	return d
}

// ScheduleFileDeletion 把路径加入删除队列.
func (d *Deleter) ScheduleFileDeletion(ctx context.Context, path string) error {
	if err := d.queue.PushBack(ctx, []byte(path)); err != nil {
		return fmt.Errorf("schedule deletion of %s: %w", path, err)
	}

	metrics.PendingDeletions.Inc()

	return nil
}

// PendingDeletionFilesCount 返回队列中待删除的文件数.
func (d *Deleter) PendingDeletionFilesCount(ctx context.Context) (int64, error) {
	n, err := d.queue.Size(ctx)
	if err != nil {
		return 0, fmt.Errorf("pending deletions: %w", err)
	}

	metrics.PendingDeletions.Set(float64(n))

	return n, nil
}

// Start 在后台运行删除循环.
func (d *Deleter) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running = true

	go func(done chan struct{}) {
		defer close(done)

		if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error().Err(err).Msg("deleter stopped with error")
		}

		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}(d.done)
}

// Stop 取消后台循环并等待退出.
func (d *Deleter) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// IsRunning 后台循环是否在运行.
func (d *Deleter) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.running
}

// Run 阻塞运行删除循环直到 ctx 取消.
func (d *Deleter) Run(ctx context.Context) error {
	if n, err := d.PendingDeletionFilesCount(ctx); err == nil && n > 0 {
		d.logger.Info().Int64("pending", n).Msg("resuming delayed deletions")
	}

	for {
		if _, err := d.Drain(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			d.logger.Error().Err(err).Msg("delayed deletion failed")
		}

		timer := time.NewTimer(idleWait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Drain 处理队列直到为空，返回删除的文件数.
func (d *Deleter) Drain(ctx context.Context) (int, error) {
	count := 0

	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		item, err := d.queue.PopFront(ctx)
		if errors.Is(err, fifo.ErrEmpty) {
			metrics.PendingDeletions.Set(0)
			return count, nil
		}

		if err != nil {
			return count, err
		}

		metrics.PendingDeletions.Dec()

		d.remove(string(item))
		count++

		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return count, err
			}
		}
	}
}

// remove 尽力删除，失败只记录日志.
func (d *Deleter) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		d.logger.Warn().Err(err).Str("path", path).Msg("unable to delete file")
		return
	}

	layout.RemoveEmptyParentDirectories(d.reg, path)
	d.logger.Debug().Str("path", path).Msg("deleted file")
}
