package indexer

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// dirWatcher 记录已加入 fsnotify 的目录.删除或改名的目录从集合中去掉，重建后可以再次加入.
type dirWatcher struct {
	mu      sync.Mutex
	w       *fsnotify.Watcher
	watched map[string]struct{}
	logger  zerolog.Logger
}

func (d *dirWatcher) add(dir string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.watched[dir]; ok {
		return
	}

	if err := d.w.Add(dir); err != nil {
		d.logger.Warn().Err(err).Str("dir", dir).Msg("cannot watch folder")
		return
	}

	d.watched[dir] = struct{}{}
}

func (d *dirWatcher) forget(dir string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.watched, dir)
}

func (d *dirWatcher) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.watched)
}

// watch 监听配置的目录及扫描经过的子目录，有变化时提前唤醒休眠中的索引循环.
// 新建的子目录立即加入监听，其下更深的目录在下一轮扫描时加入.扫描本身仍以目录遍历为准.
func (i *Indexer) watch(ctx context.Context) (func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	d := &dirWatcher{w: w, watched: make(map[string]struct{}), logger: i.logger}
	for _, dir := range i.cfg.Folders {
		d.add(dir)
	}

	i.watcher.Store(d)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}

				if ev.Has(fsnotify.Create) {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
						d.add(ev.Name)
					}
				}

				if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					d.forget(ev.Name)
				}

				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					i.Wake()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}

				i.logger.Warn().Err(err).Msg("folder watch error")
			}
		}
	}()

	return func() {
		i.watcher.Store(nil)
		_ = w.Close()
	}, nil
}

// watchDir 扫描时把经过的目录加入监听，未开启监听时为空操作.
func (i *Indexer) watchDir(dir string) {
	if d := i.watcher.Load(); d != nil {
		d.add(dir)
	}
}

// WatchedDirs 当前监听的目录数量.
func (i *Indexer) WatchedDirs() int {
	if d := i.watcher.Load(); d != nil {
		return d.len()
	}

	return 0
}

// Wake 提前结束当前休眠，开始下一轮扫描.
func (i *Indexer) Wake() {
	select {
	case i.wake <- struct{}{}:
	default:
	}
}
