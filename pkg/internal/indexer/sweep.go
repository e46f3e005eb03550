package indexer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/yeisme/advstorage/pkg/layout"
	"github.com/yeisme/advstorage/pkg/metrics"
)

// 单个文件的处理结果，用作指标标签.
const (
	resultNew       = "new"
	resultChanged   = "changed"
	resultUnchanged = "unchanged"
	resultDeleted   = "deleted"
	resultSkipped   = "skipped"
	resultError     = "error"
)

// Sweep 完整扫描一轮：遍历目录处理每个文件，然后清理已消失文件的记录.
func (i *Indexer) Sweep(ctx context.Context) error {
	stack := make([]string, 0, len(i.cfg.Folders))
	// 反序入栈，保持按配置顺序处理
	for j := len(i.cfg.Folders) - 1; j >= 0; j-- {
		stack = append(stack, i.cfg.Folders[j])
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			i.logger.Warn().Err(err).Str("dir", dir).Msg("indexer cannot read directory")
			continue
		}

		i.watchDir(dir)

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())

			info, err := os.Stat(path)
			if err != nil {
				continue
			}

			if info.IsDir() {
				// 符号链接指向的目录不跟随，避免环
				if entry.IsDir() {
					stack = append(stack, path)
				}

				continue
			}

			if !info.Mode().IsRegular() {
				continue
			}

			if !i.accepts(path) {
				metrics.IndexerFiles.WithLabelValues(resultSkipped).Inc()
				continue
			}

			if err := i.ProcessFile(ctx, path, info); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				metrics.IndexerFiles.WithLabelValues(resultError).Inc()
				i.logger.Error().Err(err).Str("path", path).Msg("indexer failed to process file")
			}

			if err := i.throttle(ctx); err != nil {
				return err
			}
		}
	}

	if err := i.LookupDeletedFiles(ctx); err != nil {
		return err
	}

	metrics.IndexerSweeps.Inc()

	return nil
}

// accepts 按扩展名过滤，比较时包含前导点且区分大小写.
func (i *Indexer) accepts(path string) bool {
	ext := filepath.Ext(path)

	if len(i.cfg.ParsedExtensions) > 0 && !slices.Contains(i.cfg.ParsedExtensions, ext) {
		return false
	}

	if len(i.cfg.SkippedExtensions) > 0 && slices.Contains(i.cfg.SkippedExtensions, ext) {
		return false
	}

	return true
}

// ProcessFile 处理单个文件：未变化跳过，变化则先放弃旧实例再重新采纳，新文件直接采纳.
func (i *Indexer) ProcessFile(ctx context.Context, path string, info fs.FileInfo) error {
	mtime, size := info.ModTime().Unix(), info.Size()
	result := resultNew

	prev, ok, err := i.load(ctx, path)
	if err != nil {
		return err
	}

	if ok {
		if !prev.HasChanged(mtime, size) {
			metrics.IndexerFiles.WithLabelValues(resultUnchanged).Inc()
			return nil
		}

		result = resultChanged

		if prev.IsDicom {
			i.logger.Info().Str("path", path).Msg("a DICOM file has changed and will be re-adopted")

			if err := i.adopter.AbandonFile(ctx, path); err != nil {
				i.logger.Warn().Err(err).Str("path", path).Msg("failed to abandon changed file")
			}
		}

		if err := i.records.Delete(ctx, path); err != nil {
			return err
		}
	}

	res, err := i.adopter.AdoptFile(ctx, path, i.cfg.TakeOwnership)
	isDicom := err == nil && res.Status == layout.StoreSuccess

	switch {
	case isDicom:
		i.logger.Info().Str("path", path).Str("instance", res.InstanceID).Msg("adopted a new DICOM file")
	case err != nil:
		i.logger.Debug().Err(err).Str("path", path).Msg("file not adopted")
	default:
		i.logger.Debug().Str("path", path).Str("status", res.Status.String()).Msg("file not adopted")
	}

	metrics.IndexerFiles.WithLabelValues(result).Inc()

	return i.store(ctx, path, IndexedPath{Time: mtime, Size: size, IsDicom: isDicom})
}

// LookupDeletedFiles 清理磁盘上已不存在的文件的记录.
//
// 遍历期间记录可能被其它进程修改，读不到的记录留到下一轮.
func (i *Indexer) LookupDeletedFiles(ctx context.Context) error {
	paths, err := i.records.Keys(ctx)
	if err != nil {
		return err
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		if layout.IsRegularFile(path) {
			continue
		}

		rec, ok, err := i.load(ctx, path)
		if err != nil {
			i.logger.Warn().Err(err).Str("path", path).Msg("cannot read indexed path")
			continue
		}

		if !ok {
			continue
		}

		if rec.IsDicom && !rec.DeletedByHost {
			i.logger.Info().Str("path", path).Msg("a DICOM file has been deleted, abandoning it")

			if err := i.adopter.AbandonFile(ctx, path); err != nil {
				i.logger.Warn().Err(err).Str("path", path).Msg("failed to abandon deleted file")
			}
		} else {
			i.logger.Info().Str("path", path).Msg("a file has been deleted, removing it from the index")
		}

		if err := i.records.Delete(ctx, path); err != nil {
			i.logger.Warn().Err(err).Str("path", path).Msg("failed to remove indexed path")
			continue
		}

		metrics.IndexerFiles.WithLabelValues(resultDeleted).Inc()

		if err := i.throttle(ctx); err != nil {
			return err
		}
	}

	return nil
}
