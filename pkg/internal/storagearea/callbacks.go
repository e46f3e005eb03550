package storagearea

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/advstorage/pkg/layout"
	"github.com/yeisme/advstorage/pkg/metrics"
	"github.com/yeisme/advstorage/pkg/queue"
	"github.com/yeisme/advstorage/pkg/tracing"
)

// 删除方式，用于指标和事件.
const (
	RemoveImmediate = "immediate"
	RemoveDelayed   = "delayed"
	RemoveSkipped   = "skipped"
)

// Create 写入新附件，返回需要由宿主保存的自定义数据（可能为空）.
func (a *Area) Create(ctx context.Context, id string, data []byte, ct layout.ContentType,
	compression layout.CompressionType, tags layout.Tags,
) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, "storagearea.create")
	defer span.End()

	span.SetAttributes(attribute.String("advst.uuid", id), attribute.String("advst.content_type", ct.String()))

	rel, err := a.reg.RelativePathFor(tags, id, ct, compression != layout.CompressionNone)
	if err != nil {
		return nil, fail(span, err)
	}

	rec, err := layout.CreateForWriting(a.reg, id, rel)
	if err != nil {
		return nil, fail(span, err)
	}

	if reason := rec.Fallback(); reason != "" {
		metrics.PathFallbacks.WithLabelValues(reason).Inc()
	}

	path, err := rec.AbsolutePath(a.reg)
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.String("advst.path", path))

	if _, err := os.Lstat(path); err == nil {
		return nil, fail(span, fmt.Errorf("%w: %s", ErrAlreadyExists, path))
	}

	customData, err := rec.Marshal(a.reg)
	if err != nil {
		return nil, fail(span, err)
	}

	a.logger.Info().
		Str("uuid", id).
		Int("type", int(ct)).
		Str("path", path).
		Msg("creating attachment")

	if err := layout.EnsureDirectory(filepath.Dir(path)); err != nil {
		if errors.Is(err, layout.ErrNotADirectory) {
			return nil, fail(span, fmt.Errorf("%w: %s", ErrDirectoryOverFile, filepath.Dir(path)))
		}

		return nil, fail(span, fmt.Errorf("%w: %w", ErrCannotWrite, err))
	}

	if err := writeFile(path, data, a.sync); err != nil {
		return nil, fail(span, err)
	}

	metrics.ObjectsCreated.Inc()

	if err := a.events.ObjectStored(ctx, queue.ObjectStoredPayload{
		Object: queue.ObjectRef{
			UUID:        id,
			ContentType: ct.String(),
			StorageID:   rec.StorageID(),
			Path:        path,
			Size:        int64(len(data)),
		},
		Fallback: rec.Fallback(),
	}); err != nil {
		a.logger.Warn().Err(err).Str("uuid", id).Msg("failed to publish stored event")
	}

	return customData, nil
}

// writeFile 以 O_EXCL 创建文件，失败时删除残留.
func writeFile(path string, data []byte, doSync bool) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
		}

		return fmt.Errorf("%w: %w", ErrCannotWrite, err)
	}

	_, err = f.Write(data)
	if err == nil && doSync {
		err = f.Sync()
	}

	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		_ = os.Remove(path)

		return fmt.Errorf("%w: %w", ErrCannotWrite, err)
	}

	return nil
}

// ReadRange 从 start 开始读满 buf.
func (a *Area) ReadRange(ctx context.Context, id string, ct layout.ContentType, metadata []byte,
	start int64, buf []byte,
) error {
	_, span := tracing.StartSpan(ctx, "storagearea.read_range")
	defer span.End()

	path, err := a.resolve(id, metadata)
	if err != nil {
		return fail(span, err)
	}

	a.logger.Debug().Str("uuid", id).Int("type", int(ct)).Str("path", path).Int64("start", start).Msg("reading range")

	if !layout.IsRegularFile(path) {
		return fail(span, fmt.Errorf("%w: %s", ErrInexistentFile, path))
	}

	f, err := os.Open(path)
	if err != nil {
		return fail(span, fmt.Errorf("%w: %w", ErrInexistentFile, err))
	}
	defer f.Close()

	n, err := f.ReadAt(buf, start)
	if n < len(buf) {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		return fail(span, fmt.Errorf("read %s at %d: %w", path, start, err))
	}

	return nil
}

// ReadWhole 读取整个附件.
func (a *Area) ReadWhole(ctx context.Context, id string, ct layout.ContentType, metadata []byte) ([]byte, error) {
	_, span := tracing.StartSpan(ctx, "storagearea.read_whole")
	defer span.End()

	path, err := a.resolve(id, metadata)
	if err != nil {
		return nil, fail(span, err)
	}

	a.logger.Debug().Str("uuid", id).Int("type", int(ct)).Str("path", path).Msg("reading whole attachment")

	if !layout.IsRegularFile(path) {
		return nil, fail(span, fmt.Errorf("%w: %s", ErrInexistentFile, path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fail(span, fmt.Errorf("%w: %w", ErrInexistentFile, err))
	}

	return data, nil
}

// Remove 删除附件.
//
// 不属于宿主的文件永远不会被删除，只清理归属记录并通知索引器.
// 物理删除的错误只记录日志，只有记录解析失败才返回错误.
func (a *Area) Remove(ctx context.Context, id string, ct layout.ContentType, metadata []byte) error {
	ctx, span := tracing.StartSpan(ctx, "storagearea.remove")
	defer span.End()

	rec, err := layout.ParseRecord(id, metadata)
	if err != nil {
		return fail(span, err)
	}

	path, err := rec.AbsolutePath(a.reg)
	if err != nil {
		return fail(span, err)
	}

	log := a.logger.With().Str("uuid", id).Int("type", int(ct)).Str("path", path).Logger()

	if !rec.IsOwner() || rec.HasAbsolutePath() {
		a.Forget(ctx, path)
	}

	mode := RemoveImmediate

	switch {
	case !rec.IsOwner():
		mode = RemoveSkipped

		log.Info().Msg("not deleting attachment since the file is not owned")
	case a.Deleter() != nil:
		mode = RemoveDelayed

		if err := a.Deleter().ScheduleFileDeletion(ctx, path); err != nil {
			log.Error().Err(err).Msg("failed to schedule file deletion")
		}
	default:
		log.Info().Msg("deleting attachment")

		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Msg("failed to delete file")
		}

		layout.RemoveEmptyParentDirectories(a.reg, path)
	}

	metrics.ObjectsRemoved.WithLabelValues(mode).Inc()

	if err := a.events.ObjectRemoved(ctx, queue.ObjectRemovedPayload{
		Object: queue.ObjectRef{
			UUID:        id,
			ContentType: ct.String(),
			StorageID:   rec.StorageID(),
			Path:        path,
		},
		Mode: mode,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to publish removed event")
	}

	return nil
}

// Forget 清理采纳文件的归属记录，并告诉索引器这是宿主主动删除的.
func (a *Area) Forget(ctx context.Context, path string) {
	if a.owners != nil {
		if err := a.owners.Delete(ctx, path); err != nil {
			a.logger.Warn().Err(err).Str("path", path).Msg("failed to drop path owner")
		}
	}

	if idx := a.Indexer(); idx != nil {
		if err := idx.MarkAsDeletedByHost(ctx, path); err != nil {
			a.logger.Warn().Err(err).Str("path", path).Msg("failed to notify indexer")
		}
	}
}

// PathOf 解析附件的绝对路径.
func (a *Area) PathOf(id string, metadata []byte) (string, error) {
	return a.resolve(id, metadata)
}

func (a *Area) resolve(id string, metadata []byte) (string, error) {
	rec, err := layout.ParseRecord(id, metadata)
	if err != nil {
		return "", err
	}

	return rec.AbsolutePath(a.reg)
}

func fail(span trace.Span, err error) error {
	tracing.RecordError(span, err)

	return err
}
