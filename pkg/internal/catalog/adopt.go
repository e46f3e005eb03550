package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yeisme/advstorage/pkg/internal/ownership"
	"github.com/yeisme/advstorage/pkg/layout"
	"github.com/yeisme/advstorage/pkg/queue"
	"github.com/yeisme/advstorage/pkg/tracing"
)

// 采纳来源，写入事件.
const (
	SourceIndexer = "indexer"
	SourceRest    = "rest"
)

type sourceKey struct{}

// WithSource 标记调用来源.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceOf(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok {
		return s
	}

	return SourceIndexer
}

// AdoptFile 采纳存储区之外的 DICOM 文件：实例入库但文件保留在原处.
//
// takeOwnership 为 true 时宿主删除该实例会同时删除文件.
func (c *Catalog) AdoptFile(ctx context.Context, path string, takeOwnership bool) (layout.AdoptResult, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.adoptFile")
	defer span.End()

	failure := layout.AdoptResult{Status: layout.StoreFailure}

	if !filepath.IsAbs(path) {
		return failure, fmt.Errorf("path must be absolute: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return failure, err
	}

	tags, err := ParseTags(data)
	if err != nil {
		return failure, err
	}

	res, err := c.store(ctx, tags, data, &adoption{path: path, take: takeOwnership})
	if err != nil || res.Status != layout.StoreSuccess {
		return res, err
	}

	if c.owners != nil {
		owner := layout.NewPathOwner(res.InstanceID, layout.ResourceInstance, layout.ContentDicom)
		if err := c.owners.Put(ctx, path, owner); err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("failed to record path owner")
		}
	}

	if err := c.events.ObjectAdopted(ctx, queue.ObjectAdoptedPayload{
		Object: queue.ObjectRef{
			UUID:        res.AttachmentUUID,
			ContentType: layout.ContentDicom.String(),
			Path:        path,
			Size:        int64(len(data)),
		},
		InstanceID:    res.InstanceID,
		TakeOwnership: takeOwnership,
		Source:        sourceOf(ctx),
	}); err != nil {
		c.logger.Warn().Err(err).Msg("failed to publish adopted event")
	}

	return res, nil
}

// AbandonFile 放弃采纳的文件：删除对应的宿主资源，文件本身保留.
func (c *Catalog) AbandonFile(ctx context.Context, path string) error {
	ctx, span := tracing.StartSpan(ctx, "catalog.abandonFile")
	defer span.End()

	if c.owners == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	owner, err := c.owners.Get(ctx, path)
	if errors.Is(err, ownership.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	if err != nil {
		return err
	}

	url, _ := owner.URLForDeletion()
	c.logger.Info().Str("path", path).Str("resource", url).Msg("abandoning file")

	if owner.ContentType == layout.ContentDicom {
		_, err = c.deleteRows(ctx, owner.ResourceType, owner.ResourceID)
	} else {
		err = c.forgetAttachment(ctx, owner.ResourceID, owner.ContentType)
	}

	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	c.area.Forget(ctx, path)

	if err := c.events.ObjectAbandoned(ctx, queue.ObjectAbandonedPayload{
		Path:       path,
		InstanceID: owner.ResourceID,
		Source:     sourceOf(ctx),
	}); err != nil {
		c.logger.Warn().Err(err).Msg("failed to publish abandoned event")
	}

	return nil
}

// forgetAttachment 只删除附件行，不触碰文件.
func (c *Catalog) forgetAttachment(ctx context.Context, instanceID string, ct layout.ContentType) error {
	att, err := c.attachment(ctx, instanceID, ct)
	if err != nil {
		return err
	}

	return c.db.WithContext(ctx).Delete(&att).Error
}
