package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yeisme/advstorage/pkg/internal/model"
	"github.com/yeisme/advstorage/pkg/layout"
	"github.com/yeisme/advstorage/pkg/tracing"
)

// DeleteResource 删除资源及其下的全部实例，随后删除附件文件.
//
// 数据库先删除，文件删除是尽力而为的；上级资源没有子节点时一并删除.
func (c *Catalog) DeleteResource(ctx context.Context, level layout.ResourceType, id string) error {
	ctx, span := tracing.StartSpan(ctx, "catalog.deleteResource")
	defer span.End()

	atts, err := c.deleteRows(ctx, level, id)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}

	var errs []error

	for _, att := range atts {
		if err := c.area.Remove(ctx, att.UUID, layout.ContentType(att.ContentType), att.CustomData); err != nil {
			errs = append(errs, err)
		}
	}

	err = errors.Join(errs...)
	tracing.RecordError(span, err)

	return err
}

// deleteRows 在事务中删除资源树和附件行，返回被删除的附件.
func (c *Catalog) deleteRows(ctx context.Context, level layout.ResourceType, id string) ([]model.Attachment, error) {
	res, err := c.Resource(ctx, level, id)
	if err != nil {
		return nil, err
	}

	instances, err := c.Instances(ctx, level, id)
	if err != nil {
		return nil, err
	}

	var atts []model.Attachment

	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(instances) > 0 {
			if err := tx.Where("instance_id IN ?", instances).Find(&atts).Error; err != nil {
				return err
			}

			if err := tx.Where("instance_id IN ?", instances).Delete(&model.Attachment{}).Error; err != nil {
				return err
			}
		}

		if err := deleteSubtree(tx, id); err != nil {
			return err
		}

		return pruneAncestors(tx, res.ParentID)
	})

	return atts, err
}

// deleteSubtree 删除资源及其所有后代.
func deleteSubtree(tx *gorm.DB, id string) error {
	ids := []string{id}

	for len(ids) > 0 {
		var children []string
		if err := tx.Model(&model.Resource{}).Where("parent_id IN ?", ids).Pluck("public_id", &children).Error; err != nil {
			return err
		}

		if err := tx.Where("public_id IN ?", ids).Delete(&model.Resource{}).Error; err != nil {
			return err
		}

		ids = children
	}

	return nil
}

// pruneAncestors 自下而上删除没有子节点的上级资源.
func pruneAncestors(tx *gorm.DB, parentID string) error {
	for parentID != "" {
		var count int64
		if err := tx.Model(&model.Resource{}).Where("parent_id = ?", parentID).Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			return nil
		}

		var parent model.Resource

		err := tx.Where("public_id = ?", parentID).Take(&parent).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}

		if err != nil {
			return err
		}

		if err := tx.Delete(&parent).Error; err != nil {
			return err
		}

		parentID = parent.ParentID
	}

	return nil
}
