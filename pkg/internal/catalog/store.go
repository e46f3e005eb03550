package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/advstorage/pkg/internal/model"
	"github.com/yeisme/advstorage/pkg/layout"
	"github.com/yeisme/advstorage/pkg/tracing"
)

// adoption 采纳外部文件时的附加信息.
type adoption struct {
	path string
	take bool
}

// StoreInstance 接收上传的 DICOM 实例，文件写入存储区.
func (c *Catalog) StoreInstance(ctx context.Context, data []byte) (layout.AdoptResult, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.storeInstance")
	defer span.End()

	tags, err := ParseTags(data)
	if err != nil {
		tracing.RecordError(span, err)
		return layout.AdoptResult{Status: layout.StoreFailure}, err
	}

	res, err := c.store(ctx, tags, data, nil)
	tracing.RecordError(span, err)

	return res, err
}

func (c *Catalog) store(ctx context.Context, tags layout.Tags, data []byte, adopt *adoption) (layout.AdoptResult, error) {
	h := layout.NewInstanceHasher(tags)
	instanceID := h.HashInstance()
	res := layout.AdoptResult{InstanceID: instanceID, Status: layout.StoreFailure}

	existing, err := c.attachment(ctx, instanceID, layout.ContentDicom)

	switch {
	case err == nil && !c.area.Registry().OverwriteInstances():
		res.AttachmentUUID = existing.UUID
		res.Status = layout.StoreAlreadyStored

		return res, nil
	case err == nil:
		if err := c.DeleteResource(ctx, layout.ResourceInstance, instanceID); err != nil {
			return res, fmt.Errorf("overwrite instance %s: %w", instanceID, err)
		}
	case !errors.Is(err, ErrNotFound):
		return res, err
	}

	attUUID := uuid.NewString()

	var metadata []byte

	if adopt != nil {
		metadata, err = layout.CreateForAdoption(adopt.path, adopt.take).Marshal(c.area.Registry())
	} else {
		metadata, err = c.area.Create(ctx, attUUID, data, layout.ContentDicom, layout.CompressionNone, tags)
	}

	if err != nil {
		return res, err
	}

	att := model.Attachment{
		UUID:        attUUID,
		InstanceID:  instanceID,
		ContentType: int(layout.ContentDicom),
		Size:        int64(len(data)),
		Compression: int(layout.CompressionNone),
		CustomData:  metadata,
	}

	if err := c.insert(ctx, h, tags, &att); err != nil {
		if adopt == nil {
			// 数据库写入失败时回收刚写的文件
			if rerr := c.area.Remove(ctx, attUUID, layout.ContentDicom, metadata); rerr != nil {
				c.logger.Warn().Err(rerr).Str("uuid", attUUID).Msg("failed to roll back stored file")
			}
		}

		return res, err
	}

	res.AttachmentUUID = attUUID
	res.Status = layout.StoreSuccess

	c.logger.Debug().Str("instance", instanceID).Str("uuid", attUUID).Msg("instance stored")

	return res, nil
}

// insert 在一个事务中写入缺失的上级资源、实例和附件.
func (c *Catalog) insert(ctx context.Context, h layout.InstanceHasher, tags layout.Tags, att *model.Attachment) error {
	tagsJSON, err := sonic.MarshalString(tags)
	if err != nil {
		return err
	}

	chain := []model.Resource{
		{PublicID: h.HashPatient(), Level: int(layout.ResourcePatient), TagsJSON: tagsJSON},
		{PublicID: h.HashStudy(), Level: int(layout.ResourceStudy), ParentID: h.HashPatient(), TagsJSON: tagsJSON},
		{PublicID: h.HashSeries(), Level: int(layout.ResourceSeries), ParentID: h.HashStudy(), TagsJSON: tagsJSON},
		{PublicID: h.HashInstance(), Level: int(layout.ResourceInstance), ParentID: h.HashSeries(), TagsJSON: tagsJSON},
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range chain {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&chain[i]).Error; err != nil {
				return fmt.Errorf("insert %s: %w", layout.ResourceType(chain[i].Level), err)
			}
		}

		if err := tx.Create(att).Error; err != nil {
			return fmt.Errorf("insert attachment: %w", err)
		}

		return nil
	})
}
