package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yeisme/advstorage/pkg/internal/model"
	"github.com/yeisme/advstorage/pkg/internal/movejob"
	"github.com/yeisme/advstorage/pkg/layout"
)

// AttachmentInfo 附件信息，附带存储布局相关字段.
type AttachmentInfo struct {
	UUID            string `json:"Uuid"`
	ContentType     int    `json:"ContentType"`
	Size            int64  `json:"CompressedSize"`
	CompressionType int    `json:"CompressionType"`
	Path            string `json:"Path"`
	IsOwnedByHost   bool   `json:"IsOwnedByHost"`
	IsIndexed       bool   `json:"IsIndexed"`
	StorageID       string `json:"StorageId,omitempty"`
}

func (c *Catalog) attachment(ctx context.Context, instanceID string, ct layout.ContentType) (model.Attachment, error) {
	var att model.Attachment

	err := c.db.WithContext(ctx).
		Where("instance_id = ? AND content_type = ?", instanceID, int(ct)).
		Take(&att).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return att, fmt.Errorf("%w: attachment %s of %s", ErrNotFound, ct, instanceID)
	}

	return att, err
}

// ListAttachments 列出实例的附件.
func (c *Catalog) ListAttachments(ctx context.Context, instanceID string) ([]movejob.Attachment, error) {
	if _, err := c.Resource(ctx, layout.ResourceInstance, instanceID); err != nil {
		return nil, err
	}

	var rows []model.Attachment
	if err := c.db.WithContext(ctx).Where("instance_id = ?", instanceID).Order("content_type").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]movejob.Attachment, 0, len(rows))
	for _, r := range rows {
		out = append(out, movejob.Attachment{UUID: r.UUID, ContentType: layout.ContentType(r.ContentType), Metadata: r.CustomData})
	}

	return out, nil
}

// UpdateAttachmentMetadata 更新附件的位置记录.
func (c *Catalog) UpdateAttachmentMetadata(ctx context.Context, attachmentUUID string, metadata []byte) error {
	res := c.db.WithContext(ctx).Model(&model.Attachment{}).
		Where("uuid = ?", attachmentUUID).
		Update("custom_data", metadata)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: attachment %s", ErrNotFound, attachmentUUID)
	}

	return nil
}

// ReadAttachment 读取附件内容.
func (c *Catalog) ReadAttachment(ctx context.Context, instanceID string, ct layout.ContentType) ([]byte, error) {
	att, err := c.attachment(ctx, instanceID, ct)
	if err != nil {
		return nil, err
	}

	return c.area.ReadWhole(ctx, att.UUID, ct, att.CustomData)
}

// ReadAttachmentRange 读取附件从 start 开始的 length 字节.区间由调用方按 AttachmentSize 校验.
func (c *Catalog) ReadAttachmentRange(ctx context.Context, instanceID string, ct layout.ContentType,
	start, length int64,
) ([]byte, error) {
	att, err := c.attachment(ctx, instanceID, ct)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, length)
	if err := c.area.ReadRange(ctx, att.UUID, ct, att.CustomData, start, buf); err != nil {
		return nil, err
	}

	return buf, nil
}

// AttachmentSize 返回附件入库时的大小.
func (c *Catalog) AttachmentSize(ctx context.Context, instanceID string, ct layout.ContentType) (int64, error) {
	att, err := c.attachment(ctx, instanceID, ct)
	if err != nil {
		return 0, err
	}

	return att.Size, nil
}

// AttachmentInfo 返回附件信息，包括实际路径、是否由宿主拥有、是否被索引器记录.
func (c *Catalog) AttachmentInfo(ctx context.Context, instanceID string, ct layout.ContentType) (AttachmentInfo, error) {
	att, err := c.attachment(ctx, instanceID, ct)
	if err != nil {
		return AttachmentInfo{}, err
	}

	info := AttachmentInfo{
		UUID:            att.UUID,
		ContentType:     att.ContentType,
		Size:            att.Size,
		CompressionType: att.Compression,
	}

	rec, err := layout.ParseRecord(att.UUID, att.CustomData)
	if err != nil {
		return info, err
	}

	if info.Path, err = rec.AbsolutePath(c.area.Registry()); err != nil {
		return info, err
	}

	info.IsOwnedByHost = rec.IsOwner()
	info.StorageID = rec.StorageID()

	if idx := c.area.Indexer(); idx != nil {
		if info.IsIndexed, err = idx.IsFileIndexed(ctx, info.Path); err != nil {
			c.logger.Warn().Err(err).Str("path", info.Path).Msg("cannot query indexer")
		}
	}

	return info, nil
}

// DeleteAttachment 删除单个附件.DICOM 附件不能单独删除，需删除实例.
func (c *Catalog) DeleteAttachment(ctx context.Context, instanceID string, ct layout.ContentType) error {
	if ct == layout.ContentDicom {
		return c.DeleteResource(ctx, layout.ResourceInstance, instanceID)
	}

	att, err := c.attachment(ctx, instanceID, ct)
	if err != nil {
		return err
	}

	if err := c.db.WithContext(ctx).Delete(&model.Attachment{}, "uuid = ?", att.UUID).Error; err != nil {
		return err
	}

	return c.area.Remove(ctx, att.UUID, ct, att.CustomData)
}
