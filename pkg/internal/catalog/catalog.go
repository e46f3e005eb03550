// Package catalog 是宿主资源数据库：保存患者/检查/序列/实例层级和实例附件，
// 附件文件通过存储区读写，附件自定义数据即对象位置记录.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/yeisme/advstorage/pkg/internal/model"
	"github.com/yeisme/advstorage/pkg/internal/ownership"
	"github.com/yeisme/advstorage/pkg/internal/storagearea"
	"github.com/yeisme/advstorage/pkg/layout"
	nlog "github.com/yeisme/advstorage/pkg/log"
	"github.com/yeisme/advstorage/pkg/queue"
)

// ErrNotFound 资源或附件不存在.
var ErrNotFound = errors.New("resource not found")

// Catalog 资源目录.
type Catalog struct {
	db     *gorm.DB
	area   *storagearea.Area
	owners *ownership.Store
	events *queue.Emitter
	logger zerolog.Logger
}

// New 创建资源目录.owners 与 events 可为 nil.
func New(db *gorm.DB, area *storagearea.Area, owners *ownership.Store, events *queue.Emitter, logger zerolog.Logger) *Catalog {
	return &Catalog{
		db:     db,
		area:   area,
		owners: owners,
		events: events,
		logger: nlog.WithComponent(logger, "catalog"),
	}
}

// Migrate 创建或更新表结构.
func (c *Catalog) Migrate(ctx context.Context) error {
	if err := c.db.WithContext(ctx).AutoMigrate(&model.Resource{}, &model.Attachment{}); err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}

	return nil
}

// Area 返回存储区.
func (c *Catalog) Area() *storagearea.Area { return c.area }

// Resource 按层级与标识读取资源.
func (c *Catalog) Resource(ctx context.Context, level layout.ResourceType, id string) (model.Resource, error) {
	var r model.Resource

	err := c.db.WithContext(ctx).Where("public_id = ? AND level = ?", id, int(level)).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r, fmt.Errorf("%w: %s %s", ErrNotFound, level, id)
	}

	return r, err
}

// Instances 返回资源下的全部实例标识，resource 本身是实例时返回自身.
func (c *Catalog) Instances(ctx context.Context, level layout.ResourceType, id string) ([]string, error) {
	if _, err := c.Resource(ctx, level, id); err != nil {
		return nil, err
	}

	ids := []string{id}
	db := c.db.WithContext(ctx)

	for l := level; l < layout.ResourceInstance; l++ {
		var children []string

		if err := db.Model(&model.Resource{}).
			Where("parent_id IN ? AND level = ?", ids, int(l+1)).
			Order("public_id").
			Pluck("public_id", &children).Error; err != nil {
			return nil, err
		}

		ids = children

		if len(ids) == 0 {
			break
		}
	}

	return ids, nil
}

// LookupResource 在所有层级中查找标识，用于只给出标识的请求.
func (c *Catalog) LookupResource(ctx context.Context, id string) (layout.ResourceType, error) {
	var r model.Resource

	err := c.db.WithContext(ctx).Where("public_id = ?", id).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return layout.ResourceNone, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err != nil {
		return layout.ResourceNone, err
	}

	return layout.ResourceType(r.Level), nil
}
