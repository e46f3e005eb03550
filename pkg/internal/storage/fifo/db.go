package fifo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// QueueItem 数据库队列表，id 自增保证先进先出.
type QueueItem struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Queue     string `gorm:"size:128;index:idx_queue_id,priority:1"`
	Value     []byte
	CreatedAt time.Time
}

// TableName 指定表名.
func (QueueItem) TableName() string { return "advst_queue" }

// DBQueue 基于 gorm 的队列.
type DBQueue struct {
	db   *gorm.DB
	name string
}

// NewDBQueue 创建数据库队列，config 为 *gorm.DB.
func NewDBQueue(ctx context.Context, name string, config any) (Queue, error) {
	db, ok := config.(*gorm.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("invalid DB config: a *gorm.DB is required")
	}

	if err := db.WithContext(ctx).AutoMigrate(&QueueItem{}); err != nil {
		return nil, fmt.Errorf("failed to migrate queue table: %w", err)
	}

	return &DBQueue{db: db, name: name}, nil
}

func (q *DBQueue) PushBack(ctx context.Context, value []byte) error {
	item := QueueItem{Queue: q.name, Value: value}
	if err := q.db.WithContext(ctx).Create(&item).Error; err != nil {
		return fmt.Errorf("failed to push: %w", err)
	}

	return nil
}

// PopFront 在事务中读取并删除队首；并发消费者删除失败时重试下一条.
func (q *DBQueue) PopFront(ctx context.Context) ([]byte, error) {
	var value []byte

	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for {
			var item QueueItem

			err := tx.Where("queue = ?", q.name).Order("id").First(&item).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmpty
			}

			if err != nil {
				return err
			}

			res := tx.Where("id = ?", item.ID).Delete(&QueueItem{})
			if res.Error != nil {
				return res.Error
			}

			if res.RowsAffected == 1 {
				value = item.Value
				return nil
			}
		}
	})
	if errors.Is(err, ErrEmpty) {
		return nil, ErrEmpty
	}

	if err != nil {
		return nil, fmt.Errorf("failed to pop: %w", err)
	}

	return value, nil
}

func (q *DBQueue) Size(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.WithContext(ctx).Model(&QueueItem{}).Where("queue = ?", q.name).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to get queue size: %w", err)
	}

	return n, nil
}

// Close 连接由目录数据库持有.
func (q *DBQueue) Close() error { return nil }

func init() {
	RegisterFactory(TypeDB, NewDBQueue)
}
