package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/advstorage/pkg/configs"
)

// Publisher 能够发布 watermill 消息的客户端，internal/storage/mq.Client 实现了它.
type Publisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

// Emitter 按事件配置过滤后发布业务事件.nil Emitter 的所有方法都是空操作.
type Emitter struct {
	pub     Publisher
	enabled map[string]bool
}

// NewEmitter 创建事件发布器；pub 为 nil 或事件总开关关闭时返回 nil.
func NewEmitter(pub Publisher, cfg configs.EventsConfig) *Emitter {
	if pub == nil || !cfg.Enabled {
		return nil
	}

	return &Emitter{
		pub: pub,
		enabled: map[string]bool{
			TopicObjectStored:    cfg.Object.Stored,
			TopicObjectRemoved:   cfg.Object.Removed,
			TopicObjectAdopted:   cfg.Object.Adopted,
			TopicObjectAbandoned: cfg.Object.Abandoned,
			TopicObjectMoved:     cfg.Object.Moved,
			TopicJobFinished:     cfg.Job.Finished,
		},
	}
}

// Enabled 报告主题是否会被发布.
func (e *Emitter) Enabled(topic string) bool {
	return e != nil && e.enabled[topic]
}

func (e *Emitter) ObjectStored(ctx context.Context, p ObjectStoredPayload) error {
	return emit(ctx, e, p)
}

func (e *Emitter) ObjectRemoved(ctx context.Context, p ObjectRemovedPayload) error {
	return emit(ctx, e, p)
}

func (e *Emitter) ObjectAdopted(ctx context.Context, p ObjectAdoptedPayload) error {
	return emit(ctx, e, p)
}

func (e *Emitter) ObjectAbandoned(ctx context.Context, p ObjectAbandonedPayload) error {
	return emit(ctx, e, p)
}

func (e *Emitter) ObjectMoved(ctx context.Context, p ObjectMovedPayload) error {
	return emit(ctx, e, p)
}

func (e *Emitter) JobFinished(ctx context.Context, p JobFinishedPayload) error {
	return emit(ctx, e, p)
}

func emit[T Payload](ctx context.Context, e *Emitter, p T) error {
	if !e.Enabled(p.Topic()) {
		return nil
	}

	msg, err := Marshal(ctx, p)
	if err != nil {
		return err
	}

	return e.pub.Publish(ctx, p.Topic(), msg)
}
