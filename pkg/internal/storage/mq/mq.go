// Package mq 是事件总线的 watermill 封装，事件由 pkg/queue 编码后经这里发布.
//
// 后端在各自文件的 init 中注册：
//   - gochannel：进程内，默认
//   - nats：可选 JetStream 持久化
//   - redis：pub/sub，不持久化
//
// 用法：
//
//	client, err := mq.Open(ctx, &cfg.MQ, &cfg.Metrics)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	ch, err := client.Subscribe(ctx, queue.TopicObjectStored)
//	for msg := range ch {
//		msg.Ack()
//	}
package mq

import (
	"context"
	"errors"
	"fmt"
	"slices"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/advstorage/pkg/configs"
	nlog "github.com/yeisme/advstorage/pkg/log"
	appmetrics "github.com/yeisme/advstorage/pkg/metrics"
)

// ErrNotInitialized 在 nil Client 上发布或订阅.
var ErrNotInitialized = errors.New("mq: client not initialized")

// Factory 创建一对 Publisher 与 Subscriber.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var factories = map[configs.MQType]Factory{}

// RegisterFactory 注册后端.
func RegisterFactory(t configs.MQType, f Factory) {
	factories[t] = f
}

// GetRegisteredMQTypes 返回编译进二进制的后端，按名称排序.
func GetRegisteredMQTypes() []configs.MQType {
	types := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	slices.Sort(types)

	return types
}

// Client 事件总线客户端.
type Client struct {
	kind       configs.MQType
	publisher  message.Publisher
	subscriber message.Subscriber
}

// Open 按配置创建客户端.指标启用且 mq.common.enable_metrics 为真时，
// 发布与订阅计数注册到应用的 prometheus 注册表.
func Open(ctx context.Context, cfg *configs.MQConfig, metricsCfg *configs.MetricsConfig) (*Client, error) {
	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported mq type %q (compiled: %v)", cfg.Type, GetRegisteredMQTypes())
	}

	mqLog := nlog.Component("mq")

	pub, sub, err := factory(ctx, cfg, NewLoggerAdapter(mqLog))
	if err != nil {
		return nil, fmt.Errorf("init mq %s: %w", cfg.Type, err)
	}

	c := &Client{kind: cfg.Type, publisher: pub, subscriber: sub}

	if metricsCfg != nil && metricsCfg.Enabled && cfg.Common.EnableMetrics {
		builder := metrics.NewPrometheusMetricsBuilder(appmetrics.GetRegistry(), metricsCfg.ServiceName, "mq")

		if c.publisher, err = builder.DecoratePublisher(pub); err != nil {
			return nil, errors.Join(fmt.Errorf("decorate publisher: %w", err), c.Close())
		}

		if c.subscriber, err = builder.DecorateSubscriber(sub); err != nil {
			return nil, errors.Join(fmt.Errorf("decorate subscriber: %w", err), c.Close())
		}
	}

	mqLog.Info().
		Str("type", string(cfg.Type)).
		Bool("remote", cfg.Remote()).
		Bool("metrics", cfg.Common.EnableMetrics).
		Msg("event bus opened")

	return c, nil
}

// Type 返回后端类型.
func (c *Client) Type() configs.MQType { return c.kind }

// Publish 向 topic 发布消息.ctx 只用于取消检查，消息自己的上下文由调用方设置.
func (c *Client) Publish(ctx context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return ErrNotInitialized
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.publisher.Publish(topic, msgs...); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	return nil
}

// Subscribe 订阅 topic，ctx 结束时通道关闭.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, ErrNotInitialized
	}

	return c.subscriber.Subscribe(ctx, topic)
}

// Close 关闭发布者与订阅者.gochannel 的两端是同一个对象，只关闭一次.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}

	var errs []error
	if c.publisher != nil {
		errs = append(errs, c.publisher.Close())
	}

	if c.subscriber != nil && any(c.subscriber) != any(c.publisher) {
		errs = append(errs, c.subscriber.Close())
	}

	return errors.Join(errs...)
}
