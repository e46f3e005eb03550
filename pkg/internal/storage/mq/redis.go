package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/yeisme/advstorage/pkg/configs"
)

// subscriberBuffer 每个订阅的缓冲消息数.
const subscriberBuffer = 100

var errSubscriberClosed = errors.New("subscriber closed")

// redisEnvelope pub/sub 只传字节，UUID 与元数据（topic、trace_id 等）一起编码.
type redisEnvelope struct {
	UUID     string            `json:"uuid"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Payload  []byte            `json:"payload"`
}

func encodeEnvelope(msg *message.Message) ([]byte, error) {
	return sonic.Marshal(redisEnvelope{UUID: msg.UUID, Metadata: msg.Metadata, Payload: msg.Payload})
}

// decodeEnvelope 无法解析时把原始内容当作负载，兼容其他进程直接 PUBLISH 的消息.
func decodeEnvelope(raw string) *message.Message {
	var env redisEnvelope
	if err := sonic.UnmarshalString(raw, &env); err != nil || env.UUID == "" {
		return message.NewMessage(watermill.NewUUID(), []byte(raw))
	}

	msg := message.NewMessage(env.UUID, env.Payload)
	for k, v := range env.Metadata {
		msg.Metadata.Set(k, v)
	}

	return msg
}

// RedisPublisher 通过 PUBLISH 发送事件.
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

// RedisSubscriber 每次 Subscribe 建立独立的 PubSub.
type RedisSubscriber struct {
	client *redis.Client
	prefix string
	logger watermill.LoggerAdapter

	mu      sync.Mutex
	subs    []*redis.PubSub
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

func init() {
	RegisterFactory(configs.MQTypeRedis, redisFactory)
}

func redisFactory(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error,
) {
	rdb := redis.NewClient(&redis.Options{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		ClientName: cfg.Common.ClientID,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect to Redis %s: %w", cfg.Redis.Addr, err)
	}

	logger.Info("redis pub/sub connected", watermill.LogFields{"addr": cfg.Redis.Addr})

	pub := &RedisPublisher{client: rdb, prefix: cfg.Redis.ChannelPrefix}
	sub := &RedisSubscriber{
		client:  rdb,
		prefix:  cfg.Redis.ChannelPrefix,
		logger:  logger,
		closeCh: make(chan struct{}),
	}

	return pub, sub, nil
}

// Publish 实现 message.Publisher.
func (p *RedisPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		data, err := encodeEnvelope(msg)
		if err != nil {
			return fmt.Errorf("encode message %s: %w", msg.UUID, err)
		}

		if err := p.client.Publish(msg.Context(), p.prefix+topic, data).Err(); err != nil {
			return fmt.Errorf("publish to %s: %w", topic, err)
		}
	}

	return nil
}

// Close 关闭共享的 redis 客户端，需在订阅者关闭之后调用.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Subscribe 实现 message.Subscriber.消息投递后不等待 Ack，pub/sub 没有重投机制.
func (s *RedisSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errSubscriberClosed
	}

	ps := s.client.Subscribe(ctx, s.prefix+topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	s.subs = append(s.subs, ps)

	out := make(chan *message.Message, subscriberBuffer)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer close(out)

		in := ps.Channel()

		for {
			select {
			case <-s.closeCh:
				return
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok {
					return
				}

				msg := decodeEnvelope(m.Payload)
				msg.SetContext(ctx)

				select {
				case out <- msg:
				case <-s.closeCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	s.logger.Debug("redis subscription started", watermill.LogFields{"topic": topic})

	return out, nil
}

// Close 关闭全部订阅并等待转发协程退出.客户端由 publisher 关闭.
func (s *RedisSubscriber) Close() error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	close(s.closeCh)

	var errs []error
	for _, ps := range s.subs {
		errs = append(errs, ps.Close())
	}

	s.mu.Unlock()

	s.wg.Wait()

	return errors.Join(errs...)
}
