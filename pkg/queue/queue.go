// Package queue 发布存储区事件，供审计、同步等下游异步消费.
//
// 每条消息是 Message[T]：Header 加具体负载，sonic 编码为 JSON：
//
//	{
//	  "header": {"id": "01J...", "topic": "advst.object.stored", "producer": "advstorage",
//	             "host": "pacs-1", "occurred_at": "2025-01-02T03:04:05.123456Z", "version": "v1"},
//	  "payload": {"object": {"uuid": "...", "content_type": "dicom", "path": "..."}}
//	}
//
// 主题见 topics.go，负载见 payloads.go，发布入口是 Emitter（events.go）.
// 订阅方用 Unmarshal 解出负载：
//
//	ch, _ := mqClient.Subscribe(ctx, queue.TopicObjectStored)
//	for m := range ch {
//		env, err := queue.Unmarshal[queue.ObjectStoredPayload](m)
//		// ...
//		m.Ack()
//	}
//
// id 是 ULID，按时间有序，可以直接用于去重与排序.gochannel 后端只在进程内投递，跨进程消费需要 nats 或 redis.
package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/trace"
)

// Version 当前负载版本，不兼容的变更需要提升.
const Version = "v1"

// Producer 事件头中的生产者名称.
const Producer = "advstorage"

var (
	// ErrUnsupportedVersion 负载版本不是 Version.
	ErrUnsupportedVersion = errors.New("queue: unsupported payload version")
	// ErrTopicMismatch 解码的负载类型与消息主题不一致.
	ErrTopicMismatch = errors.New("queue: topic mismatch")
)

var hostname, _ = os.Hostname()

// Header 所有事件共用的头部.
type Header struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	TraceID    string    `json:"trace_id,omitempty"`
	Producer   string    `json:"producer"`
	Host       string    `json:"host,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Version    string    `json:"version"`
}

// Message 事件信封.
type Message[T Payload] struct {
	Header  Header `json:"header"`
	Payload T      `json:"payload"`
}

// Marshal 把负载编码为 watermill 消息.消息 UUID 与 Header.ID 相同，头部字段同时写入元数据，
// 不解码负载也能按主题或 trace_id 路由.
func Marshal[T Payload](ctx context.Context, payload T) (*message.Message, error) {
	hdr := Header{
		ID:         watermill.NewULID(),
		Topic:      payload.Topic(),
		Producer:   Producer,
		Host:       hostname,
		OccurredAt: time.Now().UTC(),
		Version:    Version,
	}

	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		hdr.TraceID = sc.TraceID().String()
	}

	data, err := sonic.Marshal(Message[T]{Header: hdr, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", hdr.Topic, err)
	}

	msg := message.NewMessage(hdr.ID, data)
	msg.SetContext(ctx)

	for k, v := range map[string]string{
		"topic":       hdr.Topic,
		"trace_id":    hdr.TraceID,
		"producer":    hdr.Producer,
		"host":        hdr.Host,
		"occurred_at": hdr.OccurredAt.Format(time.RFC3339Nano),
		"version":     hdr.Version,
	} {
		if v != "" {
			msg.Metadata.Set(k, v)
		}
	}

	return msg, nil
}

// Unmarshal 解出负载，并确认版本与主题和 T 对应.
func Unmarshal[T Payload](msg *message.Message) (Message[T], error) {
	var m Message[T]
	if err := sonic.Unmarshal(msg.Payload, &m); err != nil {
		return m, fmt.Errorf("decode message %s: %w", msg.UUID, err)
	}

	if m.Header.Version != Version {
		return m, fmt.Errorf("%w: %q", ErrUnsupportedVersion, m.Header.Version)
	}

	var zero T
	if m.Header.Topic != zero.Topic() {
		return m, fmt.Errorf("%w: %s is not %s", ErrTopicMismatch, m.Header.Topic, zero.Topic())
	}

	return m, nil
}
