// Package context 在请求上下文中传递存储后端与追踪信息.
package context

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/advstorage/pkg/internal/storage"
	dbc "github.com/yeisme/advstorage/pkg/internal/storage/db"
	"github.com/yeisme/advstorage/pkg/internal/storage/fifo"
	kvc "github.com/yeisme/advstorage/pkg/internal/storage/kv"
	mqc "github.com/yeisme/advstorage/pkg/internal/storage/mq"
)

type managerKey struct{}

// WithStorageManager 将 Manager 存储到 context 中.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, mgr)
}

// GetManager 从 context 中获取 Manager，未设置时返回 nil.
func GetManager(ctx context.Context) *storage.Manager {
	mgr, _ := ctx.Value(managerKey{}).(*storage.Manager)
	return mgr
}

// fromManager 在 Manager 缺失时返回零值.
func fromManager[T any](ctx context.Context, get func(*storage.Manager) T) T {
	var zero T

	mgr := GetManager(ctx)
	if mgr == nil {
		return zero
	}

	return get(mgr)
}

// GetDBClient 返回目录数据库客户端.
func GetDBClient(ctx context.Context) *dbc.Client {
	return fromManager(ctx, (*storage.Manager).GetDBClient)
}

// GetMQClient 返回事件总线客户端，未启用事件时为 nil.
func GetMQClient(ctx context.Context) *mqc.Client {
	return fromManager(ctx, (*storage.Manager).GetMQClient)
}

// GetKVClient 返回 KV 客户端.
func GetKVClient(ctx context.Context) *kvc.Client {
	return fromManager(ctx, (*storage.Manager).GetKVClient)
}

// GetQueue 返回延迟删除队列.
func GetQueue(ctx context.Context) fifo.Queue {
	return fromManager(ctx, (*storage.Manager).GetQueue)
}

// WithTraceContext 给 logger 加上 trace_id 与 span_id.
// span 结束后 SpanContext 仍然有效，请求日志在处理完成后记录也能关联.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return logger
	}

	return logger.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
}
