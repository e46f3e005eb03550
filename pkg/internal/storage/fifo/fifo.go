// Package fifo 提供持久化的先进先出队列，延迟删除器用它保存待删除的文件路径.
package fifo

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrEmpty 队列为空.
var ErrEmpty = errors.New("queue is empty")

// Queue 先进先出队列.
type Queue interface {
	// PushBack 追加到队尾.
	PushBack(ctx context.Context, value []byte) error
	// PopFront 取出队首，队列为空时返回 ErrEmpty.
	PopFront(ctx context.Context) ([]byte, error)
	// Size 返回队列长度.
	Size(ctx context.Context) (int64, error)
	// Close 释放连接.
	Close() error
}

// Type 队列后端类型.
type Type string

const (
	TypeMemory Type = "memory"
	TypeRedis  Type = "redis"
	TypeDB     Type = "db"
)

// Factory 创建队列，name 用于区分同一后端上的多个队列.
type Factory func(ctx context.Context, name string, config any) (Queue, error)

var factories = make(map[Type]Factory)

// RegisterFactory 注册队列工厂.
func RegisterFactory(t Type, f Factory) {
	factories[t] = f
}

// GetRegisteredTypes 返回已注册的后端类型.
func GetRegisteredTypes() []Type {
	types := make([]Type, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// New 按类型创建队列.
func New(ctx context.Context, t Type, name string, config any) (Queue, error) {
	f, ok := factories[t]
	if !ok {
		return nil, fmt.Errorf("unsupported queue type: %s", t)
	}

	return f(ctx, name, config)
}
