package fifo

import (
	"context"
	"sync"
)

// MemoryQueue 内存队列，进程退出后丢失.
type MemoryQueue struct {
	mu    sync.Mutex
	items [][]byte
}

// NewMemoryQueue 创建内存队列.
func NewMemoryQueue(_ context.Context, _ string, _ any) (Queue, error) {
	return &MemoryQueue{}, nil
}

func (q *MemoryQueue) PushBack(_ context.Context, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)

	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	return nil
}

func (q *MemoryQueue) PopFront(_ context.Context) ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, ErrEmpty
	}

	v := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]

	return v, nil
}

func (q *MemoryQueue) Size(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return int64(len(q.items)), nil
}

func (q *MemoryQueue) Close() error { return nil }

func init() {
	RegisterFactory(TypeMemory, NewMemoryQueue)
}
