package jobs

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid"
	"github.com/rs/zerolog"

	"github.com/yeisme/advstorage/pkg/cache"
	"github.com/yeisme/advstorage/pkg/internal/movejob"
	"github.com/yeisme/advstorage/pkg/internal/storage/kv"
	nlog "github.com/yeisme/advstorage/pkg/log"
	"github.com/yeisme/advstorage/pkg/queue"
	"github.com/yeisme/advstorage/pkg/scheduler"
)

var (
	// ErrJobNotFound 任务不存在.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobActive 任务仍在执行，不能重新提交.
	ErrJobActive = errors.New("job is still active")
)

// Info 任务的对外描述.
type Info struct {
	ID          string         `json:"ID"`
	Type        string         `json:"Type"`
	State       string         `json:"State"`
	Progress    int            `json:"Progress"` // 百分比
	Content     map[string]any `json:"Content"`
	CreatedAt   time.Time      `json:"CreationTime"`
	CompletedAt *time.Time     `json:"CompletionTime,omitempty"`
}

type entry struct {
	id        string
	job       *movejob.Job
	createdAt time.Time

	mu          sync.Mutex
	running     bool
	cancel      context.CancelFunc
	completedAt *time.Time
}

// Runner 在调度器的一次性任务中逐步执行迁移任务.
type Runner struct {
	sched  *scheduler.Scheduler
	events *queue.Emitter
	logger zerolog.Logger

	// history 保存已结束任务的描述，重启后仍可查询
	history *cache.Store[Info]

	mu      sync.RWMutex
	jobs    map[string]*entry
	entropy *ulid.MonotonicEntropy
}

// NewRunner 创建任务执行器.events 可为 nil.
func NewRunner(sched *scheduler.Scheduler, events *queue.Emitter, logger zerolog.Logger) *Runner {
	return &Runner{
		sched:   sched,
		events:  events,
		logger:  nlog.WithComponent(logger, "jobs"),
		jobs:    make(map[string]*entry),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0), //nolint:gosec // 只用于任务 ID
	}
}

// WithHistory 启用任务历史，保留时间由 history 的 TTL 决定.
func (r *Runner) WithHistory(history *cache.Store[Info]) *Runner {
	r.history = history

	return r
}

// Submit 提交迁移任务并立即开始执行，返回任务 ID.
func (r *Runner) Submit(ctx context.Context, job *movejob.Job) (string, error) {
	r.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), r.entropy).String()
	e := &entry{id: id, job: job, createdAt: time.Now()}
	r.jobs[id] = e
	r.mu.Unlock()

	if err := r.schedule(ctx, e); err != nil {
		r.mu.Lock()
		delete(r.jobs, id)
		r.mu.Unlock()

		return "", err
	}

	r.logger.Info().Str("job", id).Str("target", job.TargetStorageID()).Msg("move storage job submitted")

	return id, nil
}

func (r *Runner) schedule(ctx context.Context, e *entry) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	e.mu.Lock()
	e.running = true
	e.cancel = cancel
	e.completedAt = nil
	e.mu.Unlock()

	_, err := r.sched.AddOneTime(JobMoveStoragePrefix+e.id, func(ctx context.Context) {
		r.drive(ctx, e)
	}, runCtx, TagMoveStorage)
	if err != nil {
		cancel()

		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}

	return err
}

// drive 反复调用 Step 直到任务结束或被取消.
func (r *Runner) drive(ctx context.Context, e *entry) {
	result := movejob.StepContinue

	for result == movejob.StepContinue {
		if ctx.Err() != nil {
			e.job.Stop("canceled")
			break
		}

		result = e.job.Step(ctx)
	}

	now := time.Now()

	e.mu.Lock()
	e.running = false
	e.completedAt = &now

	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()

	state := e.job.State()
	r.logger.Info().Str("job", e.id).Str("state", state.String()).Msg("move storage job finished")

	if r.history != nil {
		if err := r.history.Put(context.WithoutCancel(ctx), e.id, e.info()); err != nil {
			r.logger.Warn().Err(err).Str("job", e.id).Msg("failed to record job history")
		}
	}

	if err := r.events.JobFinished(context.WithoutCancel(ctx), queue.JobFinishedPayload{
		JobID:    e.id,
		Type:     movejob.JobType,
		State:    state.String(),
		Progress: e.job.Progress(),
		Error:    e.job.ErrorDetails(),
	}); err != nil {
		r.logger.Warn().Err(err).Msg("failed to publish job finished event")
	}
}

// Get 返回任务描述.本进程中没有的任务再到历史中查找.
func (r *Runner) Get(ctx context.Context, id string) (Info, error) {
	r.mu.RLock()
	e, ok := r.jobs[id]
	r.mu.RUnlock()

	if ok {
		return e.info(), nil
	}

	if r.history != nil {
		info, err := r.history.Get(ctx, id)
		if err == nil {
			return info, nil
		}

		if !errors.Is(err, kv.ErrKeyNotFound) {
			return Info{}, err
		}
	}

	return Info{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
}

// List 按提交时间返回全部任务，包括历史中的任务.
func (r *Runner) List(ctx context.Context) ([]Info, error) {
	r.mu.RLock()
	out := make([]Info, 0, len(r.jobs))
	for _, e := range r.jobs {
		out = append(out, e.info())
	}
	r.mu.RUnlock()

	if r.history != nil {
		past, err := r.history.All(ctx)
		if err != nil {
			return nil, err
		}

		for id, info := range past {
			if !r.known(id) {
				out = append(out, info)
			}
		}
	}

	// ULID 按时间有序
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *Runner) known(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.jobs[id]

	return ok
}

// Cancel 停止任务，已结束的任务不受影响.
func (r *Runner) Cancel(id string) error {
	r.mu.RLock()
	e, ok := r.jobs[id]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	e.job.Stop("user request")

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()

	return nil
}

// Resubmit 从头重新执行失败或已停止的任务.
func (r *Runner) Resubmit(ctx context.Context, id string) error {
	r.mu.RLock()
	e, ok := r.jobs[id]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	e.mu.Lock()
	running := e.running
	e.mu.Unlock()

	if running {
		return fmt.Errorf("%w: %s", ErrJobActive, id)
	}

	e.job.Reset()

	return r.schedule(ctx, e)
}

// Wait 等待任务结束，主要用于测试与命令行.
func (r *Runner) Wait(ctx context.Context, id string) (Info, error) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		info, err := r.Get(ctx, id)
		if err != nil {
			return info, err
		}

		if info.CompletedAt != nil {
			return info, nil
		}

		select {
		case <-ctx.Done():
			return info, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *entry) info() Info {
	e.mu.Lock()
	completed := e.completedAt
	e.mu.Unlock()

	return Info{
		ID:          e.id,
		Type:        movejob.JobType,
		State:       e.job.State().String(),
		Progress:    int(e.job.Progress() * 100),
		Content:     e.job.Content(),
		CreatedAt:   e.createdAt,
		CompletedAt: completed,
	}
}
