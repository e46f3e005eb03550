// Package scheduler 包装 gocron/v2：命名的周期维护任务带状态跟踪，迁移任务以一次性任务执行.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yeisme/advstorage/pkg/log"
)

// refreshInterval 刷新 NextRun/LastRun 的间隔.
const refreshInterval = 10 * time.Second

// JobStatus 周期任务的状态.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled"
	StatusRunning   JobStatus = "running"
	StatusError     JobStatus = "error"
)

// JobInfo 周期任务的可视化信息.
type JobInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CronExpr    string    `json:"cron_expr"`
	NextRun     time.Time `json:"next_run"`
	LastRun     time.Time `json:"last_run"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	Status      JobStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type tracked struct {
	job  gocron.Job
	info *JobInfo
}

// Scheduler 调度器.
type Scheduler struct {
	scheduler gocron.Scheduler
	byName    map[string]*tracked
	byID      map[uuid.UUID]string
	mu        sync.RWMutex
	logger    *zerolog.Logger
	done      chan struct{}
	closeOnce sync.Once
}

// NewScheduler 创建调度器，需调用 Start 后任务才会执行.
func NewScheduler() (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		scheduler: gs,
		byName:    make(map[string]*tracked),
		byID:      make(map[uuid.UUID]string),
		logger:    log.Logger(),
		done:      make(chan struct{}),
	}

	go s.refreshLoop()

	return s, nil
}

// AddCron 添加命名的周期任务，六段表达式的第一段为秒.任务 panic 时记录为 error 状态，调度继续.
func (s *Scheduler) AddCron(name string, cronExpr string, job func(ctx context.Context), ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	run := func(ctx context.Context) {
		s.setStatus(name, StatusRunning, "")

		defer func() {
			if r := recover(); r != nil {
				s.setStatus(name, StatusError, fmt.Sprintf("panic: %v", r))
				s.logger.Error().Str("job", name).Interface("panic", r).Msg("cron job panicked")

				return
			}

			s.markSuccess(name)
		}()

		job(ctx)
	}

	j, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, len(strings.Fields(cronExpr)) == 6),
		gocron.NewTask(run, ctx),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}

	now := time.Now()
	nextRun, _ := j.NextRun()

	s.byName[name] = &tracked{job: j, info: &JobInfo{
		ID:        j.ID().String(),
		Name:      name,
		CronExpr:  cronExpr,
		NextRun:   nextRun,
		Status:    StatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	s.byID[j.ID()] = name

	s.logger.Info().Str("job", name).Str("cron", cronExpr).Msg("cron job added")

	return nil
}

// AddOneTime 立即在后台执行一次任务.返回 gocron 任务 ID.
//
// 一次性任务不进入 GetJobInfos 的列表，调用方自行跟踪状态.
func (s *Scheduler) AddOneTime(name string, job func(ctx context.Context), ctx context.Context, tags ...string) (uuid.UUID, error) {
	j, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartImmediately()),
		gocron.NewTask(job, ctx),
		gocron.WithName(name),
		gocron.WithTags(tags...),
		gocron.WithLimitedRuns(1),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("schedule %s: %w", name, err)
	}

	s.logger.Debug().Str("job", name).Msg("one-time job added")

	return j.ID(), nil
}

// GetJobInfoByName 返回周期任务信息的副本.
func (s *Scheduler) GetJobInfoByName(name string) (*JobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.byName[name]
	if !exists {
		return nil, fmt.Errorf("job %s does not exist", name)
	}

	cp := *t.info

	return &cp, nil
}

// GetJobInfos 按名称排序返回全部周期任务.
func (s *Scheduler) GetJobInfos() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.byName))
	for _, t := range s.byName {
		out = append(out, *t.info)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// RunNow 立即执行一次命名的周期任务，不影响原有的调度时间.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	t, exists := s.byName[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job %s does not exist", name)
	}

	return t.job.RunNow()
}

// RemoveJob 按 gocron ID 移除任务，周期任务和一次性任务都适用.
func (s *Scheduler) RemoveJob(id uuid.UUID) error {
	s.mu.Lock()
	if name, exists := s.byID[id]; exists {
		delete(s.byName, name)
		delete(s.byID, id)
	}
	s.mu.Unlock()

	return s.scheduler.RemoveJob(id)
}

// JobsWaitingInQueue 等待执行的任务数.
func (s *Scheduler) JobsWaitingInQueue() int {
	return s.scheduler.JobsWaitingInQueue()
}

// Start 启动调度器.
func (s *Scheduler) Start() {
	s.logger.Info().Msg("starting scheduler")
	s.scheduler.Start()
}

// Shutdown 停止调度并等待执行中的任务返回.可重复调用.
func (s *Scheduler) Shutdown() error {
	var err error

	s.closeOnce.Do(func() {
		close(s.done)
		err = s.scheduler.Shutdown()
	})

	return err
}

func (s *Scheduler) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.refresh()
		}
	}
}

// refresh 从 gocron 读取最新的运行时间.
func (s *Scheduler) refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	for _, t := range s.byName {
		if next, err := t.job.NextRun(); err == nil {
			t.info.NextRun = next
		}

		if last, err := t.job.LastRun(); err == nil {
			t.info.LastRun = last
		}

		t.info.UpdatedAt = now
	}
}

func (s *Scheduler) markSuccess(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, exists := s.byName[name]; exists {
		now := time.Now()
		t.info.Status = StatusScheduled
		t.info.Error = ""
		t.info.LastRun = now
		t.info.LastSuccess = now
		t.info.UpdatedAt = now
	}
}

func (s *Scheduler) setStatus(name string, status JobStatus, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, exists := s.byName[name]; exists {
		t.info.Status = status
		t.info.Error = errMsg
		t.info.UpdatedAt = time.Now()
	}
}
