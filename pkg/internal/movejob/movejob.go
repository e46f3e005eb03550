// Package movejob 把实例的附件从当前存储池迁移到目标存储池.
//
// 每次 Step 处理一个实例：复制文件、更新宿主中的位置记录、删除源文件.
// 目标已存在同内容文件时视为已迁移，任务可以安全地重新提交.
package movejob

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yeisme/advstorage/pkg/layout"
	nlog "github.com/yeisme/advstorage/pkg/log"
	"github.com/yeisme/advstorage/pkg/metrics"
	"github.com/yeisme/advstorage/pkg/queue"
	"github.com/yeisme/advstorage/pkg/tracing"
)

// JobType 任务类型名.
const JobType = "MoveStorage"

// State 任务状态.
type State int

const (
	Pending State = iota
	Running
	Succeeded
	Failed
	Stopped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Running:
		return "Running"
	case Succeeded:
		return "Success"
	case Failed:
		return "Failure"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Done 是否为终止状态.
func (s State) Done() bool {
	return s == Succeeded || s == Failed || s == Stopped
}

// StepResult 单步执行结果.
type StepResult int

const (
	StepContinue StepResult = iota
	StepSuccess
	StepFailure
)

// ErrNotOwned 宿主不拥有该文件，不能迁移.
var ErrNotOwned = errors.New("attachment is not owned by the host")

// Attachment 宿主中的附件.
type Attachment struct {
	UUID        string
	ContentType layout.ContentType
	Metadata    []byte
}

// Host 迁移任务需要的宿主接口.
type Host interface {
	ListAttachments(ctx context.Context, instanceID string) ([]Attachment, error)
	UpdateAttachmentMetadata(ctx context.Context, uuid string, metadata []byte) error
}

// ResourcesByType 按资源类型分组的资源 ID，仅用于展示.
type ResourcesByType map[string][]string

// Job 存储迁移任务.
type Job struct {
	target    string
	instances []string
	resources ResourcesByType
	host      Host
	reg       *layout.Registry
	logger    zerolog.Logger
	events    *queue.Emitter

	mu        sync.Mutex
	state     State
	processed int
	errDetail string
}

// New 创建迁移任务.
func New(target string, instances []string, resources ResourcesByType, host Host, reg *layout.Registry, logger zerolog.Logger) *Job {
	return &Job{
		target:    target,
		instances: instances,
		resources: resources,
		host:      host,
		reg:       reg,
		logger:    nlog.WithComponent(logger, "movejob").With().Str("target", target).Logger(),
	}
}

// WithEvents 设置事件发布器，nil 表示不发布.
func (j *Job) WithEvents(e *queue.Emitter) *Job {
	j.events = e
	return j
}

// Step 处理下一个实例.
func (j *Job) Step(ctx context.Context) StepResult {
	j.mu.Lock()

	switch j.state {
	case Failed:
		j.mu.Unlock()
		return StepFailure
	case Succeeded:
		j.mu.Unlock()
		return StepSuccess
	case Stopped:
		j.mu.Unlock()
		return StepFailure
	}

	if j.processed >= len(j.instances) {
		j.state = Succeeded
		j.mu.Unlock()

		return StepSuccess
	}

	j.state = Running
	instanceID := j.instances[j.processed]
	j.mu.Unlock()

	moved, err := j.moveInstance(ctx, instanceID)

	j.mu.Lock()
	defer j.mu.Unlock()

	// 执行期间被停止
	if j.state == Stopped {
		return StepFailure
	}

	if err != nil {
		metrics.MovedInstances.WithLabelValues("failure").Inc()

		j.state = Failed
		j.errDetail = err.Error()
		j.logger.Error().Err(err).Str("instance", instanceID).Msg("storage move failed")

		return StepFailure
	}

	metrics.MovedInstances.WithLabelValues("success").Inc()

	if err := j.events.ObjectMoved(ctx, queue.ObjectMovedPayload{
		InstanceID:      instanceID,
		TargetStorageID: j.target,
		Attachments:     len(moved),
	}); err != nil {
		j.logger.Warn().Err(err).Msg("failed to publish moved event")
	}

	j.processed++

	if j.processed >= len(j.instances) {
		j.state = Succeeded
		return StepSuccess
	}

	return StepContinue
}

// moveInstance 迁移实例的所有附件，任一失败则整个实例失败，但其余附件仍会尝试.
func (j *Job) moveInstance(ctx context.Context, instanceID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "movejob.moveInstance")
	defer span.End()

	j.logger.Info().Str("instance", instanceID).Msg("moving instance")

	attachments, err := j.host.ListAttachments(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("list attachments of %s: %w", instanceID, err)
	}

	var (
		moved []string
		errs  []error
	)

	for _, att := range attachments {
		if err := j.moveAttachment(ctx, att); err != nil {
			errs = append(errs, fmt.Errorf("attachment %s: %w", att.UUID, err))
			continue
		}

		moved = append(moved, att.UUID)
	}

	if err := errors.Join(errs...); err != nil {
		tracing.RecordError(span, err)
		return moved, fmt.Errorf("instance %s: %w", instanceID, err)
	}

	return moved, nil
}

// Stop 停止任务，reason 仅记录日志.
func (j *Job) Stop(reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state.Done() {
		return
	}

	j.state = Stopped
	j.logger.Info().Str("reason", reason).Msg("storage move stopped")
}

// Reset 从头开始，已迁移的附件会被识别为已完成.
func (j *Job) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.processed = 0
	j.state = Pending
	j.errDetail = ""
}

// Progress 返回 0 到 1 的进度.
func (j *Job) Progress() float32 {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.instances) == 0 {
		return 1
	}

	return float32(j.processed) / float32(len(j.instances))
}

// State 返回当前状态.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.state
}

// ErrorDetails 返回失败原因.
func (j *Job) ErrorDetails() string {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.errDetail
}

// TargetStorageID 返回目标存储池.
func (j *Job) TargetStorageID() string { return j.target }

// Content 任务的公开描述.
func (j *Job) Content() map[string]any {
	j.mu.Lock()
	defer j.mu.Unlock()

	content := map[string]any{
		"TargetStorageId": j.target,
		"ResourcesToMove": j.resources,
	}

	if j.errDetail != "" {
		content["ErrorDetails"] = j.errDetail
	}

	return content
}

// Serialize 返回可用于重建任务的完整描述.
func (j *Job) Serialize() map[string]any {
	s := j.Content()
	s["Instances"] = append([]string(nil), j.instances...)

	return s
}
