package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/advstorage/pkg/scheduler"
)

// TestAddCron 测试添加与移除 cron 任务.
func TestAddCron(t *testing.T) {
	s, err := scheduler.NewScheduler()
	require.NoError(t, err)

	defer func() { _ = s.Shutdown() }()

	noop := func(context.Context) {}

	require.NoError(t, s.AddCron("b.job", "0 3 * * *", noop, context.Background()))
	require.NoError(t, s.AddCron("a.job", "*/5 * * * *", noop, context.Background()))
	assert.Error(t, s.AddCron("a.job", "*/5 * * * *", noop, context.Background()))

	infos := s.GetJobInfos()
	require.Len(t, infos, 2)
	assert.Equal(t, "a.job", infos[0].Name)
	assert.Equal(t, scheduler.StatusScheduled, infos[0].Status)

	info, err := s.GetJobInfoByName("a.job")
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", info.CronExpr)

	id, err := uuid.Parse(info.ID)
	require.NoError(t, err)
	require.NoError(t, s.RemoveJob(id))

	assert.Len(t, s.GetJobInfos(), 1)

	_, err = s.GetJobInfoByName("a.job")
	assert.Error(t, err)
}

// TestCronPanicRecorded 测试周期任务 panic 后记录错误状态.
func TestCronPanicRecorded(t *testing.T) {
	s, err := scheduler.NewScheduler()
	require.NoError(t, err)

	s.Start()

	defer func() { _ = s.Shutdown() }()

	boom := func(context.Context) { panic("boom") }
	require.NoError(t, s.AddCron("boom", "* * * * * *", boom, context.Background()))

	assert.Eventually(t, func() bool {
		info, err := s.GetJobInfoByName("boom")
		return err == nil && info.Status == scheduler.StatusError
	}, 3*time.Second, 20*time.Millisecond)
}

// TestAddOneTime 测试一次性任务立即执行.
func TestAddOneTime(t *testing.T) {
	s, err := scheduler.NewScheduler()
	require.NoError(t, err)

	s.Start()

	defer func() { _ = s.Shutdown() }()

	var runs atomic.Int32

	_, err = s.AddOneTime("once", func(context.Context) { runs.Add(1) }, context.Background(), "test")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Empty(t, s.GetJobInfos())
}

// TestRunNow 测试立即触发周期任务.
func TestRunNow(t *testing.T) {
	s, err := scheduler.NewScheduler()
	require.NoError(t, err)

	s.Start()

	defer func() { _ = s.Shutdown() }()

	var runs atomic.Int32

	// 每年一次，只有 RunNow 会触发
	require.NoError(t, s.AddCron("yearly", "0 0 1 1 *", func(context.Context) { runs.Add(1) }, context.Background()))
	require.NoError(t, s.RunNow("yearly"))

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		info, err := s.GetJobInfoByName("yearly")
		return err == nil && !info.LastSuccess.IsZero()
	}, 3*time.Second, 10*time.Millisecond)

	assert.Error(t, s.RunNow("missing"))
}
