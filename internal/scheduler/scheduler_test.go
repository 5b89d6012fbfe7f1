package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSyncer) ResyncAudience(context.Context) (int, error) {
	f.calls.Add(1)
	return 2, f.err
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func jobInfo(s *Scheduler, id string) (JobInfo, bool) {
	for _, info := range s.GetJobs() {
		if info.ID == id {
			return info, true
		}
	}
	return JobInfo{}, false
}

func TestAudienceSyncJob_RunsOnStart(t *testing.T) {
	s := newTestScheduler(t)
	syncer := &fakeSyncer{}
	require.NoError(t, s.AddAudienceSyncJob("0 * * * *", syncer))

	s.Start()

	require.Eventually(t, func() bool {
		info, ok := jobInfo(s, AudienceSyncJobID)
		return ok && info.Status == JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	info, _ := jobInfo(s, AudienceSyncJobID)
	assert.Equal(t, 1, info.RunCount)
	assert.Equal(t, int32(1), syncer.calls.Load())
	assert.False(t, info.NextRun.IsZero())
}

func TestJobFailureIsRecorded(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.AddAudienceSyncJob("0 * * * *", &fakeSyncer{err: errors.New("resend down")}))
	s.Start()

	require.Eventually(t, func() bool {
		info, _ := jobInfo(s, AudienceSyncJobID)
		return info.Status == JobStatusFailed
	}, 5*time.Second, 10*time.Millisecond)

	info, _ := jobInfo(s, AudienceSyncJobID)
	assert.Equal(t, 1, info.ErrorCount)
	assert.Equal(t, "resend down", info.LastError)
}

func TestAddJob_Duplicate(t *testing.T) {
	s := newTestScheduler(t)
	fn := func(context.Context) error { return nil }
	require.NoError(t, s.AddCronJob("job", "job", "0 * * * *", fn, false))
	assert.Error(t, s.AddCronJob("job", "job", "0 * * * *", fn, false))
	assert.Len(t, s.GetJobs(), 1)
}

func TestRunJobNow_Unknown(t *testing.T) {
	s := newTestScheduler(t)
	assert.Error(t, s.RunJobNow("missing"))
}

func TestAddCronJob_InvalidExpression(t *testing.T) {
	s := newTestScheduler(t)
	err := s.AddCronJob("bad", "bad", "not a cron", func(context.Context) error { return nil }, false)
	assert.Error(t, err)
}
