package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Harvlin/SaaS-CRM/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDispatchService struct {
	mu    sync.Mutex
	calls int
	sent  int
	err   error
}

func (f *fakeDispatchService) ProcessDueEmails(ctx context.Context) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.sent, 0, f.err
}

func (f *fakeDispatchService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestEmailDispatchJob_Run(t *testing.T) {
	t.Run("invokes the sweep", func(t *testing.T) {
		svc := &fakeDispatchService{sent: 2}
		job := jobs.NewEmailDispatchJob(svc, zap.NewNop(), time.Minute)

		job.Run()
		assert.Equal(t, 1, svc.callCount())
	})

	t.Run("sweep errors do not panic", func(t *testing.T) {
		svc := &fakeDispatchService{err: errors.New("db down")}
		job := jobs.NewEmailDispatchJob(svc, zap.NewNop(), time.Minute)

		assert.NotPanics(t, job.Run)
		assert.Equal(t, 1, svc.callCount())
	})
}

func TestRegisterEmailDispatchJob(t *testing.T) {
	scheduler := jobs.NewScheduler(zap.NewNop())
	svc := &fakeDispatchService{}

	require.NoError(t, jobs.RegisterEmailDispatchJob(scheduler, svc, zap.NewNop(), "", time.Minute))
	assert.Contains(t, scheduler.GetJobNames(), jobs.EmailDispatchJobName)

	// Duplicate registration is rejected
	err := jobs.RegisterEmailDispatchJob(scheduler, svc, zap.NewNop(), "@every 1m", time.Minute)
	assert.Error(t, err)
}

func TestScheduler_AddRemove(t *testing.T) {
	scheduler := jobs.NewScheduler(zap.NewNop())

	require.NoError(t, scheduler.AddJob("noop", "@every 1h", func() {}))
	assert.Contains(t, scheduler.GetJobNames(), "noop")

	require.NoError(t, scheduler.RemoveJob("noop"))
	assert.NotContains(t, scheduler.GetJobNames(), "noop")

	assert.Error(t, scheduler.RemoveJob("noop"))
}
