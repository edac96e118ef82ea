package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EmailDispatchJobName is the name of the scheduled email dispatch job
const EmailDispatchJobName = "email_dispatch"

// DefaultEmailDispatchSchedule sweeps for due emails once a minute
const DefaultEmailDispatchSchedule = "@every 1m"

// EmailDispatchService defines the interface for delivering due scheduled
// emails. The interface lets the job call the service without importing the
// service package directly.
type EmailDispatchService interface {
	// ProcessDueEmails delivers every scheduled email whose time has passed.
	// Returns counts for successfully sent and failed emails.
	ProcessDueEmails(ctx context.Context) (sent int, failed int, err error)
}

// EmailDispatchJob periodically delivers scheduled emails that have come due.
type EmailDispatchJob struct {
	emailService EmailDispatchService
	logger       *zap.Logger
	timeout      time.Duration
}

// NewEmailDispatchJob creates a new email dispatch job.
// The timeout bounds a single sweep across all due emails.
func NewEmailDispatchJob(emailService EmailDispatchService, logger *zap.Logger, timeout time.Duration) *EmailDispatchJob {
	return &EmailDispatchJob{
		emailService: emailService,
		logger:       logger,
		timeout:      timeout,
	}
}

// Run executes one dispatch sweep.
// This is called by the scheduler according to the cron expression.
func (j *EmailDispatchJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	sent, failed, err := j.emailService.ProcessDueEmails(ctx)
	if err != nil {
		j.logger.Error("email dispatch sweep failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	if sent > 0 || failed > 0 {
		j.logger.Info("email dispatch sweep completed",
			zap.Int("sent", sent),
			zap.Int("failed", failed),
			zap.Duration("duration", time.Since(start)))
	}
}

// RegisterEmailDispatchJob registers the dispatch job with the scheduler.
// An empty cronExpr falls back to the default once-a-minute schedule.
func RegisterEmailDispatchJob(scheduler *Scheduler, emailService EmailDispatchService, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	if cronExpr == "" {
		cronExpr = DefaultEmailDispatchSchedule
	}
	job := NewEmailDispatchJob(emailService, logger, timeout)
	return scheduler.AddJob(EmailDispatchJobName, cronExpr, job.Run)
}
