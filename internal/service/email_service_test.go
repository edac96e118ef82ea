package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Harvlin/SaaS-CRM/internal/domain"
	"github.com/Harvlin/SaaS-CRM/internal/mailer"
	"github.com/Harvlin/SaaS-CRM/internal/repository"
	"github.com/Harvlin/SaaS-CRM/internal/service"
	"github.com/Harvlin/SaaS-CRM/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// fakeSender records delivered messages and can be told to fail for
// specific recipients
type fakeSender struct {
	mu      sync.Mutex
	sent    []*mailer.Message
	failFor map[string]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: make(map[string]error)}
}

func (f *fakeSender) Send(ctx context.Context, msg *mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, to := range msg.To {
		if err, ok := f.failFor[to]; ok {
			return err
		}
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newEmailService(t *testing.T, db *gorm.DB, sender mailer.Sender) *service.EmailService {
	logger := zap.NewNop()
	interactionService := service.NewInteractionService(
		repository.NewInteractionRepository(db),
		repository.NewCustomerRepository(db),
		logger,
	)
	return service.NewEmailService(
		repository.NewScheduledEmailRepository(db),
		repository.NewEmailTemplateRepository(db),
		repository.NewCustomerRepository(db),
		repository.NewDealRepository(db),
		interactionService,
		sender,
		logger,
	)
}

// scheduleTemplateEmail inserts an already-due scheduled email that carries a
// template reference and optional variables
func scheduleTemplateEmail(t *testing.T, db *gorm.DB, to string, templateID uuid.UUID, vars domain.StringMap) *domain.ScheduledEmail {
	t.Helper()
	email := &domain.ScheduledEmail{
		ToEmails:          domain.StringList{to},
		TemplateID:        &templateID,
		TemplateVariables: vars,
		ScheduledTime:     time.Now().Add(-time.Minute),
		Status:            domain.EmailStatusScheduled,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(email).Error)
	return email
}

func TestEmailService_SendEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	sender := newFakeSender()
	svc := newEmailService(t, db, sender)
	ctx := context.Background()

	t.Run("sends immediately", func(t *testing.T) {
		err := svc.SendEmail(ctx, &domain.EmailMessage{
			To:      []string{"a@example.com"},
			Subject: "Hello",
			Content: "Body",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, sender.sentCount())
	})

	t.Run("rejects missing recipients", func(t *testing.T) {
		err := svc.SendEmail(ctx, &domain.EmailMessage{Subject: "x", Content: "y"})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("renders template with variables", func(t *testing.T) {
		template := testutil.CreateTestTemplate(t, db, "welcome", "Hi {{name}}", "Welcome, {{name}}!")
		err := svc.SendEmail(ctx, &domain.EmailMessage{
			To:                []string{"b@example.com"},
			TemplateID:        &template.ID,
			TemplateVariables: map[string]string{"name": "Ada"},
		})
		require.NoError(t, err)

		last := sender.sent[len(sender.sent)-1]
		assert.Equal(t, "Hi Ada", last.Subject)
		assert.Equal(t, "Welcome, Ada!", last.Body)
	})

	t.Run("unknown template is not found", func(t *testing.T) {
		missing := uuid.New()
		err := svc.SendEmail(ctx, &domain.EmailMessage{
			To:         []string{"c@example.com"},
			TemplateID: &missing,
		})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("logs interaction for known customer", func(t *testing.T) {
		customer := testutil.CreateTestCustomer(t, db, "Mailed", domain.CustomerStatusActive)
		err := svc.SendEmail(ctx, &domain.EmailMessage{
			To:         []string{"d@example.com"},
			Subject:    "Follow up",
			Content:    "Body",
			CustomerID: &customer.ID,
		})
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&domain.Interaction{}).
			Where("customer_id = ? AND type = ?", customer.ID, domain.InteractionTypeEmail).
			Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestEmailService_ScheduleEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	sender := newFakeSender()
	svc := newEmailService(t, db, sender)
	ctx := context.Background()

	t.Run("queues a future email without sending", func(t *testing.T) {
		future := time.Now().Add(time.Hour)
		email, err := svc.ScheduleEmail(ctx, &domain.EmailMessage{
			To:            []string{"a@example.com"},
			Subject:       "Later",
			Content:       "Body",
			ScheduledTime: &future,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.EmailStatusScheduled, email.Status)
		assert.Nil(t, email.SentTime)
		assert.Equal(t, 0, sender.sentCount())
	})

	t.Run("requires a scheduled time", func(t *testing.T) {
		_, err := svc.ScheduleEmail(ctx, &domain.EmailMessage{
			To: []string{"a@example.com"}, Subject: "x", Content: "y",
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("rejects past scheduled time", func(t *testing.T) {
		past := time.Now().Add(-time.Minute)
		_, err := svc.ScheduleEmail(ctx, &domain.EmailMessage{
			To: []string{"a@example.com"}, Subject: "x", Content: "y", ScheduledTime: &past,
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("stores the template reference instead of rendering", func(t *testing.T) {
		template := testutil.CreateTestTemplate(t, db, "reminder", "Reminder for {{name}}", "Don't forget, {{name}}.")
		future := time.Now().Add(time.Hour)
		email, err := svc.ScheduleEmail(ctx, &domain.EmailMessage{
			To:                []string{"b@example.com"},
			TemplateID:        &template.ID,
			TemplateVariables: map[string]string{"name": "Ada"},
			ScheduledTime:     &future,
		})
		require.NoError(t, err)

		// Rendering happens in the dispatch sweep, not here
		assert.Empty(t, email.Subject)
		assert.Empty(t, email.Content)
		require.NotNil(t, email.TemplateID)
		assert.Equal(t, template.ID, *email.TemplateID)
		assert.Equal(t, domain.StringMap{"name": "Ada"}, email.TemplateVariables)
	})
}

func TestEmailService_CancelScheduledEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newEmailService(t, db, newFakeSender())
	ctx := context.Background()

	t.Run("cancels a pending email", func(t *testing.T) {
		email := testutil.CreateTestScheduledEmail(t, db, "a@example.com", time.Now().Add(time.Hour), domain.EmailStatusScheduled)
		cancelled, err := svc.CancelScheduledEmail(ctx, email.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EmailStatusCancelled, cancelled.Status)
	})

	t.Run("terminal states cannot be cancelled", func(t *testing.T) {
		for _, status := range []domain.EmailStatus{
			domain.EmailStatusSent,
			domain.EmailStatusFailed,
			domain.EmailStatusCancelled,
		} {
			email := testutil.CreateTestScheduledEmail(t, db, "a@example.com", time.Now().Add(time.Hour), status)
			_, err := svc.CancelScheduledEmail(ctx, email.ID)
			assert.ErrorIs(t, err, service.ErrInvalidState, "status %s", status)
		}
	})

	t.Run("unknown email is not found", func(t *testing.T) {
		_, err := svc.CancelScheduledEmail(ctx, uuid.New())
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestEmailService_ProcessDueEmails(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers due emails and stamps sent time", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		sender := newFakeSender()
		svc := newEmailService(t, db, sender)

		due := testutil.CreateTestScheduledEmail(t, db, "due@example.com", time.Now().Add(-time.Minute), domain.EmailStatusScheduled)
		notDue := testutil.CreateTestScheduledEmail(t, db, "later@example.com", time.Now().Add(time.Hour), domain.EmailStatusScheduled)

		sent, failed, err := svc.ProcessDueEmails(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
		assert.Equal(t, 0, failed)

		reloaded, err := svc.GetScheduledEmail(ctx, due.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EmailStatusSent, reloaded.Status)
		require.NotNil(t, reloaded.SentTime)

		untouched, err := svc.GetScheduledEmail(ctx, notDue.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EmailStatusScheduled, untouched.Status)
	})

	t.Run("one failure does not stop the sweep", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		sender := newFakeSender()
		sender.failFor["broken@example.com"] = errors.New("smtp unavailable")
		svc := newEmailService(t, db, sender)

		bad := testutil.CreateTestScheduledEmail(t, db, "broken@example.com", time.Now().Add(-2*time.Minute), domain.EmailStatusScheduled)
		good := testutil.CreateTestScheduledEmail(t, db, "fine@example.com", time.Now().Add(-time.Minute), domain.EmailStatusScheduled)

		sent, failed, err := svc.ProcessDueEmails(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
		assert.Equal(t, 1, failed)

		badReloaded, err := svc.GetScheduledEmail(ctx, bad.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EmailStatusFailed, badReloaded.Status)
		assert.Nil(t, badReloaded.SentTime)

		goodReloaded, err := svc.GetScheduledEmail(ctx, good.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EmailStatusSent, goodReloaded.Status)
	})

	t.Run("renders the template at dispatch time", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		sender := newFakeSender()
		svc := newEmailService(t, db, sender)

		template := testutil.CreateTestTemplate(t, db, "followup", "Checking in, {{name}}", "Hi {{name}}, any news?")
		scheduleTemplateEmail(t, db, "tpl@example.com", template.ID, domain.StringMap{"name": "Ada"})

		// Edits made between scheduling and dispatch are delivered
		require.NoError(t, db.Model(template).Update("subject", "Still there, {{name}}?").Error)

		sent, failed, err := svc.ProcessDueEmails(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
		assert.Equal(t, 0, failed)

		require.Len(t, sender.sent, 1)
		assert.Equal(t, "Still there, Ada?", sender.sent[0].Subject)
		assert.Equal(t, "Hi Ada, any news?", sender.sent[0].Body)
	})

	t.Run("falls back to raw template text without variables", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		sender := newFakeSender()
		svc := newEmailService(t, db, sender)

		template := testutil.CreateTestTemplate(t, db, "plain", "Checking in, {{name}}", "Hi {{name}}.")
		scheduleTemplateEmail(t, db, "raw@example.com", template.ID, nil)

		sent, _, err := svc.ProcessDueEmails(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, sent)

		require.Len(t, sender.sent, 1)
		assert.Equal(t, "Checking in, {{name}}", sender.sent[0].Subject)
		assert.Equal(t, "Hi {{name}}.", sender.sent[0].Body)
	})

	t.Run("missing template fails the email without stopping the sweep", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		sender := newFakeSender()
		svc := newEmailService(t, db, sender)

		gone := uuid.New()
		orphan := scheduleTemplateEmail(t, db, "orphan@example.com", gone, nil)
		testutil.CreateTestScheduledEmail(t, db, "fine@example.com", time.Now().Add(-time.Minute), domain.EmailStatusScheduled)

		sent, failed, err := svc.ProcessDueEmails(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
		assert.Equal(t, 1, failed)

		reloaded, err := svc.GetScheduledEmail(ctx, orphan.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EmailStatusFailed, reloaded.Status)
	})

	t.Run("cancelled emails are never delivered", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		sender := newFakeSender()
		svc := newEmailService(t, db, sender)

		testutil.CreateTestScheduledEmail(t, db, "cancelled@example.com", time.Now().Add(-time.Minute), domain.EmailStatusCancelled)

		sent, failed, err := svc.ProcessDueEmails(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, sent)
		assert.Equal(t, 0, failed)
		assert.Equal(t, 0, sender.sentCount())
	})
}
