package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harvlin/SaaS-CRM/internal/domain"
	"github.com/Harvlin/SaaS-CRM/internal/mailer"
	"github.com/Harvlin/SaaS-CRM/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EmailService sends emails immediately or schedules them for the dispatch
// sweep. Scheduled emails move through a one-way lifecycle:
// scheduled -> sent, failed, or cancelled.
type EmailService struct {
	emailRepo    *repository.ScheduledEmailRepository
	templateRepo *repository.EmailTemplateRepository
	customerRepo *repository.CustomerRepository
	dealRepo     *repository.DealRepository
	interactions *InteractionService
	sender       mailer.Sender
	validate     *validator.Validate
	logger       *zap.Logger
}

func NewEmailService(
	emailRepo *repository.ScheduledEmailRepository,
	templateRepo *repository.EmailTemplateRepository,
	customerRepo *repository.CustomerRepository,
	dealRepo *repository.DealRepository,
	interactions *InteractionService,
	sender mailer.Sender,
	logger *zap.Logger,
) *EmailService {
	return &EmailService{
		emailRepo:    emailRepo,
		templateRepo: templateRepo,
		customerRepo: customerRepo,
		dealRepo:     dealRepo,
		interactions: interactions,
		sender:       sender,
		validate:     validator.New(),
		logger:       logger,
	}
}

// resolveMessage validates the request, resolves referenced entities, and
// renders the template (when one is set) into the final subject and content
func (s *EmailService) resolveMessage(ctx context.Context, msg *domain.EmailMessage) (subject, content string, err error) {
	if err := s.validate.Struct(msg); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	subject, content = msg.Subject, msg.Content
	if msg.TemplateID != nil {
		template, err := s.templateRepo.GetByID(ctx, *msg.TemplateID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", "", fmt.Errorf("email template %s: %w", *msg.TemplateID, ErrNotFound)
			}
			return "", "", fmt.Errorf("fetching email template: %w", err)
		}
		if !template.Active {
			return "", "", fmt.Errorf("%w: email template %q is inactive", ErrInvalidInput, template.Name)
		}
		subject = RenderTemplate(template.Subject, msg.TemplateVariables)
		content = RenderTemplate(template.Content, msg.TemplateVariables)
	}
	if subject == "" && content == "" {
		return "", "", fmt.Errorf("%w: email needs a subject or content", ErrInvalidInput)
	}

	if msg.CustomerID != nil {
		if _, err := s.customerRepo.GetByID(ctx, *msg.CustomerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", "", fmt.Errorf("customer %s: %w", *msg.CustomerID, ErrNotFound)
			}
			return "", "", fmt.Errorf("fetching customer: %w", err)
		}
	}
	if msg.DealID != nil {
		if _, err := s.dealRepo.GetByID(ctx, *msg.DealID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", "", fmt.Errorf("deal %s: %w", *msg.DealID, ErrNotFound)
			}
			return "", "", fmt.Errorf("fetching deal: %w", err)
		}
	}
	return subject, content, nil
}

// SendEmail resolves and delivers an email immediately. A successful delivery
// to a known customer is also logged as an email interaction.
func (s *EmailService) SendEmail(ctx context.Context, msg *domain.EmailMessage) error {
	subject, content, err := s.resolveMessage(ctx, msg)
	if err != nil {
		return err
	}

	err = s.sender.Send(ctx, &mailer.Message{
		From:    msg.From,
		To:      msg.To,
		Cc:      msg.Cc,
		Bcc:     msg.Bcc,
		Subject: subject,
		Body:    content,
	})
	if err != nil {
		return fmt.Errorf("delivering email: %w", err)
	}

	s.logger.Info("email sent", zap.Strings("to", msg.To), zap.String("subject", subject))
	if msg.CustomerID != nil {
		s.logEmailInteraction(ctx, *msg.CustomerID, msg.DealID, subject)
	}
	return nil
}

// ScheduleEmail validates an email and queues it for future delivery. The
// scheduled time is required and must be in the future. Template resolution
// is deferred to the dispatch sweep, so the stored row keeps the literal
// subject and content alongside the template reference and variables.
func (s *EmailService) ScheduleEmail(ctx context.Context, msg *domain.EmailMessage) (*domain.ScheduledEmail, error) {
	if msg.ScheduledTime == nil {
		return nil, fmt.Errorf("%w: scheduled time is required", ErrInvalidInput)
	}
	if !msg.ScheduledTime.After(time.Now()) {
		return nil, fmt.Errorf("%w: scheduled time must be in the future", ErrInvalidInput)
	}

	if _, _, err := s.resolveMessage(ctx, msg); err != nil {
		return nil, err
	}

	email := &domain.ScheduledEmail{
		FromEmail:         msg.From,
		ToEmails:          domain.StringList(msg.To),
		CcEmails:          domain.StringList(msg.Cc),
		BccEmails:         domain.StringList(msg.Bcc),
		Subject:           msg.Subject,
		Content:           msg.Content,
		TemplateID:        msg.TemplateID,
		TemplateVariables: domain.StringMap(msg.TemplateVariables),
		CustomerID:        msg.CustomerID,
		DealID:            msg.DealID,
		ScheduledTime:     *msg.ScheduledTime,
		Status:            domain.EmailStatusScheduled,
	}
	if err := s.emailRepo.Create(ctx, email); err != nil {
		return nil, fmt.Errorf("creating scheduled email: %w", err)
	}

	s.logger.Info("email scheduled",
		zap.String("id", email.ID.String()),
		zap.Time("scheduled_time", email.ScheduledTime))
	return email, nil
}

// GetScheduledEmail returns a scheduled email by id
func (s *EmailService) GetScheduledEmail(ctx context.Context, id uuid.UUID) (*domain.ScheduledEmail, error) {
	email, err := s.emailRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("scheduled email %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("fetching scheduled email: %w", err)
	}
	return email, nil
}

// ListScheduledEmails returns scheduled emails newest-first, paginated
func (s *EmailService) ListScheduledEmails(ctx context.Context, limit, offset int) ([]domain.ScheduledEmail, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	emails, err := s.emailRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing scheduled emails: %w", err)
	}
	return emails, nil
}

// CancelScheduledEmail cancels a pending email. Only emails still in the
// scheduled state can be cancelled; sent, failed, and cancelled are terminal.
func (s *EmailService) CancelScheduledEmail(ctx context.Context, id uuid.UUID) (*domain.ScheduledEmail, error) {
	email, err := s.GetScheduledEmail(ctx, id)
	if err != nil {
		return nil, err
	}
	if email.Status != domain.EmailStatusScheduled {
		return nil, fmt.Errorf("%w: cannot cancel email in status %q", ErrInvalidState, email.Status)
	}

	email.Status = domain.EmailStatusCancelled
	if err := s.emailRepo.Update(ctx, email); err != nil {
		return nil, fmt.Errorf("cancelling scheduled email: %w", err)
	}
	s.logger.Info("scheduled email cancelled", zap.String("id", id.String()))
	return email, nil
}

// ProcessDueEmails delivers every scheduled email whose time has passed.
// Each email is handled in isolation: a delivery failure marks that email
// failed and the sweep moves on. Returns the number sent and failed.
func (s *EmailService) ProcessDueEmails(ctx context.Context) (sent, failed int, err error) {
	due, err := s.emailRepo.ListDue(ctx, time.Now())
	if err != nil {
		return 0, 0, fmt.Errorf("listing due emails: %w", err)
	}

	for i := range due {
		email := &due[i]
		if err := s.dispatchOne(ctx, email); err != nil {
			failed++
			s.logger.Error("scheduled email delivery failed",
				zap.String("id", email.ID.String()),
				zap.Error(err))
		} else {
			sent++
		}
	}

	if sent > 0 || failed > 0 {
		s.logger.Info("email dispatch sweep finished",
			zap.Int("sent", sent),
			zap.Int("failed", failed))
	}
	return sent, failed, nil
}

// resolveScheduled produces the effective subject and content for a due
// email: the template rendered with its stored variables when both are
// present, the raw template text when only the template is, and the email's
// own literals otherwise. Templates are re-read here so edits made after
// scheduling take effect at delivery.
func (s *EmailService) resolveScheduled(ctx context.Context, email *domain.ScheduledEmail) (subject, content string, err error) {
	if email.TemplateID == nil {
		return email.Subject, email.Content, nil
	}
	template, err := s.templateRepo.GetByID(ctx, *email.TemplateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", fmt.Errorf("email template %s no longer exists", *email.TemplateID)
		}
		return "", "", fmt.Errorf("fetching email template: %w", err)
	}
	if !template.Active {
		return "", "", fmt.Errorf("email template %q is inactive", template.Name)
	}
	if email.TemplateVariables == nil {
		return template.Subject, template.Content, nil
	}
	vars := map[string]string(email.TemplateVariables)
	return RenderTemplate(template.Subject, vars), RenderTemplate(template.Content, vars), nil
}

// dispatchOne resolves and delivers a single due email and records the
// terminal status. Resolution and transport failures both mark it failed.
func (s *EmailService) dispatchOne(ctx context.Context, email *domain.ScheduledEmail) error {
	subject, content, dispatchErr := s.resolveScheduled(ctx, email)
	if dispatchErr == nil {
		dispatchErr = s.sender.Send(ctx, &mailer.Message{
			From:    email.FromEmail,
			To:      email.ToEmails,
			Cc:      email.CcEmails,
			Bcc:     email.BccEmails,
			Subject: subject,
			Body:    content,
		})
	}
	if dispatchErr != nil {
		email.Status = domain.EmailStatusFailed
		if err := s.emailRepo.Update(ctx, email); err != nil {
			return fmt.Errorf("marking email failed after %v: %w", dispatchErr, err)
		}
		return dispatchErr
	}

	now := time.Now()
	email.Status = domain.EmailStatusSent
	email.SentTime = &now
	if err := s.emailRepo.Update(ctx, email); err != nil {
		return fmt.Errorf("marking email sent: %w", err)
	}

	if email.CustomerID != nil {
		s.logEmailInteraction(ctx, *email.CustomerID, email.DealID, subject)
	}
	return nil
}

// logEmailInteraction records a sent email as a customer interaction.
// Logging failures are reported but never fail the send.
func (s *EmailService) logEmailInteraction(ctx context.Context, customerID uuid.UUID, dealID *uuid.UUID, subject string) {
	_, err := s.interactions.Create(ctx, &domain.CreateInteractionRequest{
		Type:       domain.InteractionTypeEmail,
		Subject:    subject,
		Content:    "Email sent: " + subject,
		CustomerID: customerID,
		DealID:     dealID,
	})
	if err != nil {
		s.logger.Warn("failed to log email interaction",
			zap.String("customer_id", customerID.String()),
			zap.Error(err))
	}
}
