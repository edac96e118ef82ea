package repository

import (
	"context"
	"time"

	"github.com/Harvlin/SaaS-CRM/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScheduledEmailRepository struct {
	db *gorm.DB
}

func NewScheduledEmailRepository(db *gorm.DB) *ScheduledEmailRepository {
	return &ScheduledEmailRepository{db: db}
}

func (r *ScheduledEmailRepository) Create(ctx context.Context, email *domain.ScheduledEmail) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(email).Error
}

func (r *ScheduledEmailRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledEmail, error) {
	var email domain.ScheduledEmail
	err := r.db.WithContext(ctx).
		Preload("Template").
		Preload("Customer").
		Preload("Deal").
		Where("id = ?", id).
		First(&email).Error
	if err != nil {
		return nil, err
	}
	return &email, nil
}

func (r *ScheduledEmailRepository) Update(ctx context.Context, email *domain.ScheduledEmail) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(email).Error
}

// List returns scheduled emails newest-first, paginated
func (r *ScheduledEmailRepository) List(ctx context.Context, limit, offset int) ([]domain.ScheduledEmail, error) {
	var emails []domain.ScheduledEmail
	err := r.db.WithContext(ctx).
		Preload("Template").
		Preload("Customer").
		Preload("Deal").
		Order("scheduled_time DESC").
		Limit(limit).
		Offset(offset).
		Find(&emails).Error
	return emails, err
}

// ListDue returns emails still in the scheduled state whose scheduled time has
// passed, oldest first
func (r *ScheduledEmailRepository) ListDue(ctx context.Context, now time.Time) ([]domain.ScheduledEmail, error) {
	var emails []domain.ScheduledEmail
	err := r.db.WithContext(ctx).
		Preload("Template").
		Preload("Customer").
		Preload("Deal").
		Where("status = ?", domain.EmailStatusScheduled).
		Where("scheduled_time <= ?", now).
		Order("scheduled_time ASC").
		Find(&emails).Error
	return emails, err
}
