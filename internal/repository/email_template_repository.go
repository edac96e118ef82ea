package repository

import (
	"context"

	"github.com/Harvlin/SaaS-CRM/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EmailTemplateRepository struct {
	db *gorm.DB
}

func NewEmailTemplateRepository(db *gorm.DB) *EmailTemplateRepository {
	return &EmailTemplateRepository{db: db}
}

func (r *EmailTemplateRepository) Create(ctx context.Context, template *domain.EmailTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

func (r *EmailTemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.EmailTemplate, error) {
	var template domain.EmailTemplate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *EmailTemplateRepository) GetByName(ctx context.Context, name string) (*domain.EmailTemplate, error) {
	var template domain.EmailTemplate
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *EmailTemplateRepository) List(ctx context.Context) ([]domain.EmailTemplate, error) {
	var templates []domain.EmailTemplate
	err := r.db.WithContext(ctx).Order("name ASC").Find(&templates).Error
	return templates, err
}
