package repository

import (
	"context"

	"github.com/Harvlin/SaaS-CRM/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PipelineStageRepository struct {
	db *gorm.DB
}

func NewPipelineStageRepository(db *gorm.DB) *PipelineStageRepository {
	return &PipelineStageRepository{db: db}
}

func (r *PipelineStageRepository) Create(ctx context.Context, stage *domain.PipelineStage) error {
	return r.db.WithContext(ctx).Create(stage).Error
}

func (r *PipelineStageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PipelineStage, error) {
	var stage domain.PipelineStage
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&stage).Error
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

// ListOrdered returns all pipeline stages in canonical display order
func (r *PipelineStageRepository) ListOrdered(ctx context.Context) ([]domain.PipelineStage, error) {
	var stages []domain.PipelineStage
	err := r.db.WithContext(ctx).Order("display_order ASC").Find(&stages).Error
	return stages, err
}
