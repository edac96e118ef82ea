package repository

import (
	"context"
	"time"

	"github.com/Harvlin/SaaS-CRM/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DealRepository struct {
	db *gorm.DB
}

func NewDealRepository(db *gorm.DB) *DealRepository {
	return &DealRepository{db: db}
}

func (r *DealRepository) Create(ctx context.Context, deal *domain.Deal) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(deal).Error
}

func (r *DealRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	var deal domain.Deal
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Stage").
		Preload("AssignedUser").
		Where("id = ?", id).
		First(&deal).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *DealRepository) Update(ctx context.Context, deal *domain.Deal) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(deal).Error
}

// UpdateStage updates only the stage and probability fields
func (r *DealRepository) UpdateStage(ctx context.Context, id uuid.UUID, stageID uuid.UUID, probability int) error {
	updates := map[string]interface{}{
		"stage_id":    stageID,
		"probability": probability,
		"updated_at":  time.Now(),
	}
	return r.db.WithContext(ctx).Model(&domain.Deal{}).Where("id = ?", id).Updates(updates).Error
}

// CountAll returns the total number of deals
func (r *DealRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Deal{}).Count(&count).Error
	return count, err
}

// ListCreatedBetween returns deals created in [from, to] with their stage and
// assigned user loaded. Value aggregation over these rows happens in the
// service layer with exact decimal arithmetic.
func (r *DealRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.Deal, error) {
	var deals []domain.Deal
	err := r.db.WithContext(ctx).
		Preload("Stage").
		Preload("AssignedUser").
		Where("created_at >= ? AND created_at <= ?", from, to).
		Order("created_at ASC").
		Find(&deals).Error
	return deals, err
}

// ListWonClosedBetween returns won deals whose close (last update) falls in
// [from, to], for cycle-time metrics
func (r *DealRepository) ListWonClosedBetween(ctx context.Context, from, to time.Time) ([]domain.Deal, error) {
	var deals []domain.Deal
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.DealStatusWon).
		Where("updated_at >= ? AND updated_at <= ?", from, to).
		Find(&deals).Error
	return deals, err
}

// ListOpen returns all open deals with their stage loaded, for forecasting
func (r *DealRepository) ListOpen(ctx context.Context) ([]domain.Deal, error) {
	var deals []domain.Deal
	err := r.db.WithContext(ctx).
		Preload("Stage").
		Where("status = ?", domain.DealStatusOpen).
		Find(&deals).Error
	return deals, err
}
