package repository

import (
	"context"
	"time"

	"github.com/Harvlin/SaaS-CRM/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DealStageHistoryRepository struct {
	db *gorm.DB
}

func NewDealStageHistoryRepository(db *gorm.DB) *DealStageHistoryRepository {
	return &DealStageHistoryRepository{db: db}
}

func (r *DealStageHistoryRepository) Create(ctx context.Context, entry *domain.DealStageHistory) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error
}

// ListBetween returns stage transitions in [from, to], grouped by deal in
// chronological order so dwell times can be derived from consecutive rows
func (r *DealStageHistoryRepository) ListBetween(ctx context.Context, from, to time.Time) ([]domain.DealStageHistory, error) {
	var entries []domain.DealStageHistory
	err := r.db.WithContext(ctx).
		Where("occurred_at >= ? AND occurred_at <= ?", from, to).
		Order("deal_id ASC, occurred_at ASC").
		Find(&entries).Error
	return entries, err
}
