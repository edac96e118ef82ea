package repository

import (
	"context"
	"time"

	"github.com/Harvlin/SaaS-CRM/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InteractionRepository struct {
	db *gorm.DB
}

func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

func (r *InteractionRepository) Create(ctx context.Context, interaction *domain.Interaction) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(interaction).Error
}

// ListByCustomer returns a customer's interactions, newest first
func (r *InteractionRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]domain.Interaction, error) {
	var interactions []domain.Interaction
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("interaction_date DESC").
		Limit(limit).
		Find(&interactions).Error
	return interactions, err
}

// CountAll returns the total number of interactions
func (r *InteractionRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Interaction{}).Count(&count).Error
	return count, err
}

// CountBetween counts interactions dated in [from, to]
func (r *InteractionRepository) CountBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Interaction{}).
		Where("interaction_date >= ? AND interaction_date <= ?", from, to).
		Count(&count).Error
	return count, err
}

// CountByTypeBetween returns interaction counts grouped by type for [from, to]
func (r *InteractionRepository) CountByTypeBetween(ctx context.Context, from, to time.Time) (map[domain.InteractionType]int64, error) {
	type typeCount struct {
		Type  domain.InteractionType
		Count int64
	}

	var rows []typeCount
	err := r.db.WithContext(ctx).Model(&domain.Interaction{}).
		Select("type, COUNT(*) as count").
		Where("interaction_date >= ? AND interaction_date <= ?", from, to).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.InteractionType]int64, len(rows))
	for _, row := range rows {
		counts[row.Type] = row.Count
	}
	return counts, nil
}

// CountByUserBetween counts a user's interactions dated in [from, to]
func (r *InteractionRepository) CountByUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Interaction{}).
		Where("user_id = ?", userID).
		Where("interaction_date >= ? AND interaction_date <= ?", from, to).
		Count(&count).Error
	return count, err
}

// DatesBetween returns interaction dates in [from, to] for daily bucketing
func (r *InteractionRepository) DatesBetween(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	var dates []time.Time
	err := r.db.WithContext(ctx).Model(&domain.Interaction{}).
		Where("interaction_date >= ? AND interaction_date <= ?", from, to).
		Order("interaction_date ASC").
		Pluck("interaction_date", &dates).Error
	return dates, err
}
