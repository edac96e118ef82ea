package repository

import (
	"context"
	"time"

	"github.com/Harvlin/SaaS-CRM/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(customer).Error
}

func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	var customer domain.Customer
	err := r.db.WithContext(ctx).
		Preload("AssignedUser").
		Where("id = ?", id).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *CustomerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(customer).Error
}

// CountAll returns the total number of customers
func (r *CustomerRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Customer{}).Count(&count).Error
	return count, err
}

// CountCreatedBetween returns the number of customers created in [from, to]
func (r *CustomerRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Customer{}).
		Where("created_at >= ? AND created_at <= ?", from, to).
		Count(&count).Error
	return count, err
}

// CountByStatusCreatedBetween counts customers with any of the given statuses
// created in [from, to]
func (r *CustomerRepository) CountByStatusCreatedBetween(ctx context.Context, statuses []domain.CustomerStatus, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Customer{}).
		Where("status IN ?", statuses).
		Where("created_at >= ? AND created_at <= ?", from, to).
		Count(&count).Error
	return count, err
}

// CountAssignedToUser returns the number of customers currently assigned to a user
func (r *CustomerRepository) CountAssignedToUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Customer{}).
		Where("assigned_user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// CreatedDatesBetween returns the creation timestamps of customers created in
// [from, to], for bucketing into growth series
func (r *CustomerRepository) CreatedDatesBetween(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	var dates []time.Time
	err := r.db.WithContext(ctx).Model(&domain.Customer{}).
		Where("created_at >= ? AND created_at <= ?", from, to).
		Order("created_at ASC").
		Pluck("created_at", &dates).Error
	return dates, err
}
