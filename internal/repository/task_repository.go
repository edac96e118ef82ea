package repository

import (
	"context"
	"time"

	"github.com/Harvlin/SaaS-CRM/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

// CountAll returns the total number of tasks
func (r *TaskRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Task{}).Count(&count).Error
	return count, err
}

// CountOverdue counts tasks past their due date that are not completed
func (r *TaskRepository) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("due_date < ?", now).
		Where("status <> ?", domain.TaskStatusCompleted).
		Count(&count).Error
	return count, err
}

// CountDueBetween counts tasks due in [from, to] that are not completed
func (r *TaskRepository) CountDueBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("due_date >= ? AND due_date <= ?", from, to).
		Where("status <> ?", domain.TaskStatusCompleted).
		Count(&count).Error
	return count, err
}

// CountCompletedBetween counts tasks completed in [from, to]
func (r *TaskRepository) CountCompletedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("status = ?", domain.TaskStatusCompleted).
		Where("completed_at >= ? AND completed_at <= ?", from, to).
		Count(&count).Error
	return count, err
}

// CountByAssignedUserCreatedBetween counts a user's tasks created in [from, to]
func (r *TaskRepository) CountByAssignedUserCreatedBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("assigned_user_id = ?", userID).
		Where("created_at >= ? AND created_at <= ?", from, to).
		Count(&count).Error
	return count, err
}

// CountCompletedByAssignedUserBetween counts a user's tasks completed in [from, to]
func (r *TaskRepository) CountCompletedByAssignedUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("assigned_user_id = ?", userID).
		Where("status = ?", domain.TaskStatusCompleted).
		Where("completed_at >= ? AND completed_at <= ?", from, to).
		Count(&count).Error
	return count, err
}
