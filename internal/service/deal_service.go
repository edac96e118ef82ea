package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harvlin/SaaS-CRM/internal/domain"
	"github.com/Harvlin/SaaS-CRM/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DealService manages deals and records stage transitions so pipeline
// analytics can derive conversion and dwell-time metrics
type DealService struct {
	dealRepo     *repository.DealRepository
	stageRepo    *repository.PipelineStageRepository
	stageHistory *repository.DealStageHistoryRepository
	validate     *validator.Validate
	logger       *zap.Logger
}

func NewDealService(
	dealRepo *repository.DealRepository,
	stageRepo *repository.PipelineStageRepository,
	stageHistory *repository.DealStageHistoryRepository,
	logger *zap.Logger,
) *DealService {
	return &DealService{
		dealRepo:     dealRepo,
		stageRepo:    stageRepo,
		stageHistory: stageHistory,
		validate:     validator.New(),
		logger:       logger,
	}
}

// Create stores a new deal and records its entry into the initial stage.
// When the deal carries no probability, the stage default applies.
func (s *DealService) Create(ctx context.Context, deal *domain.Deal) error {
	stage, err := s.stageRepo.GetByID(ctx, deal.StageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("pipeline stage %s: %w", deal.StageID, ErrNotFound)
		}
		return fmt.Errorf("fetching pipeline stage: %w", err)
	}
	if deal.Probability == 0 && stage.DefaultProbability != nil {
		deal.Probability = *stage.DefaultProbability
	}

	if err := s.dealRepo.Create(ctx, deal); err != nil {
		return fmt.Errorf("creating deal: %w", err)
	}

	entry := &domain.DealStageHistory{
		DealID:     deal.ID,
		ToStageID:  deal.StageID,
		OccurredAt: time.Now(),
	}
	if err := s.stageHistory.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record initial stage entry",
			zap.String("deal_id", deal.ID.String()),
			zap.Error(err))
	}
	return nil
}

// GetByID returns a deal with its customer, stage, and assigned user loaded
func (s *DealService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("deal %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("fetching deal: %w", err)
	}
	return deal, nil
}

// UpdateStage moves a deal to another pipeline stage, syncing the deal
// probability to the new stage's default unless the request overrides it,
// and appends a stage history entry
func (s *DealService) UpdateStage(ctx context.Context, dealID uuid.UUID, req *domain.UpdateDealStageRequest) (*domain.Deal, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	deal, err := s.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != domain.DealStatusOpen {
		return nil, fmt.Errorf("%w: cannot move %s deal between stages", ErrInvalidState, deal.Status)
	}

	stage, err := s.stageRepo.GetByID(ctx, req.StageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("pipeline stage %s: %w", req.StageID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetching pipeline stage: %w", err)
	}

	probability := deal.Probability
	switch {
	case req.Probability != nil:
		probability = *req.Probability
	case stage.DefaultProbability != nil:
		probability = *stage.DefaultProbability
	}

	if err := s.dealRepo.UpdateStage(ctx, dealID, stage.ID, probability); err != nil {
		return nil, fmt.Errorf("updating deal stage: %w", err)
	}

	fromStage := deal.StageID
	entry := &domain.DealStageHistory{
		DealID:      dealID,
		FromStageID: &fromStage,
		ToStageID:   stage.ID,
		OccurredAt:  time.Now(),
	}
	if err := s.stageHistory.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record stage transition",
			zap.String("deal_id", dealID.String()),
			zap.Error(err))
	}

	s.logger.Info("deal moved to new stage",
		zap.String("deal_id", dealID.String()),
		zap.String("stage", stage.Name),
		zap.Int("probability", probability))

	return s.GetByID(ctx, dealID)
}
