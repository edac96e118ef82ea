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

// InteractionService records and lists customer touchpoints
type InteractionService struct {
	interactionRepo *repository.InteractionRepository
	customerRepo    *repository.CustomerRepository
	validate        *validator.Validate
	logger          *zap.Logger
}

func NewInteractionService(
	interactionRepo *repository.InteractionRepository,
	customerRepo *repository.CustomerRepository,
	logger *zap.Logger,
) *InteractionService {
	return &InteractionService{
		interactionRepo: interactionRepo,
		customerRepo:    customerRepo,
		validate:        validator.New(),
		logger:          logger,
	}
}

// Create records an interaction. The interaction date defaults to now when
// omitted.
func (s *InteractionService) Create(ctx context.Context, req *domain.CreateInteractionRequest) (*domain.Interaction, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !req.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown interaction type %q", ErrInvalidInput, req.Type)
	}

	if _, err := s.customerRepo.GetByID(ctx, req.CustomerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("customer %s: %w", req.CustomerID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetching customer: %w", err)
	}

	when := req.InteractionDate
	if when.IsZero() {
		when = time.Now()
	}
	interaction := &domain.Interaction{
		Type:            req.Type,
		Subject:         req.Subject,
		Content:         req.Content,
		CustomerID:      req.CustomerID,
		UserID:          req.UserID,
		DealID:          req.DealID,
		InteractionDate: when,
	}
	if err := s.interactionRepo.Create(ctx, interaction); err != nil {
		return nil, fmt.Errorf("creating interaction: %w", err)
	}
	return interaction, nil
}

// ListByCustomer returns a customer's interactions, newest first
func (s *InteractionService) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]domain.Interaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	interactions, err := s.interactionRepo.ListByCustomer(ctx, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}
	return interactions, nil
}
