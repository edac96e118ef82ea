package service_test

import (
	"context"
	"testing"

	"github.com/Harvlin/SaaS-CRM/internal/domain"
	"github.com/Harvlin/SaaS-CRM/internal/repository"
	"github.com/Harvlin/SaaS-CRM/internal/service"
	"github.com/Harvlin/SaaS-CRM/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newDealService(db *gorm.DB) *service.DealService {
	return service.NewDealService(
		repository.NewDealRepository(db),
		repository.NewPipelineStageRepository(db),
		repository.NewDealStageHistoryRepository(db),
		zap.NewNop(),
	)
}

func TestDealService_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newDealService(db)
	ctx := context.Background()

	customer := testutil.CreateTestCustomer(t, db, "Buyer", domain.CustomerStatusActive)
	stage := testutil.CreateTestStage(t, db, "Contacted", 1, intPtr(25))

	t.Run("applies stage default probability and records entry", func(t *testing.T) {
		deal := &domain.Deal{
			Title:      "First deal",
			Amount:     decimal.RequireFromString("1500.00"),
			CustomerID: customer.ID,
			StageID:    stage.ID,
			Status:     domain.DealStatusOpen,
		}
		require.NoError(t, svc.Create(ctx, deal))
		assert.Equal(t, 25, deal.Probability)

		var entries []domain.DealStageHistory
		require.NoError(t, db.Where("deal_id = ?", deal.ID).Find(&entries).Error)
		require.Len(t, entries, 1)
		assert.Nil(t, entries[0].FromStageID)
		assert.Equal(t, stage.ID, entries[0].ToStageID)
	})

	t.Run("unknown stage is not found", func(t *testing.T) {
		deal := &domain.Deal{
			Title:      "Orphan",
			CustomerID: customer.ID,
			StageID:    uuid.New(),
			Status:     domain.DealStatusOpen,
		}
		assert.ErrorIs(t, svc.Create(ctx, deal), service.ErrNotFound)
	})
}

func TestDealService_UpdateStage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newDealService(db)
	ctx := context.Background()

	customer := testutil.CreateTestCustomer(t, db, "Mover", domain.CustomerStatusActive)
	first := testutil.CreateTestStage(t, db, "Contacted", 1, intPtr(10))
	second := testutil.CreateTestStage(t, db, "Negotiating", 2, intPtr(60))

	t.Run("syncs probability to the new stage default", func(t *testing.T) {
		deal := testutil.CreateTestDeal(t, db, customer, first, "1000.00", 10, domain.DealStatusOpen)

		updated, err := svc.UpdateStage(ctx, deal.ID, &domain.UpdateDealStageRequest{StageID: second.ID})
		require.NoError(t, err)
		assert.Equal(t, second.ID, updated.StageID)
		assert.Equal(t, 60, updated.Probability)

		var entries []domain.DealStageHistory
		require.NoError(t, db.Where("deal_id = ?", deal.ID).Order("occurred_at ASC").Find(&entries).Error)
		require.Len(t, entries, 1)
		require.NotNil(t, entries[0].FromStageID)
		assert.Equal(t, first.ID, *entries[0].FromStageID)
		assert.Equal(t, second.ID, entries[0].ToStageID)
	})

	t.Run("explicit probability overrides the default", func(t *testing.T) {
		deal := testutil.CreateTestDeal(t, db, customer, first, "1000.00", 10, domain.DealStatusOpen)

		updated, err := svc.UpdateStage(ctx, deal.ID, &domain.UpdateDealStageRequest{
			StageID:     second.ID,
			Probability: intPtr(85),
		})
		require.NoError(t, err)
		assert.Equal(t, 85, updated.Probability)
	})

	t.Run("closed deals cannot move", func(t *testing.T) {
		deal := testutil.CreateTestDeal(t, db, customer, first, "1000.00", 100, domain.DealStatusWon)

		_, err := svc.UpdateStage(ctx, deal.ID, &domain.UpdateDealStageRequest{StageID: second.ID})
		assert.ErrorIs(t, err, service.ErrInvalidState)
	})

	t.Run("unknown deal is not found", func(t *testing.T) {
		_, err := svc.UpdateStage(ctx, uuid.New(), &domain.UpdateDealStageRequest{StageID: second.ID})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("unknown target stage is not found", func(t *testing.T) {
		deal := testutil.CreateTestDeal(t, db, customer, first, "1000.00", 10, domain.DealStatusOpen)

		_, err := svc.UpdateStage(ctx, deal.ID, &domain.UpdateDealStageRequest{StageID: uuid.New()})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}
