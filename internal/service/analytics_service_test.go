package service_test

import (
	"context"
	"testing"
	"time"

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
	"gorm.io/gorm/clause"
)

func newAnalyticsService(db *gorm.DB) *service.AnalyticsService {
	return service.NewAnalyticsService(
		repository.NewCustomerRepository(db),
		repository.NewDealRepository(db),
		repository.NewPipelineStageRepository(db),
		repository.NewDealStageHistoryRepository(db),
		repository.NewTaskRepository(db),
		repository.NewInteractionRepository(db),
		repository.NewUserRepository(db),
		zap.NewNop(),
	)
}

func intPtr(n int) *int { return &n }

func TestAnalyticsService_GetDashboardMetrics(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newAnalyticsService(db)
	ctx := context.Background()

	lead := testutil.CreateTestCustomer(t, db, "Lead", domain.CustomerStatusLead)
	active := testutil.CreateTestCustomer(t, db, "Converted", domain.CustomerStatusActive)

	stage := testutil.CreateTestStage(t, db, "Qualified", 1, intPtr(20))
	testutil.CreateTestDeal(t, db, lead, stage, "1000.00", 20, domain.DealStatusOpen)
	testutil.CreateTestDeal(t, db, active, stage, "500.00", 100, domain.DealStatusWon)
	testutil.CreateTestDeal(t, db, active, stage, "300.00", 0, domain.DealStatusLost)

	user := testutil.CreateTestUser(t, db, "rep")
	testutil.CreateTestInteraction(t, db, lead, user, domain.InteractionTypeCall, time.Now())

	metrics, err := svc.GetDashboardMetrics(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(2), metrics.TotalCustomers)
	assert.Equal(t, int64(2), metrics.NewCustomers)
	assert.Equal(t, int64(3), metrics.TotalDeals)
	assert.Equal(t, int64(1), metrics.TotalInteractions)

	assert.Equal(t, int64(1), metrics.OpenDeals)
	assert.Equal(t, int64(1), metrics.WonDeals)
	assert.Equal(t, int64(1), metrics.LostDeals)
	assert.True(t, metrics.TotalDealValue.Equal(decimal.RequireFromString("1800.00")), "total %s", metrics.TotalDealValue)
	assert.True(t, metrics.OpenDealValue.Equal(decimal.RequireFromString("1000.00")))
	assert.True(t, metrics.WonDealValue.Equal(decimal.RequireFromString("500.00")))

	// One of two closed deals won
	assert.InDelta(t, 0.5, metrics.DealWinRate, 1e-9)
	// One of two new customers progressed past lead
	assert.InDelta(t, 0.5, metrics.LeadToCustomerRate, 1e-9)

	// Every interaction type is present, zero-filled
	require.Len(t, metrics.InteractionsByType, 4)
	assert.Equal(t, int64(1), metrics.InteractionsByType[domain.InteractionTypeCall])
	assert.Equal(t, int64(0), metrics.InteractionsByType[domain.InteractionTypeMeeting])

	require.NotEmpty(t, metrics.InteractionsByDay)
	var daySum int64
	for _, p := range metrics.InteractionsByDay {
		daySum += p.Count
	}
	assert.Equal(t, int64(1), daySum)

	require.Len(t, metrics.PipelineStageMetrics, 1)
	// No deal is assigned to a user, so the per-user breakdown is empty
	assert.Empty(t, metrics.SalesPerformance)
}

func TestAnalyticsService_GetDashboardMetrics_RejectsInvertedRange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newAnalyticsService(db)

	_, err := svc.GetDashboardMetrics(context.Background(), &domain.DateRange{
		Start: time.Now(),
		End:   time.Now().Add(-time.Hour),
	})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestAnalyticsService_GetPipelineMetrics(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newAnalyticsService(db)
	ctx := context.Background()

	customer := testutil.CreateTestCustomer(t, db, "Pipeline", domain.CustomerStatusActive)
	first := testutil.CreateTestStage(t, db, "Contacted", 1, intPtr(10))
	second := testutil.CreateTestStage(t, db, "Negotiating", 2, intPtr(60))
	testutil.CreateTestStage(t, db, "Closing", 3, intPtr(90))

	testutil.CreateTestDeal(t, db, customer, first, "1000.00", 10, domain.DealStatusOpen)
	testutil.CreateTestDeal(t, db, customer, first, "3000.00", 30, domain.DealStatusOpen)
	moved := testutil.CreateTestDeal(t, db, customer, second, "2000.00", 60, domain.DealStatusOpen)
	// Won deals no longer sit in the pipeline
	testutil.CreateTestDeal(t, db, customer, second, "9000.00", 100, domain.DealStatusWon)

	// The moved deal entered first, then advanced to second two days later
	entered := time.Now().Add(-5 * 24 * time.Hour)
	require.NoError(t, db.Omit(clause.Associations).Create(&domain.DealStageHistory{
		DealID: moved.ID, ToStageID: first.ID, OccurredAt: entered,
	}).Error)
	fromFirst := first.ID
	require.NoError(t, db.Omit(clause.Associations).Create(&domain.DealStageHistory{
		DealID: moved.ID, FromStageID: &fromFirst, ToStageID: second.ID,
		OccurredAt: entered.Add(2 * 24 * time.Hour),
	}).Error)

	metrics, err := svc.GetPipelineMetrics(ctx, nil)
	require.NoError(t, err)
	require.Len(t, metrics, 3)

	// Ordered by display order
	assert.Equal(t, "Contacted", metrics[0].StageName)
	assert.Equal(t, "Negotiating", metrics[1].StageName)
	assert.Equal(t, "Closing", metrics[2].StageName)

	assert.Equal(t, int64(2), metrics[0].DealCount)
	assert.True(t, metrics[0].TotalValue.Equal(decimal.RequireFromString("4000.00")), "total %s", metrics[0].TotalValue)
	assert.True(t, metrics[0].AverageValue.Equal(decimal.RequireFromString("2000.00")))
	assert.InDelta(t, 20, metrics[0].Probability, 1e-9)
	// 4000 discounted by the stage's mean probability of 20%
	assert.True(t, metrics[0].WeightedValue.Equal(decimal.RequireFromString("800.00")), "weighted %s", metrics[0].WeightedValue)

	// The one departure from Contacted advanced
	assert.InDelta(t, 1.0, metrics[0].ConversionRate, 1e-9)
	assert.InDelta(t, 2.0, metrics[0].AvgTimeInStage, 0.01)

	assert.Equal(t, int64(1), metrics[1].DealCount)
	assert.True(t, metrics[1].TotalValue.Equal(decimal.RequireFromString("2000.00")))
	assert.True(t, metrics[1].WeightedValue.Equal(decimal.RequireFromString("1200.00")), "weighted %s", metrics[1].WeightedValue)

	// Empty stage still present, with its default probability
	assert.Equal(t, int64(0), metrics[2].DealCount)
	assert.True(t, metrics[2].TotalValue.IsZero())
	assert.True(t, metrics[2].WeightedValue.IsZero())
	assert.InDelta(t, 90, metrics[2].Probability, 1e-9)
}

func TestAnalyticsService_SalesPerformance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newAnalyticsService(db)
	ctx := context.Background()

	rep := testutil.CreateTestUser(t, db, "closer")
	idle := testutil.CreateTestUser(t, db, "idle")

	customer := testutil.CreateTestCustomer(t, db, "Perf", domain.CustomerStatusActive)
	require.NoError(t, db.Model(customer).Update("assigned_user_id", rep.ID).Error)

	stage := testutil.CreateTestStage(t, db, "Any", 1, nil)
	won := testutil.CreateTestDeal(t, db, customer, stage, "800.00", 100, domain.DealStatusWon)
	lost := testutil.CreateTestDeal(t, db, customer, stage, "200.00", 0, domain.DealStatusLost)
	require.NoError(t, db.Model(won).Update("assigned_user_id", rep.ID).Error)
	require.NoError(t, db.Model(lost).Update("assigned_user_id", rep.ID).Error)

	testutil.CreateTestInteraction(t, db, customer, rep, domain.InteractionTypeMeeting, time.Now())

	t.Run("only users holding deals appear", func(t *testing.T) {
		metrics, err := svc.GetSalesPerformance(ctx, nil)
		require.NoError(t, err)
		require.Len(t, metrics, 1)

		closer := metrics[0]
		assert.Equal(t, "closer", closer.UserName)
		assert.Equal(t, int64(1), closer.CustomerCount)
		assert.Equal(t, int64(2), closer.DealCount)
		assert.Equal(t, int64(1), closer.WonDealCount)
		assert.Equal(t, int64(1), closer.LostDealCount)
		assert.True(t, closer.TotalDealValue.Equal(decimal.RequireFromString("1000.00")))
		assert.True(t, closer.WonDealValue.Equal(decimal.RequireFromString("800.00")))
		assert.InDelta(t, 0.5, closer.WinRate, 1e-9)
		assert.Equal(t, int64(1), closer.InteractionCount)
	})

	t.Run("single user", func(t *testing.T) {
		metric, err := svc.GetSalesPerformanceByUser(ctx, rep.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, "closer", metric.UserName)
		assert.Equal(t, int64(2), metric.DealCount)
	})

	t.Run("user without deals still resolves directly", func(t *testing.T) {
		metric, err := svc.GetSalesPerformanceByUser(ctx, idle.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), metric.DealCount)
		assert.Equal(t, float64(0), metric.WinRate)
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		_, err := svc.GetSalesPerformanceByUser(ctx, uuid.New(), nil)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestAnalyticsService_Trends(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newAnalyticsService(db)
	ctx := context.Background()

	testutil.CreateTestCustomer(t, db, "Growth", domain.CustomerStatusLead)

	t.Run("customer growth fills gaps", func(t *testing.T) {
		points, err := svc.GetCustomerGrowth(ctx, nil, "day")
		require.NoError(t, err)
		require.Len(t, points, 31)

		var total int64
		for _, p := range points {
			total += p.Count
		}
		assert.Equal(t, int64(1), total)
		// Today's bucket holds the signup
		assert.Equal(t, int64(1), points[len(points)-1].Count)
	})

	t.Run("unknown interval is rejected", func(t *testing.T) {
		_, err := svc.GetCustomerGrowth(ctx, nil, "hourly")
		assert.ErrorIs(t, err, service.ErrInvalidInput)

		_, err = svc.GetDealValueTrend(ctx, nil, "quarter")
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("deal value trend sums bucket amounts", func(t *testing.T) {
		customer := testutil.CreateTestCustomer(t, db, "Trend", domain.CustomerStatusActive)
		stage := testutil.CreateTestStage(t, db, "Any", 1, nil)
		testutil.CreateTestDeal(t, db, customer, stage, "100.00", 50, domain.DealStatusOpen)
		testutil.CreateTestDeal(t, db, customer, stage, "250.00", 50, domain.DealStatusOpen)

		points, err := svc.GetDealValueTrend(ctx, nil, "month")
		require.NoError(t, err)
		require.NotEmpty(t, points)

		last := points[len(points)-1]
		assert.True(t, last.Value.Equal(decimal.RequireFromString("350.00")), "value %s", last.Value)
	})
}

func TestAnalyticsService_GenerateSalesForecast(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newAnalyticsService(db)
	ctx := context.Background()

	t.Run("rejects non-positive horizon", func(t *testing.T) {
		for _, months := range []int{0, -1} {
			_, err := svc.GenerateSalesForecast(ctx, months)
			assert.ErrorIs(t, err, service.ErrInvalidInput)
		}
	})

	t.Run("projects weighted open deal value", func(t *testing.T) {
		customer := testutil.CreateTestCustomer(t, db, "Forecast", domain.CustomerStatusActive)
		stage := testutil.CreateTestStage(t, db, "Any", 1, nil)

		dated := testutil.CreateTestDeal(t, db, customer, stage, "1000.00", 50, domain.DealStatusOpen)
		now := time.Now()
		require.NoError(t, db.Model(dated).Update("expected_close_date", now).Error)

		// No expected close date: weighted value spreads across the horizon
		testutil.CreateTestDeal(t, db, customer, stage, "200.00", 100, domain.DealStatusOpen)

		// Closed deals never contribute
		testutil.CreateTestDeal(t, db, customer, stage, "9999.00", 100, domain.DealStatusWon)

		points, err := svc.GenerateSalesForecast(ctx, 2)
		require.NoError(t, err)
		require.Len(t, points, 2)

		// The horizon starts the month after now and advances month by month
		firstMonth := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
		assert.Equal(t, firstMonth.Format("2006-01"), points[0].Month)
		assert.Equal(t, firstMonth.AddDate(0, 1, 0).Format("2006-01"), points[1].Month)
		assert.NotEqual(t, now.Format("2006-01"), points[0].Month)

		// 1000*50% already past its close date plus half of 200*100%
		assert.True(t, points[0].Value.Equal(decimal.RequireFromString("600.00")), "month 1 %s", points[0].Value)
		assert.True(t, points[1].Value.Equal(decimal.RequireFromString("100.00")), "month 2 %s", points[1].Value)
	})
}
