package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harvlin/SaaS-CRM/internal/domain"
	"github.com/Harvlin/SaaS-CRM/internal/repository"
	"github.com/Harvlin/SaaS-CRM/internal/timeseries"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// defaultRangeDays is the window used when a request omits the date range
const defaultRangeDays = 30

// AnalyticsService aggregates CRM data into dashboard, pipeline, performance,
// trend, and forecast metrics. All monetary aggregation uses exact decimal
// arithmetic; rates are float64 in [0, 1].
type AnalyticsService struct {
	customerRepo    *repository.CustomerRepository
	dealRepo        *repository.DealRepository
	stageRepo       *repository.PipelineStageRepository
	stageHistory    *repository.DealStageHistoryRepository
	taskRepo        *repository.TaskRepository
	interactionRepo *repository.InteractionRepository
	userRepo        *repository.UserRepository
	logger          *zap.Logger
}

func NewAnalyticsService(
	customerRepo *repository.CustomerRepository,
	dealRepo *repository.DealRepository,
	stageRepo *repository.PipelineStageRepository,
	stageHistory *repository.DealStageHistoryRepository,
	taskRepo *repository.TaskRepository,
	interactionRepo *repository.InteractionRepository,
	userRepo *repository.UserRepository,
	logger *zap.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		customerRepo:    customerRepo,
		dealRepo:        dealRepo,
		stageRepo:       stageRepo,
		stageHistory:    stageHistory,
		taskRepo:        taskRepo,
		interactionRepo: interactionRepo,
		userRepo:        userRepo,
		logger:          logger,
	}
}

// normalizeRange fills in missing range endpoints and validates ordering.
// A nil range means the trailing defaultRangeDays window ending now.
func normalizeRange(rng *domain.DateRange) (time.Time, time.Time, error) {
	now := time.Now()
	if rng == nil {
		return now.AddDate(0, 0, -defaultRangeDays), now, nil
	}
	start, end := rng.Start, rng.End
	if end.IsZero() {
		end = now
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -defaultRangeDays)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: range end %s before start %s",
			ErrInvalidInput, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return start, end, nil
}

// GetDashboardMetrics assembles the full dashboard snapshot for a date range
func (s *AnalyticsService) GetDashboardMetrics(ctx context.Context, rng *domain.DateRange) (*domain.DashboardMetrics, error) {
	from, to, err := normalizeRange(rng)
	if err != nil {
		return nil, err
	}

	metrics := &domain.DashboardMetrics{
		TotalDealValue: decimal.Zero,
		OpenDealValue:  decimal.Zero,
		WonDealValue:   decimal.Zero,
	}

	if metrics.TotalCustomers, err = s.customerRepo.CountAll(ctx); err != nil {
		return nil, fmt.Errorf("counting customers: %w", err)
	}
	if metrics.NewCustomers, err = s.customerRepo.CountCreatedBetween(ctx, from, to); err != nil {
		return nil, fmt.Errorf("counting new customers: %w", err)
	}
	if metrics.TotalDeals, err = s.dealRepo.CountAll(ctx); err != nil {
		return nil, fmt.Errorf("counting deals: %w", err)
	}
	if metrics.TotalTasks, err = s.taskRepo.CountAll(ctx); err != nil {
		return nil, fmt.Errorf("counting tasks: %w", err)
	}
	if metrics.TotalInteractions, err = s.interactionRepo.CountAll(ctx); err != nil {
		return nil, fmt.Errorf("counting interactions: %w", err)
	}

	deals, err := s.dealRepo.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing deals: %w", err)
	}
	for i := range deals {
		d := &deals[i]
		metrics.TotalDealValue = metrics.TotalDealValue.Add(d.Amount)
		switch d.Status {
		case domain.DealStatusOpen:
			metrics.OpenDeals++
			metrics.OpenDealValue = metrics.OpenDealValue.Add(d.Amount)
		case domain.DealStatusWon:
			metrics.WonDeals++
			metrics.WonDealValue = metrics.WonDealValue.Add(d.Amount)
		case domain.DealStatusLost:
			metrics.LostDeals++
		}
	}
	if closed := metrics.WonDeals + metrics.LostDeals; closed > 0 {
		metrics.DealWinRate = float64(metrics.WonDeals) / float64(closed)
	}

	if metrics.PipelineStageMetrics, err = s.pipelineMetrics(ctx, deals, from, to); err != nil {
		return nil, err
	}

	now := time.Now()
	if metrics.OverdueTasks, err = s.taskRepo.CountOverdue(ctx, now); err != nil {
		return nil, fmt.Errorf("counting overdue tasks: %w", err)
	}
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if metrics.TasksDueToday, err = s.taskRepo.CountDueBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)); err != nil {
		return nil, fmt.Errorf("counting tasks due today: %w", err)
	}
	weekStart := dayStart.AddDate(0, 0, -((int(dayStart.Weekday()) + 6) % 7))
	if metrics.CompletedTasksThisWeek, err = s.taskRepo.CountCompletedBetween(ctx, weekStart, now); err != nil {
		return nil, fmt.Errorf("counting completed tasks: %w", err)
	}

	metrics.LeadToCustomerRate, err = s.leadToCustomerRate(ctx, from, to)
	if err != nil {
		return nil, err
	}
	metrics.AvgDealCycleTime, err = s.avgDealCycleTime(ctx, from, to)
	if err != nil {
		return nil, err
	}

	if metrics.InteractionsByType, err = s.GetInteractionsByType(ctx, &domain.DateRange{Start: from, End: to}); err != nil {
		return nil, err
	}
	if metrics.InteractionsByDay, err = s.interactionsByDay(ctx, from, to); err != nil {
		return nil, err
	}

	if metrics.SalesPerformance, err = s.salesPerformance(ctx, deals, from, to); err != nil {
		return nil, err
	}

	return metrics, nil
}

// leadToCustomerRate is the share of customers created in the range that have
// progressed past the lead stage
func (s *AnalyticsService) leadToCustomerRate(ctx context.Context, from, to time.Time) (float64, error) {
	total, err := s.customerRepo.CountCreatedBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("counting created customers: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	converted, err := s.customerRepo.CountByStatusCreatedBetween(ctx,
		[]domain.CustomerStatus{domain.CustomerStatusActive, domain.CustomerStatusProspect}, from, to)
	if err != nil {
		return 0, fmt.Errorf("counting converted customers: %w", err)
	}
	return float64(converted) / float64(total), nil
}

// avgDealCycleTime is the mean creation-to-close duration in days for deals
// won in the range
func (s *AnalyticsService) avgDealCycleTime(ctx context.Context, from, to time.Time) (float64, error) {
	won, err := s.dealRepo.ListWonClosedBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("listing won deals: %w", err)
	}
	if len(won) == 0 {
		return 0, nil
	}
	var total float64
	for i := range won {
		total += won[i].UpdatedAt.Sub(won[i].CreatedAt).Hours() / 24
	}
	return total / float64(len(won)), nil
}

func (s *AnalyticsService) interactionsByDay(ctx context.Context, from, to time.Time) ([]domain.CountPoint, error) {
	dates, err := s.interactionRepo.DatesBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing interaction dates: %w", err)
	}
	return countSeries(dates, from, to, timeseries.IntervalDay), nil
}

// countSeries buckets timestamps into a gap-free count series over [from, to]
func countSeries(dates []time.Time, from, to time.Time, interval timeseries.Interval) []domain.CountPoint {
	keys := timeseries.Buckets(from, to, interval)
	counts := make(map[string]int64, len(keys))
	for _, d := range dates {
		counts[timeseries.Key(d, interval)]++
	}
	points := make([]domain.CountPoint, 0, len(keys))
	for _, key := range keys {
		points = append(points, domain.CountPoint{Bucket: key, Count: counts[key]})
	}
	return points
}

// GetPipelineMetrics returns per-stage deal statistics for a date range,
// ordered by stage display order. Every stage appears even when it holds
// no deals.
func (s *AnalyticsService) GetPipelineMetrics(ctx context.Context, rng *domain.DateRange) ([]domain.PipelineStageMetric, error) {
	from, to, err := normalizeRange(rng)
	if err != nil {
		return nil, err
	}
	deals, err := s.dealRepo.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing deals: %w", err)
	}
	return s.pipelineMetrics(ctx, deals, from, to)
}

func (s *AnalyticsService) pipelineMetrics(ctx context.Context, deals []domain.Deal, from, to time.Time) ([]domain.PipelineStageMetric, error) {
	stages, err := s.stageRepo.ListOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pipeline stages: %w", err)
	}

	type stageAgg struct {
		dealCount   int64
		total       decimal.Decimal
		probability int64
	}
	aggs := make(map[uuid.UUID]*stageAgg, len(stages))
	for _, st := range stages {
		aggs[st.ID] = &stageAgg{total: decimal.Zero}
	}

	for i := range deals {
		d := &deals[i]
		if d.Status != domain.DealStatusOpen {
			continue
		}
		agg, ok := aggs[d.StageID]
		if !ok {
			// Stage removed since the deal was created
			s.logger.Warn("deal references unknown pipeline stage",
				zap.String("deal_id", d.ID.String()),
				zap.String("stage_id", d.StageID.String()))
			continue
		}
		agg.dealCount++
		agg.total = agg.total.Add(d.Amount)
		agg.probability += int64(d.Probability)
	}

	conversion, dwell, err := s.stageFlowMetrics(ctx, stages, from, to)
	if err != nil {
		return nil, err
	}

	metrics := make([]domain.PipelineStageMetric, 0, len(stages))
	for _, st := range stages {
		agg := aggs[st.ID]
		m := domain.PipelineStageMetric{
			StageID:        st.ID,
			StageName:      st.Name,
			DealCount:      agg.dealCount,
			TotalValue:     agg.total,
			AverageValue:   decimal.Zero,
			ConversionRate: conversion[st.ID],
			AvgTimeInStage: dwell[st.ID],
		}
		if agg.dealCount > 0 {
			m.AverageValue = agg.total.Div(decimal.NewFromInt(agg.dealCount)).Round(2)
			m.Probability = float64(agg.probability) / float64(agg.dealCount)
		} else if st.DefaultProbability != nil {
			m.Probability = float64(*st.DefaultProbability)
		}
		// Stage value discounted by the stage's effective probability
		m.WeightedValue = m.TotalValue.Mul(decimal.NewFromFloat(m.Probability)).Div(decimal.NewFromInt(100)).Round(2)
		metrics = append(metrics, m)
	}
	return metrics, nil
}

// stageFlowMetrics derives per-stage conversion rates and mean dwell times
// (in days) from stage transition history in [from, to]. Conversion is the
// share of departures from a stage that moved forward in display order.
func (s *AnalyticsService) stageFlowMetrics(ctx context.Context, stages []domain.PipelineStage, from, to time.Time) (map[uuid.UUID]float64, map[uuid.UUID]float64, error) {
	entries, err := s.stageHistory.ListBetween(ctx, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("listing stage history: %w", err)
	}

	order := make(map[uuid.UUID]int, len(stages))
	for _, st := range stages {
		order[st.ID] = st.DisplayOrder
	}

	departures := make(map[uuid.UUID]int64)
	advances := make(map[uuid.UUID]int64)
	dwellTotal := make(map[uuid.UUID]float64)
	dwellCount := make(map[uuid.UUID]int64)

	// Entries are ordered by deal then time, so consecutive rows of the same
	// deal bound one dwell interval.
	for i, e := range entries {
		if e.FromStageID != nil {
			departures[*e.FromStageID]++
			if order[e.ToStageID] > order[*e.FromStageID] {
				advances[*e.FromStageID]++
			}
		}
		if i+1 < len(entries) && entries[i+1].DealID == e.DealID {
			next := entries[i+1]
			dwellTotal[e.ToStageID] += next.OccurredAt.Sub(e.OccurredAt).Hours() / 24
			dwellCount[e.ToStageID]++
		}
	}

	conversion := make(map[uuid.UUID]float64, len(stages))
	dwell := make(map[uuid.UUID]float64, len(stages))
	for _, st := range stages {
		if d := departures[st.ID]; d > 0 {
			conversion[st.ID] = float64(advances[st.ID]) / float64(d)
		}
		if c := dwellCount[st.ID]; c > 0 {
			dwell[st.ID] = dwellTotal[st.ID] / float64(c)
		}
	}
	return conversion, dwell, nil
}

// GetSalesPerformance returns per-user sales statistics for a date range,
// one entry per user holding at least one deal in the range
func (s *AnalyticsService) GetSalesPerformance(ctx context.Context, rng *domain.DateRange) ([]domain.SalesPerformanceMetric, error) {
	from, to, err := normalizeRange(rng)
	if err != nil {
		return nil, err
	}
	deals, err := s.dealRepo.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing deals: %w", err)
	}
	return s.salesPerformance(ctx, deals, from, to)
}

func (s *AnalyticsService) salesPerformance(ctx context.Context, deals []domain.Deal, from, to time.Time) ([]domain.SalesPerformanceMetric, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	byUser := groupDealsByUser(deals)
	metrics := make([]domain.SalesPerformanceMetric, 0, len(byUser))
	for i := range users {
		userDeals, ok := byUser[users[i].ID]
		if !ok {
			continue
		}
		m, err := s.userPerformance(ctx, &users[i], userDeals, from, to)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, *m)
	}
	return metrics, nil
}

// GetSalesPerformanceByUser returns one user's sales statistics, or
// ErrNotFound when the user does not exist
func (s *AnalyticsService) GetSalesPerformanceByUser(ctx context.Context, userID uuid.UUID, rng *domain.DateRange) (*domain.SalesPerformanceMetric, error) {
	from, to, err := normalizeRange(rng)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	deals, err := s.dealRepo.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing deals: %w", err)
	}
	return s.userPerformance(ctx, user, groupDealsByUser(deals)[user.ID], from, to)
}

func groupDealsByUser(deals []domain.Deal) map[uuid.UUID][]*domain.Deal {
	byUser := make(map[uuid.UUID][]*domain.Deal)
	for i := range deals {
		if deals[i].AssignedUserID == nil {
			continue
		}
		byUser[*deals[i].AssignedUserID] = append(byUser[*deals[i].AssignedUserID], &deals[i])
	}
	return byUser
}

func (s *AnalyticsService) userPerformance(ctx context.Context, user *domain.User, deals []*domain.Deal, from, to time.Time) (*domain.SalesPerformanceMetric, error) {
	m := &domain.SalesPerformanceMetric{
		UserID:         user.ID,
		UserName:       user.Username,
		TotalDealValue: decimal.Zero,
		WonDealValue:   decimal.Zero,
	}

	var err error
	if m.CustomerCount, err = s.customerRepo.CountAssignedToUser(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("counting assigned customers: %w", err)
	}

	for _, d := range deals {
		m.DealCount++
		m.TotalDealValue = m.TotalDealValue.Add(d.Amount)
		switch d.Status {
		case domain.DealStatusWon:
			m.WonDealCount++
			m.WonDealValue = m.WonDealValue.Add(d.Amount)
		case domain.DealStatusLost:
			m.LostDealCount++
		}
	}
	if closed := m.WonDealCount + m.LostDealCount; closed > 0 {
		m.WinRate = float64(m.WonDealCount) / float64(closed)
	}

	if m.TaskCount, err = s.taskRepo.CountByAssignedUserCreatedBetween(ctx, user.ID, from, to); err != nil {
		return nil, fmt.Errorf("counting user tasks: %w", err)
	}
	if m.CompletedTaskCount, err = s.taskRepo.CountCompletedByAssignedUserBetween(ctx, user.ID, from, to); err != nil {
		return nil, fmt.Errorf("counting completed user tasks: %w", err)
	}
	if m.InteractionCount, err = s.interactionRepo.CountByUserBetween(ctx, user.ID, from, to); err != nil {
		return nil, fmt.Errorf("counting user interactions: %w", err)
	}
	return m, nil
}

// GetCustomerGrowth returns a gap-free series of customer signups bucketed by
// the given interval token (day, week, or month)
func (s *AnalyticsService) GetCustomerGrowth(ctx context.Context, rng *domain.DateRange, interval string) ([]domain.CountPoint, error) {
	iv, err := timeseries.ParseInterval(interval)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	from, to, err := normalizeRange(rng)
	if err != nil {
		return nil, err
	}
	dates, err := s.customerRepo.CreatedDatesBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing customer creation dates: %w", err)
	}
	return countSeries(dates, from, to, iv), nil
}

// GetDealValueTrend returns a gap-free series of created deal value bucketed
// by the given interval token (day, week, or month)
func (s *AnalyticsService) GetDealValueTrend(ctx context.Context, rng *domain.DateRange, interval string) ([]domain.ValuePoint, error) {
	iv, err := timeseries.ParseInterval(interval)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	from, to, err := normalizeRange(rng)
	if err != nil {
		return nil, err
	}
	deals, err := s.dealRepo.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing deals: %w", err)
	}

	keys := timeseries.Buckets(from, to, iv)
	sums := make(map[string]decimal.Decimal, len(keys))
	for i := range deals {
		key := timeseries.Key(deals[i].CreatedAt, iv)
		sums[key] = sums[key].Add(deals[i].Amount)
	}
	points := make([]domain.ValuePoint, 0, len(keys))
	for _, key := range keys {
		v, ok := sums[key]
		if !ok {
			v = decimal.Zero
		}
		points = append(points, domain.ValuePoint{Bucket: key, Value: v})
	}
	return points, nil
}

// GetInteractionsByType returns interaction counts per type over a date range.
// Every known type is present, zero-valued when absent.
func (s *AnalyticsService) GetInteractionsByType(ctx context.Context, rng *domain.DateRange) (map[domain.InteractionType]int64, error) {
	from, to, err := normalizeRange(rng)
	if err != nil {
		return nil, err
	}
	counts, err := s.interactionRepo.CountByTypeBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("counting interactions by type: %w", err)
	}
	result := make(map[domain.InteractionType]int64, len(domain.InteractionTypes()))
	for _, t := range domain.InteractionTypes() {
		result[t] = counts[t]
	}
	return result, nil
}

// GenerateSalesForecast projects expected revenue per month over the given
// horizon, starting with the month after now. Each open deal contributes its
// probability-weighted amount to the month of its expected close date; deals
// whose expected close already passed count toward the first forecast month,
// deals beyond the horizon are excluded, and deals without an expected close
// date are spread evenly across the horizon.
func (s *AnalyticsService) GenerateSalesForecast(ctx context.Context, months int) ([]domain.ForecastPoint, error) {
	if months <= 0 {
		return nil, fmt.Errorf("%w: forecast horizon must be positive, got %d", ErrInvalidInput, months)
	}

	deals, err := s.dealRepo.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing open deals: %w", err)
	}

	now := time.Now()
	first := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
	keys := make([]string, months)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		key := first.AddDate(0, i, 0).Format("2006-01")
		keys[i] = key
		index[key] = i
	}
	horizon := first.AddDate(0, months, 0)

	values := make([]decimal.Decimal, months)
	for i := range values {
		values[i] = decimal.Zero
	}
	unscheduled := decimal.Zero

	for i := range deals {
		d := &deals[i]
		weighted := d.WeightedAmount()
		if d.ExpectedCloseDate == nil {
			unscheduled = unscheduled.Add(weighted)
			continue
		}
		closeAt := *d.ExpectedCloseDate
		if !closeAt.Before(horizon) {
			continue
		}
		// Close dates before the first forecast month land in its bucket
		idx := 0
		if i, ok := index[closeAt.Format("2006-01")]; ok {
			idx = i
		}
		values[idx] = values[idx].Add(weighted)
	}

	if unscheduled.IsPositive() {
		share := unscheduled.Div(decimal.NewFromInt(int64(months))).Round(2)
		for i := range values {
			values[i] = values[i].Add(share)
		}
	}

	points := make([]domain.ForecastPoint, months)
	for i, key := range keys {
		points[i] = domain.ForecastPoint{Month: key, Value: values[i]}
	}
	return points, nil
}
