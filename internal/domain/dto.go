package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateRange is an inclusive [Start, End] interval for analytics queries
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DashboardMetrics aggregates top-level CRM metrics over a date range
type DashboardMetrics struct {
	TotalCustomers    int64 `json:"totalCustomers"`
	NewCustomers      int64 `json:"newCustomers"`
	TotalDeals        int64 `json:"totalDeals"`
	TotalTasks        int64 `json:"totalTasks"`
	TotalInteractions int64 `json:"totalInteractions"`

	OpenDeals      int64           `json:"openDeals"`
	WonDeals       int64           `json:"wonDeals"`
	LostDeals      int64           `json:"lostDeals"`
	TotalDealValue decimal.Decimal `json:"totalDealValue"`
	OpenDealValue  decimal.Decimal `json:"openDealValue"`
	WonDealValue   decimal.Decimal `json:"wonDealValue"`

	PipelineStageMetrics []PipelineStageMetric `json:"pipelineStageMetrics"`

	OverdueTasks           int64 `json:"overdueTasks"`
	TasksDueToday          int64 `json:"tasksDueToday"`
	CompletedTasksThisWeek int64 `json:"completedTasksThisWeek"`

	LeadToCustomerRate float64 `json:"leadToCustomerRate"`
	DealWinRate        float64 `json:"dealWinRate"`

	// Average time from creation to close for won deals, in days
	AvgDealCycleTime float64 `json:"avgDealCycleTime"`

	InteractionsByType map[InteractionType]int64 `json:"interactionsByType"`
	InteractionsByDay  []CountPoint              `json:"interactionsByDay"`

	SalesPerformance []SalesPerformanceMetric `json:"salesPerformance"`
}

// PipelineStageMetric holds aggregated deal statistics for one pipeline stage
type PipelineStageMetric struct {
	StageID   uuid.UUID `json:"stageId"`
	StageName string    `json:"stageName"`
	DealCount int64     `json:"dealCount"`

	TotalValue    decimal.Decimal `json:"totalValue"`
	AverageValue  decimal.Decimal `json:"averageValue"`
	WeightedValue decimal.Decimal `json:"weightedValue"`

	Probability float64 `json:"probability"`

	// Share of deals that moved from this stage to a later one,
	// derived from stage history. Zero when no history exists.
	ConversionRate float64 `json:"conversionRate"`
	// Mean dwell time in this stage, in days. Zero when no history exists.
	AvgTimeInStage float64 `json:"avgTimeInStage"`
}

// SalesPerformanceMetric holds per-user sales statistics over a date range
type SalesPerformanceMetric struct {
	UserID   uuid.UUID `json:"userId"`
	UserName string    `json:"userName"`

	CustomerCount int64 `json:"customerCount"`
	DealCount     int64 `json:"dealCount"`
	WonDealCount  int64 `json:"wonDealCount"`
	LostDealCount int64 `json:"lostDealCount"`

	TotalDealValue decimal.Decimal `json:"totalDealValue"`
	WonDealValue   decimal.Decimal `json:"wonDealValue"`
	WinRate        float64         `json:"winRate"`

	TaskCount          int64 `json:"taskCount"`
	CompletedTaskCount int64 `json:"completedTaskCount"`

	InteractionCount int64 `json:"interactionCount"`
}

// CountPoint is one bucket of a gap-filled count series
type CountPoint struct {
	Bucket string `json:"bucket"`
	Count  int64  `json:"count"`
}

// ValuePoint is one bucket of a gap-filled monetary series
type ValuePoint struct {
	Bucket string          `json:"bucket"`
	Value  decimal.Decimal `json:"value"`
}

// ForecastPoint is one month of the sales forecast, keyed "YYYY-MM"
type ForecastPoint struct {
	Month string          `json:"month"`
	Value decimal.Decimal `json:"value"`
}

// EmailMessage is the request payload for sending or scheduling an email
type EmailMessage struct {
	From              string            `json:"from" validate:"omitempty,email"`
	To                []string          `json:"to" validate:"required,min=1,dive,email"`
	Cc                []string          `json:"cc" validate:"omitempty,dive,email"`
	Bcc               []string          `json:"bcc" validate:"omitempty,dive,email"`
	Subject           string            `json:"subject"`
	Content           string            `json:"content"`
	TemplateID        *uuid.UUID        `json:"templateId"`
	TemplateVariables map[string]string `json:"templateVariables"`
	CustomerID        *uuid.UUID        `json:"customerId"`
	DealID            *uuid.UUID        `json:"dealId"`
	ScheduledTime     *time.Time        `json:"scheduledTime"`
}

// ScheduledEmailDTO is the API representation of a scheduled email,
// with display names for the template, customer, and deal joined in
type ScheduledEmailDTO struct {
	ID                uuid.UUID         `json:"id"`
	FromEmail         string            `json:"fromEmail"`
	ToEmails          []string          `json:"toEmails"`
	CcEmails          []string          `json:"ccEmails,omitempty"`
	BccEmails         []string          `json:"bccEmails,omitempty"`
	Subject           string            `json:"subject"`
	Content           string            `json:"content"`
	TemplateID        *uuid.UUID        `json:"templateId,omitempty"`
	TemplateName      string            `json:"templateName,omitempty"`
	TemplateVariables map[string]string `json:"templateVariables,omitempty"`
	CustomerID        *uuid.UUID        `json:"customerId,omitempty"`
	CustomerName      string            `json:"customerName,omitempty"`
	DealID            *uuid.UUID        `json:"dealId,omitempty"`
	DealTitle         string            `json:"dealTitle,omitempty"`
	ScheduledTime     time.Time         `json:"scheduledTime"`
	Status            EmailStatus       `json:"status"`
	SentTime          *time.Time        `json:"sentTime,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// InteractionDTO is the API representation of a logged interaction
type InteractionDTO struct {
	ID              uuid.UUID       `json:"id"`
	Type            InteractionType `json:"type"`
	Subject         string          `json:"subject"`
	Content         string          `json:"content"`
	CustomerID      uuid.UUID       `json:"customerId"`
	UserID          *uuid.UUID      `json:"userId,omitempty"`
	DealID          *uuid.UUID      `json:"dealId,omitempty"`
	InteractionDate time.Time       `json:"interactionDate"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// CreateInteractionRequest is the payload for recording an interaction
type CreateInteractionRequest struct {
	Type            InteractionType `json:"type" validate:"required"`
	Subject         string          `json:"subject"`
	Content         string          `json:"content"`
	CustomerID      uuid.UUID       `json:"customerId" validate:"required"`
	UserID          *uuid.UUID      `json:"userId"`
	DealID          *uuid.UUID      `json:"dealId"`
	InteractionDate time.Time       `json:"interactionDate"`
}

// UpdateDealStageRequest moves a deal to another pipeline stage.
// Probability, when set, overrides the stage's default probability.
type UpdateDealStageRequest struct {
	StageID     uuid.UUID `json:"stageId" validate:"required"`
	Probability *int      `json:"probability" validate:"omitempty,gte=0,lte=100"`
}
