package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Base model with common fields. IDs are generated application-side so the
// models work against both postgres and the sqlite test database.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns a UUID when one is not already set
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// CustomerStatus represents the lifecycle status of a customer
type CustomerStatus string

const (
	CustomerStatusLead     CustomerStatus = "lead"
	CustomerStatusProspect CustomerStatus = "prospect"
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
	CustomerStatusChurned  CustomerStatus = "churned"
)

// Customer represents a person or organization in the CRM
type Customer struct {
	BaseModel
	FirstName      string         `gorm:"type:varchar(100);not null;column:first_name"`
	LastName       string         `gorm:"type:varchar(100);not null;column:last_name"`
	Email          string         `gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone          string         `gorm:"type:varchar(50)"`
	Company        string         `gorm:"type:varchar(200)"`
	Notes          string         `gorm:"type:text"`
	Status         CustomerStatus `gorm:"type:varchar(50);not null;default:'lead';index"`
	AssignedUserID *uuid.UUID     `gorm:"type:uuid;column:assigned_user_id;index"`
	AssignedUser   *User          `gorm:"foreignKey:AssignedUserID"`
}

// FullName returns the customer's full name
func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// DealStatus represents the open/closed state of a deal
type DealStatus string

const (
	DealStatusOpen DealStatus = "open"
	DealStatusWon  DealStatus = "won"
	DealStatusLost DealStatus = "lost"
)

// Deal represents a sales opportunity in the pipeline.
// UpdatedAt doubles as the close timestamp for won/lost deals.
type Deal struct {
	BaseModel
	Title             string          `gorm:"type:varchar(200);not null"`
	Amount            decimal.Decimal `gorm:"type:decimal(19,2);not null;default:0"`
	Probability       int             `gorm:"type:int;not null;default:0"`
	Status            DealStatus      `gorm:"type:varchar(50);not null;default:'open';index"`
	CustomerID        uuid.UUID       `gorm:"type:uuid;not null;index;column:customer_id"`
	Customer          *Customer       `gorm:"foreignKey:CustomerID"`
	StageID           uuid.UUID       `gorm:"type:uuid;not null;index;column:stage_id"`
	Stage             *PipelineStage  `gorm:"foreignKey:StageID"`
	AssignedUserID    *uuid.UUID      `gorm:"type:uuid;column:assigned_user_id;index"`
	AssignedUser      *User           `gorm:"foreignKey:AssignedUserID"`
	ExpectedCloseDate *time.Time      `gorm:"column:expected_close_date"`
	Notes             string          `gorm:"type:text"`
}

// WeightedAmount returns the deal amount scaled by its win probability.
func (d *Deal) WeightedAmount() decimal.Decimal {
	return d.Amount.Mul(decimal.NewFromInt(int64(d.Probability))).Div(decimal.NewFromInt(100))
}

// PipelineStage represents a named, ordered step in the deal workflow
type PipelineStage struct {
	BaseModel
	Name               string `gorm:"type:varchar(100);not null"`
	DisplayOrder       int    `gorm:"not null;uniqueIndex;column:display_order"`
	DefaultProbability *int   `gorm:"column:default_probability"`
}

// DealStageHistory tracks stage transitions for pipeline analytics
type DealStageHistory struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key"`
	DealID      uuid.UUID  `gorm:"type:uuid;not null;index;column:deal_id"`
	Deal        *Deal      `gorm:"foreignKey:DealID"`
	FromStageID *uuid.UUID `gorm:"type:uuid;column:from_stage_id"`
	ToStageID   uuid.UUID  `gorm:"type:uuid;not null;column:to_stage_id"`
	OccurredAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;column:occurred_at;index"`
}

// TableName overrides the default table name
func (DealStageHistory) TableName() string {
	return "deal_stage_history"
}

// BeforeCreate assigns a UUID when one is not already set
func (h *DealStageHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// TaskStatus represents the completion state of a task
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Task represents a unit of work assigned to a sales rep
type Task struct {
	BaseModel
	Title          string     `gorm:"type:varchar(200);not null"`
	Description    string     `gorm:"type:text"`
	Status         TaskStatus `gorm:"type:varchar(50);not null;default:'todo';index"`
	DueDate        *time.Time `gorm:"column:due_date;index"`
	CompletedAt    *time.Time `gorm:"column:completed_at"`
	CustomerID     *uuid.UUID `gorm:"type:uuid;column:customer_id;index"`
	Customer       *Customer  `gorm:"foreignKey:CustomerID"`
	DealID         *uuid.UUID `gorm:"type:uuid;column:deal_id;index"`
	Deal           *Deal      `gorm:"foreignKey:DealID"`
	AssignedUserID *uuid.UUID `gorm:"type:uuid;column:assigned_user_id;index"`
	AssignedUser   *User      `gorm:"foreignKey:AssignedUserID"`
}

// InteractionType classifies a customer touchpoint
type InteractionType string

const (
	InteractionTypeEmail   InteractionType = "email"
	InteractionTypeCall    InteractionType = "call"
	InteractionTypeMeeting InteractionType = "meeting"
	InteractionTypeNote    InteractionType = "note"
)

// InteractionTypes returns every interaction type in a stable order.
// Analytics output includes all of them, zero-valued when absent.
func InteractionTypes() []InteractionType {
	return []InteractionType{
		InteractionTypeEmail,
		InteractionTypeCall,
		InteractionTypeMeeting,
		InteractionTypeNote,
	}
}

// IsValid checks if the InteractionType is a known enum value
func (t InteractionType) IsValid() bool {
	switch t {
	case InteractionTypeEmail, InteractionTypeCall, InteractionTypeMeeting, InteractionTypeNote:
		return true
	}
	return false
}

// Interaction represents a logged touchpoint with a customer
type Interaction struct {
	BaseModel
	Type            InteractionType `gorm:"type:varchar(50);not null;index"`
	Subject         string          `gorm:"type:varchar(255)"`
	Content         string          `gorm:"type:text"`
	CustomerID      uuid.UUID       `gorm:"type:uuid;not null;index;column:customer_id"`
	Customer        *Customer       `gorm:"foreignKey:CustomerID"`
	UserID          *uuid.UUID      `gorm:"type:uuid;index;column:user_id"`
	User            *User           `gorm:"foreignKey:UserID"`
	DealID          *uuid.UUID      `gorm:"type:uuid;column:deal_id;index"`
	Deal            *Deal           `gorm:"foreignKey:DealID"`
	InteractionDate time.Time       `gorm:"not null;column:interaction_date;index"`
}

// User identifies a sales rep for performance breakdowns
type User struct {
	BaseModel
	Username string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Email    string `gorm:"type:varchar(255);not null;uniqueIndex"`
}

// EmailTemplate holds a reusable subject/content pair with {{var}} placeholders
type EmailTemplate struct {
	BaseModel
	Name    string `gorm:"type:varchar(200);not null;uniqueIndex"`
	Subject string `gorm:"type:varchar(255);not null"`
	Content string `gorm:"type:text;not null"`
	Active  bool   `gorm:"not null;default:true"`
}

// EmailStatus represents the lifecycle status of a scheduled email.
// The lifecycle is one-way: scheduled -> sent|failed|cancelled, all terminal.
type EmailStatus string

const (
	EmailStatusScheduled EmailStatus = "scheduled"
	EmailStatusSent      EmailStatus = "sent"
	EmailStatusFailed    EmailStatus = "failed"
	EmailStatusCancelled EmailStatus = "cancelled"
)

// ScheduledEmail is an email queued for future delivery by the dispatch sweep
type ScheduledEmail struct {
	BaseModel
	FromEmail         string         `gorm:"type:varchar(255);not null;column:from_email"`
	ToEmails          StringList     `gorm:"type:text;not null;column:to_emails"`
	CcEmails          StringList     `gorm:"type:text;column:cc_emails"`
	BccEmails         StringList     `gorm:"type:text;column:bcc_emails"`
	Subject           string         `gorm:"type:varchar(255);not null"`
	Content           string         `gorm:"type:text;not null"`
	TemplateID        *uuid.UUID     `gorm:"type:uuid;column:template_id;index"`
	Template          *EmailTemplate `gorm:"foreignKey:TemplateID"`
	TemplateVariables StringMap      `gorm:"type:text;column:template_variables"`
	CustomerID        *uuid.UUID     `gorm:"type:uuid;column:customer_id;index"`
	Customer          *Customer      `gorm:"foreignKey:CustomerID"`
	DealID            *uuid.UUID     `gorm:"type:uuid;column:deal_id;index"`
	Deal              *Deal          `gorm:"foreignKey:DealID"`
	ScheduledTime     time.Time      `gorm:"not null;column:scheduled_time;index"`
	Status            EmailStatus    `gorm:"type:varchar(50);not null;default:'scheduled';index"`
	SentTime          *time.Time     `gorm:"column:sent_time"`
}

// TableName overrides the default table name
func (ScheduledEmail) TableName() string {
	return "scheduled_emails"
}
