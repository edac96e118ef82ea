// Package testutil provides an in-memory database and seed helpers for tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/Harvlin/SaaS-CRM/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens an isolated in-memory sqlite database and migrates the
// full schema into it. Each call returns a fresh database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Shared-cache memory databases persist per connection name; a unique
	// name per test keeps databases isolated.
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err, "failed to open in-memory database")

	err = db.AutoMigrate(
		&domain.User{},
		&domain.Customer{},
		&domain.PipelineStage{},
		&domain.Deal{},
		&domain.DealStageHistory{},
		&domain.Task{},
		&domain.Interaction{},
		&domain.EmailTemplate{},
		&domain.ScheduledEmail{},
	)
	require.NoError(t, err, "failed to migrate test schema")

	return db
}

// CreateTestUser seeds a user
func CreateTestUser(t *testing.T, db *gorm.DB, username string) *domain.User {
	t.Helper()
	user := &domain.User{
		Username: username,
		Email:    username + "@example.com",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestCustomer seeds a customer with the given status
func CreateTestCustomer(t *testing.T, db *gorm.DB, name string, status domain.CustomerStatus) *domain.Customer {
	t.Helper()
	customer := &domain.Customer{
		FirstName: name,
		LastName:  "Tester",
		Email:     fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		Status:    status,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(customer).Error)
	return customer
}

// CreateTestStage seeds a pipeline stage
func CreateTestStage(t *testing.T, db *gorm.DB, name string, order int, defaultProbability *int) *domain.PipelineStage {
	t.Helper()
	stage := &domain.PipelineStage{
		Name:               name,
		DisplayOrder:       order,
		DefaultProbability: defaultProbability,
	}
	require.NoError(t, db.Create(stage).Error)
	return stage
}

// CreateTestDeal seeds a deal for the customer in the given stage
func CreateTestDeal(t *testing.T, db *gorm.DB, customer *domain.Customer, stage *domain.PipelineStage, amount string, probability int, status domain.DealStatus) *domain.Deal {
	t.Helper()
	deal := &domain.Deal{
		Title:       "Deal " + uuid.NewString()[:8],
		Amount:      decimal.RequireFromString(amount),
		Probability: probability,
		Status:      status,
		CustomerID:  customer.ID,
		StageID:     stage.ID,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(deal).Error)
	return deal
}

// CreateTestTemplate seeds an email template
func CreateTestTemplate(t *testing.T, db *gorm.DB, name, subject, content string) *domain.EmailTemplate {
	t.Helper()
	template := &domain.EmailTemplate{
		Name:    name,
		Subject: subject,
		Content: content,
		Active:  true,
	}
	require.NoError(t, db.Create(template).Error)
	return template
}

// CreateTestScheduledEmail seeds a scheduled email due at the given time
func CreateTestScheduledEmail(t *testing.T, db *gorm.DB, to string, scheduledTime time.Time, status domain.EmailStatus) *domain.ScheduledEmail {
	t.Helper()
	email := &domain.ScheduledEmail{
		FromEmail:     "sender@example.com",
		ToEmails:      domain.StringList{to},
		Subject:       "Test subject",
		Content:       "Test content",
		ScheduledTime: scheduledTime,
		Status:        status,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(email).Error)
	return email
}

// CreateTestInteraction seeds an interaction dated at the given time
func CreateTestInteraction(t *testing.T, db *gorm.DB, customer *domain.Customer, user *domain.User, kind domain.InteractionType, when time.Time) *domain.Interaction {
	t.Helper()
	interaction := &domain.Interaction{
		Type:            kind,
		Subject:         "Test interaction",
		CustomerID:      customer.ID,
		InteractionDate: when,
	}
	if user != nil {
		interaction.UserID = &user.ID
	}
	require.NoError(t, db.Omit(clause.Associations).Create(interaction).Error)
	return interaction
}
