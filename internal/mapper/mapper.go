// Package mapper converts domain models into API response shapes.
package mapper

import (
	"github.com/Harvlin/SaaS-CRM/internal/domain"
)

// ToScheduledEmailDTO maps a scheduled email to its API representation,
// joining in display names for preloaded associations
func ToScheduledEmailDTO(email *domain.ScheduledEmail) *domain.ScheduledEmailDTO {
	dto := &domain.ScheduledEmailDTO{
		ID:                email.ID,
		FromEmail:         email.FromEmail,
		ToEmails:          email.ToEmails,
		CcEmails:          email.CcEmails,
		BccEmails:         email.BccEmails,
		Subject:           email.Subject,
		Content:           email.Content,
		TemplateID:        email.TemplateID,
		TemplateVariables: email.TemplateVariables,
		CustomerID:        email.CustomerID,
		DealID:            email.DealID,
		ScheduledTime:     email.ScheduledTime,
		Status:            email.Status,
		SentTime:          email.SentTime,
		CreatedAt:         email.CreatedAt,
		UpdatedAt:         email.UpdatedAt,
	}
	if email.Template != nil {
		dto.TemplateName = email.Template.Name
	}
	if email.Customer != nil {
		dto.CustomerName = email.Customer.FullName()
	}
	if email.Deal != nil {
		dto.DealTitle = email.Deal.Title
	}
	return dto
}

// ToScheduledEmailDTOs maps a slice of scheduled emails
func ToScheduledEmailDTOs(emails []domain.ScheduledEmail) []*domain.ScheduledEmailDTO {
	dtos := make([]*domain.ScheduledEmailDTO, len(emails))
	for i := range emails {
		dtos[i] = ToScheduledEmailDTO(&emails[i])
	}
	return dtos
}

// ToInteractionDTO maps an interaction to its API representation
func ToInteractionDTO(interaction *domain.Interaction) *domain.InteractionDTO {
	return &domain.InteractionDTO{
		ID:              interaction.ID,
		Type:            interaction.Type,
		Subject:         interaction.Subject,
		Content:         interaction.Content,
		CustomerID:      interaction.CustomerID,
		UserID:          interaction.UserID,
		DealID:          interaction.DealID,
		InteractionDate: interaction.InteractionDate,
		CreatedAt:       interaction.CreatedAt,
	}
}

// ToInteractionDTOs maps a slice of interactions
func ToInteractionDTOs(interactions []domain.Interaction) []*domain.InteractionDTO {
	dtos := make([]*domain.InteractionDTO, len(interactions))
	for i := range interactions {
		dtos[i] = ToInteractionDTO(&interactions[i])
	}
	return dtos
}
