package dto

import (
	"time"

	"github.com/spec-kit/guest-inbox/internal/domain"
)

// RuleRequest creates or replaces a rule.
type RuleRequest struct {
	Name        string                   `json:"name"`
	Description *string                  `json:"description"`
	Conditions  []domain.ConditionRecord `json:"conditions"`
	Actions     []domain.ActionRecord    `json:"actions"`
	Priority    *int                     `json:"priority"`
	Active      *bool                    `json:"isActive"`
}

// RuleResponse renders a rule.
type RuleResponse struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Description *string                  `json:"description"`
	Conditions  []domain.ConditionRecord `json:"conditions"`
	Actions     []domain.ActionRecord    `json:"actions"`
	Priority    int                      `json:"priority"`
	Active      bool                     `json:"isActive"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
}
