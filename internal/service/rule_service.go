package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/repository"
	"github.com/spec-kit/guest-inbox/internal/rules"
	apperrors "github.com/spec-kit/guest-inbox/pkg/util/errorutil"
)

// RuleService manages automation rules.
type RuleService struct {
	rules  repository.RuleRepository
	logger *zap.Logger
	now    func() time.Time
}

// RuleDependencies wires the rule service.
type RuleDependencies struct {
	RuleRepo repository.RuleRepository
	Logger   *zap.Logger
	Now      func() time.Time
}

// RuleInput carries the editable fields of a rule.
// Nil Priority and Active keep the current value (0 and true on create).
type RuleInput struct {
	Name        string
	Description *string
	Conditions  []domain.Condition
	Actions     []domain.Action
	Priority    *int
	Active      *bool
}

// NewRuleService constructs the service.
func NewRuleService(deps RuleDependencies) *RuleService {
	return &RuleService{
		rules:  deps.RuleRepo,
		logger: nopIfNil(deps.Logger),
		now:    clockOrDefault(deps.Now),
	}
}

// Create stores a new rule.
func (s *RuleService) Create(ctx context.Context, input RuleInput) (*domain.Rule, error) {
	if err := validateRule(input); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	rule := &domain.Rule{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Conditions:  input.Conditions,
		Actions:     input.Actions,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.Priority != nil {
		rule.Priority = *input.Priority
	}
	if input.Active != nil {
		rule.Active = *input.Active
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, err
	}
	s.logger.Info("rule created", zap.String("rule_id", rule.ID), zap.String("name", rule.Name))
	return rule, nil
}

// Update replaces a rule's editable fields.
func (s *RuleService) Update(ctx context.Context, id string, input RuleInput) (*domain.Rule, error) {
	if err := validateRule(input); err != nil {
		return nil, err
	}
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "rule", id)
	}
	rule.Name = strings.TrimSpace(input.Name)
	rule.Description = input.Description
	rule.Conditions = input.Conditions
	rule.Actions = input.Actions
	if input.Priority != nil {
		rule.Priority = *input.Priority
	}
	if input.Active != nil {
		rule.Active = *input.Active
	}
	rule.UpdatedAt = s.now().UTC()
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, lookupError(err, "rule", id)
	}
	return rule, nil
}

// Delete removes a rule. Its ledger history is kept.
func (s *RuleService) Delete(ctx context.Context, id string) error {
	if err := s.rules.Delete(ctx, id); err != nil {
		return lookupError(err, "rule", id)
	}
	return nil
}

// Get loads one rule.
func (s *RuleService) Get(ctx context.Context, id string) (*domain.Rule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "rule", id)
	}
	return rule, nil
}

// List returns every rule in evaluation order.
func (s *RuleService) List(ctx context.Context) ([]domain.Rule, error) {
	return s.rules.List(ctx)
}

// Toggle flips the active flag.
func (s *RuleService) Toggle(ctx context.Context, id string) (*domain.Rule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "rule", id)
	}
	rule.Active = !rule.Active
	rule.UpdatedAt = s.now().UTC()
	if err := s.rules.SetActive(ctx, id, rule.Active, rule.UpdatedAt); err != nil {
		return nil, lookupError(err, "rule", id)
	}
	return rule, nil
}

// Import creates every rule in doc, stopping at the first invalid one.
func (s *RuleService) Import(ctx context.Context, doc *rules.Document) ([]domain.Rule, error) {
	created := make([]domain.Rule, 0, len(doc.Rules))
	for i, def := range doc.Rules {
		conditions, err := domain.ConditionsFromRecords(def.Conditions)
		if err != nil {
			return created, apperrors.NewValidationError(err.Error(), map[string]any{"index": i})
		}
		actions, err := domain.ActionsFromRecords(def.Actions)
		if err != nil {
			return created, apperrors.NewValidationError(err.Error(), map[string]any{"index": i})
		}
		input := RuleInput{
			Name:       def.Name,
			Conditions: conditions,
			Actions:    actions,
			Priority:   &def.Priority,
		}
		if def.Description != "" {
			desc := def.Description
			input.Description = &desc
		}
		active := def.IsActive()
		input.Active = &active

		rule, err := s.Create(ctx, input)
		if err != nil {
			return created, fmt.Errorf("rule %d (%s): %w", i, def.Name, err)
		}
		created = append(created, *rule)
	}
	return created, nil
}

func validateRule(input RuleInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.NewValidationError("rule name is required", map[string]any{"field": "name"})
	}
	if len(input.Actions) == 0 {
		return apperrors.NewValidationError("at least one action is required", map[string]any{"field": "actions"})
	}
	for i, cond := range input.Conditions {
		switch c := cond.(type) {
		case domain.KeywordCondition:
			if strings.TrimSpace(c.Value) == "" {
				return apperrors.NewValidationError("keyword value is required", map[string]any{"field": "conditions", "index": i})
			}
		case nil:
			return apperrors.NewValidationError("condition is required", map[string]any{"field": "conditions", "index": i})
		}
	}
	for i, action := range input.Actions {
		switch a := action.(type) {
		case domain.TemplateReplyAction:
			if strings.TrimSpace(a.Template) == "" {
				return apperrors.NewValidationError("template is required", map[string]any{"field": "actions", "index": i})
			}
		case domain.TagAction:
			if strings.TrimSpace(a.TagName) == "" {
				return apperrors.NewValidationError("tagName is required", map[string]any{"field": "actions", "index": i})
			}
		case nil:
			return apperrors.NewValidationError("action is required", map[string]any{"field": "actions", "index": i})
		}
	}
	return nil
}
