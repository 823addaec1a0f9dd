package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guest-inbox/internal/api/dto"
	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/service"
	apperrors "github.com/spec-kit/guest-inbox/pkg/util/errorutil"
)

// RulesHandler manages automation rules.
type RulesHandler struct {
	rules *service.RuleService
}

// NewRulesHandler constructs handler.
func NewRulesHandler(rules *service.RuleService) *RulesHandler {
	return &RulesHandler{rules: rules}
}

// List GET /api/rules.
func (h *RulesHandler) List(c *fiber.Ctx) error {
	list, err := h.rules.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.RuleResponse, 0, len(list))
	for i := range list {
		out = append(out, ruleResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get GET /api/rules/:id.
func (h *RulesHandler) Get(c *fiber.Ctx) error {
	rule, err := h.rules.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(rule)})
}

// Create POST /api/rules.
func (h *RulesHandler) Create(c *fiber.Ctx) error {
	input, err := parseRuleRequest(c)
	if err != nil {
		return err
	}
	rule, err := h.rules.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ruleResponse(rule)})
}

// Update PUT /api/rules/:id.
func (h *RulesHandler) Update(c *fiber.Ctx) error {
	input, err := parseRuleRequest(c)
	if err != nil {
		return err
	}
	rule, err := h.rules.Update(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(rule)})
}

// Toggle POST /api/rules/:id/toggle.
func (h *RulesHandler) Toggle(c *fiber.Ctx) error {
	rule, err := h.rules.Toggle(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(rule)})
}

// Delete DELETE /api/rules/:id.
func (h *RulesHandler) Delete(c *fiber.Ctx) error {
	if err := h.rules.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseRuleRequest(c *fiber.Ctx) (service.RuleInput, error) {
	var req dto.RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return service.RuleInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	conditions, err := domain.ConditionsFromRecords(req.Conditions)
	if err != nil {
		return service.RuleInput{}, apperrors.NewValidationError(err.Error(), nil)
	}
	actions, err := domain.ActionsFromRecords(req.Actions)
	if err != nil {
		return service.RuleInput{}, apperrors.NewValidationError(err.Error(), nil)
	}
	return service.RuleInput{
		Name:        req.Name,
		Description: req.Description,
		Conditions:  conditions,
		Actions:     actions,
		Priority:    req.Priority,
		Active:      req.Active,
	}, nil
}
