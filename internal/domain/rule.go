package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Rule is a priority-ordered, condition-gated automation.
// A rule with no conditions never matches.
type Rule struct {
	ID          string
	Name        string
	Description *string
	Conditions  []Condition
	Actions     []Action
	Priority    int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ConditionType tags condition variants.
type ConditionType string

const ConditionTypeKeyword ConditionType = "keyword"

// Condition is a closed set of message predicates.
type Condition interface {
	Type() ConditionType
	isCondition()
}

// KeywordCondition matches when the message content contains Value.
// Matching folds case unless CaseSensitive is set.
type KeywordCondition struct {
	Value         string
	CaseSensitive bool
}

func (KeywordCondition) Type() ConditionType { return ConditionTypeKeyword }
func (KeywordCondition) isCondition()        {}

// ActionType tags action variants.
type ActionType string

const (
	ActionTypeAIReply       ActionType = "ai_reply"
	ActionTypeTemplateReply ActionType = "template_reply"
	ActionTypeTag           ActionType = "tag"
	ActionTypeEscalate      ActionType = "escalate"
)

// Action is a closed set of effects a matched rule can run.
type Action interface {
	Type() ActionType
	isAction()
}

// AIReplyAction answers with a generated reply.
type AIReplyAction struct{}

// TemplateReplyAction answers with a placeholder-substituted template.
type TemplateReplyAction struct {
	Template string
}

// TagAction labels the conversation.
type TagAction struct {
	TagName string
}

// EscalateAction flags the conversation for staff attention.
type EscalateAction struct{}

func (AIReplyAction) Type() ActionType       { return ActionTypeAIReply }
func (TemplateReplyAction) Type() ActionType { return ActionTypeTemplateReply }
func (TagAction) Type() ActionType           { return ActionTypeTag }
func (EscalateAction) Type() ActionType      { return ActionTypeEscalate }

func (AIReplyAction) isAction()       {}
func (TemplateReplyAction) isAction() {}
func (TagAction) isAction()           {}
func (EscalateAction) isAction()      {}

// ConditionRecord is the tagged wire/storage form of a Condition.
type ConditionRecord struct {
	Type          ConditionType `json:"type" yaml:"type"`
	Value         string        `json:"value,omitempty" yaml:"value,omitempty"`
	CaseSensitive bool          `json:"caseSensitive,omitempty" yaml:"caseSensitive,omitempty"`
}

// ActionRecord is the tagged wire/storage form of an Action.
type ActionRecord struct {
	Type     ActionType `json:"type" yaml:"type"`
	Template string     `json:"template,omitempty" yaml:"template,omitempty"`
	TagName  string     `json:"tagName,omitempty" yaml:"tagName,omitempty"`
}

// Condition converts the record into its variant.
func (r ConditionRecord) Condition() (Condition, error) {
	switch r.Type {
	case ConditionTypeKeyword:
		return KeywordCondition{Value: r.Value, CaseSensitive: r.CaseSensitive}, nil
	default:
		return nil, fmt.Errorf("unknown condition type %q", r.Type)
	}
}

// Action converts the record into its variant.
func (r ActionRecord) Action() (Action, error) {
	switch r.Type {
	case ActionTypeAIReply:
		return AIReplyAction{}, nil
	case ActionTypeTemplateReply:
		return TemplateReplyAction{Template: r.Template}, nil
	case ActionTypeTag:
		return TagAction{TagName: r.TagName}, nil
	case ActionTypeEscalate:
		return EscalateAction{}, nil
	default:
		return nil, fmt.Errorf("unknown action type %q", r.Type)
	}
}

// RecordOfCondition flattens a condition into its tagged form.
func RecordOfCondition(c Condition) ConditionRecord {
	switch v := c.(type) {
	case KeywordCondition:
		return ConditionRecord{Type: ConditionTypeKeyword, Value: v.Value, CaseSensitive: v.CaseSensitive}
	default:
		return ConditionRecord{Type: c.Type()}
	}
}

// RecordOfAction flattens an action into its tagged form.
func RecordOfAction(a Action) ActionRecord {
	switch v := a.(type) {
	case TemplateReplyAction:
		return ActionRecord{Type: ActionTypeTemplateReply, Template: v.Template}
	case TagAction:
		return ActionRecord{Type: ActionTypeTag, TagName: v.TagName}
	default:
		return ActionRecord{Type: a.Type()}
	}
}

// ConditionsFromRecords converts a record list, failing on the first unknown variant.
func ConditionsFromRecords(records []ConditionRecord) ([]Condition, error) {
	out := make([]Condition, 0, len(records))
	for _, rec := range records {
		cond, err := rec.Condition()
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

// ActionsFromRecords converts a record list, failing on the first unknown variant.
func ActionsFromRecords(records []ActionRecord) ([]Action, error) {
	out := make([]Action, 0, len(records))
	for _, rec := range records {
		action, err := rec.Action()
		if err != nil {
			return nil, err
		}
		out = append(out, action)
	}
	return out, nil
}

// ConditionRecords flattens conditions for storage or transport.
func ConditionRecords(conditions []Condition) []ConditionRecord {
	out := make([]ConditionRecord, 0, len(conditions))
	for _, c := range conditions {
		out = append(out, RecordOfCondition(c))
	}
	return out
}

// ActionRecords flattens actions for storage or transport.
func ActionRecords(actions []Action) []ActionRecord {
	out := make([]ActionRecord, 0, len(actions))
	for _, a := range actions {
		out = append(out, RecordOfAction(a))
	}
	return out
}

// MarshalConditions encodes conditions as a tagged JSON array.
func MarshalConditions(conditions []Condition) ([]byte, error) {
	return json.Marshal(ConditionRecords(conditions))
}

// UnmarshalConditions decodes a tagged JSON array.
func UnmarshalConditions(data []byte) ([]Condition, error) {
	if len(data) == 0 {
		return []Condition{}, nil
	}
	var records []ConditionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return ConditionsFromRecords(records)
}

// MarshalActions encodes actions as a tagged JSON array.
func MarshalActions(actions []Action) ([]byte, error) {
	return json.Marshal(ActionRecords(actions))
}

// UnmarshalActions decodes a tagged JSON array.
func UnmarshalActions(data []byte) ([]Action, error) {
	if len(data) == 0 {
		return []Action{}, nil
	}
	var records []ActionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return ActionsFromRecords(records)
}
