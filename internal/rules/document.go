package rules

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/guest-inbox/internal/domain"
)

// Document is the YAML file format accepted by `inboxctl rules import`.
//
//	rules:
//	  - name: Checkout Info
//	    priority: 5
//	    conditions:
//	      - {type: keyword, value: checkout}
//	    actions:
//	      - {type: template_reply, template: "Checkout is at 11:00 AM."}
type Document struct {
	Rules []Definition `yaml:"rules"`
}

// Definition is one rule as authored by hand.
type Definition struct {
	Name        string                   `yaml:"name"`
	Description string                   `yaml:"description,omitempty"`
	Priority    int                      `yaml:"priority,omitempty"`
	Active      *bool                    `yaml:"active,omitempty"`
	Conditions  []domain.ConditionRecord `yaml:"conditions"`
	Actions     []domain.ActionRecord    `yaml:"actions"`
}

// ParseDocument decodes and converts a YAML rule document.
func ParseDocument(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("decode rules document: %w", err)
	}
	for i, def := range doc.Rules {
		if _, err := domain.ConditionsFromRecords(def.Conditions); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, def.Name, err)
		}
		if _, err := domain.ActionsFromRecords(def.Actions); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, def.Name, err)
		}
	}
	return &doc, nil
}

// Encode writes doc back out as YAML.
func (d *Document) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}

// IsActive defaults to true when the field is omitted.
func (d Definition) IsActive() bool {
	return d.Active == nil || *d.Active
}
