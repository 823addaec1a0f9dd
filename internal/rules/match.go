// Package rules holds the pure parts of rule automation: condition matching,
// reply templating, and the YAML rule document format.
package rules

import (
	"strings"

	"github.com/spec-kit/guest-inbox/internal/domain"
)

// Matches reports whether every condition of rule holds for content.
// A rule without conditions never matches.
func Matches(rule *domain.Rule, content string) bool {
	if len(rule.Conditions) == 0 {
		return false
	}
	for _, cond := range rule.Conditions {
		if !ConditionHolds(cond, content) {
			return false
		}
	}
	return true
}

// ConditionHolds evaluates a single condition. Unknown variants never hold.
func ConditionHolds(cond domain.Condition, content string) bool {
	switch c := cond.(type) {
	case domain.KeywordCondition:
		return containsKeyword(content, c.Value, c.CaseSensitive)
	default:
		return false
	}
}

func containsKeyword(content, keyword string, caseSensitive bool) bool {
	if keyword == "" {
		return false
	}
	if caseSensitive {
		return strings.Contains(content, keyword)
	}
	return strings.Contains(strings.ToLower(content), strings.ToLower(keyword))
}
