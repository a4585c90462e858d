// Package rules resolves the ordered approval-step sequence a requisition
// requires from configurable approval rules. Resolution is pure: it reads the
// rule set it is given and produces a step list or an error, with no side
// effects. It runs exactly once, at submission; the resolved list is persisted
// and later rule edits never affect an in-flight requisition.
package rules

import (
	"errors"
	"fmt"
	"sort"

	"github.com/procureops/requisition-engine/internal/domain/entity"
)

var (
	// ErrNoMatchingRule is returned when no active rule's predicate matches
	// the requisition attributes
	ErrNoMatchingRule = errors.New("no matching approval rule")

	// ErrConflictingRule is returned when two active rules of equal priority
	// both match; the configuration is ambiguous and must be fixed
	ErrConflictingRule = errors.New("conflicting approval rules")

	// ErrEmptyStepSequence is returned when the matched rule defines no
	// steps. Zero resolved steps is a configuration error, never an
	// auto-approval.
	ErrEmptyStepSequence = errors.New("matched rule has no approval steps")
)

// Attributes are the requisition attributes rule predicates evaluate
type Attributes struct {
	AmountCents int64
	Category    string
	Department  string
}

// Resolve returns the ordered step definitions required for the given
// attributes. Rules are evaluated in ascending Priority; the lowest-priority
// match wins. Two matches at the same priority fail with ErrConflictingRule.
// Inactive rules are ignored. Amount bounds follow the [min, max) convention
// documented on entity.ApprovalRule.
func Resolve(attrs Attributes, ruleSet []*entity.ApprovalRule) ([]entity.StepDef, error) {
	active := make([]*entity.ApprovalRule, 0, len(ruleSet))
	for _, r := range ruleSet {
		if r.Active {
			active = append(active, r)
		}
	}

	// Stable sort keeps creation order among equal priorities, which makes
	// conflict detection deterministic.
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority < active[j].Priority
	})

	var matched *entity.ApprovalRule
	for _, r := range active {
		if !r.Matches(attrs.AmountCents, attrs.Category, attrs.Department) {
			continue
		}
		if matched == nil {
			matched = r
			continue
		}
		if r.Priority == matched.Priority {
			return nil, fmt.Errorf("%w: %q and %q both match at priority %d",
				ErrConflictingRule, matched.Name, r.Name, r.Priority)
		}
		// Lower-priority match already found; higher priorities lose.
		break
	}

	if matched == nil {
		return nil, fmt.Errorf("%w: amount=%d category=%s department=%s",
			ErrNoMatchingRule, attrs.AmountCents, attrs.Category, attrs.Department)
	}
	if len(matched.Steps) == 0 {
		return nil, fmt.Errorf("%w: rule %q", ErrEmptyStepSequence, matched.Name)
	}

	steps := make([]entity.StepDef, len(matched.Steps))
	copy(steps, matched.Steps)
	for i, def := range steps {
		if !def.Role.IsValid() {
			return nil, fmt.Errorf("%w: rule %q step %d has unknown role %q",
				entity.ErrValidation, matched.Name, i, def.Role)
		}
	}
	return steps, nil
}
