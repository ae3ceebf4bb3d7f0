package classify

import (
	"fmt"
	"strings"

	"github.com/aretw0/awaken/pkg/domain"
)

// Constraint pins one axis (1..4) to a letter.
type Constraint struct {
	Axis   int
	Letter byte
}

// Rule maps a class of codes to an archetype. A code matches when every
// constraint holds; axes without a constraint are ignored.
type Rule struct {
	Name        string
	Archetype   domain.Archetype
	Constraints []Constraint
}

// Matches reports whether code satisfies every constraint of r.
func (r Rule) Matches(code domain.PersonalityCode) bool {
	for _, c := range r.Constraints {
		if code.Axis(c.Axis) != c.Letter {
			return false
		}
	}
	return true
}

func (r Rule) String() string {
	parts := make([]string, 0, len(r.Constraints))
	for _, c := range r.Constraints {
		parts = append(parts, fmt.Sprintf("axis%d=%c", c.Axis, c.Letter))
	}
	return fmt.Sprintf("%s(%s) -> %s", r.Name, strings.Join(parts, ","), r.Archetype)
}

func on(axis int, letter byte) Constraint {
	return Constraint{Axis: axis, Letter: letter}
}

// DefaultRules returns the rule table in evaluation order. First match wins.
//
// The last rule covers INFJ, the one valid code the six pattern classes leave
// out; it keeps that code on the same archetype the fallback would pick, so the
// fallback stays reserved for invalid input.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "extravert-perceiver", Archetype: domain.Enhancer, Constraints: []Constraint{on(1, 'E'), on(4, 'P')}},
		{Name: "intuitive-perceiver", Archetype: domain.Transmuter, Constraints: []Constraint{on(2, 'N'), on(4, 'P')}},
		{Name: "introvert-sensor", Archetype: domain.Conjurer, Constraints: []Constraint{on(1, 'I'), on(2, 'S')}},
		{Name: "introvert-thinker", Archetype: domain.Specialist, Constraints: []Constraint{on(1, 'I'), on(3, 'T')}},
		{Name: "sensor-judger", Archetype: domain.Manipulator, Constraints: []Constraint{on(2, 'S'), on(4, 'J')}},
		{Name: "extravert-judger", Archetype: domain.Emitter, Constraints: []Constraint{on(1, 'E'), on(4, 'J')}},
		{Name: "introvert-intuitive-feeler", Archetype: domain.Enhancer, Constraints: []Constraint{on(1, 'I'), on(2, 'N'), on(3, 'F')}},
	}
}

// validateRules checks the table shape and that every valid code matches a rule.
func validateRules(rules []Rule) error {
	if len(rules) == 0 {
		return fmt.Errorf("classify: empty rule table")
	}
	for i, r := range rules {
		if !r.Archetype.Valid() {
			return fmt.Errorf("classify: rule %d (%s): %w", i, r.Name, domain.ErrUnknownArchetype)
		}
		for _, c := range r.Constraints {
			if c.Axis < 1 || c.Axis > 4 {
				return fmt.Errorf("classify: rule %d (%s): axis %d out of range", i, r.Name, c.Axis)
			}
		}
	}

	var uncovered []string
	for _, code := range domain.AllCodes() {
		if firstMatch(rules, code) < 0 {
			uncovered = append(uncovered, string(code))
		}
	}
	if len(uncovered) > 0 {
		return fmt.Errorf("classify: rule table is not exhaustive, uncovered codes: %s", strings.Join(uncovered, ", "))
	}
	return nil
}

func firstMatch(rules []Rule, code domain.PersonalityCode) int {
	for i, r := range rules {
		if r.Matches(code) {
			return i
		}
	}
	return -1
}
