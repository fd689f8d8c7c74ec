package plan

import (
	"errors"
	"strings"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
)

// Domain errors
var (
	ErrEmptyName       = errors.New("plan name cannot be empty")
	ErrNoGroups        = errors.New("plan must grant at least one session group")
	ErrEmptyCategories = errors.New("session group must cover at least one category")
)

// Plan is a purchasable membership plan. Each plan grants one or more session
// groups; issuing a subscription from a plan materializes one pool per group.
type Plan struct {
	ID     string
	Name   string
	Groups []SessionGroup
}

// SessionGroup is a named bundle of class categories sharing one session pool
// within a plan.
type SessionGroup struct {
	ID         string
	PlanID     string
	Name       string
	Sessions   int // pool size granted per subscription
	Categories []string
}

// Validate checks if the Plan has valid data.
// PRE: Plan struct is populated, including Groups
// POST: Returns nil if valid, error otherwise
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.Name) > MaxNameLength {
		return errors.New("plan name cannot exceed 100 characters")
	}
	if len(p.Groups) == 0 {
		return ErrNoGroups
	}
	for i := range p.Groups {
		if err := p.Groups[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks if the SessionGroup has valid data.
// PRE: SessionGroup struct is populated
// POST: Returns nil if valid, error otherwise
func (g *SessionGroup) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return errors.New("session group name cannot be empty")
	}
	if g.Sessions < 0 {
		return errors.New("session group pool size cannot be negative")
	}
	if len(g.Categories) == 0 {
		return ErrEmptyCategories
	}
	return nil
}

// Covers reports whether this group's pool can be spent on a class of the
// given category.
// INVARIANT: SessionGroup fields are not mutated
func (g *SessionGroup) Covers(category string) bool {
	for _, c := range g.Categories {
		if c == category {
			return true
		}
	}
	return false
}
