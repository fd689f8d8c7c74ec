package classtype

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors
var (
	ErrEmptyName     = errors.New("class type name cannot be empty")
	ErrEmptyCategory = errors.New("class type category cannot be empty")
)

// Max length constants.
const (
	MaxNameLength        = 200
	MaxCategoryLength    = 100
	MaxDescriptionLength = 2000
)

// ClassType defines a class offered by the gym (e.g. Spin, Pilates, Open
// Gym). Its category decides which subscription session groups can pay for
// it; its capacity and duration are inherited by course instances unless
// overridden.
type ClassType struct {
	ID          string
	Name        string
	Category    string // matched against session group categories
	Description string // optional, markdown
	MaxCapacity int
	DurationMin int
	TrainerID   string // default trainer, overridable per schedule
}

// Validate checks if the ClassType has valid data.
// PRE: ClassType struct is populated
// POST: Returns nil if valid, error otherwise
func (c *ClassType) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > MaxNameLength {
		return fmt.Errorf("class type name cannot exceed %d characters", MaxNameLength)
	}
	if strings.TrimSpace(c.Category) == "" {
		return ErrEmptyCategory
	}
	if len(c.Category) > MaxCategoryLength {
		return fmt.Errorf("class type category cannot exceed %d characters", MaxCategoryLength)
	}
	if len(c.Description) > MaxDescriptionLength {
		return fmt.Errorf("class type description cannot exceed %d characters", MaxDescriptionLength)
	}
	if c.MaxCapacity <= 0 {
		return errors.New("class type capacity must be positive")
	}
	if c.DurationMin <= 0 {
		return errors.New("class type duration must be positive")
	}
	return nil
}
