package orchestrators

import (
	"context"
	"errors"

	"gymdesk/internal/domain/member"

	"github.com/google/uuid"
)

// MemberStore defines the interface for member persistence.
type MemberStore interface {
	Save(ctx context.Context, m member.Member) error
	GetByID(ctx context.Context, id string) (member.Member, error)
	GetByEmail(ctx context.Context, email string) (member.Member, error)
}

// RegisterMemberInput carries input for the orchestrator.
type RegisterMemberInput struct {
	Email     string
	Name      string
	AccountID string // optional: links the member to a login account
}

// RegisterMemberDeps holds dependencies for RegisterMember.
type RegisterMemberDeps struct {
	MemberStore MemberStore
}

// ExecuteRegisterMember coordinates member creation.
// PRE: Valid email, non-empty name
// POST: Member created with ID, Status=active
// INVARIANT: Email must be unique (enforced by store)
func ExecuteRegisterMember(ctx context.Context, input RegisterMemberInput, deps RegisterMemberDeps) (string, error) {
	if input.Name == "" {
		return "", errors.New("name cannot be empty")
	}
	if input.Email == "" {
		return "", errors.New("email cannot be empty")
	}

	m := member.Member{
		ID:        uuid.New().String(),
		AccountID: input.AccountID,
		Name:      input.Name,
		Email:     input.Email,
		Status:    member.StatusActive,
	}

	if err := m.Validate(); err != nil {
		return "", err
	}

	if err := deps.MemberStore.Save(ctx, m); err != nil {
		return "", err
	}

	return m.ID, nil
}
