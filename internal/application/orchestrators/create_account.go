package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gymdesk/internal/domain/account"

	"github.com/google/uuid"
)

// AccountStore defines the interface for account persistence.
type AccountStore interface {
	Save(ctx context.Context, a account.Account) error
	GetByEmail(ctx context.Context, email string) (account.Account, error)
}

// CreateAccountInput carries input for account creation.
type CreateAccountInput struct {
	Email    string
	Password string
	Role     string
}

// CreateAccountDeps holds dependencies for CreateAccount.
type CreateAccountDeps struct {
	AccountStore AccountStore
}

// ExecuteCreateAccount creates a login account.
// PRE: Email is unique; password meets the minimum length; role is valid
// POST: Account persisted with a bcrypt password hash
func ExecuteCreateAccount(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) (string, error) {
	if input.Email == "" {
		return "", errors.New("email is required")
	}
	if input.Role == "" {
		input.Role = account.RoleMember
	}
	if _, err := deps.AccountStore.GetByEmail(ctx, input.Email); err == nil {
		return "", errors.New("an account with this email already exists")
	}

	acct := account.Account{
		ID:        uuid.New().String(),
		Email:     input.Email,
		Role:      input.Role,
		CreatedAt: time.Now(),
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return "", err
	}
	if err := acct.Validate(); err != nil {
		return "", err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return "", err
	}

	slog.Info("auth_event", "event", "account_created", "email", input.Email, "role", acct.Role)
	return acct.ID, nil
}

// ChangePasswordInput carries input for a password change.
type ChangePasswordInput struct {
	AccountID       string
	CurrentPassword string
	NewPassword     string
}

// ChangePasswordDeps holds dependencies for ChangePassword.
type ChangePasswordDeps struct {
	AccountStore AccountStoreForPasswordChange
}

// AccountStoreForPasswordChange defines the store interface needed by ChangePassword.
type AccountStoreForPasswordChange interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// ExecuteChangePassword verifies the current password and replaces it.
// PRE: AccountID exists; CurrentPassword matches the stored hash
// POST: Password hash replaced
func ExecuteChangePassword(ctx context.Context, input ChangePasswordInput, deps ChangePasswordDeps) error {
	if input.AccountID == "" {
		return errors.New("account ID is required")
	}

	acct, err := deps.AccountStore.GetByID(ctx, input.AccountID)
	if err != nil {
		return errors.New("account not found")
	}
	if err := acct.CheckPassword(input.CurrentPassword); err != nil {
		return err
	}
	if err := acct.SetPassword(input.NewPassword); err != nil {
		return err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "password_changed", "account_id", acct.ID)
	return nil
}
