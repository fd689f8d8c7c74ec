package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"gymdesk/internal/domain/account"
	"gymdesk/internal/domain/classtype"
	"gymdesk/internal/domain/plan"

	"github.com/google/uuid"
)

// ClassTypeStoreForSeed defines the store interface needed by SeedCatalog.
type ClassTypeStoreForSeed interface {
	Save(ctx context.Context, ct classtype.ClassType) error
	List(ctx context.Context) ([]classtype.ClassType, error)
}

// PlanStoreForSeed defines the store interface needed by SeedCatalog.
type PlanStoreForSeed interface {
	Save(ctx context.Context, p plan.Plan) error
	List(ctx context.Context) ([]plan.Plan, error)
}

// SeedCatalogDeps holds dependencies for SeedCatalog.
type SeedCatalogDeps struct {
	ClassTypeStore ClassTypeStoreForSeed
	PlanStore      PlanStoreForSeed
}

// ExecuteSeedCatalog creates default class types and plans if none exist.
func ExecuteSeedCatalog(ctx context.Context, deps SeedCatalogDeps) error {
	existing, err := deps.ClassTypeStore.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil // Already seeded
	}

	classTypes := []classtype.ClassType{
		{ID: uuid.New().String(), Name: "Open Gym", Category: "gym", MaxCapacity: 40, DurationMin: 90},
		{ID: uuid.New().String(), Name: "Spinning", Category: "cardio", MaxCapacity: 20, DurationMin: 45},
		{ID: uuid.New().String(), Name: "HIIT", Category: "cardio", MaxCapacity: 16, DurationMin: 45},
		{ID: uuid.New().String(), Name: "Yoga", Category: "mind_body", MaxCapacity: 18, DurationMin: 60},
		{ID: uuid.New().String(), Name: "Pilates", Category: "mind_body", MaxCapacity: 14, DurationMin: 60},
		{ID: uuid.New().String(), Name: "Personal Training", Category: "personal", MaxCapacity: 1, DurationMin: 60},
	}
	for _, ct := range classTypes {
		if err := deps.ClassTypeStore.Save(ctx, ct); err != nil {
			return err
		}
	}

	basicID := uuid.New().String()
	fullID := uuid.New().String()
	plans := []plan.Plan{
		{
			ID:   basicID,
			Name: "Basic",
			Groups: []plan.SessionGroup{
				{ID: uuid.New().String(), PlanID: basicID, Name: "Group classes", Sessions: 8, Categories: []string{"cardio", "mind_body"}},
			},
		},
		{
			ID:   fullID,
			Name: "Full",
			Groups: []plan.SessionGroup{
				{ID: uuid.New().String(), PlanID: fullID, Name: "Group classes", Sessions: 16, Categories: []string{"cardio", "mind_body", "gym"}},
				{ID: uuid.New().String(), PlanID: fullID, Name: "Personal training", Sessions: 2, Categories: []string{"personal"}},
			},
		},
	}
	for _, p := range plans {
		if err := deps.PlanStore.Save(ctx, p); err != nil {
			return err
		}
	}

	slog.Info("seed_event", "event", "catalog_seeded", "class_types", len(classTypes), "plans", len(plans))
	return nil
}

// SeedAdminInput carries the bootstrap admin credentials.
type SeedAdminInput struct {
	Email    string
	Password string
}

// AccountStoreForSeed defines the store interface needed by SeedAdmin.
type AccountStoreForSeed interface {
	Save(ctx context.Context, a account.Account) error
	Count(ctx context.Context) (int, error)
}

// SeedAdminDeps holds dependencies for SeedAdmin.
type SeedAdminDeps struct {
	AccountStore AccountStoreForSeed
}

// ExecuteSeedAdmin creates the bootstrap admin account on first run.
// PRE: Email and Password come from deploy configuration
// POST: One admin account exists; no-op when any account already does
func ExecuteSeedAdmin(ctx context.Context, input SeedAdminInput, deps SeedAdminDeps) error {
	count, err := deps.AccountStore.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil // Already bootstrapped
	}

	acct := account.Account{
		ID:        uuid.New().String(),
		Email:     input.Email,
		Role:      account.RoleAdmin,
		CreatedAt: time.Now(),
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return err
	}
	if err := acct.Validate(); err != nil {
		return err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return err
	}

	slog.Info("seed_event", "event", "admin_seeded", "email", input.Email)
	return nil
}
