package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gymdesk/internal/domain/classtype"
	"gymdesk/internal/domain/courseinstance"
	"gymdesk/internal/domain/ledger"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/registration"

	"github.com/google/uuid"
)

// RegistrationMemberStore defines the member store interface needed by registration.
type RegistrationMemberStore interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
}

// RegistrationInstanceStore defines the course instance store interface needed by registration.
type RegistrationInstanceStore interface {
	GetByID(ctx context.Context, id string) (courseinstance.CourseInstance, error)
	ListByMemberOnDate(ctx context.Context, memberID, date string) ([]courseinstance.CourseInstance, error)
}

// RegistrationClassTypeStore defines the class type store interface needed by registration.
type RegistrationClassTypeStore interface {
	GetByID(ctx context.Context, id string) (classtype.ClassType, error)
}

// RegistrationLedgerStore defines the ledger store interface needed by registration.
type RegistrationLedgerStore interface {
	ListEligible(ctx context.Context, memberID, category, onDate string) ([]ledger.GroupSession, error)
}

// RegistrationStoreForOrchestrator defines the registration store interface
// needed by registration.
type RegistrationStoreForOrchestrator interface {
	GetActiveByMemberAndInstance(ctx context.Context, memberID, courseInstanceID string) (registration.Registration, bool, error)
	RegisterWithDebit(ctx context.Context, reg registration.Registration, entry *ledger.Entry) error
}

// RegisterForCourseInput carries input for the registration orchestrator.
type RegisterForCourseInput struct {
	MemberID         string
	CourseInstanceID string
	Force            bool   // bypass the overlap check only
	IsGuest          bool   // guest spots hold capacity but consume no session
	Notes            string
	Actor            string // account ID performing the action, or "self"
}

// RegisterForCourseResult carries the created registration.
type RegisterForCourseResult struct {
	RegistrationID string
	QRCode         string
	GroupSessionID string // empty for guests
}

// RegisterForCourseDeps holds dependencies for RegisterForCourse.
type RegisterForCourseDeps struct {
	MemberStore       RegistrationMemberStore
	InstanceStore     RegistrationInstanceStore
	ClassTypeStore    RegistrationClassTypeStore
	LedgerStore       RegistrationLedgerStore
	RegistrationStore RegistrationStoreForOrchestrator
	GenerateID        func() string
	Now               func() time.Time
}

// ExecuteRegisterForCourse admits a member into a course instance: it runs
// the admission guards in order, picks the session pool from the member's
// soonest-expiring covering subscription, and commits the registration
// together with the pool debit.
// PRE: MemberID and CourseInstanceID are non-empty
// POST: Registration exists with status registered and one session debited,
// or a guard error and no state change
// INVARIANT: Force bypasses only the overlap guard, never capacity or eligibility
func ExecuteRegisterForCourse(ctx context.Context, input RegisterForCourseInput, deps RegisterForCourseDeps) (RegisterForCourseResult, error) {
	if deps.GenerateID == nil {
		deps.GenerateID = func() string { return uuid.New().String() }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if input.MemberID == "" {
		return RegisterForCourseResult{}, errors.New("member ID is required")
	}
	if input.CourseInstanceID == "" {
		return RegisterForCourseResult{}, errors.New("course instance ID is required")
	}

	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return RegisterForCourseResult{}, errors.New("member not found")
	}
	if !m.CanRegister() {
		return RegisterForCourseResult{}, member.ErrNotActive
	}

	instance, err := deps.InstanceStore.GetByID(ctx, input.CourseInstanceID)
	if err != nil {
		return RegisterForCourseResult{}, errors.New("course instance not found")
	}
	if !instance.IsOpen() {
		return RegisterForCourseResult{}, courseinstance.ErrNotOpen
	}
	now := deps.Now()
	if instance.HasStarted(now) {
		return RegisterForCourseResult{}, registration.ErrCourseAlreadyStarted
	}

	if _, exists, err := deps.RegistrationStore.GetActiveByMemberAndInstance(ctx, input.MemberID, input.CourseInstanceID); err != nil {
		return RegisterForCourseResult{}, err
	} else if exists {
		return RegisterForCourseResult{}, registration.ErrAlreadyRegistered
	}

	if !input.Force {
		if err := checkOverlaps(ctx, input.MemberID, instance, deps); err != nil {
			return RegisterForCourseResult{}, err
		}
	}

	classType, err := deps.ClassTypeStore.GetByID(ctx, instance.ClassTypeID)
	if err != nil {
		return RegisterForCourseResult{}, errors.New("class type not found")
	}

	var pools []ledger.GroupSession
	if !input.IsGuest {
		pools, err = deps.LedgerStore.ListEligible(ctx, input.MemberID, classType.Category, instance.CourseDate)
		if err != nil {
			return RegisterForCourseResult{}, err
		}
		if len(pools) == 0 {
			return RegisterForCourseResult{}, registration.ErrNoActiveSubscription
		}
	}

	reg := registration.Registration{
		ID:               deps.GenerateID(),
		MemberID:         input.MemberID,
		CourseInstanceID: input.CourseInstanceID,
		Status:           registration.StatusRegistered,
		RegisteredAt:     now,
		QRCode:           deps.GenerateID(),
		IsGuest:          input.IsGuest,
		Notes:            input.Notes,
	}

	if input.IsGuest {
		if err := reg.Validate(); err != nil {
			return RegisterForCourseResult{}, err
		}
		if err := deps.RegistrationStore.RegisterWithDebit(ctx, reg, nil); err != nil {
			return RegisterForCourseResult{}, err
		}
		slog.Info("registration_event", "event", "guest_registered", "registration_id", reg.ID, "member_id", input.MemberID, "course_instance_id", input.CourseInstanceID)
		return RegisterForCourseResult{RegistrationID: reg.ID, QRCode: reg.QRCode}, nil
	}

	// Try pools in consumption order. A pool drained by a concurrent
	// registration rolls the whole attempt back, so the next pool gets a
	// clean retry.
	for _, pool := range pools {
		reg.GroupSessionID = pool.ID
		if err := reg.Validate(); err != nil {
			return RegisterForCourseResult{}, err
		}
		entry := ledger.Entry{
			ID:             deps.GenerateID(),
			GroupSessionID: pool.ID,
			RegistrationID: reg.ID,
			Delta:          -1,
			Reason:         ledger.ReasonRegistrationDebit,
			Actor:          input.Actor,
			CreatedAt:      now,
		}
		err := deps.RegistrationStore.RegisterWithDebit(ctx, reg, &entry)
		if errors.Is(err, ledger.ErrInsufficientSessions) {
			continue
		}
		if err != nil {
			return RegisterForCourseResult{}, err
		}
		slog.Info("registration_event", "event", "member_registered", "registration_id", reg.ID, "member_id", input.MemberID, "course_instance_id", input.CourseInstanceID, "group_session_id", pool.ID)
		return RegisterForCourseResult{RegistrationID: reg.ID, QRCode: reg.QRCode, GroupSessionID: pool.ID}, nil
	}
	return RegisterForCourseResult{}, registration.ErrNoActiveSubscription
}

func checkOverlaps(ctx context.Context, memberID string, instance courseinstance.CourseInstance, deps RegisterForCourseDeps) error {
	existing, err := deps.InstanceStore.ListByMemberOnDate(ctx, memberID, instance.CourseDate)
	if err != nil {
		return err
	}
	conflicts := []registration.OverlapConflict{}
	for _, other := range existing {
		if !instance.Overlaps(&other) {
			continue
		}
		name := other.ClassTypeID
		if ct, err := deps.ClassTypeStore.GetByID(ctx, other.ClassTypeID); err == nil {
			name = ct.Name
		}
		conflicts = append(conflicts, registration.OverlapConflict{
			CourseInstanceID: other.ID,
			ClassName:        name,
			CourseDate:       other.CourseDate,
			StartTime:        other.StartTime,
			EndTime:          other.EndTime,
			TrainerID:        other.TrainerID,
		})
	}
	if len(conflicts) > 0 {
		return &registration.OverlapError{Conflicts: conflicts}
	}
	return nil
}
