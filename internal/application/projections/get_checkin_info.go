package projections

import (
	"context"
	"errors"

	"gymdesk/internal/domain/checkin"
	"gymdesk/internal/domain/classtype"
	"gymdesk/internal/domain/courseinstance"
	"gymdesk/internal/domain/ledger"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/registration"
)

// CheckInInfoRegistrationStore defines the store interface needed by this projection.
type CheckInInfoRegistrationStore interface {
	GetByQRCode(ctx context.Context, qrCode string) (registration.Registration, error)
	CountActiveByCourseInstance(ctx context.Context, courseInstanceID string) (int, error)
}

// CheckInInfoMemberStore defines the store interface needed by this projection.
type CheckInInfoMemberStore interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
}

// CheckInInfoInstanceStore defines the store interface needed by this projection.
type CheckInInfoInstanceStore interface {
	GetByID(ctx context.Context, id string) (courseinstance.CourseInstance, error)
}

// CheckInInfoClassTypeStore defines the store interface needed by this projection.
type CheckInInfoClassTypeStore interface {
	GetByID(ctx context.Context, id string) (classtype.ClassType, error)
}

// CheckInInfoLedgerStore defines the store interface needed by this projection.
type CheckInInfoLedgerStore interface {
	GetGroupSession(ctx context.Context, id string) (ledger.GroupSession, error)
}

// CheckInInfoCheckInStore defines the store interface needed by this projection.
type CheckInInfoCheckInStore interface {
	GetByRegistration(ctx context.Context, registrationID string) (checkin.CheckIn, bool, error)
	CountByCourseInstance(ctx context.Context, courseInstanceID string) (int, error)
}

// GetCheckInInfoDeps holds dependencies for the projection.
type GetCheckInInfoDeps struct {
	RegistrationStore CheckInInfoRegistrationStore
	MemberStore       CheckInInfoMemberStore
	InstanceStore     CheckInInfoInstanceStore
	ClassTypeStore    CheckInInfoClassTypeStore
	LedgerStore       CheckInInfoLedgerStore
	CheckInStore      CheckInInfoCheckInStore
}

// CheckInInfoResult is the staff screen snapshot for one scanned QR code:
// who is arriving, for which class, the state of their registration, and
// their remaining session balance.
type CheckInInfoResult struct {
	RegistrationID     string
	RegistrationStatus string
	IsGuest            bool
	Notes              string

	MemberID     string
	MemberName   string
	MemberStatus string

	CourseInstanceID string
	ClassName        string
	CourseDate       string
	StartTime        string
	EndTime          string
	InstanceStatus   string

	SessionsRemaining int // -1 for guests (no pool)
	SessionsTotal     int

	AlreadyCheckedIn bool
	RegisteredCount  int
	CheckedInCount   int
}

// QueryGetCheckInInfo resolves everything the front desk needs to validate a
// scanned QR code, without changing any state.
// PRE: qrCode is non-empty
// POST: Returns the snapshot, or an error when the code matches nothing
func QueryGetCheckInInfo(ctx context.Context, qrCode string, deps GetCheckInInfoDeps) (CheckInInfoResult, error) {
	if qrCode == "" {
		return CheckInInfoResult{}, errors.New("QR code is required")
	}

	reg, err := deps.RegistrationStore.GetByQRCode(ctx, qrCode)
	if err != nil {
		return CheckInInfoResult{}, errors.New("no registration matches this QR code")
	}

	result := CheckInInfoResult{
		RegistrationID:     reg.ID,
		RegistrationStatus: reg.Status,
		IsGuest:            reg.IsGuest,
		Notes:              reg.Notes,
		CourseInstanceID:   reg.CourseInstanceID,
		SessionsRemaining:  -1,
	}

	if m, err := deps.MemberStore.GetByID(ctx, reg.MemberID); err == nil {
		result.MemberID = m.ID
		result.MemberName = m.Name
		result.MemberStatus = m.Status
	}

	instance, err := deps.InstanceStore.GetByID(ctx, reg.CourseInstanceID)
	if err != nil {
		return CheckInInfoResult{}, errors.New("course instance not found")
	}
	result.CourseDate = instance.CourseDate
	result.StartTime = instance.StartTime
	result.EndTime = instance.EndTime
	result.InstanceStatus = instance.Status
	if ct, err := deps.ClassTypeStore.GetByID(ctx, instance.ClassTypeID); err == nil {
		result.ClassName = ct.Name
	}

	if reg.GroupSessionID != "" {
		if pool, err := deps.LedgerStore.GetGroupSession(ctx, reg.GroupSessionID); err == nil {
			result.SessionsRemaining = pool.Remaining
			result.SessionsTotal = pool.Total
		}
	}

	if _, exists, err := deps.CheckInStore.GetByRegistration(ctx, reg.ID); err == nil && exists {
		result.AlreadyCheckedIn = true
	}

	if count, err := deps.RegistrationStore.CountActiveByCourseInstance(ctx, reg.CourseInstanceID); err == nil {
		result.RegisteredCount = count
	}
	if count, err := deps.CheckInStore.CountByCourseInstance(ctx, reg.CourseInstanceID); err == nil {
		result.CheckedInCount = count
	}

	return result, nil
}
