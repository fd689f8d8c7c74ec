package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gymdesk/internal/adapters/email"
	"gymdesk/internal/domain/courseinstance"
	"gymdesk/internal/domain/ledger"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/registration"

	"github.com/google/uuid"
)

// CancelInstanceStore defines the course instance store interface needed by class cancellation.
type CancelInstanceStore interface {
	GetByID(ctx context.Context, id string) (courseinstance.CourseInstance, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// CancelInstanceRegistrationStore defines the registration store interface needed by class cancellation.
type CancelInstanceRegistrationStore interface {
	ListByCourseInstance(ctx context.Context, courseInstanceID string) ([]registration.Registration, error)
	CancelWithCredit(ctx context.Context, reg registration.Registration, entry *ledger.Entry) error
}

// CancelInstanceMemberStore defines the member store interface needed for notifications.
type CancelInstanceMemberStore interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
}

// CancelInstanceInput carries input for cancelling a whole class.
type CancelInstanceInput struct {
	CourseInstanceID string
	Reason           string
	Actor            string // staff account ID
}

// CancelInstanceResult reports how many registrations were settled.
type CancelInstanceResult struct {
	RegistrationsCancelled int
	Refunded               int
	Notified               int
}

// CancelInstanceDeps holds dependencies for CancelInstance.
type CancelInstanceDeps struct {
	InstanceStore     CancelInstanceStore
	RegistrationStore CancelInstanceRegistrationStore
	MemberStore       CancelInstanceMemberStore
	EmailSender       email.Sender // optional: nil skips notifications
	FromAddress       string       // Default from address
	ReplyTo           string       // Reply-to address
	GenerateID        func() string
	Now               func() time.Time
}

// ExecuteCancelInstance cancels a class and unwinds its registrations. Every
// active registration is cancelled with a full refund regardless of timing,
// since the member did nothing wrong. Notification failures are logged and
// ignored; the cancellation itself never depends on email delivery.
// PRE: CourseInstanceID names a scheduled instance
// POST: Instance is cancelled and every active registration refunded
func ExecuteCancelInstance(ctx context.Context, input CancelInstanceInput, deps CancelInstanceDeps) (CancelInstanceResult, error) {
	if deps.GenerateID == nil {
		deps.GenerateID = func() string { return uuid.New().String() }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if input.CourseInstanceID == "" {
		return CancelInstanceResult{}, errors.New("course instance ID is required")
	}

	instance, err := deps.InstanceStore.GetByID(ctx, input.CourseInstanceID)
	if err != nil {
		return CancelInstanceResult{}, errors.New("course instance not found")
	}
	if instance.Status == courseinstance.StatusCancelled {
		return CancelInstanceResult{}, nil
	}
	if !instance.IsOpen() {
		return CancelInstanceResult{}, errors.New("only scheduled instances can be cancelled")
	}

	if err := deps.InstanceStore.UpdateStatus(ctx, instance.ID, courseinstance.StatusCancelled); err != nil {
		return CancelInstanceResult{}, err
	}

	regs, err := deps.RegistrationStore.ListByCourseInstance(ctx, instance.ID)
	if err != nil {
		return CancelInstanceResult{}, err
	}

	now := deps.Now()
	result := CancelInstanceResult{}
	for _, reg := range regs {
		if !reg.IsActive() {
			continue
		}
		var entry *ledger.Entry
		if reg.GroupSessionID != "" {
			entry = &ledger.Entry{
				ID:             deps.GenerateID(),
				GroupSessionID: reg.GroupSessionID,
				RegistrationID: reg.ID,
				Delta:          1,
				Reason:         ledger.ReasonCancellationCredit,
				Actor:          input.Actor,
				CreatedAt:      now,
			}
		}
		if err := deps.RegistrationStore.CancelWithCredit(ctx, reg, entry); err != nil {
			slog.Error("registration_event", "event", "instance_cancel_failed", "registration_id", reg.ID, "error", err)
			continue
		}
		result.RegistrationsCancelled++
		if entry != nil {
			result.Refunded++
		}
		if deps.EmailSender != nil && deps.MemberStore != nil {
			if notifyInstanceCancelled(ctx, deps, reg.MemberID, instance, input.Reason) {
				result.Notified++
			}
		}
	}

	slog.Info("registration_event", "event", "instance_cancelled", "course_instance_id", instance.ID, "cancelled", result.RegistrationsCancelled, "refunded", result.Refunded, "actor", input.Actor)
	return result, nil
}

func notifyInstanceCancelled(ctx context.Context, deps CancelInstanceDeps, memberID string, instance courseinstance.CourseInstance, reason string) bool {
	m, err := deps.MemberStore.GetByID(ctx, memberID)
	if err != nil || m.Email == "" {
		return false
	}
	body := fmt.Sprintf("<p>Hi %s,</p><p>Your class on %s at %s has been cancelled.", m.Name, instance.CourseDate, instance.StartTime)
	if reason != "" {
		body += fmt.Sprintf(" Reason: %s.", reason)
	}
	body += "</p><p>Any session used for this booking has been returned to your balance.</p>"
	_, err = deps.EmailSender.Send(ctx, email.SendRequest{
		To:      []string{m.Email},
		From:    deps.FromAddress,
		Subject: fmt.Sprintf("Class cancelled: %s", instance.CourseDate),
		HTML:    body,
		ReplyTo: deps.ReplyTo,
	})
	if err != nil {
		slog.Error("email_event", "event", "cancel_notification_failed", "member_id", memberID, "error", err)
		return false
	}
	return true
}
