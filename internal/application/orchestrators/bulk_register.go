package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gymdesk/internal/domain/registration"
)

// BulkRegisterInput carries input for registering several members at once.
type BulkRegisterInput struct {
	MemberIDs        []string
	CourseInstanceID string
	Force            bool
	Actor            string
}

// BulkRegisterOutcome is the per-member result of a bulk registration. It
// crosses the wire as-is, so the failure reason is a plain string and
// overlap conflicts keep their structure.
type BulkRegisterOutcome struct {
	MemberID       string
	RegistrationID string
	QRCode         string
	Error          string                         `json:",omitempty"` // empty on success
	Conflicts      []registration.OverlapConflict `json:",omitempty"`
}

// BulkRegisterResult carries per-member outcomes in input order.
type BulkRegisterResult struct {
	Outcomes  []BulkRegisterOutcome
	Succeeded int
	Failed    int
}

// ExecuteBulkRegister registers each member independently: one member's
// guard failure never blocks the others, and earlier successes are kept.
// PRE: MemberIDs is non-empty; CourseInstanceID is non-empty
// POST: Returns one outcome per member in input order
func ExecuteBulkRegister(ctx context.Context, input BulkRegisterInput, deps RegisterForCourseDeps) (BulkRegisterResult, error) {
	if len(input.MemberIDs) == 0 {
		return BulkRegisterResult{}, errors.New("at least one member is required")
	}
	if input.CourseInstanceID == "" {
		return BulkRegisterResult{}, errors.New("course instance ID is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	result := BulkRegisterResult{Outcomes: make([]BulkRegisterOutcome, 0, len(input.MemberIDs))}
	for _, memberID := range input.MemberIDs {
		single, err := ExecuteRegisterForCourse(ctx, RegisterForCourseInput{
			MemberID:         memberID,
			CourseInstanceID: input.CourseInstanceID,
			Force:            input.Force,
			Actor:            input.Actor,
		}, deps)
		outcome := BulkRegisterOutcome{MemberID: memberID}
		if err == nil {
			outcome.RegistrationID = single.RegistrationID
			outcome.QRCode = single.QRCode
			result.Succeeded++
		} else {
			outcome.Error = err.Error()
			if oe, ok := registration.AsOverlapError(err); ok {
				outcome.Conflicts = oe.Conflicts
			}
			result.Failed++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	slog.Info("registration_event", "event", "bulk_registered", "course_instance_id", input.CourseInstanceID, "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}
