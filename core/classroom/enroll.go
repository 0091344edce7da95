package classroom

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// Enrollment submission states. A submission moves
// Idle -> Validating -> ResolvingClassroom -> Creating -> Succeeded | Failed;
// only the terminal states are returned to callers, the rest are observable
// through EnrollState while a submission is in flight.
type EnrollState int

const (
	EnrollIdle EnrollState = iota
	EnrollValidating
	EnrollResolvingClassroom
	EnrollCreating
	EnrollSucceeded
	EnrollFailed
)

const (
	// user-facing failure reasons
	reasonEmptyCode   = "empty code"
	reasonInvalidCode = "invalid code"

	joinedTemplateName = "classroom-joined"
)

var (
	// ErrSubmissionInFlight rejects a submission while an earlier one for the
	// same identity has not reached a terminal state. The earlier submission
	// proceeds; this one is dropped, never raced.
	ErrSubmissionInFlight = errors.New("a join submission is already in progress")

	ErrIdentityRequired = errors.New("identity required")
)

// EnrollResult is the terminal outcome of one join-code submission.
type EnrollResult struct {
	State         EnrollState `json:"-"`
	Classroom     Classroom   `json:"classroom,omitempty"`
	AlreadyMember bool        `json:"already_member,omitempty"`
	// Reason is surfaced verbatim to the submitter on failure. Join codes are
	// not secrets; showing the backend message lets the user retry sensibly.
	Reason string `json:"reason,omitempty"`
}

func (r EnrollResult) Succeeded() bool { return r.State == EnrollSucceeded }

func failed(reason string) EnrollResult {
	return EnrollResult{State: EnrollFailed, Reason: reason}
}

// EnrollState reports the state of the user's in-flight submission, or
// EnrollIdle when none is in flight.
func (svc *Service) EnrollState(userID string) EnrollState {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.inflight[userID]
}

func (svc *Service) beginEnroll(userID string) bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if _, ok := svc.inflight[userID]; ok {
		return false
	}
	svc.inflight[userID] = EnrollValidating
	return true
}

func (svc *Service) setEnrollState(userID string, state EnrollState) {
	svc.mu.Lock()
	svc.inflight[userID] = state
	svc.mu.Unlock()
}

func (svc *Service) endEnroll(userID string) {
	svc.mu.Lock()
	delete(svc.inflight, userID)
	svc.mu.Unlock()
}

// Enroll turns a submitted join code into a durable membership for userID.
//
// The workflow is idempotent: re-submitting a code that already succeeded
// reports success again without creating a duplicate row. An empty or
// whitespace-only code fails without touching the repository. Submissions for
// the same user are serialized; a second one while the first is in flight
// returns ErrSubmissionInFlight.
//
// A nil error with a Failed result is a user-facing validation outcome, not a
// system fault.
func (svc *Service) Enroll(ctx context.Context, userID, rawCode string) (EnrollResult, error) {
	if userID == "" {
		return EnrollResult{}, ErrIdentityRequired
	}
	if !svc.beginEnroll(userID) {
		return EnrollResult{}, ErrSubmissionInFlight
	}
	defer svc.endEnroll(userID)

	// Validating
	code := NormalizeCode(rawCode)
	if code == "" {
		return failed(reasonEmptyCode), nil
	}

	// ResolvingClassroom
	svc.setEnrollState(userID, EnrollResolvingClassroom)
	room, err := svc.repo.GetClassroomByCode(ctx, code)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return failed(reasonInvalidCode), nil
		}
		return failed(errors.Cause(err).Error()), nil
	}

	// Creating
	svc.setEnrollState(userID, EnrollCreating)
	if _, err = svc.repo.CreateMembership(ctx, room.ID, userID); err != nil {
		if errors.Cause(err) == ErrAlreadyMember {
			// idempotent join: re-entering a used code is not an error
			return EnrollResult{State: EnrollSucceeded, Classroom: room, AlreadyMember: true}, nil
		}
		return failed(errors.Cause(err).Error()), nil
	}

	// The guard re-reads membership on every check, so the fresh row is
	// picked up by the very next authorization.
	svc.sendJoinedEmail(ctx, userID, room)
	return EnrollResult{State: EnrollSucceeded, Classroom: room}, nil
}

// sendJoinedEmail sends a confirmation for a first-time join. Best-effort:
// a missing profile or address only costs the email.
func (svc *Service) sendJoinedEmail(ctx context.Context, userID string, room Classroom) {
	if svc.mailSvc == nil || svc.profileRepo == nil {
		return
	}

	prof, err := svc.profileRepo.GetProfileByUserID(ctx, userID)
	if err != nil || !prof.Email.Valid {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: prof.Name.String, Address: prof.Email.String}},
		Subject:      "You joined " + room.Name,
		TemplateName: joinedTemplateName,
		TemplateData: struct {
			Name      string
			Classroom string
		}{Name: prof.Name.String, Classroom: room.Name},
	})
}
