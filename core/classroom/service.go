package classroom

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/profile"
	"github.com/trezcool/darasa/core/session"
)

type (
	Repository interface {
		CreateClassroom(ctx context.Context, room Classroom) (Classroom, error)
		GetClassroomByID(ctx context.Context, id string) (Classroom, error)
		// GetClassroomByCode matches an already-normalized join code.
		GetClassroomByCode(ctx context.Context, code string) (Classroom, error)
		// QueryMemberClassrooms returns only the given user's classrooms;
		// it must never expose other users' membership rows.
		QueryMemberClassrooms(ctx context.Context, userID string) ([]Classroom, error)
		// HasMembership is a single filtered existence check.
		HasMembership(ctx context.Context, classroomID, userID string) (bool, error)
		// CreateMembership returns ErrAlreadyMember on a duplicate
		// (classroom_id, user_id) pair instead of a uniqueness fault.
		CreateMembership(ctx context.Context, classroomID, userID string) (Membership, error)
		GetExam(ctx context.Context, id string) (Exam, error)
	}

	Service struct {
		repo        Repository
		profileRepo profile.Repository
		mailSvc     core.EmailService
		logger      core.Logger

		mu       sync.Mutex
		inflight map[string]EnrollState // userID -> current submission state
	}
)

func NewService(repo Repository, profileRepo profile.Repository, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		repo:        repo,
		profileRepo: profileRepo,
		mailSvc:     mailSvc,
		logger:      logger,
		inflight:    make(map[string]EnrollState),
	}
}

func (svc *Service) Create(ctx context.Context, nc NewClassroom) (Classroom, error) {
	now := time.Now().UTC()
	room := Classroom{
		Name:      nc.Name,
		JoinCode:  NormalizeCode(nc.JoinCode),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateClassroom(ctx, room)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Classroom, error) {
	return svc.repo.GetClassroomByID(ctx, id)
}

func (svc *Service) GetExam(ctx context.Context, id string) (Exam, error) {
	return svc.repo.GetExam(ctx, id)
}

// QueryMember returns the classrooms the given user is a member of.
func (svc *Service) QueryMember(ctx context.Context, userID string) ([]Classroom, error) {
	return svc.repo.QueryMemberClassrooms(ctx, userID)
}

// AddMember creates a membership directly (teacher/admin action), bypassing
// the join-code workflow but going through the same idempotent repository op.
func (svc *Service) AddMember(ctx context.Context, classroomID, userID string) (Membership, error) {
	return svc.repo.CreateMembership(ctx, classroomID, userID)
}

// Authorization Guard

// Decision is the outcome of an access check. It is computed fresh on every
// check and must not be cached across navigations: membership can be revoked
// between a classroom landing and a child exam.
type Decision int

const (
	// DenyUnauthenticated: no identity; the caller belongs on the
	// unauthenticated entry point.
	DenyUnauthenticated Decision = iota
	// DenyUnauthorized: identity present but no membership (or the check
	// could not be completed); the caller belongs on their classroom list.
	DenyUnauthorized
	Allow
)

func (d Decision) Allowed() bool { return d == Allow }

// Authorize decides whether identity may access the given classroom.
// A repository fault never resolves to Allow: it is logged and denied.
// The caller owns any redirect; the guard only decides.
func (svc *Service) Authorize(ctx context.Context, identity *session.Identity, classroomID string) Decision {
	if identity == nil || identity.UserID == "" || identity.Expired() {
		return DenyUnauthenticated
	}

	isMember, err := svc.repo.HasMembership(ctx, classroomID, identity.UserID)
	if err != nil {
		// fail closed
		svc.logger.Error("checking membership", errors.Wrap(err, "checking membership"), *identity)
		return DenyUnauthorized
	}
	if !isMember {
		return DenyUnauthorized
	}
	return Allow
}

// AuthorizeExam composes classroom authorization: an exam belongs to exactly
// one classroom and is accessible iff its owning classroom is. An unknown exam
// is denied rather than surfaced, so probing exam IDs leaks nothing.
func (svc *Service) AuthorizeExam(ctx context.Context, identity *session.Identity, examID string) Decision {
	if identity == nil || identity.UserID == "" || identity.Expired() {
		return DenyUnauthenticated
	}

	exam, err := svc.repo.GetExam(ctx, examID)
	if err != nil {
		if errors.Cause(err) != ErrExamNotFound {
			svc.logger.Error("finding exam", errors.Wrap(err, "finding exam"), *identity)
		}
		return DenyUnauthorized
	}
	return svc.Authorize(ctx, identity, exam.ClassroomID)
}
