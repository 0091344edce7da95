package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/classroom"
)

// member classroom lists render alphabetically
var memberClassroomsOrdering = core.DBOrdering{Field: "c.name", Ascending: true}

// postgres error codes of interest
const (
	pqUniqueViolation     = pq.ErrorCode("23505")
	pqForeignKeyViolation = pq.ErrorCode("23503")
	pqInsufficientPrivs   = pq.ErrorCode("42501")
)

func pqCode(err error) pq.ErrorCode {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code
	}
	return ""
}

func isPermissionDenied(err error) bool {
	return pqCode(err) == pqInsufficientPrivs
}

type classroomRepository struct {
	db sqlx.ExtContext
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db sqlx.ExtContext) *classroomRepository {
	return &classroomRepository{db: db}
}

func (repo classroomRepository) CreateClassroom(ctx context.Context, room classroom.Classroom) (classroom.Classroom, error) {
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	if room.CreatedAt.IsZero() {
		now := time.Now().UTC()
		room.CreatedAt, room.UpdatedAt = now, now
	}

	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO classroom (id, name, join_code, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		room.ID, room.Name, room.JoinCode, room.CreatedAt, room.UpdatedAt)
	if err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "inserting classroom")
	}
	return room, nil
}

func (repo classroomRepository) GetClassroomByID(ctx context.Context, id string) (classroom.Classroom, error) {
	if _, err := uuid.Parse(id); err != nil {
		return classroom.Classroom{}, classroom.ErrNotFound
	}

	var room classroom.Classroom
	err := sqlx.GetContext(ctx, repo.db, &room,
		`SELECT id, name, join_code, created_at, updated_at FROM classroom WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return classroom.Classroom{}, classroom.ErrNotFound
		}
		return classroom.Classroom{}, errors.Wrap(err, "finding classroom by ID")
	}
	return room, nil
}

// GetClassroomByCode matches a normalized join code. Codes are persisted in
// uppercase canonical form, so equality suffices.
func (repo classroomRepository) GetClassroomByCode(ctx context.Context, code string) (classroom.Classroom, error) {
	var room classroom.Classroom
	err := sqlx.GetContext(ctx, repo.db, &room,
		`SELECT id, name, join_code, created_at, updated_at FROM classroom WHERE join_code = $1`, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return classroom.Classroom{}, classroom.ErrNotFound
		}
		return classroom.Classroom{}, errors.Wrap(err, "finding classroom by code")
	}
	return room, nil
}

func (repo classroomRepository) QueryMemberClassrooms(ctx context.Context, userID string) ([]classroom.Classroom, error) {
	rooms := make([]classroom.Classroom, 0)
	if _, err := uuid.Parse(userID); err != nil {
		return rooms, nil
	}

	err := sqlx.SelectContext(ctx, repo.db, &rooms,
		`SELECT c.id, c.name, c.join_code, c.created_at, c.updated_at
		 FROM classroom c
		 JOIN classroom_membership m ON m.classroom_id = c.id
		 WHERE m.user_id = $1
		 ORDER BY `+memberClassroomsOrdering.String(), userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying member classrooms")
	}
	return rooms, nil
}

func (repo classroomRepository) HasMembership(ctx context.Context, classroomID, userID string) (bool, error) {
	if _, err := uuid.Parse(classroomID); err != nil {
		return false, nil
	}
	if _, err := uuid.Parse(userID); err != nil {
		return false, nil
	}

	var exists bool
	err := sqlx.GetContext(ctx, repo.db, &exists,
		`SELECT EXISTS (SELECT 1 FROM classroom_membership WHERE classroom_id = $1 AND user_id = $2)`,
		classroomID, userID)
	if err != nil {
		return false, errors.Wrap(err, "checking membership")
	}
	return exists, nil
}

// CreateMembership relies on the (classroom_id, user_id) unique constraint:
// a duplicate insert comes back as ErrAlreadyMember, never as a raised
// uniqueness fault.
func (repo classroomRepository) CreateMembership(ctx context.Context, classroomID, userID string) (classroom.Membership, error) {
	m := classroom.Membership{
		ID:          uuid.New().String(),
		ClassroomID: classroomID,
		UserID:      userID,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO classroom_membership (id, classroom_id, user_id, created_at) VALUES ($1, $2, $3, $4)`,
		m.ID, m.ClassroomID, m.UserID, m.CreatedAt)
	if err != nil {
		switch pqCode(err) {
		case pqUniqueViolation:
			return classroom.Membership{}, classroom.ErrAlreadyMember
		case pqForeignKeyViolation:
			return classroom.Membership{}, classroom.ErrNotFound
		}
		return classroom.Membership{}, errors.Wrap(err, "inserting membership")
	}
	return m, nil
}

func (repo classroomRepository) GetExam(ctx context.Context, id string) (classroom.Exam, error) {
	if _, err := uuid.Parse(id); err != nil {
		return classroom.Exam{}, classroom.ErrExamNotFound
	}

	var exam classroom.Exam
	err := sqlx.GetContext(ctx, repo.db, &exam,
		`SELECT id, classroom_id, name, starts_at, duration_min FROM exam WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return classroom.Exam{}, classroom.ErrExamNotFound
		}
		return classroom.Exam{}, errors.Wrap(err, "finding exam by ID")
	}
	return exam, nil
}
