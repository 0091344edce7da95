package classroom

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound     = errors.New("classroom not found")
	ErrExamNotFound = errors.New("exam not found")
	// ErrAlreadyMember signals a duplicate (classroom, user) membership insert.
	// It is a signal, not a fault: enrollment treats it as success.
	ErrAlreadyMember = errors.New("already a member of this classroom")
)

type (
	// Classroom is the enrollment unit gating access to its exams.
	// JoinCode is stored in uppercase canonical form and is unique across
	// active classrooms.
	Classroom struct {
		ID        string    `json:"id" db:"id"`
		Name      string    `json:"name" db:"name"`
		JoinCode  string    `json:"join_code" db:"join_code"`
		CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
	}

	// Membership is the durable grant linking an identity to a classroom.
	// At most one row per (classroom_id, user_id); never mutated.
	Membership struct {
		ID          string    `json:"id" db:"id"`
		ClassroomID string    `json:"classroom_id" db:"classroom_id"`
		UserID      string    `json:"user_id" db:"user_id"`
		CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	}

	// Exam belongs to exactly one Classroom; access composes through it.
	// Content/timing mechanics live elsewhere.
	Exam struct {
		ID          string    `json:"id" db:"id"`
		ClassroomID string    `json:"classroom_id" db:"classroom_id"`
		Name        string    `json:"name" db:"name"`
		StartsAt    time.Time `json:"starts_at" db:"starts_at"` // UTC
		DurationMin int       `json:"duration_min" db:"duration_min"`
	}
)

// NormalizeCode maps a human-entered join code to its canonical form:
// surrounding whitespace trimmed, uppercased. Idempotent.
func NormalizeCode(code string) string {
	return strings.ToUpper(core.CleanString(code))
}

// NewClassroom contains information needed to create a new Classroom.
type NewClassroom struct {
	Name     string `json:"name" validate:"required"`
	JoinCode string `json:"join_code" validate:"required,min=4,max=16,joincode"`
}

func (nc *NewClassroom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.JoinCode = NormalizeCode(nc.JoinCode)
	return validate.Struct(nc)
}
