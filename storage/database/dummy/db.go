package dummydb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/profile"
)

type (
	// DB is an in-memory record store used in tests and local hacking.
	//
	// Policy stands in for the real store's row-level access rules so that
	// Denied-vs-NotFound behavior is testable without the backend's policy
	// engine. FailNext injects one transient fault per table for fail-closed
	// tests.
	DB struct {
		profile   *profileTable
		classroom *classroomTable
	}

	Policy struct {
		// DeniedProfileReads lists user IDs whose profile rows the store
		// refuses to return (read rejected, not absent).
		DeniedProfileReads map[string]bool
	}

	profileTable struct {
		sync.RWMutex
		table    map[string]*profile.Profile // keyed by user ID
		policy   Policy
		failNext error
	}

	classroomTable struct {
		sync.RWMutex
		rooms       map[string]*classroom.Classroom  // keyed by classroom ID
		exams       map[string]*classroom.Exam       // keyed by exam ID
		memberships map[string]*classroom.Membership // keyed by classroom_id/user_id
		failNext    error
		// Calls counts repository calls by method name; tests assert on it
		// (e.g. an empty join code must issue zero calls).
		calls map[string]int
	}
)

func Open() (*DB, error) {
	db := &DB{
		profile: &profileTable{
			table:  make(map[string]*profile.Profile),
			policy: Policy{DeniedProfileReads: make(map[string]bool)},
		},
		classroom: &classroomTable{
			rooms:       make(map[string]*classroom.Classroom),
			exams:       make(map[string]*classroom.Exam),
			memberships: make(map[string]*classroom.Membership),
			calls:       make(map[string]int),
		},
	}
	return db, nil
}

// DenyProfileReads marks user IDs as rejected by the store's row policy.
func (db *DB) DenyProfileReads(userIDs ...string) {
	db.profile.Lock()
	defer db.profile.Unlock()
	for _, id := range userIDs {
		db.profile.policy.DeniedProfileReads[id] = true
	}
}

// FailNextProfileOp makes the next profile repository call return err.
func (db *DB) FailNextProfileOp(err error) {
	db.profile.Lock()
	defer db.profile.Unlock()
	db.profile.failNext = err
}

// FailNextClassroomOp makes the next classroom repository call return err.
func (db *DB) FailNextClassroomOp(err error) {
	db.classroom.Lock()
	defer db.classroom.Unlock()
	db.classroom.failNext = err
}

// ClassroomCalls returns how many times the named classroom repository method
// was called.
func (db *DB) ClassroomCalls(method string) int {
	db.classroom.RLock()
	defer db.classroom.RUnlock()
	return db.classroom.calls[method]
}

// SeedExam inserts an exam row directly (exam provisioning is out of scope,
// tests only need the classroom link).
func (db *DB) SeedExam(exam classroom.Exam) classroom.Exam {
	db.classroom.Lock()
	defer db.classroom.Unlock()
	if exam.ID == "" {
		exam.ID = uuid.New().String()
	}
	db.classroom.exams[exam.ID] = &exam
	return exam
}

// MembershipCount returns the number of membership rows.
func (db *DB) MembershipCount() int {
	db.classroom.RLock()
	defer db.classroom.RUnlock()
	return len(db.classroom.memberships)
}
