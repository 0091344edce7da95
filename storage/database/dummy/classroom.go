package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/classroom"
)

type classroomRepository struct {
	db *classroomTable
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *DB) classroom.Repository {
	return &classroomRepository{db: db.classroom}
}

func memberKey(classroomID, userID string) string {
	return classroomID + "/" + userID
}

func (repo *classroomRepository) enter(method string) error {
	repo.db.calls[method]++
	if err := repo.db.failNext; err != nil {
		repo.db.failNext = nil
		return err
	}
	return nil
}

func (repo *classroomRepository) CreateClassroom(ctx context.Context, room classroom.Classroom) (classroom.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.enter("CreateClassroom"); err != nil {
		return classroom.Classroom{}, err
	}
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	repo.db.rooms[room.ID] = &room
	return room, nil
}

func (repo *classroomRepository) GetClassroomByID(ctx context.Context, id string) (classroom.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.enter("GetClassroomByID"); err != nil {
		return classroom.Classroom{}, err
	}
	if room, ok := repo.db.rooms[id]; ok {
		return *room, nil
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) GetClassroomByCode(ctx context.Context, code string) (classroom.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.enter("GetClassroomByCode"); err != nil {
		return classroom.Classroom{}, err
	}
	for _, room := range repo.db.rooms {
		if room.JoinCode == code {
			return *room, nil
		}
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) QueryMemberClassrooms(ctx context.Context, userID string) ([]classroom.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.enter("QueryMemberClassrooms"); err != nil {
		return nil, err
	}
	rooms := make([]classroom.Classroom, 0)
	for _, m := range repo.db.memberships {
		if m.UserID == userID {
			if room, ok := repo.db.rooms[m.ClassroomID]; ok {
				rooms = append(rooms, *room)
			}
		}
	}
	return rooms, nil
}

func (repo *classroomRepository) HasMembership(ctx context.Context, classroomID, userID string) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.enter("HasMembership"); err != nil {
		return false, err
	}
	_, ok := repo.db.memberships[memberKey(classroomID, userID)]
	return ok, nil
}

func (repo *classroomRepository) CreateMembership(ctx context.Context, classroomID, userID string) (classroom.Membership, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.enter("CreateMembership"); err != nil {
		return classroom.Membership{}, err
	}
	if _, ok := repo.db.rooms[classroomID]; !ok {
		return classroom.Membership{}, classroom.ErrNotFound
	}
	key := memberKey(classroomID, userID)
	if _, ok := repo.db.memberships[key]; ok {
		return classroom.Membership{}, classroom.ErrAlreadyMember
	}
	m := classroom.Membership{
		ID:          uuid.New().String(),
		ClassroomID: classroomID,
		UserID:      userID,
		CreatedAt:   time.Now().UTC(),
	}
	repo.db.memberships[key] = &m
	return m, nil
}

func (repo *classroomRepository) GetExam(ctx context.Context, id string) (classroom.Exam, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.enter("GetExam"); err != nil {
		return classroom.Exam{}, err
	}
	if exam, ok := repo.db.exams[id]; ok {
		return *exam, nil
	}
	return classroom.Exam{}, classroom.ErrExamNotFound
}
