package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/profile"
)

type profileRepository struct {
	db *profileTable
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *DB) profile.Repository {
	return &profileRepository{db: db.profile}
}

func (repo *profileRepository) takeFault() error {
	if err := repo.db.failNext; err != nil {
		repo.db.failNext = nil
		return err
	}
	return nil
}

func (repo *profileRepository) GetProfileByUserID(ctx context.Context, userID string) (profile.Profile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.takeFault(); err != nil {
		return profile.Profile{}, err
	}
	if repo.db.policy.DeniedProfileReads[userID] {
		return profile.Profile{}, profile.ErrDenied
	}
	if p, ok := repo.db.table[userID]; ok {
		return *p, nil
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.takeFault(); err != nil {
		return profile.Profile{}, err
	}
	if p.UserID == "" {
		p.UserID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	repo.db.table[p.UserID] = &p
	return p, nil
}
