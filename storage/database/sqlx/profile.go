package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/profile"
)

type profileRepository struct {
	db sqlx.ExtContext
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db sqlx.ExtContext) *profileRepository {
	return &profileRepository{db: db}
}

func (repo profileRepository) GetProfileByUserID(ctx context.Context, userID string) (profile.Profile, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return profile.Profile{}, profile.ErrNotFound
	}

	var p profile.Profile
	err := sqlx.GetContext(ctx, repo.db, &p,
		`SELECT user_id, email, name, role, phone, created_at, updated_at FROM profile WHERE user_id = $1`, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return profile.Profile{}, profile.ErrNotFound
		}
		if isPermissionDenied(err) {
			return profile.Profile{}, profile.ErrDenied
		}
		return profile.Profile{}, errors.Wrap(err, "finding profile by user ID")
	}
	return p, nil
}

func (repo profileRepository) CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	if p.UserID == "" {
		p.UserID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO profile (user_id, email, name, role, phone, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.UserID, p.Email, p.Name, p.Role, p.Phone, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return p, nil
}
