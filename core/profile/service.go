package profile

import (
	"context"
	"errors"
)

var (
	// errors
	ErrNotFound = errors.New("profile not found")
	// ErrDenied means the record store rejected the read (row-level policy
	// mismatch). Distinguished from ErrNotFound for diagnostics; both degrade
	// to "no profile" for rendering.
	ErrDenied = errors.New("profile read denied")
)

type (
	Repository interface {
		// GetProfileByUserID is a single-row fetch keyed by identity.
		GetProfileByUserID(ctx context.Context, userID string) (Profile, error)
		CreateProfile(ctx context.Context, p Profile) (Profile, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) GetByUserID(ctx context.Context, userID string) (Profile, error) {
	return svc.repo.GetProfileByUserID(ctx, userID)
}

// Create provisions a profile record. Part of account provisioning
// (admin tooling), not of the request path.
func (svc *Service) Create(ctx context.Context, np NewProfile) (Profile, error) {
	p := Profile{
		UserID: np.UserID,
		Role:   np.Role,
	}
	if np.Email != "" {
		p.Email.SetValid(np.Email)
	}
	if np.Name != "" {
		p.Name.SetValid(np.Name)
	}
	if np.Phone != "" {
		p.Phone.SetValid(np.Phone)
	}
	return svc.repo.CreateProfile(ctx, p)
}
