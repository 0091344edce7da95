package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/account"
	"github.com/trezcool/darasa/core/profile"
)

type accountApi struct {
	profileSvc *profile.Service
	logger     core.Logger
}

func registerAccountAPI(g *echo.Group, opts *Options) {
	api := accountApi{
		profileSvc: opts.ProfileSvc,
		logger:     opts.Logger,
	}

	g.GET("/account", api.snapshot, optionalAuthMiddleware())
}

// snapshot answers "who am I" for header/account surfaces. Anonymous callers
// get an empty snapshot; a missing or policy-denied profile degrades to
// "unknown" fields rather than an error.
func (api *accountApi) snapshot(ctx echo.Context) error {
	identity := contextIdentity(ctx)
	if identity == nil {
		return ctx.JSON(http.StatusOK, account.Snapshot{})
	}

	snap := account.Snapshot{Identity: identity}
	prof, err := api.profileSvc.GetByUserID(ctx.Request().Context(), identity.UserID)
	if err != nil {
		if cause := errors.Cause(err); cause != profile.ErrNotFound && cause != profile.ErrDenied {
			api.logger.Error("fetching profile", errors.Wrap(err, "fetching profile"), *identity)
		}
		return ctx.JSON(http.StatusOK, snap)
	}
	snap.Profile = &prof
	return ctx.JSON(http.StatusOK, snap)
}
