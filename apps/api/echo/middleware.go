package echoapi

import (
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/classroom"
)

// optionalAuthMiddleware resolves the caller's claims when a valid bearer
// token is present and leaves the caller anonymous otherwise. Routes behind it
// rely on the guard to deny by default, so a bad token is simply "no identity"
// rather than a 401.
func optionalAuthMiddleware() echo.MiddlewareFunc {
	config := newJWTConfig()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
				token, err := jwt.ParseWithClaims(auth[7:], new(Claims), func(t *jwt.Token) (interface{}, error) {
					if t.Method.Alg() != config.SigningMethod {
						return nil, errSigningToken
					}
					return config.SigningKey, nil
				})
				if err == nil && token.Valid {
					ctx.Set(contextTokenKey, token)
				}
			}
			return next(ctx)
		}
	}
}

// classroomGuardMiddleware asks the guard for a decision on the :id classroom
// and performs the redirect the decision calls for. Unauthenticated callers go
// to the sign-in page; authenticated non-members go back to their classroom
// list. The guard itself never navigates.
func classroomGuardMiddleware(svc *classroom.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			identity := contextIdentity(ctx)
			decision := svc.Authorize(ctx.Request().Context(), identity, ctx.Param("id"))
			return dispatchDecision(ctx, decision, next)
		}
	}
}

// examGuardMiddleware re-evaluates access through the exam's owning classroom.
// It runs on every exam navigation: an Allow from the classroom landing is
// never reused.
func examGuardMiddleware(svc *classroom.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			identity := contextIdentity(ctx)
			decision := svc.AuthorizeExam(ctx.Request().Context(), identity, ctx.Param("examID"))
			return dispatchDecision(ctx, decision, next)
		}
	}
}

func dispatchDecision(ctx echo.Context, decision classroom.Decision, next echo.HandlerFunc) error {
	switch decision {
	case classroom.Allow:
		return next(ctx)
	case classroom.DenyUnauthenticated:
		return ctx.Redirect(http.StatusFound, core.Conf.FrontendBaseURL+"/login")
	default: // DenyUnauthorized
		return ctx.Redirect(http.StatusFound, core.Conf.FrontendBaseURL+"/classrooms")
	}
}
