package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/classroom"
)

type classroomApi struct {
	svc      *classroom.Service
	validate *validator.Validate
}

func registerClassroomAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := classroomApi{
		svc:      opts.ClassroomSvc,
		validate: opts.Validate,
	}

	cg := g.Group("/classrooms")

	// authed endpoints
	ag := cg.Group("", jwt)
	ag.POST("/join", api.join)
	ag.GET("", api.queryMine)

	// guarded detail endpoints; anonymous callers are redirected, not 401'd
	dg := cg.Group("/:id", optionalAuthMiddleware(), classroomGuardMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.GET("/exams/:examID", api.retrieveExam, examGuardMiddleware(api.svc))
}

// Handlers

func (api *classroomApi) join(ctx echo.Context) error {
	var data JoinRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}

	identity := contextIdentity(ctx)
	if identity == nil {
		return errUnauthenticated
	}

	// the workflow owns code validation: an empty code must fail there
	// without any repository call, not in a bind-time validator
	res, err := api.svc.Enroll(ctx.Request().Context(), identity.UserID, data.Code)
	if err != nil {
		switch errors.Cause(err) {
		case classroom.ErrSubmissionInFlight:
			return errHttpConflict
		case classroom.ErrIdentityRequired:
			return errUnauthenticated
		}
		return errors.Wrap(err, "submitting join code")
	}
	if !res.Succeeded() {
		return core.NewValidationError(nil, core.FieldError{Field: "code", Error: res.Reason})
	}

	return ctx.JSON(http.StatusOK, JoinResponse{
		Classroom:     res.Classroom,
		AlreadyMember: res.AlreadyMember,
	})
}

func (api *classroomApi) queryMine(ctx echo.Context) error {
	identity := contextIdentity(ctx)
	if identity == nil {
		return errUnauthenticated
	}

	rooms, err := api.svc.QueryMember(ctx.Request().Context(), identity.UserID)
	if err != nil {
		return errors.Wrap(err, "querying member classrooms")
	}
	return ctx.JSON(http.StatusOK, rooms)
}

func (api *classroomApi) retrieve(ctx echo.Context) error {
	room, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == classroom.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding classroom")
	}
	return ctx.JSON(http.StatusOK, room)
}

func (api *classroomApi) retrieveExam(ctx echo.Context) error {
	exam, err := api.svc.GetExam(ctx.Request().Context(), ctx.Param("examID"))
	if err != nil {
		if errors.Cause(err) == classroom.ErrExamNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding exam")
	}
	// the exam must be addressed through its owning classroom
	if exam.ClassroomID != ctx.Param("id") {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, exam)
}

type (
	JoinRequest struct {
		Code string `json:"code"`
	}

	JoinResponse struct {
		Classroom     classroom.Classroom `json:"classroom"`
		AlreadyMember bool                `json:"already_member"`
	}
)
