package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/access"
	"github.com/trezcool/tarpaulin/core/assignment"
	"github.com/trezcool/tarpaulin/core/course"
	"github.com/trezcool/tarpaulin/core/submission"
)

type assignmentApi struct {
	svc         *assignment.Service
	courses     *course.Service
	submissions *submission.Service
	rules       *access.Rules
}

func registerAssignmentAPI(app *echo.Echo, deps ServerDeps) {
	api := assignmentApi{
		svc:         deps.AssignmentSvc,
		courses:     deps.CourseSvc,
		submissions: deps.SubmissionSvc,
		rules:       deps.Rules,
	}

	ag := app.Group("/assignments")
	ag.POST("", api.create)

	dg := ag.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PATCH("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/submissions", api.querySubmissions)
}

type submissionPage struct {
	Submissions []submission.Submission `json:"submissions"`
	core.Page
}

// checkTeaches makes sure the actor teaches the course (or is an admin).
// A course that does not exist is only reachable by admins.
func (api *assignmentApi) checkTeaches(ctx echo.Context, courseID int) error {
	var instructorID int
	crs, err := api.courses.GetByID(ctx.Request().Context(), courseID)
	switch {
	case err == nil:
		instructorID = crs.InstructorID
	case !errors.Is(err, core.ErrNotFound):
		return errors.Wrap(err, "finding course by ID")
	}

	ok, err := api.rules.CourseInstructorOrAdmin(ctx.Request().Context(), getActor(ctx), instructorID)
	if err != nil {
		return errors.Wrap(err, "checking course rights")
	}
	if !ok {
		return errHttpForbidden
	}
	return nil
}

func (api *assignmentApi) getAssignment(ctx echo.Context, mustTeach bool) (assignment.Assignment, error) {
	id, err := idParam(ctx, "id")
	if err != nil {
		return assignment.Assignment{}, err
	}
	asgmt, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "finding assignment by ID")
	}
	if mustTeach {
		if err = api.checkTeaches(ctx, asgmt.CourseID); err != nil {
			return assignment.Assignment{}, err
		}
	}
	return asgmt, nil
}

// Handlers

func (api *assignmentApi) create(ctx echo.Context) error {
	payload, err := bindPayload(ctx)
	if err != nil {
		return err
	}
	courseID, _ := payloadInt(payload, "courseId", assignment.Schema.MustSchema().Coerce)
	if err = api.checkTeaches(ctx, courseID); err != nil {
		return err
	}

	asgmt, err := api.svc.Create(ctx.Request().Context(), payload)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asgmt)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	asgmt, err := api.getAssignment(ctx, false)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, asgmt)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	asgmt, err := api.getAssignment(ctx, true)
	if err != nil {
		return err
	}
	payload, err := bindPayload(ctx)
	if err != nil {
		return err
	}
	// moving an assignment requires teaching the target course too
	if courseID, ok := payloadInt(payload, "courseId", assignment.Schema.MustSchema().Coerce); ok && courseID != asgmt.CourseID {
		if err = api.checkTeaches(ctx, courseID); err != nil {
			return err
		}
	}

	asgmt, err = api.svc.Update(ctx.Request().Context(), asgmt.ID, payload)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, asgmt)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	asgmt, err := api.getAssignment(ctx, true)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), asgmt.ID); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) querySubmissions(ctx echo.Context) error {
	asgmt, err := api.getAssignment(ctx, true)
	if err != nil {
		return err
	}

	var studentID int
	if param := ctx.QueryParam("studentId"); param != "" {
		var ok bool
		if studentID, ok = submission.Schema.MustSchema().Coerce("studentId", param).(int); !ok || studentID < 1 {
			return core.NewValidationError(nil, core.FieldError{Field: "studentId", Error: "Invalid value for studentId."})
		}
	}

	subs, pg, err := api.submissions.Query(ctx.Request().Context(), asgmt.ID, studentID, pageNumber(ctx))
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, submissionPage{Submissions: subs, Page: pg})
}
