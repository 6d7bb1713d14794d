package echoapi

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/access"
	"github.com/trezcool/tarpaulin/core/assignment"
	"github.com/trezcool/tarpaulin/core/course"
	"github.com/trezcool/tarpaulin/core/enrollment"
)

type courseApi struct {
	svc         *course.Service
	enrollments *enrollment.Service
	assignments *assignment.Service
	rules       *access.Rules
	validate    *validator.Validate
}

func registerCourseAPI(app *echo.Echo, deps ServerDeps) {
	api := courseApi{
		svc:         deps.CourseSvc,
		enrollments: deps.EnrollmentSvc,
		assignments: deps.AssignmentSvc,
		rules:       deps.Rules,
		validate:    deps.Validate,
	}

	cg := app.Group("/courses")
	cg.GET("", api.query)
	cg.POST("", api.create)

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PATCH("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/students", api.students)
	dg.POST("/students", api.updateEnrollment)
	dg.GET("/roster", api.roster)
	dg.GET("/assignments", api.listAssignments)
}

type coursePage struct {
	Courses []course.Course `json:"courses"`
	core.Page
}

// enrollmentUpdate is the body of POST /courses/:id/students.
type enrollmentUpdate struct {
	Add    []int `json:"add" validate:"dive,gt=0"`
	Remove []int `json:"remove" validate:"dive,gt=0"`
}

// getCourse loads the course of the request and checks that the actor teaches it (or is an admin).
func (api *courseApi) getCourse(ctx echo.Context, mustTeach bool) (course.Course, error) {
	id, err := idParam(ctx, "id")
	if err != nil {
		return course.Course{}, err
	}
	crs, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "finding course by ID")
	}
	if !mustTeach {
		return crs, nil
	}

	ok, err := api.rules.CourseInstructorOrAdmin(ctx.Request().Context(), getActor(ctx), crs.InstructorID)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "checking course rights")
	}
	if !ok {
		return course.Course{}, errHttpForbidden
	}
	return crs, nil
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	filters := queryFilters(ctx, course.FilterFields...)
	courses, pg, err := api.svc.Query(ctx.Request().Context(), pageNumber(ctx), filters...)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, coursePage{Courses: courses, Page: pg})
}

func (api *courseApi) create(ctx echo.Context) error {
	payload, err := bindPayload(ctx)
	if err != nil {
		return err
	}

	instructorID, _ := payloadInt(payload, "instructorId", course.Schema.MustSchema().Coerce)
	ok, err := api.rules.CourseInstructorOrAdmin(ctx.Request().Context(), getActor(ctx), instructorID)
	if err != nil {
		return errors.Wrap(err, "checking course rights")
	}
	if !ok {
		return errHttpForbidden
	}

	crs, err := api.svc.Create(ctx.Request().Context(), payload)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.getCourse(ctx, false)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, err := api.getCourse(ctx, true)
	if err != nil {
		return err
	}
	payload, err := bindPayload(ctx)
	if err != nil {
		return err
	}

	crs, err = api.svc.Update(ctx.Request().Context(), crs.ID, payload)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs, err := api.getCourse(ctx, false)
	if err != nil {
		return err
	}
	admin, err := api.rules.RequireAdmin(ctx.Request().Context(), getActor(ctx))
	if err != nil {
		return errors.Wrap(err, "checking admin rights")
	}
	if admin == nil {
		return errHttpForbidden
	}

	if err = api.svc.Delete(ctx.Request().Context(), crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) students(ctx echo.Context) error {
	crs, err := api.getCourse(ctx, true)
	if err != nil {
		return err
	}
	ids, err := api.enrollments.StudentIDs(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "listing course students")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"students": ids})
}

func (api *courseApi) updateEnrollment(ctx echo.Context) error {
	crs, err := api.getCourse(ctx, true)
	if err != nil {
		return err
	}

	var data enrollmentUpdate
	if err = ctx.Bind(&data); err != nil {
		return errInvalidBody
	}
	if data.Add == nil && data.Remove == nil { // an empty list is still a request
		return errInvalidBody
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	if err = api.enrollments.Enroll(ctx.Request().Context(), crs.ID, data.Add...); err != nil {
		return errors.Wrap(err, "enrolling students")
	}
	if _, err = api.enrollments.Unenroll(ctx.Request().Context(), crs.ID, data.Remove...); err != nil {
		return errors.Wrap(err, "unenrolling students")
	}
	return ctx.NoContent(http.StatusOK)
}

func (api *courseApi) roster(ctx echo.Context) error {
	crs, err := api.getCourse(ctx, true)
	if err != nil {
		return err
	}
	students, err := api.enrollments.Students(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "listing course students")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, usr := range students {
		if err = w.Write([]string{strconv.Itoa(usr.ID), usr.Name.String, usr.Email}); err != nil {
			return errors.Wrap(err, "writing roster")
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return errors.Wrap(err, "writing roster")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=roster-%d.csv", crs.ID))
	return ctx.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

func (api *courseApi) listAssignments(ctx echo.Context) error {
	crs, err := api.getCourse(ctx, false)
	if err != nil {
		return err
	}
	asgmts, err := api.assignments.ForCourse(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "listing course assignments")
	}
	ids := make([]int, 0, len(asgmts))
	for _, a := range asgmts {
		ids = append(ids, a.ID)
	}
	return ctx.JSON(http.StatusOK, echo.Map{"assignments": ids})
}
