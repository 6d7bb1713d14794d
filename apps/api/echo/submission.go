package echoapi

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/access"
	"github.com/trezcool/tarpaulin/core/assignment"
	"github.com/trezcool/tarpaulin/core/course"
	"github.com/trezcool/tarpaulin/core/submission"
)

const fileField = "file"

var (
	errNotEnrolled      = echo.NewHTTPError(http.StatusForbidden, submission.ErrNotEnrolled.Error())
	errNotOwnSubmission = echo.NewHTTPError(http.StatusForbidden, "Cannot submit on behalf of another student.")
	errCannotDownload   = echo.NewHTTPError(
		http.StatusForbidden,
		"Cannot get submission unless authenticated as submitting student, course instructor, or admin.",
	)
	errLinkExpired = echo.NewHTTPError(http.StatusForbidden, core.ErrLinkExpired.Error())
	errLinkInvalid = echo.NewHTTPError(http.StatusForbidden, core.ErrLinkInvalid.Error())
)

type submissionApi struct {
	svc         *submission.Service
	assignments *assignment.Service
	courses     *course.Service
	rules       *access.Rules
}

func registerSubmissionAPI(app *echo.Echo, deps ServerDeps) {
	api := submissionApi{
		svc:         deps.SubmissionSvc,
		assignments: deps.AssignmentSvc,
		courses:     deps.CourseSvc,
		rules:       deps.Rules,
	}

	app.POST("/assignments/:id/submissions", api.submit)
	app.POST("/courses/:id/assignments/:aid/submissions", api.submitToCourse)
	app.GET("/submissions/:id/download", api.download)
}

func (api *submissionApi) getAssignment(ctx echo.Context, param string) (assignment.Assignment, error) {
	id, err := idParam(ctx, param)
	if err != nil {
		return assignment.Assignment{}, err
	}
	asgmt, err := api.assignments.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "finding assignment by ID")
	}
	return asgmt, nil
}

// Handlers

func (api *submissionApi) submit(ctx echo.Context) error {
	asgmt, err := api.getAssignment(ctx, "id")
	if err != nil {
		return err
	}
	return api.create(ctx, asgmt)
}

func (api *submissionApi) submitToCourse(ctx echo.Context) error {
	courseID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	asgmt, err := api.getAssignment(ctx, "aid")
	if err != nil {
		return err
	}
	if asgmt.CourseID != courseID {
		return core.ErrNotFound
	}
	return api.create(ctx, asgmt)
}

// create stores the multipart `file` of the request as a submission of the authenticated student.
func (api *submissionApi) create(ctx echo.Context, asgmt assignment.Assignment) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}

	// the optional form fields must agree with the request
	if param := ctx.FormValue("studentId"); param != "" && param != strconv.Itoa(actor.ID) {
		return errNotOwnSubmission
	}
	if param := ctx.FormValue("assignmentId"); param != "" && param != strconv.Itoa(asgmt.ID) {
		return errInvalidBody
	}

	fh, err := ctx.FormFile(fileField)
	if err != nil {
		return errInvalidBody
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	sub, err := api.svc.Submit(ctx.Request().Context(), asgmt, actor.ID, submission.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Content:     f,
	})
	if err != nil {
		if errors.Cause(err) == submission.ErrNotEnrolled {
			return errNotEnrolled
		}
		return errors.Wrap(err, "submitting file")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) download(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	sub, err := api.svc.GetByID(rctx, id)
	if err != nil {
		return errors.Wrap(err, "finding submission by ID")
	}
	asgmt, err := api.assignments.GetByID(rctx, sub.AssignmentID)
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	crs, err := api.courses.GetByID(rctx, asgmt.CourseID)
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}

	actor := getActor(ctx)
	ok := actor != nil && actor.ID == sub.StudentID
	if !ok {
		if ok, err = api.rules.CourseInstructorOrAdmin(rctx, actor, crs.InstructorID); err != nil {
			return errors.Wrap(err, "checking course rights")
		}
	}
	if !ok {
		return errCannotDownload
	}

	link, err := api.svc.DownloadURL(rctx, sub)
	if err != nil {
		return errors.Wrap(err, "issuing download link")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"downloadLink": link})
}

// objectHandler serves the links signed by an in-memory object store.
func objectHandler(objects ObjectReader) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		key, err := url.PathUnescape(ctx.Param("key"))
		if err != nil {
			return core.ErrNotFound
		}
		data, contentType, err := objects.Open(key, ctx.QueryParam("token"))
		switch {
		case errors.Is(err, core.ErrLinkExpired):
			return errLinkExpired
		case errors.Is(err, core.ErrLinkInvalid):
			return errLinkInvalid
		case err != nil:
			return core.ErrNotFound
		}
		if contentType == "" {
			contentType = echo.MIMEOctetStream
		}
		return ctx.Blob(http.StatusOK, contentType, data)
	}
}
