package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/access"
	"github.com/trezcool/tarpaulin/core/course"
	"github.com/trezcool/tarpaulin/core/enrollment"
	"github.com/trezcool/tarpaulin/core/user"
)

var errNoPermsToSetRole = echo.NewHTTPError(http.StatusForbidden, "Not enough rights to create a user with this role.")

type userApi struct {
	conf        *core.Config
	svc         *user.Service
	courses     *course.Service
	enrollments *enrollment.Service
	rules       *access.Rules
	validate    *validator.Validate
}

func registerUserAPI(app *echo.Echo, deps ServerDeps) {
	api := userApi{
		conf:        deps.Conf,
		svc:         deps.UserSvc,
		courses:     deps.CourseSvc,
		enrollments: deps.EnrollmentSvc,
		rules:       deps.Rules,
		validate:    deps.Validate,
	}

	ug := app.Group("/users")
	ug.POST("", api.create)
	ug.POST("/login", api.login)
	ug.GET("/:id", api.retrieve)
}

type userDetail struct {
	user.User
	Courses []int `json:"courses,omitempty"`
}

// Handlers

func (api *userApi) create(ctx echo.Context) error {
	payload, err := bindPayload(ctx)
	if err != nil {
		return err
	}

	// only admins may create instructors and admins
	role, _ := payload["role"].(string)
	ok, err := api.rules.CanCreateUser(ctx.Request().Context(), getActor(ctx), role)
	if err != nil {
		return errors.Wrap(err, "checking user creation rights")
	}
	if !ok {
		return errNoPermsToSetRole
	}

	usr, err := api.svc.Create(ctx.Request().Context(), payload)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"id": usr.ID})
}

func (api *userApi) login(ctx echo.Context) error {
	var creds user.Credentials
	if err := ctx.Bind(&creds); err != nil {
		return errLoginRequired
	}
	if err := api.validate.Struct(creds); err != nil {
		return errLoginRequired
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), creds.Email, creds.Password)
	if err != nil {
		if errors.Cause(err) == user.ErrInvalidCredentials {
			return errBadCredentials
		}
		return errors.Wrap(err, "authenticating user")
	}

	token, err := GenerateToken(api.conf, usr.ID)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"token": token})
}

func (api *userApi) retrieve(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}

	detail := userDetail{User: usr}
	switch {
	case usr.IsInstructor():
		courses, err := api.courses.TaughtBy(ctx.Request().Context(), usr.ID)
		if err != nil {
			return errors.Wrap(err, "listing taught courses")
		}
		for _, crs := range courses {
			detail.Courses = append(detail.Courses, crs.ID)
		}
	case usr.IsStudent():
		if detail.Courses, err = api.enrollments.CourseIDs(ctx.Request().Context(), usr.ID); err != nil {
			return errors.Wrap(err, "listing enrolled courses")
		}
	}
	return ctx.JSON(http.StatusOK, detail)
}
