package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/access"
	"github.com/trezcool/tarpaulin/core/assignment"
	"github.com/trezcool/tarpaulin/core/course"
	"github.com/trezcool/tarpaulin/core/enrollment"
	"github.com/trezcool/tarpaulin/core/submission"
	"github.com/trezcool/tarpaulin/core/user"
)

type (
	// ObjectReader serves stored objects back through signed links; only the in-memory store needs it.
	ObjectReader interface {
		Open(key, token string) ([]byte, string, error)
	}

	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		UserSvc       *user.Service
		CourseSvc     *course.Service
		EnrollmentSvc *enrollment.Service
		AssignmentSvc *assignment.Service
		SubmissionSvc *submission.Service
		Rules         *access.Rules
		Validate      *validator.Validate
		Translator    ut.Translator

		// optional
		Registry *prometheus.Registry
		Objects  ObjectReader
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(newMetricsMiddleware(s.deps.Registry))
	s.app.Use(newRateLimiter(conf.Server.RateLimit).middleware)
	s.app.Use(actorMiddleware([]byte(conf.SecretKey)))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.GET("/metrics", metricsHandler(s.deps.Registry))
	if s.deps.Objects != nil {
		s.app.GET("/objects/:key", objectHandler(s.deps.Objects))
	}

	registerUserAPI(s.app, s.deps)
	registerCourseAPI(s.app, s.deps)
	registerAssignmentAPI(s.app, s.deps)
	registerSubmissionAPI(s.app, s.deps)
}

// Start listens until the server is shut down; a listening failure is sent on Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Tarpaulin API!")
}
