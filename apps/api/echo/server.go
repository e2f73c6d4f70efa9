package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/course"
	"github.com/gopimeda/elearning/core/enrollment"
	"github.com/gopimeda/elearning/core/quiz"
	"github.com/gopimeda/elearning/core/review"
	"github.com/gopimeda/elearning/core/user"
)

type (
	// Deps carries every collaborator the API surfaces.
	Deps struct {
		Logger        core.Logger
		UserSvc       user.ServiceInterface
		CourseSvc     course.ServiceInterface
		QuizSvc       quiz.ServiceInterface
		EnrollmentSvc enrollment.ServiceInterface
		ReviewSvc     review.ServiceInterface
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		addr     string
		shutdown chan<- struct{}
		deps     *Deps
		app      *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(addr string, shutdown chan<- struct{}, deps *Deps) Server {
	s := &server{
		addr:     addr,
		shutdown: shutdown,
		deps:     deps,
		app:      echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !core.Conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	validate := validator.New()
	core.InitValidators(validate, core.Translator)
	user.InitValidators(validate, core.Translator)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.deps.UserSvc, validate)
	registerCourseAPI(v1, jwt, s.deps.CourseSvc, s.deps.UserSvc, validate)
	registerQuizAPI(v1, jwt, s.deps.QuizSvc, s.deps.CourseSvc, s.deps.UserSvc, validate)
	registerEnrollmentAPI(v1, jwt, s.deps.EnrollmentSvc, s.deps.UserSvc)
	registerReviewAPI(v1, jwt, s.deps.ReviewSvc, s.deps.UserSvc, validate)
}

func (s *server) signalShutdown() {
	if s.shutdown != nil {
		s.shutdown <- struct{}{}
	}
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.addr))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
}
