package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/shkola/core"
	"github.com/trezcool/shkola/core/policy"
	"github.com/trezcool/shkola/core/school"
	"github.com/trezcool/shkola/core/user"
	"github.com/trezcool/shkola/services/ratelimit"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Users          *user.Service
		School         *school.Services
		Policy         *policy.Engine
		Limiter        ratelimit.Limiter // optional
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
		// Shutdown receives a signal when a handler hits a core.shutdown error.
		Shutdown chan<- os.Signal
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	authed := v1.Group("", middleware.JWTWithConfig(jwtConfig(conf)), principalMiddleware(s.opts.Users))

	registerAuthAPI(v1, authed, s.opts)
	registerUserAPI(authed, s.opts)
	registerClassAPI(authed, s.opts)
	registerSubjectAPI(authed, s.opts)
	registerScheduleAPI(authed, s.opts)
	registerGradeAPI(authed, s.opts)
	registerHomeworkAPI(authed, s.opts)
}

func (s *server) signalShutdown() {
	if s.opts.Shutdown == nil {
		return
	}
	select {
	case s.opts.Shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

// Start blocks until the server stops. It returns http.ErrServerClosed after Stop.
func (s *server) Start() error {
	return s.app.Start(s.opts.Conf.Server.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.Conf.AppName+" API!")
}
