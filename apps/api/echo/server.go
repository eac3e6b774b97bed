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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/notification"
	"github.com/trezcool/skripsi/core/thesis"
	"github.com/trezcool/skripsi/core/user"
	"github.com/trezcool/skripsi/services/metrics"
)

type (
	Options struct {
		Conf       *core.Config
		Logger     core.Logger
		UserSvc    user.Service
		ThesisSvc  thesis.Service
		NotifSvc   notification.Service
		Validate   *validator.Validate
		Translator ut.Translator

		// Metrics & Gatherer are optional; /metrics is only served with a Gatherer.
		Metrics  *metrics.Metrics
		Gatherer prometheus.Gatherer

		// Shutdown receives a SIGTERM when a handler hits a core.shutdown error.
		Shutdown chan os.Signal
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		auth *authenticator
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.Logger == nil {
		opts.Logger = core.NewNopLogger()
	}
	s := &server{
		opts: opts,
		auth: newAuthenticator(opts.Conf, opts.UserSvc),
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if s.opts.Metrics != nil {
		s.app.Use(s.opts.Metrics.Middleware())
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.auth, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	if s.opts.Gatherer != nil {
		s.app.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig)

	registerUserAPI(v1, jwt, s.auth, s.opts.UserSvc, s.opts.Validate)
	registerThesisAPI(v1, jwt, s.auth, s.opts.ThesisSvc, s.opts.Validate)
	registerDashboardAPI(v1, jwt, s.auth, s.opts.ThesisSvc)
	registerNotificationAPI(v1, jwt, s.auth, s.opts.NotifSvc, s.opts.Logger)
}

func (s *server) signalShutdown() {
	if s.opts.Shutdown != nil {
		s.opts.Shutdown <- syscall.SIGTERM
	}
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Conf.Server.Addr)
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
