package metrics

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trezcool/skripsi/core/progress"
)

const namespace = "skripsi"

// Metrics holds the app collectors; it observes resolved stages, notification publishes & HTTP requests.
type Metrics struct {
	stageResolutions *prometheus.CounterVec
	published        *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		stageResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_resolutions_total",
				Help:      "Total resolved thesis progress stages",
			},
			[]string{"stage"},
		),
		published: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_published_total",
				Help:      "Total realtime notification publishes",
			},
			[]string{"result"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "route", "code"},
		),
	}
}

func (m *Metrics) ObserveStage(stage progress.Stage) {
	m.stageResolutions.WithLabelValues(stage.Label).Inc()
}

func (m *Metrics) ObservePublish(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.published.WithLabelValues(result).Inc()
}

// Middleware counts requests by route pattern, so path params do not explode the label space.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			code := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					code = he.Code
				} else if !c.Response().Committed {
					code = 0 // resolved by the error handler
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			codeLabel := "error"
			if code > 0 {
				codeLabel = strconv.Itoa(code)
			}
			m.httpRequests.WithLabelValues(c.Request().Method, route, codeLabel).Inc()
			return err
		}
	}
}
