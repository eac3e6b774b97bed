package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/skripsi/core/progress"
)

func TestMetrics_ObserveStage(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveStage(progress.Resolve(progress.Snapshot{ProposalStatus: progress.ProposalGraduated}))
	m.ObserveStage(progress.Resolve(progress.Snapshot{ProposalStatus: progress.ProposalGraduated}))
	m.ObserveStage(progress.Resolve(progress.Snapshot{}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.stageResolutions.WithLabelValues(progress.LabelGraduated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageResolutions.WithLabelValues(progress.LabelProposalSubmission)))
}

func TestMetrics_ObservePublish(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePublish(nil)
	m.ObservePublish(errors.New("redis down"))
	m.ObservePublish(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.published.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.published.WithLabelValues("error")))
}

func TestMetrics_Middleware(t *testing.T) {
	m := New(prometheus.NewRegistry())
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/v1/proposals/:id", func(c echo.Context) error {
		if c.Param("id") == "missing" {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return c.NoContent(http.StatusOK)
	})

	for _, path := range []string{"/v1/proposals/a", "/v1/proposals/b", "/v1/proposals/missing"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/v1/proposals/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/v1/proposals/:id", "404")))
}
