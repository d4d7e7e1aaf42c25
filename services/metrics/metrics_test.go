package metricsvc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/levels/:id", func(c echo.Context) error {
		if c.Param("id") == "0" {
			return echo.NewHTTPError(http.StatusNotFound, "level not found")
		}
		return c.NoContent(http.StatusOK)
	})

	for _, path := range []string{"/levels/1", "/levels/2", "/levels/0"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/levels/:id", http.MethodGet, "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/levels/:id", http.MethodGet, "404")))
}

func TestObservers(t *testing.T) {
	m := New()
	m.ObserveSubmission("attendance", 3)
	m.ObserveSubmission("attendance", 2)
	m.ObserveReport("uniform")
	m.ObserveTokensPurged(4)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.submissions.WithLabelValues("attendance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reports.WithLabelValues("uniform")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.tokensPurged))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "asistencia_recovery_tokens_purged_total 4"))
}
