package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rental-portal/internal/config"
	"rental-portal/internal/errorx"
	"rental-portal/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingCounters(t *testing.T) {
	m := New(config.MetricsConfig{Namespace: "test"})

	m.BookingSubmitted(nil)
	m.BookingSubmitted(errorx.SelfBooking("own unit"))
	m.BookingDecided(models.DecisionApprove, nil)
	m.BookingDecided(models.DecisionCancel, errorx.InvalidTransition("already Approved"))
	m.ManualOverride(models.OccupancyOccupied)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingsSubmitted.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingsSubmitted.WithLabelValues("self_booking")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingsDecided.WithLabelValues("approve", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingsDecided.WithLabelValues("cancel", "invalid_transition")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.manualOverrides.WithLabelValues("Occupied")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(config.MetricsConfig{Namespace: "test"})

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `test_http_requests_total{method="GET",route="/ping",status="204"} 1`), body)
}
