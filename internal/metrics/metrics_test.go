package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"commission-art-backend/internal/metrics"
)

func TestObserve(t *testing.T) {
	m := metrics.New()

	m.ObserveTransition("accept", nil)
	m.ObserveTransition("accept", nil)
	m.ObserveTransition("complete", errors.New("boom"))
	m.ObserveMessage("sent")
	m.ObserveMessage("rate_limited")
	m.ObserveUpload("final-works", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("accept", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("complete", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Messages.WithLabelValues("rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Uploads.WithLabelValues("final-works", "ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveTransition("accept", nil)
		m.ObserveMessage("sent")
		m.ObserveUpload("gallery-images", nil)
	})
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	req, _ := http.NewRequest("GET", "/orders/123", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestTimes))

	req, _ = http.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `commission_http_request_duration_seconds_count{method="GET",route="/orders/:id",status="204"} 1`)
}
