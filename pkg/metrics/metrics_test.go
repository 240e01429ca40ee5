package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestEvent_IncrementsCounter(t *testing.T) {
	before := EventCount("test_event", "ok")
	Event("test_event", "ok")
	Event("test_event", "ok")
	require.Equal(t, before+2, EventCount("test_event", "ok"))
}

func TestHandlerFunc_CountsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	p := NewPrometheus(NewPrometheusOptions{Subsystem: "test", Registerer: reg})

	r := gin.New()
	p.Use(r)
	r.GET("/jobs/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	require.Equal(t, float64(2), CounterValue(p.reqCnt.WithLabelValues("200", http.MethodGet, "/jobs/:id", "")))
}
