package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGinMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)

	registry := prometheus.NewRegistry()
	m, err := NewHTTPMetricsWithRegisterer(registry, Config{ServiceName: "aquivis"})
	require.NoError(t, err)

	router := gin.New()
	router.Use(GinMiddleware(m))
	router.DELETE("/api/team/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"1", "2"} {
		req := httptest.NewRequest(http.MethodDelete, "/api/team/"+id, nil)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	count := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodDelete, "/api/team/:id", "200"))
	assert.Equal(t, float64(2), count)
}

func TestNewHTTPMetricsRejectsDoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewHTTPMetricsWithRegisterer(registry, Config{})
	require.NoError(t, err)

	_, err = NewHTTPMetricsWithRegisterer(registry, Config{})
	assert.Error(t, err)
}
