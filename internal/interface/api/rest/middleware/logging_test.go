package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogGin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_requests"}, []string{"result"})

	r := gin.New()
	r.Use(RequestLogGin(zap.New(core), counter))

	var seen string
	r.POST("/compress", func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		seen = string(b)
		c.Status(http.StatusOK)
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	long := `{"recordId":"` + strings.Repeat("x", maxLogBodySize) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/compress", strings.NewReader(long))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, long, seen, "handler must still read the whole body")
	require.Equal(t, 1, logs.Len())

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/compress", fields["url"])
	assert.Len(t, fields["body"], maxLogBodySize)
	assert.Equal(t, float64(1), testutil.ToFloat64(counter.WithLabelValues("app_requests_total")))
}
