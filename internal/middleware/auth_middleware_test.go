package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"guild-loot/internal/metrics"
	"guild-loot/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-secret"

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	token, err := utils.GenerateToken(testSecret, "1234", "Alice", true, time.Hour)
	require.NoError(t, err)
	foreign, err := utils.GenerateToken("other-secret", "1234", "Alice", true, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "Valid token", header: "Bearer " + token, wantStatus: http.StatusOK},
		{name: "Missing auth header", wantStatus: http.StatusUnauthorized},
		{name: "Invalid auth format", header: "InvalidFormat " + token, wantStatus: http.StatusUnauthorized},
		{name: "Invalid token", header: "Bearer invalid.token.here", wantStatus: http.StatusUnauthorized},
		{name: "Token signed with another secret", header: "Bearer " + foreign, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(AuthMiddleware(testSecret))
			r.GET("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{
					"external_id": c.GetString(KeyExternalID),
					"name":        c.GetString(KeyCallerName),
					"admin":       c.GetBool(KeyCallerAdmin),
				})
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"external_id":"1234","name":"Alice","admin":true}`, w.Body.String())
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(), GinZapLogger())
	r.GET("/items/:name", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	before := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/items/:name", "4xx"))
	unmatchedBefore := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("unmatched", "4xx"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/ashkandi", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/items/:name", "4xx")))
	assert.Equal(t, unmatchedBefore+1, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("unmatched", "4xx")))
}
