package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"guild-loot/pkg/logger"
	"guild-loot/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.L
	logger.L = zap.New(core)
	t.Cleanup(func() { logger.L = prev })
	return logs
}

func TestGinZapLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := observeLogs(t)

	r := gin.New()
	r.Use(GinZapLogger())
	r.GET("/api/items", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/commands", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.Status(http.StatusForbidden)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/items?full=1", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, generated)

	token, err := utils.GenerateToken(testSecret, "1234", "Alice", false, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/commands", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(HeaderRequestID, "trace-7")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "trace-7", w.Header().Get(HeaderRequestID))

	entries := logs.FilterMessage("Request").AllUntimed()
	require.Len(t, entries, 2)

	ok := entries[0].ContextMap()
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, generated, ok["requestID"])
	assert.Equal(t, "full=1", ok["query"])
	assert.NotContains(t, ok, "caller")

	denied := entries[1].ContextMap()
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "trace-7", denied["requestID"])
	assert.Equal(t, "1234", denied["caller"])
	assert.Equal(t, int64(http.StatusForbidden), denied["status"])
}

func TestRequestScopedLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := observeLogs(t)

	r := gin.New()
	r.Use(GinZapLogger())
	r.POST("/api/commands", AuthMiddleware(testSecret), func(c *gin.Context) {
		logger.From(c.Request.Context()).Info("Handling command")
		c.Status(http.StatusOK)
	})

	token, err := utils.GenerateToken(testSecret, "1234", "Alice", false, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/commands", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(HeaderRequestID, "trace-9")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("Handling command").AllUntimed()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "trace-9", fields["requestID"])
	assert.Equal(t, "1234", fields["caller"])
}
