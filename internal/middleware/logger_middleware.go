package middleware

import (
	"net/http"
	"time"

	"guild-loot/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	HeaderRequestID = "X-Request-ID"
	KeyRequestID    = "requestID"
)

// GinZapLogger tags each request with an id and logs it once it completes.
// An incoming X-Request-ID is kept so ids can be followed across proxies.
func GinZapLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(KeyRequestID, requestID)
		c.Header(HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(logger.NewContext(c.Request.Context(), zap.String("requestID", requestID)))

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.String("requestID", requestID),
			zap.Int("status", statusCode),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}
		// set by AuthMiddleware further down the chain
		if caller := c.GetString(KeyExternalID); caller != "" {
			fields = append(fields, zap.String("caller", caller))
		}
		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			fields = append(fields, zap.String("error", errorMessage))
		}

		switch {
		case statusCode >= http.StatusInternalServerError:
			logger.L.Error("Request", fields...)
		case statusCode >= http.StatusBadRequest:
			logger.L.Warn("Request", fields...)
		default:
			logger.L.Debug("Request", fields...)
		}
	}
}
