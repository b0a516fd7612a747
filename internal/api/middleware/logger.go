package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hunter-console/pkg/logger"
	"go.uber.org/zap"
)

// LoggerMiddleware 按状态码选择级别记录每个请求
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status_code", statusCode),
			zap.String("method", method),
			zap.String("path", path),
			zap.String("client_ip", c.ClientIP()),
			zap.String("cost", time.Since(start).String()),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, zap.String("errors", errs))
		}

		switch {
		case statusCode >= 500:
			logger.Logger.Error("HTTP request", fields...)
		case statusCode >= 400:
			logger.Logger.Warn("HTTP request", fields...)
		default:
			logger.Logger.Info("HTTP request", fields...)
		}
	}
}
