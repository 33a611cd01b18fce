package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"ayashare/internal/logging"
)

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []logging.Attr{
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", status),
			logging.Duration("elapsed", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, logging.String("error", c.Errors.String()))
		}
		switch {
		case status >= 500:
			logger.Error("api request", logging.Args(attrs...)...)
		case c.Request.Method == "GET":
			logger.Debug("api request", logging.Args(attrs...)...)
		default:
			logger.Info("api request", logging.Args(attrs...)...)
		}
	}
}
