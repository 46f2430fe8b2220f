package web

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func AccessLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		t := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if path == "/healthz" {
			return
		}

		latency := time.Since(t)
		if raw != "" {
			path = path + "?" + raw
		}
		msg := c.Errors.String()
		if msg == "" {
			msg = "Request"
		}

		statusCode := c.Writer.Status()
		event := log.Info()
		switch {
		case statusCode >= 500:
			event = log.Error()
		case statusCode >= 400:
			event = log.Warn()
		}
		event.Str("logger", "access").Str("method", c.Request.Method).
			Str("path", path).Dur("resp_time", latency).Int("status", statusCode).
			Str("client_ip", c.ClientIP()).Str("cache", c.Writer.Header().Get("X-Cache")).
			Msg(msg)
	}
}
