package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Keys set on the gin context by the request middleware
const (
	RequestIDKey = "request_id"
	StartTimeKey = "start_time"
)

// fromRequest tags e with the request id, route and elapsed time of c
func fromRequest(c *gin.Context, e *zerolog.Event) *zerolog.Event {
	if c == nil {
		return e
	}
	if id := c.GetString(RequestIDKey); id != "" {
		e = e.Str("request_id", id)
	}
	if route := c.FullPath(); route != "" {
		e = e.Str("route", route)
	}
	if start, ok := c.Get(StartTimeKey); ok {
		if t, ok := start.(time.Time); ok {
			e = e.Dur("elapsed", time.Since(t))
		}
	}
	return e
}

func Info(c *gin.Context) *zerolog.Event  { return fromRequest(c, log.Info()) }
func Debug(c *gin.Context) *zerolog.Event { return fromRequest(c, log.Debug()) }
func Warn(c *gin.Context) *zerolog.Event  { return fromRequest(c, log.Warn()) }
func Error(c *gin.Context) *zerolog.Event { return fromRequest(c, log.Error()) }
