package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meetscribe/capture-agent/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg            *config.Config
	sessionHandler *Session
	meetingHandler *Meeting
	liveHandler    *Live
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, sessionHandler *Session, meetingHandler *Meeting, liveHandler *Live) *Router {
	return &Router{
		cfg:            cfg,
		sessionHandler: sessionHandler,
		meetingHandler: meetingHandler,
		liveHandler:    liveHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)

	// API v1 group
	v1 := e.Group("/v1")

	rt.setupSessionRoutes(v1)
	rt.setupMeetingRoutes(v1)
}

// setupSessionRoutes configures capture session routes
func (rt *Router) setupSessionRoutes(g *echo.Group) {
	sessions := g.Group("/sessions")

	sessions.POST("", rt.sessionHandler.Start)
	sessions.GET("/:id", rt.sessionHandler.Status)
	sessions.PATCH("/:id", rt.sessionHandler.Update)
	sessions.POST("/:id/pause", rt.sessionHandler.Pause)
	sessions.POST("/:id/resume", rt.sessionHandler.Resume)
	sessions.POST("/:id/mute", rt.sessionHandler.Mute)
	sessions.POST("/:id/unmute", rt.sessionHandler.Unmute)
	sessions.POST("/:id/stop", rt.sessionHandler.Stop)
	sessions.POST("/:id/heartbeat", rt.sessionHandler.Heartbeat)
	sessions.GET("/:id/captions", rt.liveHandler.Captions)
}

// setupMeetingRoutes configures finished-meeting routes
func (rt *Router) setupMeetingRoutes(g *echo.Group) {
	meetings := g.Group("/meetings")

	meetings.GET("/:id", rt.meetingHandler.Get)
	meetings.GET("/:id/transcription", rt.meetingHandler.Status)
	meetings.GET("/:id/turns", rt.meetingHandler.Turns)
	meetings.PUT("/:id/speakers", rt.meetingHandler.RenameSpeakers)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
	})
}
